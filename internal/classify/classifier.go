package classify

import (
	"sort"

	"github.com/simplesdash/simplesdash/internal/filing"
)

// Source names the cascade tier that produced a bucket.
type Source string

const (
	SourceActivityDetail  Source = "activityDetail"
	SourceRawActivities   Source = "rawActivities"
	SourceTaxesByActivity Source = "taxesByActivity"
	SourceProportional    Source = "proportional"
	SourceRevenueShare    Source = "revenueShare"
	SourceDefault         Source = "default"
	SourceNone            Source = "none"
)

// Result is the revenue and tax attribution of one filing.
type Result struct {
	Revenue       Bucket `json:"revenue"`
	Tax           Bucket `json:"tax"`
	RevenueSource Source `json:"revenueSource"`
	TaxSource     Source `json:"taxSource"`
}

// Options tunes the classifier.
type Options struct {
	// DefaultKind receives all revenue when no tier can attribute it.
	// Empty means Services.
	DefaultKind Kind
}

type revenueAttempt struct {
	source Source
	run    func(f filing.MonthlyFiling) (Bucket, bool)
}

type taxAttempt struct {
	source Source
	run    func(f filing.MonthlyFiling, revenue Bucket) (Bucket, bool)
}

// Classifier runs the revenue and tax cascades. The first attempt that
// yields usable data wins; tiers are never blended.
type Classifier struct {
	defaultKind Kind
	revenue     []revenueAttempt
	tax         []taxAttempt
}

// New builds a Classifier.
func New(opts Options) *Classifier {
	c := &Classifier{defaultKind: opts.DefaultKind}
	if c.defaultKind == "" {
		c.defaultKind = Services
	}
	c.revenue = []revenueAttempt{
		{SourceActivityDetail, revenueFromDetail},
		{SourceRawActivities, revenueFromRawActivities},
		{SourceProportional, revenueFromTaxRatios},
		{SourceDefault, c.revenueDefault},
	}
	c.tax = []taxAttempt{
		{SourceTaxesByActivity, taxFromBreakdown},
		{SourceRawActivities, taxFromRawActivities},
		{SourceActivityDetail, taxFromInstallments},
		{SourceRevenueShare, c.taxFromRevenueShare},
	}
	return c
}

// DefaultKind returns the kind used when no tier attributes revenue.
func (c *Classifier) DefaultKind() Kind { return c.defaultKind }

var defaultClassifier = New(Options{})

// Classify runs the default classifier.
func Classify(f filing.MonthlyFiling) Result {
	return defaultClassifier.Classify(f)
}

// Classify attributes revenue first, then taxes.
func (c *Classifier) Classify(f filing.MonthlyFiling) Result {
	res := Result{RevenueSource: SourceNone, TaxSource: SourceNone}
	for _, attempt := range c.revenue {
		if b, ok := attempt.run(f); ok {
			res.Revenue, res.RevenueSource = b, attempt.source
			break
		}
	}
	for _, attempt := range c.tax {
		if b, ok := attempt.run(f, res.Revenue); ok {
			res.Tax, res.TaxSource = b, attempt.source
			break
		}
	}
	return res
}

func revenueFromDetail(f filing.MonthlyFiling) (Bucket, bool) {
	var b Bucket
	for _, d := range f.ActivityDetail {
		kind, ok := KindOfAnnex(d.AnnexCode)
		if !ok {
			kind = textKindOr(d.Description, Merchandise)
		}
		b.add(kind, MarketOf(d.Description), d.Revenue())
	}
	return b, b.Total() > 0
}

func revenueFromRawActivities(f filing.MonthlyFiling) (Bucket, bool) {
	var b Bucket
	for _, id := range sortedIDs(f.RawActivities) {
		act := f.RawActivities[id]
		kind, ok := KindOfAnnex(act.AnnexCode)
		if !ok {
			kind = textKindOr(act.Description, Merchandise)
		}
		b.add(kind, MarketOf(act.Description), act.Total)
	}
	return b, b.Total() > 0
}

func revenueFromTaxRatios(f filing.MonthlyFiling) (Bucket, bool) {
	ratios, ok := breakdownBucket(f.TaxesByActivity)
	if !ok {
		return Bucket{}, false
	}
	return ratios.Scale(f.Revenue.Total() / ratios.Total()), true
}

func (c *Classifier) revenueDefault(f filing.MonthlyFiling) (Bucket, bool) {
	var b Bucket
	b.add(c.defaultKind, Domestic, f.Revenue.CurrentPeriod)
	b.add(c.defaultKind, Foreign, f.Revenue.ForeignMarket.CurrentPeriod)
	return b, true
}

func taxFromBreakdown(f filing.MonthlyFiling, _ Bucket) (Bucket, bool) {
	return breakdownBucket(f.TaxesByActivity)
}

func taxFromRawActivities(f filing.MonthlyFiling, _ Bucket) (Bucket, bool) {
	var b Bucket
	for _, id := range sortedIDs(f.RawActivities) {
		act := f.RawActivities[id]
		amount := act.Taxes.Amount()
		if amount <= 0 {
			continue
		}
		b.add(taxKind(act), MarketOf(act.Description), amount)
	}
	return b, b.Total() > 0
}

// taxKind resolves annex, then text, then the ISS/IPI/ICMS signal.
func taxKind(act filing.RawActivity) Kind {
	if kind, ok := KindOfAnnex(act.AnnexCode); ok {
		return kind
	}
	if kind, ok := kindFromText(act.Description); ok {
		return kind
	}
	switch {
	case act.Taxes.ISS > 0:
		return Services
	case act.Taxes.IPI > 0:
		return Industry
	default:
		return Merchandise
	}
}

func taxFromInstallments(f filing.MonthlyFiling, _ Bucket) (Bucket, bool) {
	var b Bucket
	for _, d := range f.ActivityDetail {
		kind, ok := KindOfAnnex(d.AnnexCode)
		if !ok {
			kind = textKindOr(d.Description, Merchandise)
		}
		var tax float64
		for _, inst := range d.Installments {
			tax += inst.Value * inst.EffectiveRate / 100
		}
		b.add(kind, MarketOf(d.Description), tax)
	}
	return b, b.Total() > 0
}

func (c *Classifier) taxFromRevenueShare(f filing.MonthlyFiling, revenue Bucket) (Bucket, bool) {
	total := f.Taxes.Amount()
	if total <= 0 {
		return Bucket{}, false
	}
	if revenue.Total() <= 0 {
		var b Bucket
		b.add(c.defaultKind, Domestic, total)
		return b, true
	}
	return revenue.Scale(total / revenue.Total()), true
}

func breakdownBucket(tba *filing.TaxesByActivity) (Bucket, bool) {
	if tba == nil {
		return Bucket{}, false
	}
	var b Bucket
	b.add(Merchandise, Domestic, tba.MerchandiseDomestic.Amount())
	b.add(Merchandise, Foreign, tba.MerchandiseForeign.Amount())
	b.add(Services, Domestic, tba.ServiceDomestic.Amount())
	b.add(Services, Foreign, tba.ServiceForeign.Amount())
	b.add(Industry, Domestic, tba.IndustryDomestic.Amount())
	b.add(Industry, Foreign, tba.IndustryForeign.Amount())
	return b, b.Total() > 0
}

func textKindOr(description string, fallback Kind) Kind {
	if kind, ok := kindFromText(description); ok {
		return kind
	}
	return fallback
}

func sortedIDs(m map[string]filing.RawActivity) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
