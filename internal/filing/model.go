// Package filing turns parsed PGDAS-D documents into canonical monthly
// filings. Nothing in this package returns an error for malformed amounts
// or missing sections; such input degrades to zero values and is reported
// through Batch diagnostics.
package filing

import (
	"sort"

	"github.com/simplesdash/simplesdash/internal/period"
)

// Identification is the header of a DAS filing.
type Identification struct {
	CNPJ         string `json:"cnpj"`
	LegalName    string `json:"legalName"`
	Period       string `json:"period"`
	Municipality string `json:"municipality"`
	State        string `json:"state"`
}

// MarketRevenue holds the revenue figures for one market.
type MarketRevenue struct {
	CurrentPeriod    float64 `json:"currentPeriod"`
	Trailing12Months float64 `json:"trailing12Months"`
	YearToDate       float64 `json:"yearToDate"`
	PriorYearToDate  float64 `json:"priorYearToDate"`
	// CurrentPeriodReported is false when the market block omitted the
	// current-period field.
	CurrentPeriodReported bool `json:"currentPeriodReported"`
}

// Revenue holds domestic figures plus the foreign market block.
type Revenue struct {
	CurrentPeriod    float64 `json:"currentPeriod"`
	Trailing12Months float64 `json:"trailing12Months"`
	YearToDate       float64 `json:"yearToDate"`
	PriorYearToDate  float64 `json:"priorYearToDate"`
	// CurrentPeriodReported is false when the source omitted the field
	// entirely, as opposed to reporting zero.
	CurrentPeriodReported bool          `json:"currentPeriodReported"`
	ForeignMarket         MarketRevenue `json:"foreignMarket"`
}

// Reported is true when either market carried an explicit current-period
// figure.
func (r Revenue) Reported() bool {
	return r.CurrentPeriodReported || r.ForeignMarket.CurrentPeriodReported
}

// Total returns domestic plus foreign revenue for the period.
func (r Revenue) Total() float64 {
	return r.CurrentPeriod + r.ForeignMarket.CurrentPeriod
}

// TaxSet lists the Simples Nacional tax categories.
type TaxSet struct {
	IRPJ    float64 `json:"IRPJ"`
	CSLL    float64 `json:"CSLL"`
	COFINS  float64 `json:"COFINS"`
	PIS     float64 `json:"PIS"`
	INSSCPP float64 `json:"INSS_CPP"`
	ICMS    float64 `json:"ICMS"`
	IPI     float64 `json:"IPI"`
	ISS     float64 `json:"ISS"`
	Total   float64 `json:"Total"`
}

// Sum adds every category, ignoring Total.
func (t TaxSet) Sum() float64 {
	return t.IRPJ + t.CSLL + t.COFINS + t.PIS + t.INSSCPP + t.ICMS + t.IPI + t.ISS
}

// Amount returns Total when present, otherwise the category sum.
func (t TaxSet) Amount() float64 {
	if t.Total > 0 {
		return t.Total
	}
	return t.Sum()
}

// Add returns the element-wise sum of t and o.
func (t TaxSet) Add(o TaxSet) TaxSet {
	return TaxSet{
		IRPJ:    t.IRPJ + o.IRPJ,
		CSLL:    t.CSLL + o.CSLL,
		COFINS:  t.COFINS + o.COFINS,
		PIS:     t.PIS + o.PIS,
		INSSCPP: t.INSSCPP + o.INSSCPP,
		ICMS:    t.ICMS + o.ICMS,
		IPI:     t.IPI + o.IPI,
		ISS:     t.ISS + o.ISS,
		Total:   t.Total + o.Total,
	}
}

// TaxesByActivity is the structured per-activity tax breakdown.
type TaxesByActivity struct {
	MerchandiseDomestic TaxSet `json:"merchandiseDomestic"`
	MerchandiseForeign  TaxSet `json:"merchandiseForeign"`
	ServiceDomestic     TaxSet `json:"serviceDomestic"`
	ServiceForeign      TaxSet `json:"serviceForeign"`
	IndustryDomestic    TaxSet `json:"industryDomestic"`
	IndustryForeign     TaxSet `json:"industryForeign"`
}

// Installment is one revenue slice taxed at an effective rate.
type Installment struct {
	Value         float64 `json:"value"`
	EffectiveRate float64 `json:"effectiveRate"`
}

// ActivityDetail is one annex entry of the structured activity section.
type ActivityDetail struct {
	AnnexCode     int           `json:"annexCode"`
	Description   string        `json:"description"`
	RevenueAmount float64       `json:"revenueAmount"`
	Installments  []Installment `json:"installments"`
}

// Revenue returns the installment sum, or RevenueAmount without installments.
func (d ActivityDetail) Revenue() float64 {
	if len(d.Installments) == 0 {
		return d.RevenueAmount
	}
	var sum float64
	for _, inst := range d.Installments {
		sum += inst.Value
	}
	return sum
}

// RawActivity is a free-text activity line.
type RawActivity struct {
	Description string  `json:"description"`
	Total       float64 `json:"total"`
	AnnexCode   int     `json:"annexCode,omitempty"`
	Taxes       TaxSet  `json:"taxes"`
}

// MonthlyFiling is one assessment period of one company.
type MonthlyFiling struct {
	Filename        string                 `json:"filename"`
	Identification  Identification         `json:"identification"`
	Revenue         Revenue                `json:"revenue"`
	Taxes           TaxSet                 `json:"taxes"`
	TaxesByActivity *TaxesByActivity       `json:"taxesByActivity,omitempty"`
	ActivityDetail  []ActivityDetail       `json:"activityDetail,omitempty"`
	RawActivities   map[string]RawActivity `json:"rawActivities,omitempty"`
}

// PeriodKey resolves the filing period label.
func (f MonthlyFiling) PeriodKey() (period.Key, bool) {
	return period.Resolve(f.Identification.Period)
}

// FileSet groups the filings of one CNPJ ordered by period.
type FileSet struct {
	CNPJ      string          `json:"cnpj"`
	LegalName string          `json:"legalName"`
	Filings   []MonthlyFiling `json:"filings"`
}

// Sort orders filings by resolved period; unresolvable periods go last,
// ties break on filename.
func (s *FileSet) Sort() {
	sort.SliceStable(s.Filings, func(i, j int) bool {
		return lessFiling(s.Filings[i], s.Filings[j])
	})
}

// Add inserts f and re-sorts. A filing whose period resolves to the same
// month as an existing one replaces it; the replacement is reported.
func (s *FileSet) Add(f MonthlyFiling) (Duplicate, bool) {
	key := periodMatchKey(f)
	for i := range s.Filings {
		if periodMatchKey(s.Filings[i]) != key {
			continue
		}
		dup := Duplicate{
			CNPJ:        f.Identification.CNPJ,
			Period:      f.Identification.Period,
			Dropped:     s.Filings[i].Filename,
			KeptInstead: f.Filename,
		}
		s.Filings[i] = f
		s.Sort()
		return dup, true
	}
	if s.LegalName == "" {
		s.LegalName = f.Identification.LegalName
	}
	s.Filings = append(s.Filings, f)
	s.Sort()
	return Duplicate{}, false
}

// Remove drops the filing with the given filename and reports whether it existed.
func (s *FileSet) Remove(filename string) bool {
	for i := range s.Filings {
		if s.Filings[i].Filename == filename {
			s.Filings = append(s.Filings[:i], s.Filings[i+1:]...)
			s.Sort()
			return true
		}
	}
	return false
}

func lessFiling(a, b MonthlyFiling) bool {
	ka, okA := a.PeriodKey()
	kb, okB := b.PeriodKey()
	switch {
	case okA && !okB:
		return true
	case !okA && okB:
		return false
	case okA && okB:
		if c := ka.Compare(kb); c != 0 {
			return c < 0
		}
	}
	return a.Filename < b.Filename
}
