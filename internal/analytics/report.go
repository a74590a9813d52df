package analytics

import (
	"sort"

	"github.com/simplesdash/simplesdash/internal/classify"
	"github.com/simplesdash/simplesdash/internal/filing"
	"github.com/simplesdash/simplesdash/internal/insights"
	"github.com/simplesdash/simplesdash/internal/period"
	"github.com/simplesdash/simplesdash/internal/series"
	"github.com/simplesdash/simplesdash/internal/variance"
)

// View modes.
const (
	ViewCompany = "company"
	ViewAll     = "all"
)

// Metric names used in series.
const (
	MetricRevenue = "revenue"
	MetricTax     = "tax"
)

// ViewFilter selects the company and the view mode. An empty CNPJ selects
// the first company in CNPJ order.
type ViewFilter struct {
	CNPJ         string `json:"cnpj"`
	AllCompanies bool   `json:"allCompanies"`
}

// SeriesSet holds one metric at every granularity.
type SeriesSet map[series.Granularity]series.Consolidated

// ComparisonSet holds comparisons per granularity.
type ComparisonSet map[series.Granularity][]variance.Comparison

// Totals aggregates the records in view.
type Totals struct {
	Revenue              float64 `json:"revenue"`
	Tax                  float64 `json:"tax"`
	AverageRevenue       float64 `json:"averageRevenue"`
	AverageTax           float64 `json:"averageTax"`
	AverageEffectiveRate float64 `json:"averageEffectiveRate"`
	Months               int     `json:"months"`
}

// CompanySummary describes one company of the batch.
type CompanySummary struct {
	CNPJ        string  `json:"cnpj"`
	LegalName   string  `json:"legalName"`
	Months      int     `json:"months"`
	Revenue     float64 `json:"revenue"`
	Tax         float64 `json:"tax"`
	FirstPeriod string  `json:"firstPeriod"`
	LastPeriod  string  `json:"lastPeriod"`
	Selected    bool    `json:"selected"`
}

// Diagnostics lists everything that was skipped or repaired.
type Diagnostics struct {
	InvalidFiles       []filing.InvalidFile `json:"invalidFiles"`
	Duplicates         []filing.Duplicate   `json:"duplicates"`
	UnparseablePeriods []UnparseablePeriod  `json:"unparseablePeriods"`
	UnparseableLabels  []string             `json:"unparseableLabels"`
	HistoryFilled      []string             `json:"historyFilled"`
}

// Report is the JSON view model consumed by renderers.
type Report struct {
	CNPJ           string                `json:"cnpj"`
	LegalName      string                `json:"legalName"`
	View           string                `json:"view"`
	From           string                `json:"from"`
	To             string                `json:"to"`
	Months         []MonthRecord         `json:"months"`
	Revenue        SeriesSet             `json:"revenueSeries"`
	Tax            SeriesSet             `json:"taxSeries"`
	Comparisons    ComparisonSet         `json:"comparisons"`
	TaxComparisons ComparisonSet         `json:"taxComparisons"`
	Latest         insights.Analysis     `json:"latest"`
	Signal         insights.GrowthSignal `json:"signal"`
	TaxComposition []insights.Share      `json:"taxComposition"`
	ActivityMix    []insights.Share      `json:"activityMix"`
	Attribution    classify.Bucket       `json:"attribution"`
	TaxAttribution classify.Bucket       `json:"taxAttribution"`
	Totals         Totals                `json:"totals"`
	Companies      []CompanySummary      `json:"companies"`
	Diagnostics    Diagnostics           `json:"diagnostics"`
}

// View derives a report from the prepared records. History only applies
// to single-company views since it describes one company's past revenue.
func (d Dataset) View(filter ViewFilter, history []series.HistoryPoint) Report {
	selected := filing.DigitsOnly(filter.CNPJ)
	if selected == "" {
		if cnpjs := d.CNPJs(); len(cnpjs) > 0 {
			selected = cnpjs[0]
		}
	}
	rep := Report{
		CNPJ:           selected,
		View:           ViewCompany,
		Months:         []MonthRecord{},
		TaxComposition: []insights.Share{},
		ActivityMix:    []insights.Share{},
		Diagnostics:    d.diagnostics(),
	}
	if filter.AllCompanies {
		rep.View = ViewAll
		history = nil
	}
	for _, r := range d.records {
		isSelected := r.Identification.CNPJ == selected
		if !filter.AllCompanies && !isSelected {
			continue
		}
		r.Highlighted = filter.AllCompanies && isSelected
		if isSelected && rep.LegalName == "" {
			rep.LegalName = r.Identification.LegalName
		}
		rep.Months = append(rep.Months, r)
	}

	revenueObs, taxObs := observations(rep.Months)
	revenue := series.BuildMonthly(revenueObs, history)
	revenue.Metric = MetricRevenue
	tax := series.BuildMonthly(taxObs, nil)
	tax.Metric = MetricTax
	rep.Diagnostics.UnparseableLabels = append(rep.Diagnostics.UnparseableLabels, revenue.UnparseableLabels...)
	rep.Diagnostics.HistoryFilled = append(rep.Diagnostics.HistoryFilled, revenue.Filled...)

	rep.Revenue = SeriesSet(series.ConsolidateAll(revenue))
	rep.Tax = SeriesSet(series.ConsolidateAll(tax))
	rep.Comparisons = ComparisonSet(variance.CompareAll(rep.Revenue, d.opts.Variance))
	rep.TaxComparisons = ComparisonSet(variance.CompareAll(rep.Tax, d.opts.Variance))

	keys := revenue.Keys()
	if len(keys) > 0 {
		rep.From, rep.To = keys[0].String(), keys[len(keys)-1].String()
	}
	values := make([]float64, 0, len(keys))
	for _, k := range keys {
		if v := revenue.Value(k); !series.IsNoise(v) {
			values = append(values, v)
		}
	}
	if len(values) > 0 {
		rep.Signal = insights.Signal(values[len(values)-1], values[:len(values)-1], d.opts.SignalThreshold)
	} else {
		rep.Signal = insights.Signal(0, nil, d.opts.SignalThreshold)
	}
	rep.Latest = latestAnalysis(rep.Months)

	var taxes filing.TaxSet
	for _, r := range rep.Months {
		taxes = taxes.Add(r.Taxes)
		rep.Attribution = rep.Attribution.Add(r.Attribution.Revenue)
		rep.TaxAttribution = rep.TaxAttribution.Add(r.Attribution.Tax)
	}
	rep.TaxComposition = insights.TaxComposition(taxes)
	rep.ActivityMix = insights.ActivityMix(rep.Attribution)
	rep.Totals = totals(rep.Months)
	rep.Companies = d.companies(selected)
	return rep
}

func observations(records []MonthRecord) ([]series.Observation, []series.Observation) {
	revenue := make([]series.Observation, 0, len(records))
	tax := make([]series.Observation, 0, len(records))
	for _, r := range records {
		revenue = append(revenue, series.Observation{Key: r.Key, Value: r.TotalRevenue, Reported: r.Revenue.Reported()})
		tax = append(tax, series.Observation{Key: r.Key, Value: r.TotalTax, Reported: true})
	}
	return revenue, tax
}

// latestAnalysis sums every record of the most recent period in view.
func latestAnalysis(records []MonthRecord) insights.Analysis {
	var latest period.Key
	for _, r := range records {
		if latest.Before(r.Key) {
			latest = r.Key
		}
	}
	if latest.IsZero() {
		return insights.Analyze(0, 0, 0)
	}
	var revenue, tax, rbt12 float64
	for _, r := range records {
		if r.Key != latest {
			continue
		}
		revenue += r.TotalRevenue
		tax += r.TotalTax
		rbt12 += r.Analysis.Trailing12Months
	}
	return insights.Analyze(revenue, tax, rbt12)
}

func totals(records []MonthRecord) Totals {
	var t Totals
	months := map[period.Key]bool{}
	for _, r := range records {
		t.Revenue += r.TotalRevenue
		t.Tax += r.TotalTax
		months[r.Key] = true
	}
	t.Months = len(months)
	if t.Months > 0 {
		t.AverageRevenue = t.Revenue / float64(t.Months)
		t.AverageTax = t.Tax / float64(t.Months)
	}
	t.AverageEffectiveRate = insights.Analyze(t.Revenue, t.Tax, 0).EffectiveRate
	return t
}

func (d Dataset) companies(selected string) []CompanySummary {
	index := map[string]int{}
	out := []CompanySummary{}
	for _, r := range d.records {
		cnpj := r.Identification.CNPJ
		i, ok := index[cnpj]
		if !ok {
			i = len(out)
			index[cnpj] = i
			out = append(out, CompanySummary{CNPJ: cnpj, FirstPeriod: r.Period, Selected: cnpj == selected})
		}
		c := &out[i]
		if c.LegalName == "" {
			c.LegalName = r.Identification.LegalName
		}
		c.Months++
		c.Revenue += r.TotalRevenue
		c.Tax += r.TotalTax
		c.LastPeriod = r.Period
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CNPJ < out[j].CNPJ })
	return out
}

func (d Dataset) diagnostics() Diagnostics {
	return Diagnostics{
		InvalidFiles:       append([]filing.InvalidFile{}, d.invalid...),
		Duplicates:         append([]filing.Duplicate{}, d.duplicates...),
		UnparseablePeriods: append([]UnparseablePeriod{}, d.unparseable...),
		UnparseableLabels:  []string{},
		HistoryFilled:      []string{},
	}
}
