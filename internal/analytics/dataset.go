// Package analytics assembles the report view model from a batch of
// filings: canonical monthly records, consolidated series, comparisons,
// rate analysis and totals.
package analytics

import (
	"sort"

	"github.com/simplesdash/simplesdash/internal/classify"
	"github.com/simplesdash/simplesdash/internal/filing"
	"github.com/simplesdash/simplesdash/internal/insights"
	"github.com/simplesdash/simplesdash/internal/period"
	"github.com/simplesdash/simplesdash/internal/variance"
)

// MonthRecord is the canonical, fully derived view of one filing.
type MonthRecord struct {
	Key            period.Key            `json:"key"`
	Period         string                `json:"period"`
	Filename       string                `json:"filename"`
	Identification filing.Identification `json:"identification"`
	Revenue        filing.Revenue        `json:"revenue"`
	TotalRevenue   float64               `json:"totalRevenue"`
	Taxes          filing.TaxSet         `json:"taxes"`
	TotalTax       float64               `json:"totalTax"`
	Attribution    classify.Result       `json:"attribution"`
	Analysis       insights.Analysis     `json:"analysis"`
	// RBT12Derived is set when trailing revenue was rebuilt from earlier
	// records because the filing did not carry it.
	RBT12Derived bool `json:"rbt12Derived"`
	Highlighted  bool `json:"highlighted"`
}

// UnparseablePeriod is a filing skipped because its period did not resolve.
type UnparseablePeriod struct {
	Filename string `json:"filename"`
	CNPJ     string `json:"cnpj"`
	Label    string `json:"label"`
}

// Options tunes dataset preparation and views.
type Options struct {
	Classifier      *classify.Classifier
	SignalThreshold float64
	Variance        variance.Options
}

// Dataset is the immutable result of preparing a batch. Views re-filter
// its records without re-parsing input.
type Dataset struct {
	records     []MonthRecord
	invalid     []filing.InvalidFile
	duplicates  []filing.Duplicate
	unparseable []UnparseablePeriod
	opts        Options
}

// Prepare runs Prepare with default options.
func Prepare(batch filing.Batch) Dataset {
	return PrepareWith(batch, Options{})
}

// PrepareWith dedupes, resolves periods, classifies and analyses every
// filing exactly once.
func PrepareWith(batch filing.Batch, opts Options) Dataset {
	if opts.Classifier == nil {
		opts.Classifier = classify.New(classify.Options{})
	}
	filings, dups := filing.Dedupe(batch.Filings)
	ds := Dataset{
		invalid:    append([]filing.InvalidFile{}, batch.Invalid...),
		duplicates: append([]filing.Duplicate{}, dups...),
		opts:       opts,
	}
	for _, set := range filing.GroupByCompany(filings) {
		ds.records = append(ds.records, ds.prepareSet(set)...)
	}
	return ds
}

func (d *Dataset) prepareSet(set filing.FileSet) []MonthRecord {
	records := make([]MonthRecord, 0, len(set.Filings))
	for _, f := range set.Filings {
		key, ok := f.PeriodKey()
		if !ok {
			d.unparseable = append(d.unparseable, UnparseablePeriod{
				Filename: f.Filename,
				CNPJ:     f.Identification.CNPJ,
				Label:    f.Identification.Period,
			})
			continue
		}
		records = append(records, MonthRecord{
			Key:            key,
			Period:         key.String(),
			Filename:       f.Filename,
			Identification: f.Identification,
			Revenue:        f.Revenue,
			TotalRevenue:   f.Revenue.Total(),
			Taxes:          f.Taxes,
			TotalTax:       f.Taxes.Amount(),
			Attribution:    d.opts.Classifier.Classify(f),
		})
	}
	byKey := make(map[period.Key]float64, len(records))
	for _, r := range records {
		byKey[r.Key] = r.TotalRevenue
	}
	for i := range records {
		r := &records[i]
		rbt12 := r.Revenue.Trailing12Months
		if rbt12 <= 0 {
			rbt12, r.RBT12Derived = deriveRBT12(byKey, r.Key)
		}
		r.Analysis = insights.Analyze(r.TotalRevenue, r.TotalTax, rbt12)
	}
	return records
}

// deriveRBT12 sums the twelve months before k among the company's records.
func deriveRBT12(byKey map[period.Key]float64, k period.Key) (float64, bool) {
	var sum float64
	found := false
	for i := 1; i <= 12; i++ {
		if v, ok := byKey[k.AddMonths(-i)]; ok {
			sum += v
			found = true
		}
	}
	return sum, found
}

// Records returns a copy of the canonical records ordered by CNPJ and period.
func (d Dataset) Records() []MonthRecord {
	return append([]MonthRecord(nil), d.records...)
}

// CNPJs lists the companies present, sorted.
func (d Dataset) CNPJs() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range d.records {
		if !seen[r.Identification.CNPJ] {
			seen[r.Identification.CNPJ] = true
			out = append(out, r.Identification.CNPJ)
		}
	}
	sort.Strings(out)
	return out
}
