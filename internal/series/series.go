// Package series builds the sparse month map for a metric and
// consolidates it into quarterly, semiannual and annual buckets.
package series

import (
	"math"
	"sort"
	"strconv"

	"github.com/simplesdash/simplesdash/internal/filing"
	"github.com/simplesdash/simplesdash/internal/period"
)

// NoiseThreshold is the magnitude below which values are treated as
// rounding artefacts.
const NoiseThreshold = 1.0

// Granularity selects the consolidation bucket size.
type Granularity string

const (
	GranularityMonthly    Granularity = "monthly"
	GranularityQuarterly  Granularity = "quarterly"
	GranularitySemiannual Granularity = "semiannual"
	GranularityAnnual     Granularity = "annual"
)

// Granularities lists every supported granularity in display order.
var Granularities = []Granularity{GranularityMonthly, GranularityQuarterly, GranularitySemiannual, GranularityAnnual}

// Observation is a metric value taken from a filing.
type Observation struct {
	Key   period.Key `json:"key"`
	Value float64    `json:"value"`
	// Reported is false when the filing omitted the field.
	Reported bool `json:"reported"`
}

// Monthly is the sparse "YYYY-MM" to value map of one metric.
type Monthly struct {
	Metric string             `json:"metric"`
	Values map[string]float64 `json:"values"`
	// Filled lists months whose value came from history.
	Filled            []string `json:"filled,omitempty"`
	Unparseable       int      `json:"unparseable"`
	UnparseableLabels []string `json:"unparseableLabels,omitempty"`
}

// BuildMonthly merges filing observations with history. Reported
// observations always win; history only fills months that have no
// reported value, and only with strictly positive amounts.
func BuildMonthly(obs []Observation, history []HistoryPoint) Monthly {
	m := Monthly{Values: make(map[string]float64)}
	explicit := make(map[string]bool)
	for _, o := range obs {
		key := o.Key.String()
		m.Values[key] += o.Value
		if o.Reported {
			explicit[key] = true
		}
	}
	filled := make(map[string]bool)
	for _, p := range history {
		key, ok := period.Resolve(p.Label)
		if !ok {
			m.Unparseable++
			m.UnparseableLabels = append(m.UnparseableLabels, p.Label)
			continue
		}
		amount := filing.ParseAmount(p.Amount)
		if amount <= 0 || explicit[key.String()] {
			continue
		}
		m.Values[key.String()] = amount
		filled[key.String()] = true
	}
	for key := range filled {
		m.Filled = append(m.Filled, key)
	}
	sort.Strings(m.Filled)
	return m
}

// Keys returns the months in ascending order.
func (m Monthly) Keys() []period.Key {
	keys := make([]period.Key, 0, len(m.Values))
	for s := range m.Values {
		if k, err := period.ParseKey(s); err == nil {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

// Value returns the value for k, zero when absent.
func (m Monthly) Value(k period.Key) float64 {
	return m.Values[k.String()]
}

// BucketValue is one bucket of a year.
type BucketValue struct {
	Index  int      `json:"index"`
	Label  string   `json:"label"`
	Value  float64  `json:"value"`
	Months []string `json:"months"`
}

// YearSeries holds the buckets of one year.
type YearSeries struct {
	Year    int           `json:"year"`
	Total   float64       `json:"total"`
	Buckets []BucketValue `json:"buckets"`
}

// Bucket returns the bucket with the given index.
func (y YearSeries) Bucket(index int) (BucketValue, bool) {
	for _, b := range y.Buckets {
		if b.Index == index {
			return b, true
		}
	}
	return BucketValue{}, false
}

// Consolidated is one metric at one granularity, years ascending.
type Consolidated struct {
	Metric      string       `json:"metric"`
	Granularity Granularity  `json:"granularity"`
	Years       []YearSeries `json:"years"`
}

// Year returns the series for year.
func (c Consolidated) Year(year int) (YearSeries, bool) {
	for _, y := range c.Years {
		if y.Year == year {
			return y, true
		}
	}
	return YearSeries{}, false
}

// IsNoise reports whether v is too small to count.
func IsNoise(v float64) bool {
	return math.Abs(v) < NoiseThreshold
}

// Consolidate sums non-noise months into buckets. A year appears only if
// it has at least one non-noise month.
func Consolidate(m Monthly, g Granularity) Consolidated {
	out := Consolidated{Metric: m.Metric, Granularity: g}
	byYear := map[int]*YearSeries{}
	var years []int
	for _, key := range m.Keys() {
		v := m.Value(key)
		if IsNoise(v) {
			continue
		}
		ys, ok := byYear[key.Year]
		if !ok {
			ys = &YearSeries{Year: key.Year, Buckets: emptyBuckets(g, key.Year)}
			byYear[key.Year] = ys
			years = append(years, key.Year)
		}
		idx := bucketIndex(g, key)
		b := &ys.Buckets[idx-1]
		b.Value += v
		b.Months = append(b.Months, key.String())
		ys.Total += v
	}
	sort.Ints(years)
	out.Years = make([]YearSeries, 0, len(years))
	for _, y := range years {
		out.Years = append(out.Years, *byYear[y])
	}
	return out
}

// ConsolidateAll runs Consolidate for every granularity.
func ConsolidateAll(m Monthly) map[Granularity]Consolidated {
	out := make(map[Granularity]Consolidated, len(Granularities))
	for _, g := range Granularities {
		out[g] = Consolidate(m, g)
	}
	return out
}

func bucketCount(g Granularity) int {
	switch g {
	case GranularityMonthly:
		return 12
	case GranularityQuarterly:
		return 4
	case GranularitySemiannual:
		return 2
	default:
		return 1
	}
}

func bucketIndex(g Granularity, k period.Key) int {
	switch g {
	case GranularityMonthly:
		return k.Month
	case GranularityQuarterly:
		return k.Quarter()
	case GranularitySemiannual:
		return k.Semester()
	default:
		return 1
	}
}

func emptyBuckets(g Granularity, year int) []BucketValue {
	n := bucketCount(g)
	buckets := make([]BucketValue, n)
	for i := range buckets {
		buckets[i] = BucketValue{Index: i + 1, Label: bucketLabel(g, year, i+1), Months: []string{}}
	}
	return buckets
}

func bucketLabel(g Granularity, year, index int) string {
	switch g {
	case GranularityMonthly:
		return period.Key{Year: year, Month: index}.Label()
	case GranularityQuarterly:
		return "T" + strconv.Itoa(index)
	case GranularitySemiannual:
		return "S" + strconv.Itoa(index)
	default:
		return strconv.Itoa(year)
	}
}
