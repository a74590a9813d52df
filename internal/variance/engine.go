package variance

import (
	"math"

	"github.com/simplesdash/simplesdash/internal/series"
)

// Compare matches every bucket of the latest year with the same bucket of
// the year before. No rows are produced when the prior year is absent,
// and buckets whose current value is zero are skipped.
func Compare(c series.Consolidated, opts Options) []Comparison {
	if len(c.Years) == 0 {
		return nil
	}
	latest := c.Years[len(c.Years)-1]
	prior, ok := c.Year(latest.Year - 1)
	if !ok {
		return nil
	}
	rows := make([]Comparison, 0, len(latest.Buckets))
	for _, bucket := range latest.Buckets {
		if bucket.Value == 0 {
			continue
		}
		var priorValue float64
		if pb, ok := prior.Bucket(bucket.Index); ok {
			priorValue = pb.Value
		}
		row := Comparison{
			Granularity:  c.Granularity,
			Index:        bucket.Index,
			Label:        bucket.Label,
			Year:         latest.Year,
			PriorYear:    prior.Year,
			CurrentValue: round2(bucket.Value),
			PriorValue:   round2(priorValue),
		}
		delta := bucket.Value - priorValue
		row.AbsoluteDelta = round2(delta)
		if priorValue != 0 {
			row.PercentDelta = round2(delta / priorValue * 100)
		}
		row.IsPositive = delta >= 0
		row.Flagged = exceedsThreshold(row, opts.ThresholdAmount, opts.ThresholdPercent)
		rows = append(rows, row)
	}
	return rows
}

// CompareAll runs Compare for every granularity present in set.
func CompareAll(set map[series.Granularity]series.Consolidated, opts Options) map[series.Granularity][]Comparison {
	out := make(map[series.Granularity][]Comparison, len(set))
	for _, g := range series.Granularities {
		c, ok := set[g]
		if !ok {
			continue
		}
		out[g] = Compare(c, opts)
	}
	return out
}

func exceedsThreshold(row Comparison, amt, pct *float64) bool {
	if amt != nil && math.Abs(row.AbsoluteDelta) >= *amt {
		return true
	}
	if pct != nil && math.Abs(row.PercentDelta) >= *pct {
		return true
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
