// Package variance compares consolidated buckets against the same bucket
// of the previous year.
package variance

import "github.com/simplesdash/simplesdash/internal/series"

// Comparison describes one year-over-year row.
type Comparison struct {
	Granularity   series.Granularity `json:"granularity"`
	Index         int                `json:"index"`
	Label         string             `json:"label"`
	Year          int                `json:"year"`
	PriorYear     int                `json:"priorYear"`
	CurrentValue  float64            `json:"currentValue"`
	PriorValue    float64            `json:"priorValue"`
	AbsoluteDelta float64            `json:"absoluteDelta"`
	PercentDelta  float64            `json:"percentDelta"`
	IsPositive    bool               `json:"isPositive"`
	Flagged       bool               `json:"flagged"`
}

// Options configures the flag thresholds. Nil disables a threshold.
type Options struct {
	ThresholdAmount  *float64
	ThresholdPercent *float64
}
