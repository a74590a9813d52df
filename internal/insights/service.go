// Package insights derives effective rates, Simples Nacional brackets,
// growth signals and composition ratios from aggregated figures.
package insights

// Bracket ceilings by trailing-12-month revenue (BRL).
var bracketCeilings = [...]float64{180_000, 360_000, 720_000, 1_800_000, 3_600_000, 4_800_000}

// TransitionRiskRatio is the share of the bracket ceiling from which a
// bracket change is flagged.
const TransitionRiskRatio = 0.9

// DefaultSignalThreshold is the deviation percentage that counts as growth
// or decline.
const DefaultSignalThreshold = 15.0

// signalWindow is how many previous periods form the baseline.
const signalWindow = 3

// Analyze computes effective rate, net margin and bracket placement.
func Analyze(revenue, totalTax, rbt12 float64) Analysis {
	a := Analysis{
		Revenue:          revenue,
		TotalTax:         totalTax,
		Trailing12Months: rbt12,
		EffectiveRate:    safePercent(totalTax, revenue),
		NetMargin:        safePercent(revenue-totalTax, revenue),
	}
	a.Bracket, a.BracketCeiling, a.OverLimit = classifyBracket(rbt12)
	if a.OverLimit {
		a.TransitionRisk = true
		return a
	}
	a.DistanceToNextBracket = a.BracketCeiling - rbt12
	a.TransitionRisk = rbt12 >= a.BracketCeiling*TransitionRiskRatio
	return a
}

func classifyBracket(rbt12 float64) (int, float64, bool) {
	for i, ceiling := range bracketCeilings {
		if rbt12 <= ceiling {
			return i + 1, ceiling, false
		}
	}
	return 0, 0, true
}

// Signal compares latest with the mean of up to three previous values,
// taken from the end of previous. A non-positive threshold selects
// DefaultSignalThreshold.
func Signal(latest float64, previous []float64, threshold float64) GrowthSignal {
	if threshold <= 0 {
		threshold = DefaultSignalThreshold
	}
	sig := GrowthSignal{Direction: DirectionInsufficient, Latest: latest, Threshold: threshold}
	if len(previous) > signalWindow {
		previous = previous[len(previous)-signalWindow:]
	}
	if len(previous) == 0 {
		return sig
	}
	var sum float64
	for _, v := range previous {
		sum += v
	}
	sig.Periods = len(previous)
	sig.Baseline = sum / float64(len(previous))
	if almostZero(sig.Baseline) {
		return sig
	}
	sig.Deviation = (latest - sig.Baseline) / sig.Baseline * 100
	switch {
	case sig.Deviation >= threshold:
		sig.Direction = DirectionGrowth
	case sig.Deviation <= -threshold:
		sig.Direction = DirectionDecline
	default:
		sig.Direction = DirectionStable
	}
	return sig
}

func safePercent(value, total float64) float64 {
	if almostZero(total) {
		return 0
	}
	return (value / total) * 100
}

func almostZero(v float64) bool {
	return v > -0.0001 && v < 0.0001
}
