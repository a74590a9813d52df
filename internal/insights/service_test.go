package insights

import (
	"math"
	"testing"

	"github.com/simplesdash/simplesdash/internal/classify"
	"github.com/simplesdash/simplesdash/internal/filing"
)

func TestAnalyzeEffectiveRateAndBracket(t *testing.T) {
	a := Analyze(12000, 1000, 22000)
	if math.Abs(a.EffectiveRate-8.333333) > 0.0001 {
		t.Fatalf("unexpected effective rate %v", a.EffectiveRate)
	}
	if math.Abs(a.NetMargin-91.666667) > 0.0001 {
		t.Fatalf("unexpected net margin %v", a.NetMargin)
	}
	if a.Bracket != 1 || a.BracketCeiling != 180000 || a.DistanceToNextBracket != 158000 || a.TransitionRisk {
		t.Fatalf("unexpected bracket %+v", a)
	}
}

func TestAnalyzeZeroRevenue(t *testing.T) {
	a := Analyze(0, 50, 0)
	if a.EffectiveRate != 0 || a.NetMargin != 0 {
		t.Fatalf("expected zero-guarded ratios, got %+v", a)
	}
	if math.IsNaN(a.EffectiveRate) || math.IsInf(a.NetMargin, 0) {
		t.Fatalf("ratios must be finite")
	}
}

func TestAnalyzeBracketBoundaries(t *testing.T) {
	cases := []struct {
		rbt12   float64
		bracket int
		risk    bool
	}{
		{180000, 1, true},
		{180000.01, 2, false},
		{330000, 2, true},
		{720000, 3, true},
		{1000000, 4, false},
		{3600000, 5, true},
		{4800000, 6, true},
	}
	for _, tc := range cases {
		a := Analyze(1, 0, tc.rbt12)
		if a.Bracket != tc.bracket || a.TransitionRisk != tc.risk || a.OverLimit {
			t.Fatalf("rbt12 %v: unexpected %+v", tc.rbt12, a)
		}
	}
	over := Analyze(1, 0, 4800000.01)
	if !over.OverLimit || over.Bracket != 0 || over.DistanceToNextBracket != 0 || !over.TransitionRisk {
		t.Fatalf("expected over-limit flag, got %+v", over)
	}
}

func TestSignal(t *testing.T) {
	if s := Signal(130, []float64{1000, 100, 100, 100}, 15); s.Direction != DirectionGrowth || s.Periods != 3 || s.Baseline != 100 {
		t.Fatalf("expected growth over last three periods, got %+v", s)
	}
	if s := Signal(80, []float64{100}, 0); s.Direction != DirectionDecline || s.Threshold != DefaultSignalThreshold {
		t.Fatalf("expected decline, got %+v", s)
	}
	if s := Signal(110, []float64{100, 100}, 15); s.Direction != DirectionStable {
		t.Fatalf("expected stable, got %+v", s)
	}
	if s := Signal(110, nil, 15); s.Direction != DirectionInsufficient {
		t.Fatalf("expected insufficient without history, got %+v", s)
	}
	if s := Signal(110, []float64{0, 0}, 15); s.Direction != DirectionInsufficient {
		t.Fatalf("expected insufficient with zero baseline, got %+v", s)
	}
}

func TestTaxCompositionFallsBackToSum(t *testing.T) {
	shares := TaxComposition(filing.TaxSet{ISS: 30, PIS: 10})
	if len(shares) != 2 || shares[0].Key != "PIS" || shares[0].Percent != 25 || shares[1].Percent != 75 {
		t.Fatalf("unexpected shares %+v", shares)
	}
	withTotal := TaxComposition(filing.TaxSet{ISS: 30, Total: 60})
	if withTotal[0].Percent != 50 {
		t.Fatalf("expected share over Total, got %+v", withTotal)
	}
}

func TestActivityMix(t *testing.T) {
	mix := ActivityMix(classify.Bucket{
		Services:    classify.Split{Domestic: 3000},
		Merchandise: classify.Split{Domestic: 6000, Foreign: 1000},
	})
	if len(mix) != 3 || mix[0].Key != "merchandise.domestic" || mix[0].Percent != 60 {
		t.Fatalf("unexpected mix %+v", mix)
	}
}
