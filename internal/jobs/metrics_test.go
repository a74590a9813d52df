package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if err := m.Track("reports:warmup").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	if err := m.Track("reports:warmup").End(boom); !errors.Is(err, boom) {
		t.Fatalf("expected error passthrough, got %v", err)
	}

	if got := testutil.ToFloat64(m.runs.WithLabelValues("reports:warmup", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("reports:warmup")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestAddWarmedIgnoresNonPositive(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddWarmed("company", 3)
	m.AddWarmed("company", 0)
	if got := testutil.ToFloat64(m.warmed.WithLabelValues("company")); got != 3 {
		t.Fatalf("expected 3 warmed, got %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.AddWarmed("all", 1)
	if err := nilMetrics.Track("noop").End(nil); err != nil {
		t.Fatalf("nil tracker should pass through")
	}
}
