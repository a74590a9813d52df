package svg

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestBarsProducesGroupedSVG(t *testing.T) {
	html, err := Bars([]string{"01/2024", "02/2024"}, []Series{
		{Name: "Receita", Values: []float64{10000, 12000}},
		{Name: "Tributos", Values: []float64{800, 1000}},
	}, Opts{Title: "Receita x Tributos"})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	output := string(html)
	if !strings.HasPrefix(output, "<svg") {
		t.Fatalf("expected svg output, got %s", output)
	}
	if got := strings.Count(output, "aria-label=\"Receita "); got != 2 {
		t.Fatalf("expected 2 revenue bars, got %d", got)
	}
	if !strings.Contains(output, ">Tributos<") {
		t.Fatalf("expected legend label")
	}
	if !strings.Contains(output, "receita-x-tributos-bar-title") {
		t.Fatalf("expected derived title id")
	}
}

func TestLinesDrawsEverySeries(t *testing.T) {
	html, err := Lines([]string{"T1", "T2", "T3"}, []Series{
		{Name: "2023", Values: []float64{1, 2, 3}},
		{Name: "2024", Values: []float64{2, math.NaN(), 4}},
	}, Opts{ShowDots: true})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	output := string(html)
	if got := strings.Count(output, "<path"); got != 2 {
		t.Fatalf("expected 2 paths, got %d", got)
	}
	if got := strings.Count(output, "<circle"); got != 6 {
		t.Fatalf("expected 6 dots, got %d", got)
	}
	if strings.Contains(output, "NaN") {
		t.Fatalf("non-finite values leaked into the svg")
	}
}

func TestChartValidation(t *testing.T) {
	if _, err := Lines([]string{"a"}, nil, Opts{}); !errors.Is(err, ErrNoSeries) {
		t.Fatalf("expected ErrNoSeries, got %v", err)
	}
	if _, err := Bars([]string{"a", "b"}, []Series{{Values: []float64{1}}}, Opts{}); !errors.Is(err, ErrLabelMismatch) {
		t.Fatalf("expected ErrLabelMismatch, got %v", err)
	}
	if _, err := Bars([]string{"a"}, []Series{{Values: []float64{1}}}, Opts{Width: 40, Height: 40}); !errors.Is(err, ErrViewport) {
		t.Fatalf("expected ErrViewport, got %v", err)
	}
}

func TestFormatTick(t *testing.T) {
	cases := map[float64]string{
		0:         "0",
		12.5:      "12,50",
		12000:     "12 mil",
		1_500_000: "1,5 mi",
		-2_000:    "-2 mil",
	}
	for in, want := range cases {
		if got := FormatTick(in); got != want {
			t.Fatalf("FormatTick(%v) = %q, want %q", in, got, want)
		}
	}
}
