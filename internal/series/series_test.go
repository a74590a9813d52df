package series

import (
	"testing"

	"github.com/simplesdash/simplesdash/internal/period"
)

func key(y, m int) period.Key { return period.Key{Year: y, Month: m} }

func TestBuildMonthlyExplicitVersusHistory(t *testing.T) {
	obs := []Observation{
		{Key: key(2024, 3), Value: 0, Reported: true},
		{Key: key(2024, 4), Value: 0, Reported: false},
	}
	history := []HistoryPoint{
		{Label: "03/2024", Amount: 5000},
		{Label: "04/2024", Amount: "5.000,00"},
		{Label: "05/2024", Amount: "0"},
		{Label: "06/2024", Amount: "abc"},
		{Label: "07/2024", Amount: 700},
		{Label: "not a period", Amount: 1},
	}
	m := BuildMonthly(obs, history)
	if v := m.Value(key(2024, 3)); v != 0 {
		t.Fatalf("present-but-zero filing must win, got %v", v)
	}
	if v := m.Value(key(2024, 4)); v != 5000 {
		t.Fatalf("absent revenue should be filled from history, got %v", v)
	}
	if _, ok := m.Values["2024-05"]; ok {
		t.Fatalf("zero history must not create an entry")
	}
	if _, ok := m.Values["2024-06"]; ok {
		t.Fatalf("unparseable amount must not create an entry")
	}
	if m.Value(key(2024, 7)) != 700 {
		t.Fatalf("history should fill months without filings")
	}
	if m.Unparseable != 1 || m.UnparseableLabels[0] != "not a period" {
		t.Fatalf("expected one unparseable label, got %+v", m)
	}
	if len(m.Filled) != 2 || m.Filled[0] != "2024-04" {
		t.Fatalf("unexpected filled months %v", m.Filled)
	}
}

func TestConsolidateBuckets(t *testing.T) {
	m := BuildMonthly([]Observation{
		{Key: key(2024, 1), Value: 10000, Reported: true},
		{Key: key(2024, 2), Value: 12000, Reported: true},
		{Key: key(2024, 7), Value: 3000, Reported: true},
		{Key: key(2024, 12), Value: 0.5, Reported: true},
		{Key: key(2023, 5), Value: 0.9, Reported: true},
	}, nil)

	annual := Consolidate(m, GranularityAnnual)
	if len(annual.Years) != 1 {
		t.Fatalf("noise-only year must be absent, got %+v", annual.Years)
	}
	if annual.Years[0].Year != 2024 || annual.Years[0].Buckets[0].Value != 25000 {
		t.Fatalf("unexpected annual %+v", annual.Years[0])
	}
	if annual.Years[0].Buckets[0].Label != "2024" {
		t.Fatalf("annual label should be the year, got %s", annual.Years[0].Buckets[0].Label)
	}

	quarterly := Consolidate(m, GranularityQuarterly)
	q := quarterly.Years[0]
	if len(q.Buckets) != 4 || q.Buckets[0].Value != 22000 || q.Buckets[2].Value != 3000 || q.Buckets[3].Value != 0 {
		t.Fatalf("unexpected quarterly %+v", q.Buckets)
	}
	if len(q.Buckets[3].Months) != 0 {
		t.Fatalf("noise month must not contribute, got %v", q.Buckets[3].Months)
	}

	semi := Consolidate(m, GranularitySemiannual)
	if s := semi.Years[0].Buckets; len(s) != 2 || s[0].Value != 22000 || s[1].Value != 3000 || s[1].Index != 2 {
		t.Fatalf("unexpected semiannual %+v", s)
	}

	monthly := Consolidate(m, GranularityMonthly)
	if b := monthly.Years[0].Buckets; len(b) != 12 || b[1].Value != 12000 || b[1].Label != "fev/2024" {
		t.Fatalf("unexpected monthly %+v", b)
	}
}

func TestConsolidateNoiseOnlyIsEmpty(t *testing.T) {
	m := BuildMonthly([]Observation{{Key: key(2024, 6), Value: 0.5, Reported: true}}, nil)
	for g, c := range ConsolidateAll(m) {
		if len(c.Years) != 0 {
			t.Fatalf("%s: expected no years, got %+v", g, c.Years)
		}
	}
}
