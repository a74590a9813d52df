package period

import "testing"

func TestResolveSupportedShapes(t *testing.T) {
	want := Key{Year: 2024, Month: 6}
	labels := []string{
		"01/06/2024",
		"01/06/2024 a 30/06/2024",
		"06/2024",
		"6/2024",
		"2024-06",
		"2024-06-15",
		"Jun/2024",
		"jun 2024",
		"Junho/2024",
		"JUN-2024",
	}
	for _, label := range labels {
		got, ok := Resolve(label)
		if !ok {
			t.Fatalf("Resolve(%q) failed", label)
		}
		if got != want {
			t.Fatalf("Resolve(%q) = %+v, want %+v", label, got, want)
		}
	}
}

func TestResolvePortugueseNames(t *testing.T) {
	cases := map[string]int{"fev/2023": 2, "Março 2023": 3, "abr/2023": 4, "mai/2023": 5, "ago/2023": 8, "set/2023": 9, "out/2023": 10, "dez/2023": 12}
	for label, month := range cases {
		got, ok := Resolve(label)
		if !ok || got.Month != month || got.Year != 2023 {
			t.Fatalf("Resolve(%q) = %+v ok=%v", label, got, ok)
		}
	}
}

func TestResolveRejectsGarbage(t *testing.T) {
	for _, label := range []string{"garbage", "", "13/2024", "2024-00", "xyz/2024", "31/13/2024", "jan/24"} {
		if key, ok := Resolve(label); ok {
			t.Fatalf("Resolve(%q) unexpectedly returned %+v", label, key)
		}
	}
}

func TestKeyHelpers(t *testing.T) {
	k := Key{Year: 2024, Month: 7}
	if k.String() != "2024-07" {
		t.Fatalf("unexpected string %s", k.String())
	}
	if k.Quarter() != 3 || k.Semester() != 2 {
		t.Fatalf("unexpected quarter/semester %d/%d", k.Quarter(), k.Semester())
	}
	if prev := k.AddMonths(-7); prev != (Key{Year: 2023, Month: 12}) {
		t.Fatalf("unexpected AddMonths result %+v", prev)
	}
	if k.Label() != "jul/2024" {
		t.Fatalf("unexpected label %s", k.Label())
	}
	parsed, err := ParseKey("2024-07")
	if err != nil || parsed != k {
		t.Fatalf("ParseKey: %+v %v", parsed, err)
	}
	if _, err := ParseKey("07/2024"); err == nil {
		t.Fatalf("expected error for non canonical key")
	}
}
