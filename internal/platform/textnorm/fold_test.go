package textnorm

import "testing"

func TestFold(t *testing.T) {
	cases := map[string]string{
		"  Revenda de Mercadorias   para o EXTERIOR ": "revenda de mercadorias para o exterior",
		"Exportação de serviços":                      "exportacao de servicos",
		"Março":                                       "marco",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Fatalf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKey(t *testing.T) {
	for _, in := range []string{"PIS/Pasep", "pis_pasep", "PIS_PASEP", "Pis Pasep"} {
		if got := Key(in); got != "pispasep" {
			t.Fatalf("Key(%q) = %q", in, got)
		}
	}
	if got := Key("INSS/CPP"); got != "insscpp" {
		t.Fatalf("unexpected key %q", got)
	}
}
