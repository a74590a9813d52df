package filing

import "sort"

// Duplicate records a filing dropped because a later one shared its
// (cnpj, period) pair.
type Duplicate struct {
	CNPJ        string `json:"cnpj"`
	Period      string `json:"period"`
	Dropped     string `json:"dropped"`
	KeptInstead string `json:"keptInstead"`
}

// Dedupe keeps the last filing for each (cnpj, period) pair, preserving the
// position of the first occurrence. Periods compare by resolved key when
// they parse, so "01/2024" and "2024-01" collide.
func Dedupe(filings []MonthlyFiling) ([]MonthlyFiling, []Duplicate) {
	type slot struct{ index int }
	seen := make(map[string]slot, len(filings))
	out := make([]MonthlyFiling, 0, len(filings))
	var dups []Duplicate
	for _, f := range filings {
		key := dedupeKey(f)
		if s, ok := seen[key]; ok {
			prev := out[s.index]
			dups = append(dups, Duplicate{
				CNPJ:        f.Identification.CNPJ,
				Period:      f.Identification.Period,
				Dropped:     prev.Filename,
				KeptInstead: f.Filename,
			})
			out[s.index] = f
			continue
		}
		seen[key] = slot{index: len(out)}
		out = append(out, f)
	}
	return out, dups
}

func dedupeKey(f MonthlyFiling) string {
	return f.Identification.CNPJ + "|" + periodMatchKey(f)
}

// periodMatchKey is the resolved period when it parses and the raw label
// otherwise.
func periodMatchKey(f MonthlyFiling) string {
	if key, ok := f.PeriodKey(); ok {
		return key.String()
	}
	return f.Identification.Period
}

// GroupByCompany splits filings into per-CNPJ file sets sorted by CNPJ.
func GroupByCompany(filings []MonthlyFiling) []FileSet {
	index := make(map[string]int)
	var sets []FileSet
	for _, f := range filings {
		cnpj := f.Identification.CNPJ
		i, ok := index[cnpj]
		if !ok {
			i = len(sets)
			index[cnpj] = i
			sets = append(sets, FileSet{CNPJ: cnpj})
		}
		if sets[i].LegalName == "" {
			sets[i].LegalName = f.Identification.LegalName
		}
		sets[i].Filings = append(sets[i].Filings, f)
	}
	for i := range sets {
		sets[i].Sort()
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].CNPJ < sets[j].CNPJ })
	return sets
}

// Flatten concatenates the filings of sets in order, skipping empty sets.
func Flatten(sets []FileSet) []MonthlyFiling {
	out := make([]MonthlyFiling, 0)
	for _, s := range sets {
		out = append(out, s.Filings...)
	}
	return out
}
