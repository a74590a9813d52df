// Package textnorm folds free text coming from parsed tax forms so that
// pattern matching does not depend on casing, accents or spacing.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics removes combining marks ("exportação" -> "exportacao").
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lowercases, strips diacritics and collapses whitespace.
func Fold(s string) string {
	s = StripDiacritics(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// Key folds s and drops every rune that is not a letter or digit. It is used
// to compare field names such as "PIS/Pasep", "pis_pasep" and "PIS_PASEP".
func Key(s string) string {
	folded := StripDiacritics(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
