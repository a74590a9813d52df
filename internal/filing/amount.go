package filing

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var amountNoise = strings.NewReplacer("R$", "", "r$", "", " ", "", "\u00a0", "", "%", "")

// ParseAmount converts a native number or a pt-BR/en-US formatted string
// into a float. When both '.' and ',' appear the rightmost one is the
// decimal separator; a lone ',' is decimal. Anything unparseable or
// non-finite yields 0.
func ParseAmount(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case json.Number:
		return parseAmountString(n.String())
	case string:
		return parseAmountString(n)
	case bool:
		return 0
	}
	return 0
}

func parseAmountString(raw string) float64 {
	s := amountNoise.Replace(strings.TrimSpace(raw))
	if s == "" {
		return 0
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	s = canonicalSeparators(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	f = finite(f)
	if negative {
		return -f
	}
	return f
}

func canonicalSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// nonNegative clamps revenue and tax figures.
func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

func parseInt(v any) int {
	switch n := v.(type) {
	case string:
		s := strings.TrimSpace(n)
		s = strings.TrimPrefix(strings.TrimPrefix(s, "Anexo"), "anexo")
		s = strings.TrimSpace(s)
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		if r := romanAnnex(strings.ToUpper(s)); r > 0 {
			return r
		}
	}
	return int(math.Round(ParseAmount(v)))
}

func romanAnnex(s string) int {
	switch s {
	case "I":
		return 1
	case "II":
		return 2
	case "III":
		return 3
	case "IV":
		return 4
	case "V":
		return 5
	}
	return 0
}
