// Package period resolves the assorted period labels found in PGDAS-D
// filings and history feeds into a canonical (year, month) key.
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/simplesdash/simplesdash/internal/platform/textnorm"
)

// Key identifies one assessment period (PA).
type Key struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

var (
	dayMonthYearRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})`)
	monthYearRe    = regexp.MustCompile(`^(\d{1,2})/(\d{4})(?:\D|$)`)
	isoRe          = regexp.MustCompile(`^(\d{4})-(\d{1,2})(?:-(\d{1,2}))?(?:\D|$)`)
	namedRe        = regexp.MustCompile(`^([a-z]+)\.?\s*[/\-\s]\s*(\d{4})(?:\D|$)`)
	canonicalRe    = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

var monthPrefixes = map[string]int{
	"jan": 1, "fev": 2, "feb": 2, "mar": 3, "abr": 4, "apr": 4,
	"mai": 5, "may": 5, "jun": 6, "jul": 7, "ago": 8, "aug": 8,
	"set": 9, "sep": 9, "out": 10, "oct": 10, "nov": 11, "dez": 12, "dec": 12,
}

var shortNames = [...]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// Resolve parses label into a Key. The boolean is false when no supported
// shape matches; callers skip such entries and report them.
func Resolve(label string) (Key, bool) {
	raw := strings.TrimSpace(label)
	if raw == "" {
		return Key{}, false
	}
	if m := dayMonthYearRe.FindStringSubmatch(raw); m != nil {
		return build(m[3], m[2])
	}
	if m := monthYearRe.FindStringSubmatch(raw); m != nil {
		return build(m[2], m[1])
	}
	if m := isoRe.FindStringSubmatch(raw); m != nil {
		return build(m[1], m[2])
	}
	if m := namedRe.FindStringSubmatch(textnorm.Fold(raw)); m != nil {
		if len(m[1]) < 3 {
			return Key{}, false
		}
		month, ok := monthPrefixes[m[1][:3]]
		if !ok {
			return Key{}, false
		}
		return build(m[2], strconv.Itoa(month))
	}
	return Key{}, false
}

// ParseKey parses the canonical "YYYY-MM" representation.
func ParseKey(s string) (Key, error) {
	if !canonicalRe.MatchString(s) {
		return Key{}, fmt.Errorf("period: invalid key %q", s)
	}
	key, ok := build(s[:4], s[5:])
	if !ok {
		return Key{}, fmt.Errorf("period: invalid key %q", s)
	}
	return key, nil
}

func build(yearStr, monthStr string) (Key, bool) {
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1900 || year > 2999 {
		return Key{}, false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return Key{}, false
	}
	return Key{Year: year, Month: month}, true
}

// FromTime returns the key for the month containing t.
func FromTime(t time.Time) Key {
	return Key{Year: t.Year(), Month: int(t.Month())}
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool { return k.Year == 0 && k.Month == 0 }

// String renders the canonical "YYYY-MM" form used as map key.
func (k Key) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// Label renders a short pt-BR label such as "jun/2024".
func (k Key) Label() string {
	if k.Month < 1 || k.Month > 12 {
		return k.String()
	}
	return fmt.Sprintf("%s/%d", shortNames[k.Month-1], k.Year)
}

// Quarter returns 1-4.
func (k Key) Quarter() int { return (k.Month + 2) / 3 }

// Semester returns 1 for January-June and 2 for July-December.
func (k Key) Semester() int {
	if k.Month <= 6 {
		return 1
	}
	return 2
}

// AddMonths shifts k by n months (n may be negative).
func (k Key) AddMonths(n int) Key {
	t := time.Date(k.Year, time.Month(k.Month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return FromTime(t)
}

// Before reports whether k sorts before other.
func (k Key) Before(other Key) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// Compare returns -1, 0 or 1.
func (k Key) Compare(other Key) int {
	switch {
	case k.Before(other):
		return -1
	case other.Before(k):
		return 1
	default:
		return 0
	}
}
