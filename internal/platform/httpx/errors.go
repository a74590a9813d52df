package httpx

import (
	"errors"
	"net/http"
)

// Rule maps a class of errors onto a problem response. Detail is taken
// from the error unless Hide is set.
type Rule struct {
	Match  func(error) bool
	Status int
	Title  string
	Hide   bool
}

// Is matches errors wrapping any of targets.
func Is(targets ...error) func(error) bool {
	return func(err error) bool {
		for _, t := range targets {
			if errors.Is(err, t) {
				return true
			}
		}
		return false
	}
}

// As matches errors with a T in their chain.
func As[T error]() func(error) bool {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}

// Resolve returns the first matching rule. Unmatched errors resolve to a
// 500 without detail.
func Resolve(err error, rules []Rule) (Rule, string) {
	for _, r := range rules {
		if r.Match != nil && r.Match(err) {
			if r.Hide {
				return r, ""
			}
			return r, err.Error()
		}
	}
	return Rule{Status: http.StatusInternalServerError, Title: http.StatusText(http.StatusInternalServerError), Hide: true}, ""
}
