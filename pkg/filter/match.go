package filter

import (
	"fmt"
	"strings"

	"github.com/deingipfel/touren-finder/pkg/models"
)

// MatchMode decides how a tour value is compared with the selected value
type MatchMode string

const (
	// Contains passes a tour whose value contains the selection as a substring.
	Contains MatchMode = "contains"
	// Exact requires the tour value to equal the selection.
	Exact MatchMode = "exact"
)

// ParseMatchMode accepts "contains" or "exact"; empty means Contains.
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Contains:
		return Contains, nil
	case Exact:
		return Exact, nil
	}
	return "", fmt.Errorf("unknown match mode %q", s)
}

// Matches reports whether the tour satisfies every selected attribute.
func Matches(t models.Tour, sel Selection, mode MatchMode) bool {
	for _, a := range Attributes() {
		want := sel.Get(a.Key)
		if want == "" {
			continue
		}
		got := t.Attributes.Value(a.Key)
		if mode == Exact {
			if got != want {
				return false
			}
		} else if !strings.Contains(got, want) {
			return false
		}
	}
	return true
}

// Apply returns the tours passing sel, in collection order.
func Apply(tours []models.Tour, sel Selection, mode MatchMode) []models.Tour {
	out := make([]models.Tour, 0, len(tours))
	for _, t := range tours {
		if Matches(t, sel, mode) {
			out = append(out, t)
		}
	}
	return out
}
