package filter

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/deingipfel/touren-finder/pkg/models"
)

// unparsable labels sort after every number
const sortSentinel = math.MaxInt32

// Options holds the sorted distinct values per attribute key
type Options map[string][]string

// DeriveOptions collects the distinct non-empty values of every attribute
// across tours and sorts them per attribute kind.
func DeriveOptions(tours []models.Tour) Options {
	opts := make(Options, len(Attributes()))
	for _, a := range Attributes() {
		seen := map[string]struct{}{}
		values := []string{}
		for _, t := range tours {
			v := t.Attributes.Value(a.Key)
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			values = append(values, v)
		}
		opts[a.Key] = SortOptions(a.Sort, values)
	}
	return opts
}

// SortOptions orders values in place and returns them.
func SortOptions(kind SortKind, values []string) []string {
	if kind != Numeric {
		slices.Sort(values)
		return values
	}
	slices.SortStableFunc(values, func(a, b string) int {
		ka, kb := SortKey(a), SortKey(b)
		if ka != kb {
			if ka < kb {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})
	return values
}

// SortKey maps a range label to its ordering key: the embedded integer,
// minus one for a "<" prefix and plus one for ">". Labels without a number
// get the sentinel.
func SortKey(label string) int {
	s := strings.TrimSpace(label)
	adjust := 0
	switch {
	case strings.HasPrefix(s, "<"):
		adjust = -1
	case strings.HasPrefix(s, ">"):
		adjust = 1
	}

	n, ok := leadingNumber(s)
	if !ok {
		return sortSentinel
	}
	return n + adjust
}

// leadingNumber returns the first integer in s. Dots or apostrophes between
// groups of three digits are read as thousands separators ("2.500").
func leadingNumber(s string) (int, bool) {
	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return 0, false
	}

	end := start
	for end < len(s) && (isDigit(s[end]) || s[end] == '.' || s[end] == '\'') {
		end++
	}
	run := strings.TrimRight(s[start:end], ".'")

	digits := run
	if isGrouped(run) {
		digits = strings.NewReplacer(".", "", "'", "").Replace(run)
	} else if i := strings.IndexAny(run, ".'"); i >= 0 {
		digits = run[:i]
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n >= sortSentinel-1 {
		return 0, false
	}
	return n, true
}

func isGrouped(run string) bool {
	parts := strings.FieldsFunc(run, func(r rune) bool { return r == '.' || r == '\'' })
	if len(parts) < 2 || len(parts[0]) > 3 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
