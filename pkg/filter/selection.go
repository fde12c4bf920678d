package filter

import (
	"net/url"
	"strings"
)

// Selection maps an attribute key to the chosen value. A missing key or an
// empty value means the attribute is unset. Build it with Set or FromQuery,
// which trim values; compare with Equal.
type Selection map[string]string

// Get returns the chosen value for key, empty when unset.
func (s Selection) Get(key string) string {
	return s[key]
}

// Set chooses value for key; an empty value unsets it.
func (s Selection) Set(key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		delete(s, key)
		return
	}
	s[key] = value
}

// IsEmpty reports whether no attribute is selected.
func (s Selection) IsEmpty() bool {
	for _, v := range s {
		if v != "" {
			return false
		}
	}
	return true
}

// Equal compares two selections, treating empty values as unset.
func (s Selection) Equal(other Selection) bool {
	for _, a := range Attributes() {
		if s.Get(a.Key) != other.Get(a.Key) {
			return false
		}
	}
	return true
}

// FromQuery derives the selection from a URL query. Keys outside the
// attribute catalogue are ignored.
func FromQuery(q url.Values) Selection {
	sel := Selection{}
	for _, a := range Attributes() {
		sel.Set(a.Key, q.Get(a.Key))
	}
	return sel
}

// Encode writes the selection into q: selected attributes are set trimmed,
// unset ones are deleted. Other keys in q are left alone. For any s,
// FromQuery of the result is Equal to s with values trimmed and keys outside
// the catalogue dropped; for a selection built with Set it is Equal to s.
func (s Selection) Encode(q url.Values) {
	for _, a := range Attributes() {
		if v := strings.TrimSpace(s.Get(a.Key)); v != "" {
			q.Set(a.Key, v)
		} else {
			q.Del(a.Key)
		}
	}
}

// Query returns the selection as a fresh query.
func (s Selection) Query() url.Values {
	q := url.Values{}
	s.Encode(q)
	return q
}

// Canonical rewrites q so that filter keys carry exactly one trimmed,
// non-empty value. It returns the encoded query and whether q differed.
func Canonical(q url.Values) (string, bool) {
	changed := false
	for _, a := range Attributes() {
		vals, ok := q[a.Key]
		if !ok {
			continue
		}
		if len(vals) != 1 || strings.TrimSpace(vals[0]) != vals[0] || vals[0] == "" {
			changed = true
		}
	}
	if !changed {
		return q.Encode(), false
	}

	out := url.Values{}
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	FromQuery(q).Encode(out)
	return out.Encode(), true
}
