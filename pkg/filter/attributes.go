package filter

// SortKind selects how option labels are ordered
type SortKind int

const (
	Lexical SortKind = iota
	Numeric
)

// Attribute describes one filterable field of a tour
type Attribute struct {
	Key   string // ACF field name, also the query key
	Label string
	Sort  SortKind
}

// Attributes returns the filter catalogue in display order.
func Attributes() []Attribute {
	return []Attribute{
		{Key: "dauer", Label: "dauer", Sort: Numeric},
		{Key: "schwierigkeit", Label: "schwierigkeit", Sort: Lexical},
		{Key: "land", Label: "land", Sort: Lexical},
		{Key: "region", Label: "region", Sort: Lexical},
		{Key: "gipfelhoehe", Label: "gipfelhöhe", Sort: Numeric},
		{Key: "hoehenmeter", Label: "höhenmeter", Sort: Numeric},
		{Key: "tourentyp", Label: "tourentyp", Sort: Lexical},
	}
}

// Lookup finds an attribute by key.
func Lookup(key string) (Attribute, bool) {
	for _, a := range Attributes() {
		if a.Key == key {
			return a, true
		}
	}
	return Attribute{}, false
}
