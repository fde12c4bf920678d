package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MaxImages is the number of bild fields a tour page carries.
const MaxImages = 10

type Tour struct {
	ID            int        `json:"id"`
	Slug          string     `json:"slug"`
	Link          string     `json:"link"`
	Title         string     `json:"title"`
	FeaturedMedia int        `json:"featured_media"`
	Attributes    Attributes `json:"attributes"`
}

// Attributes is the ACF payload attached to a tour page
type Attributes struct {
	Land          string         `json:"land"`          // country
	Region        string         `json:"region"`        // region
	Schwierigkeit string         `json:"schwierigkeit"` // difficulty
	Dauer         string         `json:"dauer"`         // duration
	Hoehenmeter   string         `json:"hoehenmeter"`   // elevation gain
	Gipfelhoehe   string         `json:"gipfelhoehe"`   // peak height
	Tourentyp     string         `json:"tourentyp"`     // tour type
	Bilder        [MaxImages]int `json:"bilder"`
}

// Value returns the attribute stored under its ACF key.
func (a Attributes) Value(key string) string {
	switch key {
	case "land":
		return a.Land
	case "region":
		return a.Region
	case "schwierigkeit":
		return a.Schwierigkeit
	case "dauer":
		return a.Dauer
	case "hoehenmeter":
		return a.Hoehenmeter
	case "gipfelhoehe":
		return a.Gipfelhoehe
	case "tourentyp":
		return a.Tourentyp
	}
	return ""
}

// UnmarshalJSON decodes the raw ACF object. ACF sends false for empty
// fields, numbers for numeric fields and either ids or objects for images.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("false")) ||
		bytes.Equal(trimmed, []byte("[]")) {
		*a = Attributes{}
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("decode acf: %w", err)
	}

	var out Attributes
	fields := map[string]*string{
		"land":          &out.Land,
		"region":        &out.Region,
		"schwierigkeit": &out.Schwierigkeit,
		"dauer":         &out.Dauer,
		"hoehenmeter":   &out.Hoehenmeter,
		"gipfelhoehe":   &out.Gipfelhoehe,
		"tourentyp":     &out.Tourentyp,
	}
	for key, dst := range fields {
		v, err := flexString(raw[key])
		if err != nil {
			return fmt.Errorf("decode acf field %s: %w", key, err)
		}
		*dst = v
	}

	if bilder, ok := raw["bilder"]; ok {
		// our own cache encoding
		var ids []json.RawMessage
		if err := json.Unmarshal(bilder, &ids); err == nil {
			for i := 0; i < len(ids) && i < MaxImages; i++ {
				out.Bilder[i] = flexID(ids[i])
			}
		}
	}
	for i := 0; i < MaxImages; i++ {
		if v, ok := raw["bild"+strconv.Itoa(i+1)]; ok {
			out.Bilder[i] = flexID(v)
		}
	}

	*a = out
	return nil
}

func flexString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	case 'n', 'f':
		return "", nil
	case 't':
		return "true", nil
	case '[':
		// multiple choice select
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return "", err
		}
		return strings.Join(list, ", "), nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}

func flexID(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	switch raw[0] {
	case '{':
		var obj struct {
			ID int `json:"id"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return 0
		}
		return obj.ID
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		n, _ := strconv.Atoi(strings.TrimSpace(s))
		return n
	default:
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0
		}
		return n
	}
}

type MediaSize struct {
	SourceURL string `json:"source_url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type Media struct {
	ID    int                  `json:"id"`
	Sizes map[string]MediaSize `json:"sizes"`
}

// Image is a media record resolved for an <img> tag
type Image struct {
	ID     int    `json:"id"`
	Src    string `json:"src"`
	SrcSet string `json:"srcset"`
}
