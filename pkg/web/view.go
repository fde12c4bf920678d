package web

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/deingipfel/touren-finder/pkg/filter"
	"github.com/deingipfel/touren-finder/pkg/gallery"
	"github.com/deingipfel/touren-finder/pkg/tour"
)

type pageView struct {
	AssetBase string
	listingView
}

type listingView struct {
	Loading bool
	Query   string
	Filters []filterView
	Count   int
	Total   int
	Tours   []tourView
}

type filterView struct {
	Key       string
	Label     string
	Value     string
	ClearHref string
	Options   []optionView
}

type optionView struct {
	ID       string
	Href     string
	Selected bool
	Text     string
}

type tourView struct {
	Link       string
	Title      string
	Eager      bool
	GalleryURL string
	View       gallery.View
}

var idFold = strings.NewReplacer(
	"ä", "a", "ö", "o", "ü", "u", "Ä", "a", "Ö", "o", "Ü", "u", "ß", "ss",
	"<", " lt ", ">", " gt ",
)

// optionID builds a DOM id like "land-osterreich" or "dauer-gt-3-tage" for an
// option link.
func optionID(key, value string) string {
	v := strings.ToLower(idFold.Replace(value))
	v = strings.Join(strings.FieldsFunc(v, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}), "-")
	return key + "-" + v
}

// hrefFor returns the relative link for sel, keeping foreign query keys.
func hrefFor(base url.Values, sel filter.Selection) string {
	q := url.Values{}
	for k, v := range base {
		q[k] = append([]string(nil), v...)
	}
	sel.Encode(q)
	if enc := q.Encode(); enc != "" {
		return "?" + enc
	}
	return "?"
}

func withValue(sel filter.Selection, key, value string) filter.Selection {
	next := filter.Selection{}
	for k, v := range sel {
		next[k] = v
	}
	next.Set(key, value)
	return next
}

func buildFilters(query url.Values, sel filter.Selection, opts filter.Options) []filterView {
	attrs := filter.Attributes()
	out := make([]filterView, 0, len(attrs))
	for _, a := range attrs {
		fv := filterView{
			Key:       a.Key,
			Label:     a.Label,
			Value:     sel.Get(a.Key),
			ClearHref: hrefFor(query, withValue(sel, a.Key, "")),
		}
		seen := map[string]int{}
		for _, v := range opts[a.Key] {
			id := optionID(a.Key, v)
			if n := seen[id]; n > 0 {
				seen[id] = n + 1
				id += "-" + strconv.Itoa(n+1)
			} else {
				seen[id] = 1
			}
			fv.Options = append(fv.Options, optionView{
				ID:       id,
				Href:     hrefFor(query, withValue(sel, a.Key, v)),
				Selected: v == fv.Value,
				Text:     v,
			})
		}
		out = append(out, fv)
	}
	return out
}

func galleryURL(slug string) string {
	return "tours/" + url.PathEscape(slug) + "/gallery"
}

func buildListing(query url.Values, l tour.Listing, first *gallery.View) listingView {
	lv := listingView{
		Query:   l.Query,
		Filters: buildFilters(query, l.Selection, l.Options),
		Count:   len(l.Tours),
		Total:   l.Total,
		Tours:   make([]tourView, 0, len(l.Tours)),
	}
	for i, t := range l.Tours {
		tv := tourView{
			Link:       t.Link,
			Title:      t.Title,
			GalleryURL: galleryURL(t.Slug),
		}
		if i == 0 && first != nil {
			tv.Eager = true
			tv.View = *first
		}
		lv.Tours = append(lv.Tours, tv)
	}
	return lv
}
