package gallery

import (
	"math"
	"strconv"
	"strings"

	"github.com/deingipfel/touren-finder/pkg/models"
)

// Sizes used for the srcset, smallest first.
var srcSetSizes = []string{"medium_large", "large", "full"}

// SwipeConfidenceThreshold is the minimum swipe power that turns a drag into
// a page change. Short flicks need more velocity than long drags.
const SwipeConfidenceThreshold = 10000

// Resolve turns a media record into an image; ok is false when no size has a URL.
func Resolve(m models.Media) (models.Image, bool) {
	src := Src(m)
	if src == "" {
		return models.Image{}, false
	}
	return models.Image{ID: m.ID, Src: src, SrcSet: SrcSet(m)}, true
}

// SrcSet builds "<url> <width>w" entries for the known sizes.
func SrcSet(m models.Media) string {
	parts := make([]string, 0, len(srcSetSizes))
	for _, name := range srcSetSizes {
		s, ok := m.Sizes[name]
		if !ok || s.SourceURL == "" {
			continue
		}
		parts = append(parts, s.SourceURL+" "+strconv.Itoa(s.Width)+"w")
	}
	return strings.Join(parts, ", ")
}

// Src prefers medium_large and falls back to the larger sizes.
func Src(m models.Media) string {
	for _, name := range srcSetSizes {
		if s, ok := m.Sizes[name]; ok && s.SourceURL != "" {
			return s.SourceURL
		}
	}
	return ""
}

// Wrap maps v into [min, max) cyclically, also for negative v.
func Wrap(min, max, v int) int {
	span := max - min
	if span <= 0 {
		return min
	}
	return ((v-min)%span+span)%span + min
}

// ImageIDs lists a tour's images: featured media first, then the bild
// fields, without zeros and duplicates.
func ImageIDs(t models.Tour) []int {
	ids := make([]int, 0, models.MaxImages+1)
	seen := map[int]struct{}{}
	add := func(id int) {
		if id <= 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	add(t.FeaturedMedia)
	for _, id := range t.Attributes.Bilder {
		add(id)
	}
	return ids
}

// View is the state of a gallery at one absolute page
type View struct {
	Page  int          `json:"page"`
	Index int          `json:"index"`
	Count int          `json:"count"`
	Image models.Image `json:"image"`
	Prev  int          `json:"prev"`
	Next  int          `json:"next"`
}

// Page selects the image shown at the absolute page number. Pages are not
// bounded; the index wraps so paging never runs out.
func Page(images []models.Image, page int) (View, bool) {
	if len(images) == 0 {
		return View{}, false
	}
	idx := Wrap(0, len(images), page)
	return View{
		Page:  page,
		Index: idx,
		Count: len(images),
		Image: images[idx],
		Prev:  page - 1,
		Next:  page + 1,
	}, true
}

// SwipePower combines drag distance and velocity into one number.
func SwipePower(offset, velocity float64) float64 {
	return math.Abs(offset) * velocity
}

// SwipeDirection returns +1 for a swipe to the next image, -1 for the
// previous one and 0 when the drag was not confident enough.
func SwipeDirection(offset, velocity float64) int {
	swipe := SwipePower(offset, velocity)
	switch {
	case swipe < -SwipeConfidenceThreshold:
		return 1
	case swipe > SwipeConfidenceThreshold:
		return -1
	}
	return 0
}
