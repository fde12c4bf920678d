package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/deingipfel/touren-finder/pkg/filter"
	"github.com/deingipfel/touren-finder/pkg/gallery"
	"github.com/deingipfel/touren-finder/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// Page renders the full document. A query with duplicate, padded or empty
// filter values is redirected to its canonical form.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	if h.redirectCanonical(w, r) {
		return
	}
	lv, status := h.listing(r)
	h.renderHTML(w, "page", status, pageView{AssetBase: h.assetBase(r), listingView: lv})
}

// Fragment renders only the listing, for in-place updates.
func (h *Handler) Fragment(w http.ResponseWriter, r *http.Request) {
	if h.redirectCanonical(w, r) {
		return
	}
	lv, status := h.listing(r)
	h.renderHTML(w, "listing", status, lv)
}

func (h *Handler) redirectCanonical(w http.ResponseWriter, r *http.Request) bool {
	canonical, changed := filter.Canonical(r.URL.Query())
	if !changed {
		return false
	}
	target := r.URL.Path
	if canonical != "" {
		target += "?" + canonical
	}
	http.Redirect(w, r, target, http.StatusFound)
	return true
}

// listing builds the listing view. Without a collection the loading state is
// shown with 503 so the client retries.
func (h *Handler) listing(r *http.Request) (listingView, int) {
	ctx := r.Context()
	l, err := h.svc.List(ctx, filter.FromQuery(r.URL.Query()))
	if err != nil {
		logger.Error("Failed to load tours: %v", err)
		return listingView{Loading: true}, http.StatusServiceUnavailable
	}

	var first *gallery.View
	if len(l.Tours) > 0 {
		t := l.Tours[0]
		if img, ok := h.svc.Image(ctx, t.FeaturedMedia); ok {
			first = &gallery.View{
				Count: len(gallery.ImageIDs(t)),
				Image: img,
				Prev:  -1,
				Next:  1,
			}
		}
	}
	return buildListing(r.URL.Query(), l, first), http.StatusOK
}

// Gallery serves one page of a tour's gallery. offset and velocity describe
// a finished drag and move the page by one when the swipe was confident.
func (h *Handler) Gallery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	t, found, err := h.svc.BySlug(ctx, slug)
	if err != nil {
		logger.Error("Gallery lookup for %s failed: %v", slug, err)
		http.Error(w, "tours unavailable", http.StatusServiceUnavailable)
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	offset, _ := strconv.ParseFloat(q.Get("offset"), 64)
	velocity, _ := strconv.ParseFloat(q.Get("velocity"), 64)
	page += gallery.SwipeDirection(offset, velocity)

	view, ok := gallery.Page(h.svc.Gallery(ctx, t), page)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, view)
		return
	}
	h.renderHTML(w, "gallery", http.StatusOK, view)
}

func (h *Handler) APITours(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.List(r.Context(), filter.FromQuery(r.URL.Query()))
	if err != nil {
		logger.Error("Failed to load tours: %v", err)
		writeJSONError(w, http.StatusServiceUnavailable, "tours unavailable")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handler) APIOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.svc.Options(r.Context())
	if err != nil {
		logger.Error("Failed to load options: %v", err)
		writeJSONError(w, http.StatusServiceUnavailable, "tours unavailable")
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (h *Handler) APIMedia(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid media id")
		return
	}
	img, ok := h.svc.Image(r.Context(), id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "no image")
		return
	}
	writeJSON(w, http.StatusOK, img)
}

type manifestEntry struct {
	File string   `json:"file"`
	CSS  []string `json:"css"`
}

// Manifest tells the loader script which bundle files to inject.
func (h *Handler) Manifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]manifestEntry{
		"index.html": {File: "assets/touren.js", CSS: []string{"assets/touren.css"}},
	})
}

// Loader serves the script a host page includes to embed the listing.
func (h *Handler) Loader(w http.ResponseWriter, r *http.Request) {
	var buf strings.Builder
	if err := h.loader.ExecuteTemplate(&buf, "loader", struct{ Host string }{h.assetBase(r)}); err != nil {
		logger.Error("Loader template failed: %v", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write([]byte(buf.String()))
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Statistics(r.Context()))
}
