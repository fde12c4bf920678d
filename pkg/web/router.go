package web

import (
	"context"
	"embed"
	"encoding/json"
	"expvar"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"
	texttemplate "text/template"

	"github.com/deingipfel/touren-finder/pkg/filter"
	"github.com/deingipfel/touren-finder/pkg/logger"
	"github.com/deingipfel/touren-finder/pkg/metrics"
	"github.com/deingipfel/touren-finder/pkg/models"
	"github.com/deingipfel/touren-finder/pkg/tour"
	"github.com/deingipfel/touren-finder/pkg/util"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

// TourService is what the handlers need from the tour service.
type TourService interface {
	List(ctx context.Context, sel filter.Selection) (tour.Listing, error)
	Options(ctx context.Context) (filter.Options, error)
	BySlug(ctx context.Context, slug string) (models.Tour, bool, error)
	Image(ctx context.Context, id int) (models.Image, bool)
	Gallery(ctx context.Context, t models.Tour) []models.Image
	Statistics(ctx context.Context) map[string]interface{}
}

type Handler struct {
	svc       TourService
	publicURL string
	html      *template.Template
	loader    *texttemplate.Template
}

// NewHandler parses the embedded templates. publicURL is the absolute base
// written into the loader script; empty derives it from each request.
func NewHandler(svc TourService, publicURL string) (*Handler, error) {
	html, err := template.New("_root").ParseFS(templateFS, "templates/page.tmpl", "templates/listing.tmpl", "templates/gallery.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	loader, err := texttemplate.New("_loader").Funcs(texttemplate.FuncMap{
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
	}).ParseFS(templateFS, "templates/loader.js.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse loader template: %w", err)
	}

	if publicURL != "" && !strings.HasSuffix(publicURL, "/") {
		publicURL += "/"
	}
	return &Handler{svc: svc, publicURL: publicURL, html: html, loader: loader}, nil
}

// Routes wires every endpoint onto a chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Instrument)
	// host pages on other origins fetch fragments and galleries
	r.Use(util.Cors)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/", h.Page)
	r.Get("/fragment", h.Fragment)
	r.Get("/tours/{slug}/gallery", h.Gallery)
	r.Get("/manifest.json", h.Manifest)
	r.Get("/loader.js", h.Loader)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tours", h.APITours)
		r.Get("/options", h.APIOptions)
		r.Get("/media/{id}", h.APIMedia)
	})

	assets, _ := fs.Sub(assetFS, "assets")
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(assets))))

	r.Get(metrics.StatsPath, metrics.StatsHandler)
	r.Get("/stats/cache", h.CacheStats)
	r.Handle(metrics.DebugVarsPath, expvar.Handler())

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.WithField("request_id", middleware.GetReqID(r.Context())).
			WithField("status", ww.Status()).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Debugf("%s %s", r.Method, r.URL.RequestURI())
	})
}

func (h *Handler) renderHTML(w http.ResponseWriter, name string, status int, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var buf strings.Builder
	if err := h.html.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("Template %s failed: %v", name, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// assetBase is where the browser finds our own routes.
func (h *Handler) assetBase(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/"
}
