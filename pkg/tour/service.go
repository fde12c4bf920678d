package tour

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/deingipfel/touren-finder/pkg/cache"
	"github.com/deingipfel/touren-finder/pkg/filter"
	"github.com/deingipfel/touren-finder/pkg/gallery"
	"github.com/deingipfel/touren-finder/pkg/logger"
	"github.com/deingipfel/touren-finder/pkg/metrics"
	"github.com/deingipfel/touren-finder/pkg/models"
	"github.com/deingipfel/touren-finder/pkg/wordpress"
	"golang.org/x/sync/singleflight"
)

// Service serves the tour collection and media records with caching.
type Service struct {
	wp    wordpress.Client
	tours cache.TourStore
	media cache.MediaStore
	ttl   time.Duration
	mode  filter.MatchMode

	group singleflight.Group
	now   func() time.Time
}

// Listing is the filtered view of the collection for one selection
type Listing struct {
	Tours     []models.Tour    `json:"tours"`
	Total     int              `json:"total"`
	Options   filter.Options   `json:"options"`
	Selection filter.Selection `json:"selection"`
	Query     string           `json:"query"`
}

func NewService(wp wordpress.Client, tours cache.TourStore, media cache.MediaStore, ttl time.Duration, mode filter.MatchMode) *Service {
	if mode == "" {
		mode = filter.Contains
	}
	return &Service{
		wp:    wp,
		tours: tours,
		media: media,
		ttl:   ttl,
		mode:  mode,
		now:   time.Now,
	}
}

// MatchMode returns the configured filter semantics.
func (s *Service) MatchMode() filter.MatchMode {
	return s.mode
}

// Tours returns the tour collection. A snapshot younger than the TTL is
// served from the store; otherwise one fetch is shared by all callers. When
// the fetch fails a stale snapshot is served instead of an error.
func (s *Service) Tours(ctx context.Context) ([]models.Tour, error) {
	snap, ok, err := s.tours.Get(ctx)
	if err != nil {
		logger.Warn("Tour cache read failed, fetching from WordPress: %v", err)
		ok = false
	}
	if ok && snap.Age(s.now()) < s.ttl {
		metrics.Inc(metrics.ToursCacheHit)
		return snap.Tours, nil
	}
	metrics.Inc(metrics.ToursCacheMiss)

	tours, err := s.refreshShared(ctx)
	if err != nil {
		if ok {
			metrics.Inc(metrics.ToursStaleServed)
			logger.Warn("Serving stale tours fetched at %s: %v", snap.FetchedAt.UTC().Format(time.RFC3339), err)
			return snap.Tours, nil
		}
		return nil, err
	}
	return tours, nil
}

// Refresh refetches the collection regardless of the cache state.
func (s *Service) Refresh(ctx context.Context) ([]models.Tour, error) {
	return s.refreshShared(ctx)
}

func (s *Service) refreshShared(ctx context.Context) ([]models.Tour, error) {
	// detached: one caller giving up must not fail the callers sharing the fetch
	v, err, shared := s.group.Do("tours", func() (interface{}, error) {
		return s.refresh(context.WithoutCancel(ctx))
	})
	if shared {
		logger.Debug("Tour fetch shared between concurrent callers")
	}
	if err != nil {
		return nil, err
	}
	return v.([]models.Tour), nil
}

func (s *Service) refresh(ctx context.Context) ([]models.Tour, error) {
	tours, err := s.wp.ListTours(ctx)
	if err != nil {
		metrics.Inc(metrics.UpstreamErrors)
		return nil, fmt.Errorf("failed to list tours: %w", err)
	}
	if tours == nil {
		tours = []models.Tour{}
	}

	if err := s.tours.Set(ctx, cache.Snapshot{Tours: tours, FetchedAt: s.now()}); err != nil {
		logger.Error("Failed to store tour snapshot: %v", err)
	}
	return tours, nil
}

// List filters the collection by sel and derives the option sets from the
// whole collection.
func (s *Service) List(ctx context.Context, sel filter.Selection) (Listing, error) {
	all, err := s.Tours(ctx)
	if err != nil {
		return Listing{}, err
	}
	filtered := filter.Apply(all, sel, s.mode)
	return Listing{
		Tours:     filtered,
		Total:     len(all),
		Options:   filter.DeriveOptions(all),
		Selection: sel,
		Query:     sel.Query().Encode(),
	}, nil
}

// Options returns the option sets of the current collection.
func (s *Service) Options(ctx context.Context) (filter.Options, error) {
	all, err := s.Tours(ctx)
	if err != nil {
		return nil, err
	}
	return filter.DeriveOptions(all), nil
}

// BySlug finds a tour in the collection.
func (s *Service) BySlug(ctx context.Context, slug string) (models.Tour, bool, error) {
	all, err := s.Tours(ctx)
	if err != nil {
		return models.Tour{}, false, err
	}
	for _, t := range all {
		if t.Slug == slug {
			return t, true, nil
		}
	}
	return models.Tour{}, false, nil
}

// Image resolves a media id. Zero ids are skipped and fetch failures
// degrade to no image; both return ok=false.
func (s *Service) Image(ctx context.Context, id int) (models.Image, bool) {
	if id <= 0 {
		return models.Image{}, false
	}

	if m, found, err := s.media.Get(id); err != nil {
		logger.Warn("Media cache read failed for %d: %v", id, err)
	} else if found {
		if img, ok := gallery.Resolve(m); ok {
			metrics.Inc(metrics.MediaCacheHit)
			return img, true
		}
		// no usable size, fetch again
		if err := s.media.Delete(id); err != nil {
			logger.Warn("Failed to drop media %d from cache: %v", id, err)
		}
	}
	metrics.Inc(metrics.MediaCacheMiss)

	v, err, _ := s.group.Do("media:"+strconv.Itoa(id), func() (interface{}, error) {
		m, err := s.wp.GetMedia(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, err
		}
		if err := s.media.Set(m); err != nil {
			logger.Error("Failed to cache media %d: %v", id, err)
		}
		return m, nil
	})
	if err != nil {
		if !errors.Is(err, wordpress.ErrNotFound) {
			metrics.Inc(metrics.UpstreamErrors)
		}
		logger.Warn("No image for media %d: %v", id, err)
		return models.Image{}, false
	}
	return gallery.Resolve(v.(models.Media))
}

// Gallery resolves every image of a tour, dropping the ones that fail.
func (s *Service) Gallery(ctx context.Context, t models.Tour) []models.Image {
	ids := gallery.ImageIDs(t)
	images := make([]models.Image, 0, len(ids))
	for _, id := range ids {
		if img, ok := s.Image(ctx, id); ok {
			images = append(images, img)
		}
	}
	return images
}

// Statistics reports cache state for diagnostics.
func (s *Service) Statistics(ctx context.Context) map[string]interface{} {
	out := map[string]interface{}{
		"match_mode": string(s.mode),
		"tours_ttl":  s.ttl.String(),
	}
	if snap, ok, err := s.tours.Get(ctx); err == nil && ok {
		out["tours"] = len(snap.Tours)
		out["tours_fetched_at"] = snap.FetchedAt.UTC().Format(time.RFC3339)
	}
	if stats, err := s.media.Statistics(); err == nil {
		out["media"] = stats
	} else {
		logger.Error("Failed to read media statistics: %v", err)
	}
	return out
}
