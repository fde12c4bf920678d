package tour

import (
	"context"
	"sync/atomic"

	"github.com/deingipfel/touren-finder/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const warmupWorkers = 4

// WarmupResult counts what a warmup run fetched
type WarmupResult struct {
	Tours  int `json:"tours"`
	Images int `json:"images"`
}

// Warmup refetches the tour collection and preloads every featured image so
// the first visitors find both caches filled.
func (s *Service) Warmup(ctx context.Context) (WarmupResult, error) {
	tours, err := s.Refresh(ctx)
	if err != nil {
		logger.Error("Warmup failed: %v", err)
		return WarmupResult{}, err
	}

	var images atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupWorkers)
	for _, t := range tours {
		if t.FeaturedMedia <= 0 {
			continue
		}
		id := t.FeaturedMedia
		g.Go(func() error {
			if _, ok := s.Image(gctx, id); ok {
				images.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := WarmupResult{Tours: len(tours), Images: int(images.Load())}
	logger.Info("Warmup finished. Tours: %d, featured images: %d", res.Tours, res.Images)
	return res, nil
}
