package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deingipfel/touren-finder/pkg/cache"
	"github.com/deingipfel/touren-finder/pkg/config"
	"github.com/deingipfel/touren-finder/pkg/filter"
	"github.com/deingipfel/touren-finder/pkg/logger"
	"github.com/deingipfel/touren-finder/pkg/metrics"
	"github.com/deingipfel/touren-finder/pkg/scheduler"
	"github.com/deingipfel/touren-finder/pkg/tour"
	"github.com/deingipfel/touren-finder/pkg/web"
	"github.com/deingipfel/touren-finder/pkg/wordpress"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Touren Finder server...")

	metrics.Init()

	if err := run(cfg); err != nil {
		logger.Error("Server exited with error: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	media, err := cache.NewBoltMediaStore(cfg.Cache.MediaDBPath)
	if err != nil {
		return err
	}
	defer media.Close()

	tours, closeTours := openTourStore(ctx, cfg.Redis)
	defer closeTours()

	mode, err := filter.ParseMatchMode(cfg.Filter.MatchMode)
	if err != nil {
		return err
	}

	svc := tour.NewService(wordpress.NewClient(cfg.WordPress), tours, media, cfg.Cache.ToursTTL, mode)
	logger.Info("Filter match mode: %s", svc.MatchMode())

	go func() {
		if _, err := svc.Warmup(ctx); err != nil {
			logger.Warn("Startup warmup failed, tours will be fetched on first request")
		}
	}()

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(cfg.Scheduler, svc)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		logger.Info("Next warmup at %s", sched.Next().Format(time.RFC3339))
	}

	h, err := web.NewHandler(svc, cfg.Server.PublicURL)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server on %s...", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openTourStore uses redis when configured and falls back to memory when it
// is unreachable.
func openTourStore(ctx context.Context, cfg config.RedisConfig) (cache.TourStore, func()) {
	if cfg.URL == "" {
		return cache.NewMemoryTourStore(), func() {}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	store, err := cache.NewRedisTourStore(pingCtx, cfg.URL, cfg.Key)
	if err != nil {
		logger.Warn("Redis unavailable, keeping tours in memory: %v", err)
		return cache.NewMemoryTourStore(), func() {}
	}
	logger.Info("Tour cache backed by redis key %s", cfg.Key)
	return store, func() { _ = store.Close() }
}
