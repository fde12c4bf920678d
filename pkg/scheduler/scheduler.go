package scheduler

import (
	"context"
	"time"

	"github.com/deingipfel/touren-finder/pkg/config"
	"github.com/deingipfel/touren-finder/pkg/logger"
	"github.com/deingipfel/touren-finder/pkg/tour"
	"github.com/robfig/cron/v3"
)

// Warmer is the job the scheduler runs.
type Warmer interface {
	Warmup(ctx context.Context) (tour.WarmupResult, error)
}

type Scheduler struct {
	c       *cron.Cron
	config  config.SchedulerConfig
	warmer  Warmer
	timeout time.Duration
}

// New registers the warmup job on cfg.CronSpec (standard 5-field spec, server local time).
func New(cfg config.SchedulerConfig, warmer Warmer) (*Scheduler, error) {
	s := &Scheduler{
		c:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		config:  cfg,
		warmer:  warmer,
		timeout: 5 * time.Minute,
	}
	if _, err := s.c.AddFunc(cfg.CronSpec, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) run() {
	logger.Info("Scheduler tick: running warmup job")
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.warmer.Warmup(ctx)
	if err != nil {
		logger.Error("Scheduler warmup failed: %v", err)
		return
	}
	logger.Info("Scheduler warmup done, tours: %d, images: %d", res.Tours, res.Images)
}

func (s *Scheduler) Start() {
	logger.Info("Starting scheduler (cron=%s)", s.config.CronSpec)
	s.c.Start()
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

// Next returns the next planned run.
func (s *Scheduler) Next() time.Time {
	entries := s.c.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
