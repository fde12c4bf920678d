package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deingipfel/touren-finder/pkg/config"
	"github.com/deingipfel/touren-finder/pkg/tour"
)

type countingWarmer struct {
	calls atomic.Int32
	err   error
}

func (w *countingWarmer) Warmup(ctx context.Context) (tour.WarmupResult, error) {
	w.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return tour.WarmupResult{}, errors.New("warmup without deadline")
	}
	return tour.WarmupResult{Tours: 2}, w.err
}

func TestNewRejectsInvalidSpec(t *testing.T) {
	if _, err := New(config.SchedulerConfig{Enabled: true, CronSpec: "every now and then"}, &countingWarmer{}); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestNextRun(t *testing.T) {
	s, err := New(config.SchedulerConfig{Enabled: true, CronSpec: "*/30 * * * *"}, &countingWarmer{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start()
	defer s.Stop()

	next := s.Next()
	if next.IsZero() {
		t.Fatal("no next run scheduled")
	}
	if d := time.Until(next); d <= 0 || d > 30*time.Minute {
		t.Fatalf("next run %s is not within the next 30 minutes", next)
	}
	if next.Minute()%30 != 0 {
		t.Fatalf("next run %s not on a half hour", next)
	}
}

func TestRunCallsWarmer(t *testing.T) {
	w := &countingWarmer{}
	s, err := New(config.SchedulerConfig{CronSpec: "@hourly"}, w)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s.run()
	w.err = errors.New("upstream down")
	s.run()

	if got := w.calls.Load(); got != 2 {
		t.Fatalf("warmer called %d times, want 2", got)
	}
}
