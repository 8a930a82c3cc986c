package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-bot/internal/observability"
)

// IdleEvictor removes sessions that have not been updated within olderThan.
type IdleEvictor interface {
	EvictIdle(ctx context.Context, olderThan time.Duration) (int, error)
}

// Sweeper periodically evicts idle sessions from the session store.
type Sweeper struct {
	scheduler *gocron.Scheduler
	store     IdleEvictor
	ttl       time.Duration
	interval  time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Sweeper.
func New(store IdleEvictor, ttl, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Sweeper {
	s := gocron.NewScheduler(time.UTC)
	return &Sweeper{
		scheduler: s,
		store:     store,
		ttl:       ttl,
		interval:  interval,
		logger:    logger,
		metrics:   metrics,
	}
}

// Start schedules the sweep job and starts the underlying scheduler.
func (s *Sweeper) Start() error {
	if s.ttl <= 0 {
		s.logger.Info("session eviction disabled", "ttl", s.ttl)
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Sweep runs one eviction pass.
func (s *Sweeper) Sweep(ctx context.Context) int {
	n, err := s.store.EvictIdle(ctx, s.ttl)
	if err != nil {
		s.logger.Error("session eviction failed", "error", err)
		return 0
	}
	if s.metrics != nil {
		s.metrics.SessionsEvicted.Add(float64(n))
	}
	if n > 0 {
		s.logger.Info("evicted idle sessions", "count", n, "ttl", s.ttl)
	}
	return n
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
