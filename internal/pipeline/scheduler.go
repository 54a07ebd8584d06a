package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"smartsales/internal/config"
)

// Scheduler repeats full refreshes on a fixed interval. A run still in
// progress when the next tick fires causes that tick to be skipped.
type Scheduler struct {
	runner *Runner
	cfg    config.ScheduleConfig
	logger *slog.Logger
	sched  *gocron.Scheduler
}

// NewScheduler creates a scheduler driving runner
func NewScheduler(runner *Runner, cfg config.ScheduleConfig, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		runner: runner,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "scheduler")),
		sched:  s,
	}
}

// Start registers the refresh job and blocks until ctx is done
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		return fmt.Errorf("schedule interval must be positive, got %s", s.cfg.Interval)
	}

	every := s.sched.Every(s.cfg.Interval)
	if !s.cfg.RunOnStart {
		every = every.WaitForSchedule()
	}
	if _, err := every.Do(s.tick, ctx); err != nil {
		return fmt.Errorf("failed to schedule pipeline: %w", err)
	}

	s.logger.InfoContext(ctx, "Scheduler started",
		slog.Duration("interval", s.cfg.Interval),
		slog.Bool("run_on_start", s.cfg.RunOnStart))
	s.sched.StartAsync()

	<-ctx.Done()
	s.sched.Stop()
	s.logger.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	manifest, err := s.runner.RunAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Scheduled run failed",
			slog.String("run_id", manifest.ID),
			slog.String("error", err.Error()))
		return
	}
	s.logger.InfoContext(ctx, "Scheduled run completed", slog.String("run_id", manifest.ID))
}
