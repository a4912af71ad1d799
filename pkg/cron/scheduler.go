// Package cron provides the scheduled directory sweep used by the CLI's
// watch mode, built on robfig/cron.
package cron

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// SweepFunc imports every pending file found in the watched directory.
type SweepFunc func(ctx context.Context)

// Scheduler runs a directory sweep on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	sweep  SweepFunc
	spec   string
	logger *slog.Logger
}

// NewScheduler creates a scheduler with a standard 5-field cron spec.
func NewScheduler(spec string, sweep SweepFunc, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))
	return &Scheduler{
		cron:   c,
		sweep:  sweep,
		spec:   spec,
		logger: logger,
	}
}

// Start registers the sweep job and begins the schedule.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.logger.Info("starting scheduled import sweep")
		s.sweep(context.Background())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("import sweep scheduler started", slog.String("schedule", s.spec))
	return nil
}

// Stop gracefully stops the schedule; the returned context is done once
// any running sweep finishes.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("import sweep scheduler stopping")
	return s.cron.Stop()
}

// RunNow triggers a sweep outside the schedule.
func (s *Scheduler) RunNow() {
	go s.sweep(context.Background())
}
