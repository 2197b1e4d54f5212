// Package schedule triggers pipeline runs: periodically from a cron
// expression, or once on demand. Runs are serialized; a tick that fires
// while a run is still going is skipped.
package schedule

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Runner is the unit of work the scheduler drives.
type Runner interface {
	RunOnce(ctx context.Context) error
}

// Scheduler wraps a cron instance around a Runner.
type Scheduler struct {
	runner  Runner
	logger  *slog.Logger
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// New creates a scheduler for the runner.
func New(runner Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start registers the cron spec and begins ticking. The context is
// captured for the ticked runs; cancel it and call Stop to shut down.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.tick(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "spec", spec)
	return nil
}

// Stop halts the cron ticker and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunOnce triggers a single run immediately, unless one is already in
// flight.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.acquire() {
		s.logger.Warn("run already in progress, skipping")
		return nil
	}
	defer s.release()
	return s.runner.RunOnce(ctx)
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.acquire() {
		s.logger.Warn("previous run still in progress, skipping tick")
		return
	}
	defer s.release()

	if err := s.runner.RunOnce(ctx); err != nil {
		s.logger.Error("scheduled run failed", "error", err)
	}
}

func (s *Scheduler) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}
