// Package scheduler hosts the automatic triggers: a fixed twice-daily
// schedule that always runs, and a boot trigger gated on the time elapsed
// since the last successful sync.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kadavilrahul/github-repo-sync/internal/domain"
	"github.com/kadavilrahul/github-repo-sync/internal/state"
)

// scheduleSpec fires at 00:00 and 12:00 every day.
const scheduleSpec = "0 0,12 * * *"

// Runner performs one sync run.
type Runner interface {
	Run(ctx context.Context, mode domain.SyncMode) (*domain.RunResult, error)
}

// Scheduler wires the automatic triggers to the orchestrator.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	state  *state.Store
	lock   *state.Lock
	mode   domain.SyncMode
	logger *slog.Logger
}

// New creates a scheduler driving runner in the given mode.
func New(runner Runner, st *state.Store, lock *state.Lock, mode domain.SyncMode, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		state:  st,
		lock:   lock,
		mode:   mode,
		logger: logger,
	}
}

// Start fires the gated boot run, registers the fixed twice-daily entries,
// and blocks until ctx is cancelled. In-flight runs finish before Start
// returns.
func (s *Scheduler) Start(ctx context.Context) error {
	// Boot trigger: no-op while the gate is closed.
	s.RunGated(ctx)

	_, err := s.cron.AddFunc(scheduleSpec, func() {
		// The fixed schedule is ungated and always invokes a run.
		s.runLocked(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", slog.String("spec", scheduleSpec), slog.String("mode", string(s.mode)))

	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// RunGated invokes a run only when the trigger gate is open: no prior state,
// or at least the gate interval elapsed since the last success.
func (s *Scheduler) RunGated(ctx context.Context) {
	open, err := s.state.Gate(time.Now())
	if err != nil {
		s.logger.Warn("gate check failed", slog.String("error", err.Error()))
		return
	}
	if !open {
		s.logger.Info("trigger gate closed, skipping run")
		return
	}
	s.runLocked(ctx)
}

// runLocked acquires the run lock, performs one run, and releases the lock
// unconditionally, including on failure.
func (s *Scheduler) runLocked(ctx context.Context) {
	if err := s.lock.Acquire(); err != nil {
		s.logger.Warn("cannot acquire run lock", slog.String("error", err.Error()))
		return
	}
	defer func() {
		if err := s.lock.Release(); err != nil {
			s.logger.Warn("cannot release run lock", slog.String("error", err.Error()))
		}
	}()

	result, err := s.runner.Run(ctx, s.mode)
	if err != nil {
		s.logger.Error("scheduled run failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("scheduled run finished",
		slog.Int("processed", result.Processed),
		slog.Int("succeeded", result.Succeeded),
	)
}
