/*
scheduler.go - Periodic contract sync

PURPOSE:
  Runs Syncer.Run on a cron schedule so the dashboard follows the source
  without manual triggers.

DESIGN:
  - Standard 5-field cron spec ("*\/30 * * * *")
  - A tick is skipped while an earlier run, scheduled or manual, is active
  - Each run is bounded by RunTimeout
  - Failures are logged; the run itself is already recorded by the Syncer

USAGE:
  scheduler, err := NewSyncScheduler(syncer, "*\/30 * * * *", logger)
  scheduler.Start()
  // ... later
  <-scheduler.Stop().Done()

SEE ALSO:
  - handlers.go: TriggerSync endpoint (manual sync)
  - source/sync.go: Syncer
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/warp/incentive-engine/source"
)

// Runner is the part of the syncer the scheduler drives.
type Runner interface {
	Run(ctx context.Context) (source.SyncRun, error)
	Running() bool
}

// SyncScheduler triggers syncs on a cron schedule.
type SyncScheduler struct {
	RunTimeout time.Duration

	cron   *cron.Cron
	runner Runner
	logger *zap.Logger
	entry  cron.EntryID
}

// NewSyncScheduler validates spec and registers the sync job. Call Start to
// begin firing.
func NewSyncScheduler(runner Runner, spec string, logger *zap.Logger) (*SyncScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SyncScheduler{
		RunTimeout: 10 * time.Minute,
		cron:       cron.New(),
		runner:     runner,
		logger:     logger.Named("scheduler"),
	}
	id, err := s.cron.AddFunc(spec, func() { s.Tick(context.Background()) })
	if err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

// Start begins the scheduler in its own goroutine.
func (s *SyncScheduler) Start() {
	s.cron.Start()
	s.logger.Info("sync scheduler started", zap.Time("next_run", s.NextRun()))
}

// Stop halts scheduling. The returned context is done once a running job ends.
func (s *SyncScheduler) Stop() context.Context {
	ctx := s.cron.Stop()
	s.logger.Info("sync scheduler stopped")
	return ctx
}

// NextRun returns when the next tick fires; zero before Start.
func (s *SyncScheduler) NextRun() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Tick runs one sync unless another is active. It reports whether a run
// was attempted.
func (s *SyncScheduler) Tick(ctx context.Context) bool {
	if s.runner.Running() {
		s.logger.Info("sync still running, skipping tick")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, s.RunTimeout)
	defer cancel()

	_, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, source.ErrSyncInProgress):
		s.logger.Info("sync started elsewhere, skipping tick")
		return false
	case err != nil:
		s.logger.Warn("scheduled sync failed", zap.Error(err))
	}
	return true
}
