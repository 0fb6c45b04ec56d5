package source

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/incentive-engine/contract"
)

var (
	// ErrSyncInProgress is returned when a run is requested while another is active.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrNoFetcher is returned by Run when no contract source is configured.
	ErrNoFetcher = errors.New("no contract source configured")
)

// Origin tells where the records of a run came from.
type Origin string

const (
	OriginSync   Origin = "sync"
	OriginImport Origin = "import"
)

// SyncRun records one ingestion pass.
type SyncRun struct {
	ID         string    `json:"id"`
	Origin     Origin    `json:"origem"`
	StartedAt  time.Time `json:"iniciadoEm"`
	FinishedAt time.Time `json:"finalizadoEm"`
	Fetched    int       `json:"recebidos"`
	Created    int       `json:"criados"`
	Updated    int       `json:"atualizados"`
	Unchanged  int       `json:"inalterados"`
	Rejected   int       `json:"rejeitados"`
	Error      string    `json:"erro,omitempty"`

	// Warnings are returned to the caller but not persisted.
	Warnings []contract.Warning `json:"avisos,omitempty"`
}

// RunStore keeps the sync run log.
type RunStore interface {
	SaveRun(ctx context.Context, run SyncRun) error
	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]SyncRun, error)
}

// Fetcher returns every raw record from the source. *Client satisfies it.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]contract.RawContract, error)
}

// =============================================================================
// SYNCER
// =============================================================================

// Syncer runs fetch -> normalize -> apply. At most one run is active at a time.
type Syncer struct {
	fetcher    Fetcher
	normalizer *contract.Normalizer
	contracts  contract.Store
	runs       RunStore
	clock      Clock
	logger     *zap.Logger

	running atomic.Bool
}

// NewSyncer wires a syncer. fetcher may be nil when only Import is used.
func NewSyncer(fetcher Fetcher, normalizer *contract.Normalizer, contracts contract.Store, runs RunStore, clock Clock, logger *zap.Logger) *Syncer {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		fetcher:    fetcher,
		normalizer: normalizer,
		contracts:  contracts,
		runs:       runs,
		clock:      clock,
		logger:     logger,
	}
}

// Running reports whether a run is active.
func (s *Syncer) Running() bool { return s.running.Load() }

// Run fetches every record from the source and applies it.
func (s *Syncer) Run(ctx context.Context) (SyncRun, error) {
	if s.fetcher == nil {
		return SyncRun{}, ErrNoFetcher
	}
	return s.exclusive(ctx, OriginSync, func(ctx context.Context) ([]contract.RawContract, error) {
		return s.fetcher.FetchAll(ctx)
	})
}

// Import applies records supplied by the caller, recording the run like a sync.
func (s *Syncer) Import(ctx context.Context, raws []contract.RawContract) (SyncRun, error) {
	return s.exclusive(ctx, OriginImport, func(context.Context) ([]contract.RawContract, error) {
		return raws, nil
	})
}

func (s *Syncer) exclusive(ctx context.Context, origin Origin, load func(context.Context) ([]contract.RawContract, error)) (SyncRun, error) {
	if !s.running.CompareAndSwap(false, true) {
		return SyncRun{}, ErrSyncInProgress
	}
	defer s.running.Store(false)

	run := SyncRun{ID: uuid.NewString(), Origin: origin, StartedAt: s.clock.Now().UTC()}
	log := s.logger.With(zap.String("run_id", run.ID), zap.String("origin", string(origin)))
	log.Info("sync run started")

	err := s.ingest(ctx, &run, load)
	run.FinishedAt = s.clock.Now().UTC()
	if err != nil {
		run.Error = err.Error()
	}

	if saveErr := s.runs.SaveRun(ctx, run); saveErr != nil {
		log.Error("failed to record sync run", zap.Error(saveErr))
		if err == nil {
			err = fmt.Errorf("save run: %w", saveErr)
		}
	}

	fields := []zap.Field{
		zap.Int("fetched", run.Fetched),
		zap.Int("created", run.Created),
		zap.Int("updated", run.Updated),
		zap.Int("unchanged", run.Unchanged),
		zap.Int("rejected", run.Rejected),
		zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)),
	}
	if err != nil {
		log.Error("sync run failed", append(fields, zap.Error(err))...)
		return run, err
	}
	log.Info("sync run finished", fields...)
	return run, nil
}

func (s *Syncer) ingest(ctx context.Context, run *SyncRun, load func(context.Context) ([]contract.RawContract, error)) error {
	raws, err := load(ctx)
	run.Fetched = len(raws)
	if err != nil {
		return err
	}

	batch := s.normalizer.NormalizeBatch(raws)
	run.Warnings = batch.Warnings

	summary, err := contract.ApplyBatch(ctx, s.contracts, batch, run.StartedAt)
	run.Created = summary.Created
	run.Updated = summary.Updated
	run.Unchanged = summary.Unchanged
	run.Rejected = summary.Rejected
	return err
}
