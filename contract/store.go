/*
store.go - Persistence interface for canonical contracts and their snapshots

PURPOSE:
  Contracts are written whole. A sync run never patches individual fields; when
  the content hash of a source record changes, both the contract and its
  snapshot are replaced in one atomic write keyed by IDContrato.

IDEMPOTENCY:
  Apply compares the incoming hash with the stored snapshot. Equal hashes skip
  the write, so running the same sync twice leaves the store unchanged and
  never double-counts.

IMPLEMENTATIONS:
  - store/sqlite: production
  - store/memory: tests and dev

SEE ALSO:
  - normalize.go: produces the Result consumed by Apply
  - source/sync.go: drives Apply for every fetched record
*/
package contract

import (
	"context"
	"fmt"
	"time"
)

// Filter selects contracts by payment date, From inclusive and To exclusive.
// Zero bounds are open.
type Filter struct {
	From time.Time
	To   time.Time
}

// Matches reports whether the contract falls inside the filter.
func (f Filter) Matches(c Contract) bool {
	if !f.From.IsZero() && c.DataPagamento.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !c.DataPagamento.Before(f.To) {
		return false
	}
	return true
}

// Store persists canonical contracts and their snapshots.
type Store interface {
	// GetSnapshot returns the stored snapshot, or nil when the ID is unknown.
	GetSnapshot(ctx context.Context, idContrato string) (*Snapshot, error)

	// Replace writes the contract and its snapshot atomically, replacing any
	// previous version with the same IDContrato.
	Replace(ctx context.Context, c Contract, snap Snapshot) error

	// Get returns one contract or ErrContractNotFound.
	Get(ctx context.Context, idContrato string) (*Contract, error)

	// List returns contracts matching the filter ordered by payment date, then ID.
	List(ctx context.Context, f Filter) ([]Contract, error)
}

// =============================================================================
// APPLY - Idempotent write by content hash
// =============================================================================

type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// Apply writes a normalization result unless the stored snapshot already carries
// the same hash.
func Apply(ctx context.Context, store Store, res Result, now time.Time) (Outcome, error) {
	id := res.Contract.IDContrato
	existing, err := store.GetSnapshot(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load snapshot %s: %w", id, err)
	}
	if existing != nil && existing.Hash == res.SnapshotHash {
		return OutcomeUnchanged, nil
	}
	if err := store.Replace(ctx, res.Contract, res.Snapshot(now)); err != nil {
		return "", fmt.Errorf("replace contract %s: %w", id, err)
	}
	if existing == nil {
		return OutcomeCreated, nil
	}
	return OutcomeUpdated, nil
}

// ApplySummary counts outcomes across a batch.
type ApplySummary struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Rejected  int `json:"rejected"`
}

// ApplyBatch applies every result of a normalized batch. It stops at the first
// store error; results already written stay written.
func ApplyBatch(ctx context.Context, store Store, batch Batch, now time.Time) (ApplySummary, error) {
	sum := ApplySummary{Rejected: len(batch.Rejected)}
	for _, res := range batch.Results {
		outcome, err := Apply(ctx, store, res, now)
		if err != nil {
			return sum, err
		}
		switch outcome {
		case OutcomeCreated:
			sum.Created++
		case OutcomeUpdated:
			sum.Updated++
		case OutcomeUnchanged:
			sum.Unchanged++
		}
	}
	return sum, nil
}
