// Package memory provides an in-memory Store (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/incentive-engine/commission"
	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/money"
	"github.com/warp/incentive-engine/source"
)

// =============================================================================
// MEMORY STORE - contracts, snapshots, quotas and the sync run log
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	contracts map[string]contract.Contract
	snapshots map[string]contract.Snapshot
	quotas    map[commission.Month]commission.Quotas
	runs      []source.SyncRun
}

func New() *Store {
	return &Store{
		contracts: make(map[string]contract.Contract),
		snapshots: make(map[string]contract.Snapshot),
		quotas:    make(map[commission.Month]commission.Quotas),
	}
}

// Reset drops every contract, quota and run.
func (s *Store) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts = make(map[string]contract.Contract)
	s.snapshots = make(map[string]contract.Snapshot)
	s.quotas = make(map[commission.Month]commission.Quotas)
	s.runs = nil
	return nil
}

// GetSnapshot returns nil when the contract was never stored.
func (s *Store) GetSnapshot(_ context.Context, id string) (*contract.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[id]
	if !ok {
		return nil, nil
	}
	snap.Payload = append([]byte(nil), snap.Payload...)
	return &snap, nil
}

// Replace swaps contract and snapshot under one lock.
func (s *Store) Replace(_ context.Context, c contract.Contract, snap contract.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap.IDContrato = c.IDContrato
	snap.Payload = append([]byte(nil), snap.Payload...)
	s.contracts[c.IDContrato] = c
	s.snapshots[c.IDContrato] = snap
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contracts[id]
	if !ok {
		return nil, contract.ErrContractNotFound
	}
	return &c, nil
}

// List orders by payment date, then ID.
func (s *Store) List(_ context.Context, f contract.Filter) ([]contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]contract.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DataPagamento.Equal(out[j].DataPagamento) {
			return out[i].DataPagamento.Before(out[j].DataPagamento)
		}
		return out[i].IDContrato < out[j].IDContrato
	})
	return out, nil
}

// =============================================================================
// QUOTAS
// =============================================================================

func (s *Store) SetQuotas(_ context.Context, q commission.Quotas) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q.Sellers = copySellers(q.Sellers)
	s.quotas[q.Month] = q
	return nil
}

func (s *Store) Quotas(_ context.Context, m commission.Month) (commission.Quotas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotas[m]
	if !ok {
		return commission.Quotas{Month: m, Sellers: map[string]money.Cents{}}, nil
	}
	q.Sellers = copySellers(q.Sellers)
	return q, nil
}

func copySellers(in map[string]money.Cents) map[string]money.Cents {
	out := make(map[string]money.Cents, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// =============================================================================
// SYNC RUNS
// =============================================================================

// SaveRun inserts or replaces a run by ID.
func (s *Store) SaveRun(_ context.Context, run source.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.Warnings = nil
	for i := range s.runs {
		if s.runs[i].ID == run.ID {
			s.runs[i] = run
			return nil
		}
	}
	s.runs = append(s.runs, run)
	return nil
}

// ListRuns returns the most recent runs first; limit <= 0 returns all.
func (s *Store) ListRuns(_ context.Context, limit int) ([]source.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]source.SyncRun, len(s.runs))
	copy(out, s.runs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
