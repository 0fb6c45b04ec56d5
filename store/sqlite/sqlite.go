/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists canonical contracts, their change-detection snapshots, monthly
  quotas and the sync run log. The dashboard recomputes every projection from
  these tables; no aggregate is ever stored.

INTERFACES IMPLEMENTED:
  contract.Store:        contracts + snapshots, full replace keyed by id_contrato
  commission.QuotaStore: seller and global quotas per month
  source.RunStore:       sync run log

FULL-REPLACE ENFORCEMENT:
  A contract row and its snapshot are written together in one transaction.
  There is no column-level UPDATE path: a changed hash rewrites both rows.

KEY TABLES:
  contracts:          canonical contracts, money as INTEGER cents
  contract_snapshots: content hash + raw payload per contract
  seller_quotas:      (month, vendedor) -> meta_cent
  global_quotas:      month -> meta_cent, super_meta_cent
  sync_runs:          one row per sync or import

ENCODING:
  Dates are RFC3339 UTC text so lexical order is chronological. Fractions are
  decimal strings to avoid float drift.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's single writer.

USAGE:
  store, err := sqlite.New("./data/incentive.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - contract/store.go: Store interface and Apply
  - store/memory: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Canonical contracts
	CREATE TABLE IF NOT EXISTS contracts (
		id_contrato TEXT PRIMARY KEY,
		numero_contrato TEXT NOT NULL DEFAULT '',
		data_pagamento TEXT NOT NULL,
		liquido_liberado_cent INTEGER NOT NULL CHECK (liquido_liberado_cent >= 0),
		comissao_base_cent INTEGER NOT NULL CHECK (comissao_base_cent >= 0),
		comissao_bonus_cent INTEGER NOT NULL CHECK (comissao_bonus_cent >= 0),
		comissao_total_cent INTEGER NOT NULL CHECK (comissao_total_cent = comissao_base_cent + comissao_bonus_cent),
		pct_comissao_base TEXT NOT NULL,
		pct_comissao_bonus TEXT NOT NULL,
		vendedor_nome TEXT NOT NULL,
		digitador_nome TEXT NOT NULL,
		produto TEXT NOT NULL,
		tipo_operacao TEXT NOT NULL,
		agente_id TEXT NOT NULL,
		etapa_pipeline TEXT NOT NULL,
		inconsistencia_data_pagamento INTEGER NOT NULL DEFAULT 0,
		liquido_fallback INTEGER NOT NULL DEFAULT 0,
		comissao_calculada INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);

	-- Month filtering (hot path)
	CREATE INDEX IF NOT EXISTS idx_contracts_data_pagamento
		ON contracts(data_pagamento, id_contrato);
	CREATE INDEX IF NOT EXISTS idx_contracts_vendedor
		ON contracts(vendedor_nome);

	-- Snapshots (idempotent sync)
	CREATE TABLE IF NOT EXISTS contract_snapshots (
		id_contrato TEXT PRIMARY KEY REFERENCES contracts(id_contrato) ON DELETE CASCADE,
		hash TEXT NOT NULL,
		payload_json TEXT,
		synced_at TEXT NOT NULL
	);

	-- Quotas
	CREATE TABLE IF NOT EXISTS seller_quotas (
		month TEXT NOT NULL,
		vendedor TEXT NOT NULL,
		meta_cent INTEGER NOT NULL,
		PRIMARY KEY (month, vendedor)
	);

	CREATE TABLE IF NOT EXISTS global_quotas (
		month TEXT PRIMARY KEY,
		meta_cent INTEGER NOT NULL,
		super_meta_cent INTEGER NOT NULL
	);

	-- Sync run log
	CREATE TABLE IF NOT EXISTS sync_runs (
		id TEXT PRIMARY KEY,
		origin TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		fetched INTEGER NOT NULL DEFAULT 0,
		created INTEGER NOT NULL DEFAULT 0,
		updated INTEGER NOT NULL DEFAULT 0,
		unchanged INTEGER NOT NULL DEFAULT 0,
		rejected INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sync_runs_started
		ON sync_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// withTx runs fn inside a database transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Reset deletes all data (for testing).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"contract_snapshots", "contracts", "seller_quotas", "global_quotas", "sync_runs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
