package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/incentive-engine/commission"
	"github.com/warp/incentive-engine/money"
)

// =============================================================================
// QUOTA STORE (commission.QuotaStore interface)
// =============================================================================

// SetQuotas replaces the global and seller quotas of q.Month atomically.
func (s *Store) SetQuotas(ctx context.Context, q commission.Quotas) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO global_quotas (month, meta_cent, super_meta_cent)
			VALUES (?, ?, ?)
			ON CONFLICT(month) DO UPDATE SET
				meta_cent = excluded.meta_cent,
				super_meta_cent = excluded.super_meta_cent
		`, string(q.Month), int64(q.Global), int64(q.SuperGlobal))
		if err != nil {
			return fmt.Errorf("failed to save global quota: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM seller_quotas WHERE month = ?", string(q.Month)); err != nil {
			return fmt.Errorf("failed to clear seller quotas: %w", err)
		}
		for vendedor, meta := range q.Sellers {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO seller_quotas (month, vendedor, meta_cent) VALUES (?, ?, ?)",
				string(q.Month), vendedor, int64(meta),
			)
			if err != nil {
				return fmt.Errorf("failed to save quota for %s: %w", vendedor, err)
			}
		}
		return nil
	})
}

// Quotas returns empty quotas for a month never configured.
func (s *Store) Quotas(ctx context.Context, m commission.Month) (commission.Quotas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := commission.Quotas{Month: m, Sellers: map[string]money.Cents{}}

	var global, super int64
	err := s.db.QueryRowContext(ctx,
		"SELECT meta_cent, super_meta_cent FROM global_quotas WHERE month = ?", string(m),
	).Scan(&global, &super)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return q, fmt.Errorf("failed to get global quota: %w", err)
	default:
		q.Global = money.Cents(global)
		q.SuperGlobal = money.Cents(super)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT vendedor, meta_cent FROM seller_quotas WHERE month = ?", string(m))
	if err != nil {
		return q, fmt.Errorf("failed to get seller quotas: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			vendedor string
			meta     int64
		)
		if err := rows.Scan(&vendedor, &meta); err != nil {
			return q, fmt.Errorf("failed to scan seller quota: %w", err)
		}
		q.Sellers[vendedor] = money.Cents(meta)
	}
	return q, rows.Err()
}
