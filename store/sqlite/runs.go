package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/incentive-engine/source"
)

// =============================================================================
// SYNC RUN LOG (source.RunStore interface)
// =============================================================================

// SaveRun inserts or updates a run by ID. Warnings are not persisted.
func (s *Store) SaveRun(ctx context.Context, r source.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var finishedAt sql.NullString
	if !r.FinishedAt.IsZero() {
		finishedAt = nullString(formatTime(r.FinishedAt))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, origin, started_at, finished_at,
			fetched, created, updated, unchanged, rejected, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			fetched = excluded.fetched,
			created = excluded.created,
			updated = excluded.updated,
			unchanged = excluded.unchanged,
			rejected = excluded.rejected,
			error = excluded.error
	`,
		r.ID, string(r.Origin), formatTime(r.StartedAt), finishedAt,
		r.Fetched, r.Created, r.Updated, r.Unchanged, r.Rejected, nullString(r.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to save sync run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first; limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]source.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, origin, started_at, finished_at,
			fetched, created, updated, unchanged, rejected, error
		FROM sync_runs
		ORDER BY started_at DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	runs := []source.SyncRun{}
	for rows.Next() {
		var (
			r                     source.SyncRun
			origin, startedAt     string
			finishedAt, errorText sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &origin, &startedAt, &finishedAt,
			&r.Fetched, &r.Created, &r.Updated, &r.Unchanged, &r.Rejected, &errorText,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		r.Origin = source.Origin(origin)
		r.StartedAt = parseTime(startedAt)
		if finishedAt.Valid {
			r.FinishedAt = parseTime(finishedAt.String)
		}
		r.Error = errorText.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
