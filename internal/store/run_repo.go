package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

// RunRepo handles persistence for RunRecord entries.
type RunRepo struct{}

// Insert stores one completed run.
func (r *RunRepo) Insert(ctx context.Context, db *sql.DB, rec domain.RunRecord) error {
	const q = `INSERT INTO runs (run_id, kind, status, move_count, path_length_mm, est_time_sec, error_count, warning_count, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, q,
		rec.RunID,
		rec.Kind,
		rec.Status,
		rec.MoveCount,
		rec.PathLengthMM,
		rec.EstTimeSec,
		rec.ErrorCount,
		rec.WarningCount,
		rec.DurationMS,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Get returns one run by ID, or ErrRunNotFound.
func (r *RunRepo) Get(ctx context.Context, db *sql.DB, runID string) (*domain.RunRecord, error) {
	const q = `SELECT run_id, kind, status, move_count, path_length_mm, est_time_sec, error_count, warning_count, duration_ms, created_at
FROM runs WHERE run_id = ?`

	var rec domain.RunRecord
	err := db.QueryRowContext(ctx, q, runID).Scan(
		&rec.RunID, &rec.Kind, &rec.Status, &rec.MoveCount, &rec.PathLengthMM,
		&rec.EstTimeSec, &rec.ErrorCount, &rec.WarningCount, &rec.DurationMS, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &rec, nil
}

// List returns the most recent runs, newest first.
func (r *RunRepo) List(ctx context.Context, db *sql.DB, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT run_id, kind, status, move_count, path_length_mm, est_time_sec, error_count, warning_count, duration_ms, created_at
FROM runs ORDER BY created_at DESC, run_id DESC LIMIT ?`

	rows, err := db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []domain.RunRecord
	for rows.Next() {
		var rec domain.RunRecord
		if err := rows.Scan(&rec.RunID, &rec.Kind, &rec.Status, &rec.MoveCount, &rec.PathLengthMM,
			&rec.EstTimeSec, &rec.ErrorCount, &rec.WarningCount, &rec.DurationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
