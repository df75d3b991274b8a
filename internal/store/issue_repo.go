package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

// IssueRepo handles persistence for the simulation issues of a run.
type IssueRepo struct{}

// InsertAll stores a run's issues in one transaction, preserving order.
func (r *IssueRepo) InsertAll(ctx context.Context, db *sql.DB, runID string, issues []domain.SimulationIssue) error {
	if len(issues) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin issues tx: %w", err)
	}
	defer tx.Rollback()

	const q = `INSERT INTO run_issues (run_id, kind, severity, move_index, line, message)
VALUES (?, ?, ?, ?, ?, ?)`
	for _, is := range issues {
		if _, err := tx.ExecContext(ctx, q, runID, is.Kind, is.Severity, is.MoveIndex, is.Line, is.Message); err != nil {
			return fmt.Errorf("insert issue: %w", err)
		}
	}
	return tx.Commit()
}

// ListByRun returns a run's issues in insertion order.
func (r *IssueRepo) ListByRun(ctx context.Context, db *sql.DB, runID string) ([]domain.SimulationIssue, error) {
	const q = `SELECT kind, severity, move_index, line, message
FROM run_issues WHERE run_id = ? ORDER BY id ASC`

	rows, err := db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	var issues []domain.SimulationIssue
	for rows.Next() {
		var is domain.SimulationIssue
		if err := rows.Scan(&is.Kind, &is.Severity, &is.MoveIndex, &is.Line, &is.Message); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, is)
	}
	return issues, rows.Err()
}
