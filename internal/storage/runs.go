package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dekker/factuurstroom/internal/model"
)

// SaveRun persists one row of the processing log.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.RunRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, invoice_id, action, confidence, error, state_json, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, nullable(run.InvoiceID), string(run.Action), run.Confidence,
		nullable(run.Error), run.StateJSON, run.StartedAt, run.FinishedAt)

	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}
	return nil
}

// ListRuns returns the most recent processing-log entries, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, action, confidence, error, state_json, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.RunRecord
	for rows.Next() {
		var r model.RunRecord
		var invoiceID, action, runErr sql.NullString
		if err := rows.Scan(&r.ID, &invoiceID, &action, &r.Confidence, &runErr,
			&r.StateJSON, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		r.InvoiceID = invoiceID.String
		r.Action = model.Action(action.String)
		r.Error = runErr.String
		runs = append(runs, r)
	}

	return runs, rows.Err()
}
