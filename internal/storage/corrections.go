package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dekker/factuurstroom/internal/model"
)

// SaveCorrection records an invoice rewrite in the correction history.
// The correction id is an idempotency key: the intent row is written
// before the replacement create, and saving the same id again only fills
// in the replacement invoice id.
func (s *SQLiteStorage) SaveCorrection(ctx context.Context, correction *model.Correction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCorrection(correction); err != nil {
		return err
	}

	if correction.CreatedAt.IsZero() {
		correction.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO corrections (id, invoice_id, replacement_id, kind, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET replacement_id = excluded.replacement_id
	`, correction.ID, correction.InvoiceID, nullable(correction.ReplacementID),
		correction.Kind, nullable(correction.Detail), correction.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save correction: %w", err)
	}
	return nil
}

// ListCorrections returns the correction history for one invoice, oldest first.
func (s *SQLiteStorage) ListCorrections(ctx context.Context, invoiceID string) ([]model.Correction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(invoiceID, "invoiceID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, replacement_id, kind, detail, created_at
		FROM corrections
		WHERE invoice_id = ?
		ORDER BY created_at
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var corrections []model.Correction
	for rows.Next() {
		var c model.Correction
		var replacement, detail sql.NullString
		if err := rows.Scan(&c.ID, &c.InvoiceID, &replacement, &c.Kind, &detail, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		c.ReplacementID = replacement.String
		c.Detail = detail.String
		corrections = append(corrections, c)
	}

	return corrections, rows.Err()
}
