package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dekker/factuurstroom/internal/model"
)

// GetProcessedStatus returns how a prior run left the invoice, or the
// empty status when the invoice has never been processed.
func (s *SQLiteStorage) GetProcessedStatus(ctx context.Context, invoiceID string) (model.ProcessedStatus, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(invoiceID, "invoiceID"); err != nil {
		return "", err
	}

	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT status FROM processed_invoices WHERE invoice_id = ?
	`, invoiceID).Scan(&status)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get processed status: %w", err)
	}

	return model.ProcessedStatus(status), nil
}

// MarkProcessed records the terminal status of an invoice. A repeated mark
// for the same invoice overwrites the previous status.
func (s *SQLiteStorage) MarkProcessed(ctx context.Context, invoiceID string, status model.ProcessedStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(invoiceID, "invoiceID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_invoices (invoice_id, status)
		VALUES (?, ?)
		ON CONFLICT(invoice_id) DO UPDATE SET
			status = excluded.status,
			processed_at = CURRENT_TIMESTAMP
	`, invoiceID, string(status))

	if err != nil {
		return fmt.Errorf("failed to mark invoice processed: %w", err)
	}
	return nil
}
