package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dekker/factuurstroom/internal/common"
	"github.com/dekker/factuurstroom/internal/model"
)

// GetMapping retrieves the supplier→category mapping for a supplier name.
// When several mappings exist for one supplier, the most recently updated
// one wins. Returns common.ErrNotFound when no mapping is known.
func (s *SQLiteStorage) GetMapping(ctx context.Context, supplierName string) (*model.SupplierMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(supplierName, "supplierName"); err != nil {
		return nil, err
	}

	if mapping := s.getCachedMapping(supplierName); mapping != nil {
		return mapping, nil
	}

	var m model.SupplierMapping
	var iban, vat sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT supplier_name, supplier_iban, supplier_vat, category_id, category_name, confidence, use_count, last_updated
		FROM supplier_mappings
		WHERE supplier_name = ? COLLATE NOCASE
		ORDER BY last_updated DESC
		LIMIT 1
	`, supplierName).Scan(
		&m.SupplierName,
		&iban,
		&vat,
		&m.CategoryID,
		&m.CategoryName,
		&m.Confidence,
		&m.UseCount,
		&m.LastUpdated,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier mapping: %w", err)
	}

	m.SupplierIBAN = iban.String
	m.SupplierVAT = vat.String

	s.cacheMapping(&m)
	return &m, nil
}

// SaveMapping inserts or updates a supplier→category mapping. At most one
// row exists per (supplier name, category id) pair; a conflicting write
// overwrites the confidence and increments the usage counter.
func (s *SQLiteStorage) SaveMapping(ctx context.Context, mapping *model.SupplierMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMapping(mapping); err != nil {
		return err
	}

	if mapping.LastUpdated.IsZero() {
		mapping.LastUpdated = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO supplier_mappings (supplier_name, supplier_iban, supplier_vat, category_id, category_name, confidence, use_count, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(supplier_name, category_id) DO UPDATE SET
			supplier_iban = excluded.supplier_iban,
			supplier_vat = excluded.supplier_vat,
			category_name = excluded.category_name,
			confidence = excluded.confidence,
			use_count = supplier_mappings.use_count + 1,
			last_updated = excluded.last_updated
	`, mapping.SupplierName, nullable(mapping.SupplierIBAN), nullable(mapping.SupplierVAT),
		mapping.CategoryID, mapping.CategoryName, mapping.Confidence, mapping.LastUpdated)

	if err != nil {
		return fmt.Errorf("failed to save supplier mapping: %w", err)
	}

	s.dropCachedMapping(mapping.SupplierName)
	return nil
}

// ListMappings retrieves all supplier→category mappings.
func (s *SQLiteStorage) ListMappings(ctx context.Context) ([]model.SupplierMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT supplier_name, supplier_iban, supplier_vat, category_id, category_name, confidence, use_count, last_updated
		FROM supplier_mappings
		ORDER BY supplier_name, category_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query supplier mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.SupplierMapping
	for rows.Next() {
		var m model.SupplierMapping
		var iban, vat sql.NullString
		if err := rows.Scan(
			&m.SupplierName,
			&iban,
			&vat,
			&m.CategoryID,
			&m.CategoryName,
			&m.Confidence,
			&m.UseCount,
			&m.LastUpdated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan supplier mapping: %w", err)
		}
		m.SupplierIBAN = iban.String
		m.SupplierVAT = vat.String
		mappings = append(mappings, m)
	}

	return mappings, rows.Err()
}

// DeleteMapping removes one supplier→category mapping.
func (s *SQLiteStorage) DeleteMapping(ctx context.Context, supplierName, categoryID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(supplierName, "supplierName"); err != nil {
		return err
	}
	if err := validateString(categoryID, "categoryID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM supplier_mappings WHERE supplier_name = ? AND category_id = ?
	`, supplierName, categoryID)
	if err != nil {
		return fmt.Errorf("failed to delete supplier mapping: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	s.dropCachedMapping(supplierName)
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
