// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/dekker/factuurstroom/internal/model"
)

// Storage defines the contract for the local persistence layer: the
// supplier→category memory, the processing log, the processed-invoice
// idempotency table, and the correction history.
type Storage interface {
	// Supplier→category memory
	GetMapping(ctx context.Context, supplierName string) (*model.SupplierMapping, error)
	SaveMapping(ctx context.Context, mapping *model.SupplierMapping) error
	ListMappings(ctx context.Context) ([]model.SupplierMapping, error)
	DeleteMapping(ctx context.Context, supplierName, categoryID string) error

	// Processed-invoice idempotency
	GetProcessedStatus(ctx context.Context, invoiceID string) (model.ProcessedStatus, error)
	MarkProcessed(ctx context.Context, invoiceID string, status model.ProcessedStatus) error

	// Processing log
	SaveRun(ctx context.Context, run *model.RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)

	// Correction history
	SaveCorrection(ctx context.Context, correction *model.Correction) error
	ListCorrections(ctx context.Context, invoiceID string) ([]model.Correction, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
