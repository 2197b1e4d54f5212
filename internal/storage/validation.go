package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dekker/factuurstroom/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("value cannot be empty")
	ErrNilMapping    = errors.New("mapping cannot be nil")
	ErrNilRun        = errors.New("run record cannot be nil")
	ErrNilCorrection = errors.New("correction cannot be nil")
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

func validateString(value, name string) error {
	if value == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, name)
	}
	return nil
}

func validateMapping(mapping *model.SupplierMapping) error {
	if mapping == nil {
		return ErrNilMapping
	}
	if err := validateString(mapping.SupplierName, "supplier name"); err != nil {
		return err
	}
	if err := validateString(mapping.CategoryID, "category id"); err != nil {
		return err
	}
	if mapping.Confidence < 0 || mapping.Confidence > 100 {
		return fmt.Errorf("mapping confidence %d out of range", mapping.Confidence)
	}
	return nil
}

func validateRun(run *model.RunRecord) error {
	if run == nil {
		return ErrNilRun
	}
	return validateString(run.ID, "run id")
}

func validateCorrection(c *model.Correction) error {
	if c == nil {
		return ErrNilCorrection
	}
	if err := validateString(c.ID, "correction id"); err != nil {
		return err
	}
	return validateString(c.InvoiceID, "invoice id")
}
