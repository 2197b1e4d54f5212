package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Extraction holds the structured fields read from an invoice document.
// Amounts are in decimal major-currency units as they appear on the
// document; conversion to minor units happens when the invoice projection
// is enriched. Nil pointers mean the field was not found.
type Extraction struct {
	AmountExcl    *decimal.Decimal
	AmountIncl    *decimal.Decimal
	TaxAmount     *decimal.Decimal
	TaxRate       *decimal.Decimal
	InvoiceDate   *time.Time
	SupplierName  string
	SupplierIBAN  string
	SupplierVAT   string
	InvoiceNumber string
	Description   string
	Currency      string
	Confidence    int
}
