// Package model defines the core domain models used throughout the application.
package model

import "time"

// InvoiceStatus represents the lifecycle state of an invoice on the
// bookkeeping platform.
type InvoiceStatus string

// Invoice lifecycle states.
const (
	InvoiceStatusNew      InvoiceStatus = "new"
	InvoiceStatusDraft    InvoiceStatus = "draft"
	InvoiceStatusOpen     InvoiceStatus = "open"
	InvoiceStatusPaid     InvoiceStatus = "paid"
	InvoiceStatusLate     InvoiceStatus = "late"
	InvoiceStatusReminded InvoiceStatus = "reminded"
)

// Attachment is a document attached to an invoice on the platform.
type Attachment struct {
	ID       string
	Filename string
	URL      string
}

// Invoice is the pipeline's read/write projection of a platform invoice.
// All amounts are in integer minor-currency units (cents).
type Invoice struct {
	Date        time.Time
	ID          string
	ContactID   string
	Currency    string
	Reference   string
	Notes       string
	Status      InvoiceStatus
	Attachments []Attachment
	AmountExcl  int64
	AmountIncl  int64
	TaxAmount   int64
}

// Required field names reported by MissingFields.
const (
	FieldContact    = "contact"
	FieldAmountExcl = "amount_excl"
	FieldAmountIncl = "amount_incl"
	FieldTax        = "tax"
	FieldDate       = "invoice_date"
)

// MissingFields returns the set of required fields the invoice lacks.
func (inv *Invoice) MissingFields() []string {
	var missing []string
	if inv.ContactID == "" {
		missing = append(missing, FieldContact)
	}
	if inv.AmountExcl == 0 {
		missing = append(missing, FieldAmountExcl)
	}
	if inv.AmountIncl == 0 {
		missing = append(missing, FieldAmountIncl)
	}
	if inv.TaxAmount == 0 {
		missing = append(missing, FieldTax)
	}
	if inv.Date.IsZero() {
		missing = append(missing, FieldDate)
	}
	return missing
}

// IsComplete reports whether all required fields are present.
func (inv *Invoice) IsComplete() bool {
	return len(inv.MissingFields()) == 0
}

// Processable reports whether the invoice is in a state the pipeline
// should pick up.
func (inv *Invoice) Processable() bool {
	switch inv.Status {
	case InvoiceStatusNew, InvoiceStatusDraft, InvoiceStatusOpen:
		return true
	default:
		return false
	}
}
