// Package platform talks to the bookkeeping platform over its tool-invocation
// protocol (MCP). One client session is opened per pipeline run and closed at
// run end; tool-name conventions are negotiated once at connect time.
package platform

import (
	"context"
	"time"

	"github.com/dekker/factuurstroom/internal/model"
)

// Client is the pipeline's view of the bookkeeping platform.
type Client interface {
	// Invoices
	ListOpenInvoices(ctx context.Context) ([]model.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*model.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, update InvoiceUpdate) error
	CreateInvoice(ctx context.Context, invoice *model.Invoice) (string, error)
	DeleteInvoice(ctx context.Context, id string) error

	// Contacts
	ListContacts(ctx context.Context) ([]model.Contact, error)
	CreateContact(ctx context.Context, contact *model.Contact) (*model.Contact, error)

	// Reference data
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListTransactions(ctx context.Context, from, to time.Time) ([]model.Transaction, error)

	// Receipts (invoice attachments)
	GetReceipt(ctx context.Context, attachmentID string) (*Receipt, error)
	ListReceipts(ctx context.Context, invoiceID string) ([]Receipt, error)
	DownloadReceipt(ctx context.Context, receiptID string) ([]byte, error)

	Close() error
}

// InvoiceUpdate is a partial invoice write. Nil fields are omitted from
// the call so the platform leaves them untouched.
type InvoiceUpdate struct {
	ContactID  *string
	AmountExcl *int64
	AmountIncl *int64
	TaxAmount  *int64
	Date       *time.Time
	Reference  *string
	Notes      *string
}

// IsEmpty reports whether the update would change nothing.
func (u InvoiceUpdate) IsEmpty() bool {
	return u.ContactID == nil && u.AmountExcl == nil && u.AmountIncl == nil &&
		u.TaxAmount == nil && u.Date == nil && u.Reference == nil && u.Notes == nil
}

// ApplyTo returns a copy of the invoice with the update's set fields
// applied. Used to keep the in-memory projection in sync with writes.
func (u InvoiceUpdate) ApplyTo(inv *model.Invoice) *model.Invoice {
	out := *inv
	if u.ContactID != nil {
		out.ContactID = *u.ContactID
	}
	if u.AmountExcl != nil {
		out.AmountExcl = *u.AmountExcl
	}
	if u.AmountIncl != nil {
		out.AmountIncl = *u.AmountIncl
	}
	if u.TaxAmount != nil {
		out.TaxAmount = *u.TaxAmount
	}
	if u.Date != nil {
		out.Date = *u.Date
	}
	if u.Reference != nil {
		out.Reference = *u.Reference
	}
	if u.Notes != nil {
		out.Notes = *u.Notes
	}
	return &out
}

// Receipt is a document linked to an invoice on the platform.
type Receipt struct {
	ID        string
	InvoiceID string
	Filename  string
	URL       string
}
