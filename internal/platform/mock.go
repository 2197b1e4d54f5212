package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dekker/factuurstroom/internal/common"
	"github.com/dekker/factuurstroom/internal/model"
)

// Mock is an in-memory platform used by tests. It records write calls so
// tests can assert on side effects.
type Mock struct {
	mu sync.Mutex

	Invoices     []model.Invoice
	Contacts     []model.Contact
	Categories   []model.Category
	Transactions []model.Transaction
	Receipts     map[string][]Receipt // keyed by invoice id
	ReceiptData  map[string][]byte    // keyed by receipt id

	// UpdateErr is returned by UpdateInvoice when set; use it to simulate
	// state conflicts.
	UpdateErr error
	// UpdateErrOnce limits UpdateErr to the first call.
	UpdateErrOnce bool
	// DeleteErr is returned by DeleteInvoice when set.
	DeleteErr error
	// ListContactsErr is returned by ListContacts when set.
	ListContactsErr error
	// CreateContactErr is returned by CreateContact when set.
	CreateContactErr error

	UpdateCalls []InvoiceUpdate
	CreatedContacts []model.Contact
	CreatedInvoices []model.Invoice
	DeletedInvoices []string

	nextID int
	closed bool
}

// NewMock creates an empty mock platform.
func NewMock() *Mock {
	return &Mock{
		Receipts:    make(map[string][]Receipt),
		ReceiptData: make(map[string][]byte),
	}
}

func (m *Mock) ListOpenInvoices(_ context.Context) ([]model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var open []model.Invoice
	for _, inv := range m.Invoices {
		if inv.Processable() {
			open = append(open, inv)
		}
	}
	return open, nil
}

func (m *Mock) GetInvoice(_ context.Context, id string) (*model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.Invoices {
		if m.Invoices[i].ID == id {
			inv := m.Invoices[i]
			return &inv, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *Mock) UpdateInvoice(_ context.Context, id string, update InvoiceUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls = append(m.UpdateCalls, update)

	if m.UpdateErr != nil {
		err := m.UpdateErr
		if m.UpdateErrOnce {
			m.UpdateErr = nil
		}
		return err
	}

	for i := range m.Invoices {
		if m.Invoices[i].ID != id {
			continue
		}
		inv := &m.Invoices[i]
		if update.ContactID != nil {
			inv.ContactID = *update.ContactID
		}
		if update.AmountExcl != nil {
			inv.AmountExcl = *update.AmountExcl
		}
		if update.AmountIncl != nil {
			inv.AmountIncl = *update.AmountIncl
		}
		if update.TaxAmount != nil {
			inv.TaxAmount = *update.TaxAmount
		}
		if update.Date != nil {
			inv.Date = *update.Date
		}
		if update.Reference != nil {
			inv.Reference = *update.Reference
		}
		if update.Notes != nil {
			inv.Notes = *update.Notes
		}
		return nil
	}
	return common.ErrNotFound
}

func (m *Mock) CreateInvoice(_ context.Context, invoice *model.Invoice) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	created := *invoice
	created.ID = fmt.Sprintf("inv-new-%d", m.nextID)
	m.Invoices = append(m.Invoices, created)
	m.CreatedInvoices = append(m.CreatedInvoices, created)
	return created.ID, nil
}

func (m *Mock) DeleteInvoice(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	m.DeletedInvoices = append(m.DeletedInvoices, id)
	for i := range m.Invoices {
		if m.Invoices[i].ID == id {
			m.Invoices = append(m.Invoices[:i], m.Invoices[i+1:]...)
			return nil
		}
	}
	return common.ErrNotFound
}

func (m *Mock) ListContacts(_ context.Context) ([]model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListContactsErr != nil {
		return nil, m.ListContactsErr
	}
	return append([]model.Contact(nil), m.Contacts...), nil
}

func (m *Mock) CreateContact(_ context.Context, contact *model.Contact) (*model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateContactErr != nil {
		return nil, m.CreateContactErr
	}

	m.nextID++
	created := *contact
	created.ID = fmt.Sprintf("contact-new-%d", m.nextID)
	m.Contacts = append(m.Contacts, created)
	m.CreatedContacts = append(m.CreatedContacts, created)
	return &created, nil
}

func (m *Mock) ListCategories(_ context.Context) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Category(nil), m.Categories...), nil
}

func (m *Mock) ListTransactions(_ context.Context, from, to time.Time) ([]model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Transaction
	for _, txn := range m.Transactions {
		if txn.Date.Before(from) || txn.Date.After(to) {
			continue
		}
		out = append(out, txn)
	}
	return out, nil
}

func (m *Mock) GetReceipt(_ context.Context, attachmentID string) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, receipts := range m.Receipts {
		for _, r := range receipts {
			if r.ID == attachmentID {
				receipt := r
				return &receipt, nil
			}
		}
	}
	return nil, common.ErrNotFound
}

func (m *Mock) ListReceipts(_ context.Context, invoiceID string) ([]Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Receipt(nil), m.Receipts[invoiceID]...), nil
}

func (m *Mock) DownloadReceipt(_ context.Context, receiptID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.ReceiptData[receiptID]
	if !ok {
		return nil, common.ErrDocumentUnavailable
	}
	return data, nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
