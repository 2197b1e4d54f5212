package platform

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dekker/factuurstroom/internal/model"
)

// Wire shapes returned by the platform's tools. All amounts are integer
// minor-currency units on the wire.
type invoiceWire struct {
	ID          string           `json:"id"`
	ContactID   string           `json:"contact_id"`
	AmountExcl  int64            `json:"amount_excl"`
	AmountIncl  int64            `json:"amount_incl"`
	TaxAmount   int64            `json:"tax_amount"`
	Currency    string           `json:"currency"`
	Status      string           `json:"status"`
	Date        string           `json:"date"`
	Reference   string           `json:"reference"`
	Notes       string           `json:"notes"`
	Attachments []attachmentWire `json:"attachments"`
}

type attachmentWire struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type contactWire struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	VATID string `json:"vat_id"`
	IBAN  string `json:"iban"`
	Email string `json:"email"`
	City  string `json:"city"`
}

type categoryWire struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type transactionWire struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	AccountID   string `json:"account_id"`
	ContactID   string `json:"contact_id"`
	InvoiceID   string `json:"invoice_id"`
}

type receiptWire struct {
	ID        string `json:"id"`
	InvoiceID string `json:"invoice_id"`
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	Content   string `json:"content"` // base64 when downloaded directly
}

// callError is the structured error shape some tools return in their text
// content instead of a protocol-level failure.
type callError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", s)
}

func (w invoiceWire) toModel() (model.Invoice, error) {
	date, err := parseDate(w.Date)
	if err != nil {
		return model.Invoice{}, fmt.Errorf("invoice %s: %w", w.ID, err)
	}

	inv := model.Invoice{
		ID:         w.ID,
		ContactID:  w.ContactID,
		AmountExcl: w.AmountExcl,
		AmountIncl: w.AmountIncl,
		TaxAmount:  w.TaxAmount,
		Currency:   w.Currency,
		Status:     model.InvoiceStatus(w.Status),
		Date:       date,
		Reference:  w.Reference,
		Notes:      w.Notes,
	}
	for _, a := range w.Attachments {
		inv.Attachments = append(inv.Attachments, model.Attachment{
			ID:       a.ID,
			Filename: a.Filename,
			URL:      a.URL,
		})
	}
	return inv, nil
}

func (w contactWire) toModel() model.Contact {
	return model.Contact{
		ID:    w.ID,
		Name:  w.Name,
		VATID: w.VATID,
		IBAN:  w.IBAN,
		Email: w.Email,
		City:  w.City,
	}
}

func (w categoryWire) toModel() model.Category {
	return model.Category{
		ID:   w.ID,
		Name: w.Name,
		Type: model.CategoryType(w.Type),
	}
}

func (w transactionWire) toModel() (model.Transaction, error) {
	date, err := parseDate(w.Date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", w.ID, err)
	}
	return model.Transaction{
		ID:          w.ID,
		Date:        date,
		Amount:      w.Amount,
		Description: w.Description,
		AccountID:   w.AccountID,
		ContactID:   w.ContactID,
		InvoiceID:   w.InvoiceID,
	}, nil
}

func (u InvoiceUpdate) toArgs(invoiceID string) map[string]any {
	args := map[string]any{"id": invoiceID}
	if u.ContactID != nil {
		args["contact_id"] = *u.ContactID
	}
	if u.AmountExcl != nil {
		args["amount_excl"] = *u.AmountExcl
	}
	if u.AmountIncl != nil {
		args["amount_incl"] = *u.AmountIncl
	}
	if u.TaxAmount != nil {
		args["tax_amount"] = *u.TaxAmount
	}
	if u.Date != nil {
		args["date"] = u.Date.Format("2006-01-02")
	}
	if u.Reference != nil {
		args["reference"] = *u.Reference
	}
	if u.Notes != nil {
		args["notes"] = *u.Notes
	}
	return args
}

func invoiceToArgs(inv *model.Invoice) map[string]any {
	args := map[string]any{
		"contact_id":  inv.ContactID,
		"amount_excl": inv.AmountExcl,
		"amount_incl": inv.AmountIncl,
		"tax_amount":  inv.TaxAmount,
		"currency":    inv.Currency,
		"status":      string(inv.Status),
		"reference":   inv.Reference,
		"notes":       inv.Notes,
	}
	if !inv.Date.IsZero() {
		args["date"] = inv.Date.Format("2006-01-02")
	}
	return args
}

func decodeWire(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode platform response: %w", err)
	}
	return nil
}
