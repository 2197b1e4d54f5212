// Package extract reads structured invoice fields out of a document using
// a language model, and projects them onto the invoice record.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dekker/factuurstroom/internal/document"
	"github.com/dekker/factuurstroom/internal/llm"
	"github.com/dekker/factuurstroom/internal/model"
	"github.com/dekker/factuurstroom/internal/platform"
)

const extractionPrompt = `You are reading a supplier invoice. Extract the
following fields and respond with a single JSON object, nothing else:

{
  "supplier_name": "legal name of the supplier",
  "supplier_iban": "IBAN if printed, else empty",
  "supplier_vat": "VAT identification number if printed, else empty",
  "invoice_number": "the supplier's invoice number",
  "invoice_date": "YYYY-MM-DD",
  "amount_excl": "total excluding tax, decimal string",
  "amount_incl": "total including tax, decimal string",
  "tax_amount": "tax amount, decimal string",
  "tax_rate": "tax percentage, decimal string",
  "currency": "ISO 4217 code",
  "description": "one line describing what was invoiced",
  "confidence": 0
}

Omit any field you cannot read. confidence is an integer from 0 to 100
expressing how certain you are about the extraction as a whole.`

// Engine runs document extraction against an LLM client.
type Engine struct {
	llm    llm.Client
	logger *slog.Logger
}

// NewEngine creates an extraction engine.
func NewEngine(client llm.Client, logger *slog.Logger) *Engine {
	return &Engine{llm: client, logger: logger}
}

// extractionWire is the JSON shape the model is asked to produce. Amounts
// arrive as strings or numbers depending on the model's mood, so
// json.Number covers both.
type extractionWire struct {
	SupplierName  string      `json:"supplier_name"`
	SupplierIBAN  string      `json:"supplier_iban"`
	SupplierVAT   string      `json:"supplier_vat"`
	InvoiceNumber string      `json:"invoice_number"`
	InvoiceDate   string      `json:"invoice_date"`
	AmountExcl    json.Number `json:"amount_excl"`
	AmountIncl    json.Number `json:"amount_incl"`
	TaxAmount     json.Number `json:"tax_amount"`
	TaxRate       json.Number `json:"tax_rate"`
	Currency      string      `json:"currency"`
	Description   string      `json:"description"`
	Confidence    int         `json:"confidence"`
}

// Extract reads structured fields from the document. A model or parse
// failure degrades to a zero-confidence extraction rather than failing
// the run; downstream steps treat low confidence as "nothing learned".
func (e *Engine) Extract(ctx context.Context, doc *document.Document) *model.Extraction {
	var (
		raw string
		err error
	)
	if doc.IsBinary() {
		raw, err = e.llm.CompleteVision(ctx, extractionPrompt, llm.Document{
			MediaType: llm.DetectMediaType(doc.Data),
			Data:      doc.Data,
		})
	} else {
		raw, err = e.llm.Complete(ctx, extractionPrompt+"\n\nInvoice text:\n"+doc.Text)
	}
	if err != nil {
		e.logger.Warn("extraction model call failed", "error", err)
		return &model.Extraction{}
	}

	ext, err := parseExtraction(raw)
	if err != nil {
		e.logger.Warn("extraction response unparseable", "error", err)
		return &model.Extraction{}
	}
	return ext
}

func parseExtraction(raw string) (*model.Extraction, error) {
	obj, err := llm.FirstJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var wire extractionWire
	if err := json.Unmarshal(obj, &wire); err != nil {
		return nil, fmt.Errorf("decoding extraction: %w", err)
	}

	ext := &model.Extraction{
		SupplierName:  wire.SupplierName,
		SupplierIBAN:  wire.SupplierIBAN,
		SupplierVAT:   wire.SupplierVAT,
		InvoiceNumber: wire.InvoiceNumber,
		Description:   wire.Description,
		Currency:      wire.Currency,
		Confidence:    model.ClampConfidence(wire.Confidence),
		AmountExcl:    parseAmount(wire.AmountExcl),
		AmountIncl:    parseAmount(wire.AmountIncl),
		TaxAmount:     parseAmount(wire.TaxAmount),
		TaxRate:       parseAmount(wire.TaxRate),
	}

	if wire.InvoiceDate != "" {
		if d, err := time.Parse("2006-01-02", wire.InvoiceDate); err == nil {
			ext.InvoiceDate = &d
		}
	}
	return ext, nil
}

// parseAmount turns a JSON number or decimal string into a positive
// decimal. Suppliers print credit amounts with inconsistent signs, so
// magnitudes are normalized here once.
func parseAmount(n json.Number) *decimal.Decimal {
	if n == "" {
		return nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return nil
	}
	d = d.Abs()
	return &d
}

// Enrich builds an invoice update that fills only the fields the invoice
// is missing. Fields already set on the platform are never overwritten. A
// currency mismatch between document and invoice is logged and left
// alone; correcting currency is a human decision.
func (e *Engine) Enrich(inv *model.Invoice, ext *model.Extraction) platform.InvoiceUpdate {
	var update platform.InvoiceUpdate

	if inv.AmountExcl == 0 && ext.AmountExcl != nil {
		v := toMinorUnits(ext.AmountExcl)
		update.AmountExcl = &v
	}
	if inv.AmountIncl == 0 && ext.AmountIncl != nil {
		v := toMinorUnits(ext.AmountIncl)
		update.AmountIncl = &v
	}
	if inv.TaxAmount == 0 && ext.TaxAmount != nil {
		v := toMinorUnits(ext.TaxAmount)
		update.TaxAmount = &v
	}
	if inv.Date.IsZero() && ext.InvoiceDate != nil {
		d := *ext.InvoiceDate
		update.Date = &d
	}
	if inv.Reference == "" && ext.InvoiceNumber != "" {
		ref := ext.InvoiceNumber
		update.Reference = &ref
	}

	if ext.Currency != "" && inv.Currency != "" && ext.Currency != inv.Currency {
		e.logger.Warn("document currency differs from invoice currency",
			"invoice_id", inv.ID,
			"invoice_currency", inv.Currency,
			"document_currency", ext.Currency)
	}
	return update
}
