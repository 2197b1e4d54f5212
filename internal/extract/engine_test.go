package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekker/factuurstroom/internal/document"
	"github.com/dekker/factuurstroom/internal/llm"
	"github.com/dekker/factuurstroom/internal/model"
)

type stubLLM struct {
	response     string
	err          error
	visionCalled bool
	textCalled   bool
	lastPrompt   string
}

func (s *stubLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.textCalled = true
	s.lastPrompt = prompt
	return s.response, s.err
}

func (s *stubLLM) CompleteVision(_ context.Context, prompt string, _ llm.Document) (string, error) {
	s.visionCalled = true
	s.lastPrompt = prompt
	return s.response, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleResponse = `Here is the extraction:
{
  "supplier_name": "Acme Hosting BV",
  "supplier_iban": "NL91ABNA0417164300",
  "supplier_vat": "NL123456789B01",
  "invoice_number": "2025-081",
  "invoice_date": "2025-06-15",
  "amount_excl": "100.00",
  "amount_incl": 121.00,
  "tax_amount": "21.00",
  "tax_rate": "21",
  "currency": "EUR",
  "description": "hosting services june",
  "confidence": 92
}`

func TestExtractVisionPath(t *testing.T) {
	stub := &stubLLM{response: sampleResponse}
	engine := NewEngine(stub, testLogger())

	doc := &document.Document{Data: []byte("%PDF-1.7 body"), Source: "attachment_url"}
	ext := engine.Extract(context.Background(), doc)

	assert.True(t, stub.visionCalled)
	assert.False(t, stub.textCalled)

	assert.Equal(t, "Acme Hosting BV", ext.SupplierName)
	assert.Equal(t, "2025-081", ext.InvoiceNumber)
	assert.Equal(t, 92, ext.Confidence)
	require.NotNil(t, ext.AmountExcl)
	assert.True(t, ext.AmountExcl.Equal(decimal.RequireFromString("100.00")))
	require.NotNil(t, ext.AmountIncl)
	assert.True(t, ext.AmountIncl.Equal(decimal.RequireFromString("121.00")))
	require.NotNil(t, ext.InvoiceDate)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), *ext.InvoiceDate)
}

func TestExtractTextPathIncludesInvoiceText(t *testing.T) {
	stub := &stubLLM{response: sampleResponse}
	engine := NewEngine(stub, testLogger())

	doc := &document.Document{Text: "Reference: Factuur 2025-081", Source: "invoice_text"}
	engine.Extract(context.Background(), doc)

	assert.True(t, stub.textCalled)
	assert.Contains(t, stub.lastPrompt, "Factuur 2025-081")
}

func TestExtractModelFailureDegrades(t *testing.T) {
	stub := &stubLLM{err: errors.New("rate limited")}
	engine := NewEngine(stub, testLogger())

	ext := engine.Extract(context.Background(), &document.Document{Text: "x"})

	assert.Equal(t, 0, ext.Confidence)
	assert.Nil(t, ext.AmountIncl)
}

func TestExtractUnparseableDegrades(t *testing.T) {
	stub := &stubLLM{response: "I could not read the document, sorry."}
	engine := NewEngine(stub, testLogger())

	ext := engine.Extract(context.Background(), &document.Document{Text: "x"})
	assert.Equal(t, 0, ext.Confidence)
}

func TestParseAmountNormalizesSign(t *testing.T) {
	d := parseAmount("-7.26")
	require.NotNil(t, d)
	assert.True(t, d.Equal(decimal.RequireFromString("7.26")))
	assert.Equal(t, int64(726), toMinorUnits(d))
}

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"121.00", 12100},
		{"0.01", 1},
		{"-7.26", 726},
		{"19.995", 2000},
	}
	for _, tc := range cases {
		d := decimal.RequireFromString(tc.in)
		assert.Equal(t, tc.want, toMinorUnits(&d), tc.in)
	}
	assert.Equal(t, int64(0), toMinorUnits(nil))
}

func TestEnrichFillsOnlyMissingFields(t *testing.T) {
	engine := NewEngine(&stubLLM{}, testLogger())

	excl := decimal.RequireFromString("100.00")
	incl := decimal.RequireFromString("121.00")
	tax := decimal.RequireFromString("21.00")
	date := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	ext := &model.Extraction{
		AmountExcl:    &excl,
		AmountIncl:    &incl,
		TaxAmount:     &tax,
		InvoiceDate:   &date,
		InvoiceNumber: "2025-081",
	}

	inv := &model.Invoice{
		ID:         "inv-1",
		AmountIncl: 12100, // already present, must not be touched
		Reference:  "existing-ref",
	}

	update := engine.Enrich(inv, ext)

	require.NotNil(t, update.AmountExcl)
	assert.Equal(t, int64(10000), *update.AmountExcl)
	require.NotNil(t, update.TaxAmount)
	assert.Equal(t, int64(2100), *update.TaxAmount)
	require.NotNil(t, update.Date)
	assert.Equal(t, date, *update.Date)

	assert.Nil(t, update.AmountIncl)
	assert.Nil(t, update.Reference)
}

func TestEnrichEmptyExtraction(t *testing.T) {
	engine := NewEngine(&stubLLM{}, testLogger())
	update := engine.Enrich(&model.Invoice{ID: "inv-1"}, &model.Extraction{})
	assert.True(t, update.IsEmpty())
}
