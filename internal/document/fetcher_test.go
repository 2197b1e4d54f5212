package document

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekker/factuurstroom/internal/model"
	"github.com/dekker/factuurstroom/internal/platform"
)

var pdfBytes = []byte("%PDF-1.7 fake invoice document body")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchLocalPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(path, pdfBytes, 0o644))

	f := NewFetcher(platform.NewMock(), Config{}, path, testLogger())
	doc := f.Fetch(context.Background(), &model.Invoice{ID: "inv-1"})

	require.True(t, doc.IsBinary())
	assert.Equal(t, "local_path", doc.Source)
	assert.Equal(t, pdfBytes, doc.Data)
}

func TestFetchLocalPathRejectsNonDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	f := NewFetcher(platform.NewMock(), Config{}, path, testLogger())
	doc := f.Fetch(context.Background(), &model.Invoice{ID: "inv-1"})

	assert.False(t, doc.IsBinary())
	assert.Equal(t, "invoice_text", doc.Source)
}

func TestFetchAttachmentURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(pdfBytes)
	}))
	defer srv.Close()

	inv := &model.Invoice{
		ID:          "inv-1",
		Attachments: []model.Attachment{{ID: "att-1", URL: srv.URL + "/doc.pdf"}},
	}

	f := NewFetcher(platform.NewMock(), Config{}, "", testLogger())
	doc := f.Fetch(context.Background(), inv)

	require.True(t, doc.IsBinary())
	assert.Equal(t, "attachment_url", doc.Source)
}

func TestFetchReceiptEnumerationBinary(t *testing.T) {
	mock := platform.NewMock()
	mock.Receipts["inv-1"] = []platform.Receipt{{ID: "rcpt-1", InvoiceID: "inv-1"}}
	mock.ReceiptData["rcpt-1"] = pdfBytes

	f := NewFetcher(mock, Config{}, "", testLogger())
	doc := f.Fetch(context.Background(), &model.Invoice{ID: "inv-1"})

	require.True(t, doc.IsBinary())
	assert.Equal(t, "receipt_enumeration", doc.Source)
}

func TestFetchReceiptEnumerationSkipsBadSignature(t *testing.T) {
	mock := platform.NewMock()
	mock.Receipts["inv-1"] = []platform.Receipt{
		{ID: "rcpt-bad", InvoiceID: "inv-1"},
		{ID: "rcpt-good", InvoiceID: "inv-1"},
	}
	mock.ReceiptData["rcpt-bad"] = []byte("<html>error page</html>")
	mock.ReceiptData["rcpt-good"] = pdfBytes

	f := NewFetcher(mock, Config{}, "", testLogger())
	doc := f.Fetch(context.Background(), &model.Invoice{ID: "inv-1"})

	require.True(t, doc.IsBinary())
	assert.Equal(t, pdfBytes, doc.Data)
}

func TestFetchConstructedURLSendsBearer(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_, _ = w.Write(pdfBytes)
	}))
	defer srv.Close()

	inv := &model.Invoice{
		ID:          "inv-1",
		Attachments: []model.Attachment{{ID: "att-1"}},
	}

	cfg := Config{BaseURL: srv.URL, AdminID: "admin-9", Token: "secret"}
	f := NewFetcher(platform.NewMock(), cfg, "", testLogger())
	doc := f.Fetch(context.Background(), inv)

	require.True(t, doc.IsBinary())
	assert.Equal(t, "constructed_url", doc.Source)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "/administrations/admin-9/invoices/inv-1/attachments/att-1", gotPath)
}

func TestFetchSyntheticFallback(t *testing.T) {
	inv := &model.Invoice{
		ID:        "inv-1",
		Reference: "Factuur 2025-081",
		Notes:     "hosting q3",
		Currency:  "EUR",
		Attachments: []model.Attachment{
			{ID: "att-1", Filename: "hosting.pdf"},
		},
	}

	f := NewFetcher(platform.NewMock(), Config{}, "", testLogger())
	doc := f.Fetch(context.Background(), inv)

	assert.False(t, doc.IsBinary())
	assert.Equal(t, "invoice_text", doc.Source)
	assert.Contains(t, doc.Text, "Factuur 2025-081")
	assert.Contains(t, doc.Text, "hosting q3")
	assert.Contains(t, doc.Text, "hosting.pdf")
}

func TestFetchCachesWithinRun(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write(pdfBytes)
	}))

	inv := &model.Invoice{
		ID:          "inv-1",
		Attachments: []model.Attachment{{ID: "att-1", URL: srv.URL + "/doc.pdf"}},
	}

	f := NewFetcher(platform.NewMock(), Config{}, "", testLogger())
	first := f.Fetch(context.Background(), inv)
	require.True(t, first.IsBinary())

	// Server gone; the second fetch must come from the run cache.
	srv.Close()
	inv.Attachments = nil

	second := f.Fetch(context.Background(), inv)
	require.True(t, second.IsBinary())
	assert.Equal(t, "run_cache", second.Source)
	assert.Equal(t, 1, calls)
}
