// Package document obtains the binary document behind an invoice. The
// platform stores receipts in several inconsistent ways, so retrieval is a
// chain of independent strategies tried in order until one yields a
// usable document.
package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dekker/factuurstroom/internal/llm"
	"github.com/dekker/factuurstroom/internal/model"
	"github.com/dekker/factuurstroom/internal/platform"
)

// maxDocumentSize bounds receipt downloads.
const maxDocumentSize = 20 << 20

// ReceiptSource is the subset of the platform client the fetcher needs.
type ReceiptSource interface {
	GetReceipt(ctx context.Context, attachmentID string) (*platform.Receipt, error)
	ListReceipts(ctx context.Context, invoiceID string) ([]platform.Receipt, error)
	DownloadReceipt(ctx context.Context, receiptID string) ([]byte, error)
}

// Document is the outcome of an acquisition attempt: binary data when a
// real document was obtained, or synthetic text assembled from the
// invoice's own fields when not.
type Document struct {
	Source string
	Text   string
	Data   []byte
}

// IsBinary reports whether real document bytes were obtained.
func (d *Document) IsBinary() bool {
	return len(d.Data) > 0
}

// Config holds the settings for constructed attachment URLs (strategy 5).
type Config struct {
	BaseURL string
	AdminID string
	Token   string
}

// Fetcher runs the acquisition chain. One Fetcher is scoped to a single
// pipeline run; its cache does not outlive the run.
type Fetcher struct {
	receipts   ReceiptSource
	httpClient *http.Client
	logger     *slog.Logger
	cfg        Config
	localPath  string
	cache      map[string][]byte
}

// NewFetcher creates a fetcher for one run. localPath may be empty.
func NewFetcher(receipts ReceiptSource, cfg Config, localPath string, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		receipts:   receipts,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		cfg:        cfg,
		localPath:  localPath,
		cache:      make(map[string][]byte),
	}
}

// Fetch tries every acquisition strategy in order and falls back to
// synthetic text built from the invoice's reference and notes. It never
// returns an error: document unavailability is a degraded mode, not a
// failure.
func (f *Fetcher) Fetch(ctx context.Context, inv *model.Invoice) *Document {
	type strategy struct {
		name string
		run  func(context.Context, *model.Invoice) []byte
	}

	strategies := []strategy{
		{"local_path", f.fromLocalPath},
		{"attachment_url", f.fromAttachmentURL},
		{"receipt_lookup", f.fromReceiptLookup},
		{"receipt_enumeration", f.fromReceiptEnumeration},
		{"constructed_url", f.fromConstructedURL},
		{"run_cache", f.fromCache},
	}

	for _, s := range strategies {
		data := s.run(ctx, inv)
		if len(data) == 0 {
			continue
		}
		f.logger.Info("document obtained",
			"invoice_id", inv.ID,
			"strategy", s.name,
			"size", len(data))
		f.cache[inv.ID] = data
		return &Document{Data: data, Source: s.name}
	}

	f.logger.Warn("no document obtained, falling back to invoice text", "invoice_id", inv.ID)
	return &Document{Text: syntheticText(inv), Source: "invoice_text"}
}

func (f *Fetcher) fromLocalPath(_ context.Context, _ *model.Invoice) []byte {
	if f.localPath == "" {
		return nil
	}
	data, err := os.ReadFile(f.localPath)
	if err != nil {
		f.logger.Debug("local document path unreadable", "path", f.localPath, "error", err)
		return nil
	}
	if !hasDocumentSignature(data) {
		return nil
	}
	return data
}

func (f *Fetcher) fromAttachmentURL(ctx context.Context, inv *model.Invoice) []byte {
	for _, att := range inv.Attachments {
		if att.URL == "" {
			continue
		}
		if data := f.download(ctx, att.URL, false); data != nil {
			return data
		}
	}
	return nil
}

func (f *Fetcher) fromReceiptLookup(ctx context.Context, inv *model.Invoice) []byte {
	for _, att := range inv.Attachments {
		if att.ID == "" {
			continue
		}
		receipt, err := f.receipts.GetReceipt(ctx, att.ID)
		if err != nil {
			f.logger.Debug("receipt lookup failed", "attachment_id", att.ID, "error", err)
			continue
		}
		if receipt.URL == "" {
			continue
		}
		if data := f.download(ctx, receipt.URL, false); data != nil {
			return data
		}
	}
	return nil
}

func (f *Fetcher) fromReceiptEnumeration(ctx context.Context, inv *model.Invoice) []byte {
	receipts, err := f.receipts.ListReceipts(ctx, inv.ID)
	if err != nil {
		f.logger.Debug("receipt enumeration failed", "invoice_id", inv.ID, "error", err)
		return nil
	}

	for _, receipt := range receipts {
		if receipt.URL != "" {
			if data := f.download(ctx, receipt.URL, false); data != nil {
				return data
			}
		}

		data, err := f.receipts.DownloadReceipt(ctx, receipt.ID)
		if err != nil {
			f.logger.Debug("receipt download failed", "receipt_id", receipt.ID, "error", err)
			continue
		}
		if hasDocumentSignature(data) {
			return data
		}
	}
	return nil
}

func (f *Fetcher) fromConstructedURL(ctx context.Context, inv *model.Invoice) []byte {
	if f.cfg.BaseURL == "" || f.cfg.AdminID == "" {
		return nil
	}
	for _, att := range inv.Attachments {
		if att.ID == "" {
			continue
		}
		url := fmt.Sprintf("%s/administrations/%s/invoices/%s/attachments/%s",
			strings.TrimRight(f.cfg.BaseURL, "/"), f.cfg.AdminID, inv.ID, att.ID)
		if data := f.download(ctx, url, true); data != nil {
			return data
		}
	}
	return nil
}

func (f *Fetcher) fromCache(_ context.Context, inv *model.Invoice) []byte {
	return f.cache[inv.ID]
}

// download fetches a URL and validates the document signature. Any I/O
// failure means "document unavailable", never a run failure.
func (f *Fetcher) download(ctx context.Context, url string, withBearer bool) []byte {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.logger.Debug("bad document URL", "url", url, "error", err)
		return nil
	}
	if withBearer && f.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.cfg.Token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Debug("document download failed", "url", url, "error", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		f.logger.Debug("document download rejected", "url", url, "status", resp.StatusCode)
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		f.logger.Debug("document read failed", "url", url, "error", err)
		return nil
	}

	if !hasDocumentSignature(data) {
		f.logger.Debug("downloaded data has no document signature", "url", url)
		return nil
	}
	return data
}

// hasDocumentSignature checks the leading bytes against the known
// document signatures (PDF and raster images).
func hasDocumentSignature(data []byte) bool {
	return llm.DetectMediaType(data) != ""
}

// syntheticText builds fallback text from the invoice's own fields so
// extraction can still proceed, with lower expected confidence.
func syntheticText(inv *model.Invoice) string {
	var b strings.Builder
	b.WriteString("No document is available for this invoice. Known invoice data:\n")
	if inv.Reference != "" {
		fmt.Fprintf(&b, "Reference: %s\n", inv.Reference)
	}
	if inv.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", inv.Notes)
	}
	if inv.Currency != "" {
		fmt.Fprintf(&b, "Currency: %s\n", inv.Currency)
	}
	for _, att := range inv.Attachments {
		if att.Filename != "" {
			fmt.Fprintf(&b, "Attachment filename: %s\n", att.Filename)
		}
	}
	return b.String()
}
