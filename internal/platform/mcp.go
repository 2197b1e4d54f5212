package platform

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dekker/factuurstroom/internal/common"
	"github.com/dekker/factuurstroom/internal/model"
)

// Logical operations the pipeline needs from the platform.
type operation string

const (
	opListInvoices     operation = "list_invoices"
	opGetInvoice       operation = "get_invoice"
	opUpdateInvoice    operation = "update_invoice"
	opCreateInvoice    operation = "create_invoice"
	opDeleteInvoice    operation = "delete_invoice"
	opListContacts     operation = "list_contacts"
	opCreateContact    operation = "create_contact"
	opListCategories   operation = "list_categories"
	opListTransactions operation = "list_transactions"
	opGetReceipt       operation = "get_receipt"
	opListReceipts     operation = "list_receipts"
	opDownloadReceipt  operation = "download_receipt"
)

// toolCandidates lists the tool-name conventions seen in the wild for each
// logical operation, in preference order. Resolution happens once per
// session, not per call.
var toolCandidates = map[operation][]string{
	opListInvoices:     {"list_invoices", "listInvoices"},
	opGetInvoice:       {"get_invoice", "getInvoice"},
	opUpdateInvoice:    {"update_invoice", "updateInvoice"},
	opCreateInvoice:    {"create_invoice", "createInvoice"},
	opDeleteInvoice:    {"delete_invoice", "deleteInvoice"},
	opListContacts:     {"list_contacts", "listContacts"},
	opCreateContact:    {"create_contact", "createContact"},
	opListCategories:   {"list_categories", "listCategories"},
	opListTransactions: {"list_transactions", "listTransactions"},
	opGetReceipt:       {"get_receipt", "getReceipt"},
	opListReceipts:     {"list_receipts", "listReceipts"},
	opDownloadReceipt:  {"download_receipt", "downloadReceipt"},
}

// Config holds the connection settings for the platform.
type Config struct {
	Endpoint string
	Token    string
	AdminID  string
	Timeout  time.Duration
}

// MCPClient implements Client over an MCP session.
type MCPClient struct {
	session *mcp.ClientSession
	logger  *slog.Logger
	tools   map[operation]string
}

// bearerTransport injects the bearer credential into every request.
type bearerTransport struct {
	base  http.RoundTripper
	token string
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(clone)
}

// Connect opens a platform session and negotiates tool names. The returned
// client is scoped to one pipeline run; close it when the run ends.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*MCPClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: platform endpoint", common.ErrMissingConfig)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: platform token", common.ErrMissingConfig)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &bearerTransport{
			base:  http.DefaultTransport,
			token: cfg.Token,
		},
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "factuurstroom",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint:   cfg.Endpoint,
		HTTPClient: httpClient,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", common.ErrPlatformCall, err)
	}

	c := &MCPClient{
		session: session,
		logger:  logger,
		tools:   make(map[operation]string, len(toolCandidates)),
	}

	if err := c.negotiateTools(ctx); err != nil {
		_ = session.Close()
		return nil, err
	}

	return c, nil
}

// negotiateTools resolves each logical operation to a concrete tool name
// advertised by the server.
func (c *MCPClient) negotiateTools(ctx context.Context) error {
	listed, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: list tools: %v", common.ErrPlatformCall, err)
	}

	available := make(map[string]bool, len(listed.Tools))
	for _, tool := range listed.Tools {
		available[tool.Name] = true
	}

	for op, candidates := range toolCandidates {
		resolved := candidates[0]
		for _, name := range candidates {
			if available[name] {
				resolved = name
				break
			}
		}
		c.tools[op] = resolved
	}

	c.logger.Debug("negotiated platform tools", "available", len(available))
	return nil
}

// Close ends the platform session.
func (c *MCPClient) Close() error {
	return c.session.Close()
}

// call invokes one tool and returns the text content of the result.
func (c *MCPClient) call(ctx context.Context, op operation, args map[string]any) ([]byte, error) {
	name := c.tools[op]

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrPlatformCall, name, err)
	}

	text := textContent(result)

	if result.IsError {
		var ce callError
		if jsonErr := decodeWire([]byte(text), &ce); jsonErr == nil && ce.Error.Code == "state_conflict" {
			return nil, fmt.Errorf("%w: %s", common.ErrStateConflict, ce.Error.Message)
		}
		return nil, fmt.Errorf("%w: %s: %s", common.ErrPlatformCall, name, text)
	}

	return []byte(text), nil
}

func textContent(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// ListOpenInvoices returns invoices in a state the pipeline may process.
func (c *MCPClient) ListOpenInvoices(ctx context.Context) ([]model.Invoice, error) {
	data, err := c.call(ctx, opListInvoices, map[string]any{
		"states": []string{
			string(model.InvoiceStatusNew),
			string(model.InvoiceStatusDraft),
			string(model.InvoiceStatusOpen),
		},
	})
	if err != nil {
		return nil, err
	}

	var wires []invoiceWire
	if err := decodeWire(data, &wires); err != nil {
		return nil, err
	}

	invoices := make([]model.Invoice, 0, len(wires))
	for _, w := range wires {
		inv, err := w.toModel()
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// GetInvoice fetches one invoice by id.
func (c *MCPClient) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	data, err := c.call(ctx, opGetInvoice, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}

	var w invoiceWire
	if err := decodeWire(data, &w); err != nil {
		return nil, err
	}
	inv, err := w.toModel()
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// UpdateInvoice writes a partial update. Returns common.ErrStateConflict
// when the invoice's lifecycle state forbids direct edits.
func (c *MCPClient) UpdateInvoice(ctx context.Context, id string, update InvoiceUpdate) error {
	if update.IsEmpty() {
		return nil
	}
	_, err := c.call(ctx, opUpdateInvoice, update.toArgs(id))
	return err
}

// CreateInvoice creates a new draft invoice and returns its id.
func (c *MCPClient) CreateInvoice(ctx context.Context, invoice *model.Invoice) (string, error) {
	data, err := c.call(ctx, opCreateInvoice, invoiceToArgs(invoice))
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := decodeWire(data, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// DeleteInvoice removes an invoice.
func (c *MCPClient) DeleteInvoice(ctx context.Context, id string) error {
	_, err := c.call(ctx, opDeleteInvoice, map[string]any{"id": id})
	return err
}

// ListContacts returns all business relations.
func (c *MCPClient) ListContacts(ctx context.Context) ([]model.Contact, error) {
	data, err := c.call(ctx, opListContacts, nil)
	if err != nil {
		return nil, err
	}

	var wires []contactWire
	if err := decodeWire(data, &wires); err != nil {
		return nil, err
	}

	contacts := make([]model.Contact, 0, len(wires))
	for _, w := range wires {
		contacts = append(contacts, w.toModel())
	}
	return contacts, nil
}

// CreateContact creates a new business relation.
func (c *MCPClient) CreateContact(ctx context.Context, contact *model.Contact) (*model.Contact, error) {
	data, err := c.call(ctx, opCreateContact, map[string]any{
		"name":   contact.Name,
		"vat_id": contact.VATID,
		"iban":   contact.IBAN,
		"email":  contact.Email,
		"city":   contact.City,
	})
	if err != nil {
		return nil, err
	}

	var w contactWire
	if err := decodeWire(data, &w); err != nil {
		return nil, err
	}
	created := w.toModel()
	return &created, nil
}

// ListCategories returns the ledger categories.
func (c *MCPClient) ListCategories(ctx context.Context) ([]model.Category, error) {
	data, err := c.call(ctx, opListCategories, nil)
	if err != nil {
		return nil, err
	}

	var wires []categoryWire
	if err := decodeWire(data, &wires); err != nil {
		return nil, err
	}

	categories := make([]model.Category, 0, len(wires))
	for _, w := range wires {
		categories = append(categories, w.toModel())
	}
	return categories, nil
}

// ListTransactions returns bank transactions in the given date window.
func (c *MCPClient) ListTransactions(ctx context.Context, from, to time.Time) ([]model.Transaction, error) {
	data, err := c.call(ctx, opListTransactions, map[string]any{
		"from": from.Format("2006-01-02"),
		"to":   to.Format("2006-01-02"),
	})
	if err != nil {
		return nil, err
	}

	var wires []transactionWire
	if err := decodeWire(data, &wires); err != nil {
		return nil, err
	}

	transactions := make([]model.Transaction, 0, len(wires))
	for _, w := range wires {
		txn, err := w.toModel()
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	return transactions, nil
}

// GetReceipt fetches receipt metadata by attachment id.
func (c *MCPClient) GetReceipt(ctx context.Context, attachmentID string) (*Receipt, error) {
	data, err := c.call(ctx, opGetReceipt, map[string]any{"id": attachmentID})
	if err != nil {
		return nil, err
	}

	var w receiptWire
	if err := decodeWire(data, &w); err != nil {
		return nil, err
	}
	return &Receipt{ID: w.ID, InvoiceID: w.InvoiceID, Filename: w.Filename, URL: w.URL}, nil
}

// ListReceipts enumerates the receipts associated with an invoice.
func (c *MCPClient) ListReceipts(ctx context.Context, invoiceID string) ([]Receipt, error) {
	data, err := c.call(ctx, opListReceipts, map[string]any{"invoice_id": invoiceID})
	if err != nil {
		return nil, err
	}

	var wires []receiptWire
	if err := decodeWire(data, &wires); err != nil {
		return nil, err
	}

	receipts := make([]Receipt, 0, len(wires))
	for _, w := range wires {
		receipts = append(receipts, Receipt{ID: w.ID, InvoiceID: w.InvoiceID, Filename: w.Filename, URL: w.URL})
	}
	return receipts, nil
}

// DownloadReceipt fetches the binary content of a receipt directly.
func (c *MCPClient) DownloadReceipt(ctx context.Context, receiptID string) ([]byte, error) {
	data, err := c.call(ctx, opDownloadReceipt, map[string]any{"id": receiptID})
	if err != nil {
		return nil, err
	}

	var w receiptWire
	if err := decodeWire(data, &w); err != nil {
		return nil, err
	}
	if w.Content == "" {
		return nil, fmt.Errorf("%w: receipt %s has no content", common.ErrDocumentUnavailable, receiptID)
	}

	decoded, err := base64.StdEncoding.DecodeString(w.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode receipt content: %w", err)
	}
	return decoded, nil
}
