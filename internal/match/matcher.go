// Package match finds the bank transaction that paid an invoice. The
// candidate window is mechanical; the final pick is the model's.
package match

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dekker/factuurstroom/internal/llm"
	"github.com/dekker/factuurstroom/internal/model"
	"github.com/dekker/factuurstroom/internal/platform"
)

const (
	// windowDays bounds the search around the invoice date.
	windowDays = 30
	// amountTolerancePercent is the allowed deviation from the
	// tax-inclusive invoice amount.
	amountTolerancePercent = 1
	// matchThreshold is the confidence below which the model must not
	// claim a match.
	matchThreshold = 80
)

const matchPromptTemplate = `You are matching a supplier invoice to the
bank transaction that paid it.

Invoice: amount %d minor units, date %s, supplier %q.

Candidate transactions:
%s

Respond with a single JSON object, nothing else:
{"transaction_id": "id or empty string if no candidate clearly matches", "confidence": 0, "reasoning": "one sentence"}

confidence is an integer from 0 to 100. Claim a match only when you are
at least %d confident; otherwise return an empty transaction_id.`

// Matcher finds payment transactions for invoices.
type Matcher struct {
	platform platform.Client
	llm      llm.Client
	logger   *slog.Logger
}

// NewMatcher creates a transaction matcher.
func NewMatcher(p platform.Client, client llm.Client, logger *slog.Logger) *Matcher {
	return &Matcher{platform: p, llm: client, logger: logger}
}

type matchWire struct {
	TransactionID string `json:"transaction_id"`
	Reasoning     string `json:"reasoning"`
	Confidence    int    `json:"confidence"`
}

// Match looks for a transaction within the date window and amount
// tolerance and asks the model to pick among the candidates.
func (m *Matcher) Match(ctx context.Context, inv *model.Invoice, supplierName string) model.StateUpdate {
	var update model.StateUpdate

	from := inv.Date.AddDate(0, 0, -windowDays)
	to := inv.Date.AddDate(0, 0, windowDays)

	transactions, err := m.platform.ListTransactions(ctx, from, to)
	if err != nil {
		update.Err = fmt.Errorf("listing transactions: %w", err).Error()
		update.TransactionMatch = &model.Decision{
			Reasoning:      "could not list transactions",
			RequiresReview: true,
		}
		return update
	}

	candidates := filterByAmount(transactions, inv.AmountIncl)
	if len(candidates) == 0 {
		update.TransactionMatch = &model.Decision{
			Confidence:     0,
			Reasoning:      "no transaction within date window and amount tolerance",
			RequiresReview: true,
		}
		return update
	}

	wire, err := m.invokeModel(ctx, inv, supplierName, candidates)
	if err != nil {
		update.Err = err.Error()
		update.TransactionMatch = &model.Decision{
			Reasoning:      "transaction matching model unavailable: " + err.Error(),
			RequiresReview: true,
		}
		return update
	}

	decision := model.Decision{
		Confidence: model.ClampConfidence(wire.Confidence),
		Reasoning:  wire.Reasoning,
	}
	if wire.TransactionID == "" {
		update.TransactionMatch = &decision
		return update
	}

	for i := range candidates {
		if candidates[i].ID == wire.TransactionID {
			update.Transaction = &candidates[i]
			update.TransactionMatch = &decision
			return update
		}
	}

	decision.Confidence = 0
	decision.Reasoning = "model returned unknown transaction id " + wire.TransactionID
	decision.RequiresReview = true
	update.TransactionMatch = &decision
	return update
}

// filterByAmount keeps transactions whose magnitude is within the
// percentage tolerance of the invoice amount. Payments are negative on
// the bank side, so the comparison uses absolute values.
func filterByAmount(transactions []model.Transaction, amountIncl int64) []model.Transaction {
	if amountIncl == 0 {
		return nil
	}
	tolerance := amountIncl * amountTolerancePercent / 100
	if tolerance < 1 {
		tolerance = 1
	}

	var out []model.Transaction
	for _, txn := range transactions {
		amount := txn.Amount
		if amount < 0 {
			amount = -amount
		}
		diff := amount - amountIncl
		if diff < 0 {
			diff = -diff
		}
		if diff <= tolerance {
			out = append(out, txn)
		}
	}
	return out
}

func (m *Matcher) invokeModel(ctx context.Context, inv *model.Invoice, supplierName string, candidates []model.Transaction) (*matchWire, error) {
	var list strings.Builder
	for _, txn := range candidates {
		fmt.Fprintf(&list, "- id=%s date=%s amount=%d description=%q\n",
			txn.ID, txn.Date.Format(time.DateOnly), txn.Amount, txn.Description)
	}

	if supplierName == "" {
		supplierName = "unknown"
	}
	prompt := fmt.Sprintf(matchPromptTemplate,
		inv.AmountIncl, inv.Date.Format(time.DateOnly), supplierName, list.String(), matchThreshold)

	raw, err := m.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("transaction matching model: %w", err)
	}
	obj, err := llm.FirstJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("transaction matching response: %w", err)
	}
	var wire matchWire
	if err := json.Unmarshal(obj, &wire); err != nil {
		return nil, fmt.Errorf("decoding transaction matching response: %w", err)
	}
	return &wire, nil
}
