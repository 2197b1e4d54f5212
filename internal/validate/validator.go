// Package validate checks the arithmetic consistency of an invoice's
// amounts and asks a language model whether the tax is plausible under
// the Dutch BTW regime.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/dekker/factuurstroom/internal/llm"
	"github.com/dekker/factuurstroom/internal/model"
)

const (
	// toleranceMinorUnits is the rounding slack allowed between recorded
	// and computed tax.
	toleranceMinorUnits = 1
	// discrepancyPenalty is subtracted from the model's confidence when
	// the arithmetic is off by more than the tolerance.
	discrepancyPenalty = 20
	// forcedReviewDiscrepancy is the discrepancy above which a human
	// must look regardless of what the model thinks.
	forcedReviewDiscrepancy = 100
)

const validatePromptTemplate = `You are checking a Dutch supplier invoice
for plausibility. Dutch BTW (VAT) rates are 0%%, 9%% or 21%%.

Amount excluding tax: %s
Amount including tax: %s
Recorded tax amount:  %s
Implied tax rate:     %s

Respond with a single JSON object, nothing else:
{"confidence": 0, "reasoning": "one sentence", "requires_review": false}

confidence is an integer from 0 to 100 expressing how plausible these
amounts are for a real invoice.`

// Validator checks amount and tax consistency.
type Validator struct {
	llm    llm.Client
	logger *slog.Logger
}

// NewValidator creates a validator.
func NewValidator(client llm.Client, logger *slog.Logger) *Validator {
	return &Validator{llm: client, logger: logger}
}

type validationWire struct {
	Reasoning      string `json:"reasoning"`
	Confidence     int    `json:"confidence"`
	RequiresReview bool   `json:"requires_review"`
}

// Validate produces the validation decision for the invoice. The
// arithmetic check is local; the model only judges plausibility. A model
// failure is recorded as the stage error with a conservative decision.
func (v *Validator) Validate(ctx context.Context, inv *model.Invoice) model.StateUpdate {
	expectedTax := inv.AmountIncl - inv.AmountExcl
	discrepancy := expectedTax - inv.TaxAmount
	if discrepancy < 0 {
		discrepancy = -discrepancy
	}

	decision, err := v.assess(ctx, inv)

	var update model.StateUpdate
	if err != nil {
		update.Err = err.Error()
	}

	if discrepancy > toleranceMinorUnits {
		decision.Confidence = model.ClampConfidence(decision.Confidence - discrepancyPenalty)
		decision.Reasoning = fmt.Sprintf("%s; tax off by %d minor units (expected %d, recorded %d)",
			decision.Reasoning, discrepancy, expectedTax, inv.TaxAmount)
	}
	if discrepancy > forcedReviewDiscrepancy {
		decision.RequiresReview = true
	}

	update.Validation = &decision
	return update
}

func (v *Validator) assess(ctx context.Context, inv *model.Invoice) (model.Decision, error) {
	prompt := fmt.Sprintf(validatePromptTemplate,
		minorToMajor(inv.AmountExcl), minorToMajor(inv.AmountIncl),
		minorToMajor(inv.TaxAmount), impliedRate(inv))

	raw, err := v.llm.Complete(ctx, prompt)
	if err != nil {
		v.logger.Warn("validation model call failed", "error", err)
		return model.Decision{
			Reasoning:      "validation model unavailable: " + err.Error(),
			RequiresReview: true,
		}, fmt.Errorf("validation model: %w", err)
	}

	obj, err := llm.FirstJSONObject(raw)
	if err != nil {
		return model.Decision{
			Reasoning:      "validation response unparseable",
			RequiresReview: true,
		}, fmt.Errorf("validation response: %w", err)
	}
	var wire validationWire
	if err := json.Unmarshal(obj, &wire); err != nil {
		return model.Decision{
			Reasoning:      "validation response unparseable",
			RequiresReview: true,
		}, fmt.Errorf("decoding validation response: %w", err)
	}

	return model.Decision{
		Confidence:     model.ClampConfidence(wire.Confidence),
		Reasoning:      wire.Reasoning,
		RequiresReview: wire.RequiresReview,
	}, nil
}

func minorToMajor(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// impliedRate computes tax/excl as a percentage for the prompt;
// "unknown" when the base amount is zero.
func impliedRate(inv *model.Invoice) string {
	if inv.AmountExcl == 0 {
		return "unknown"
	}
	rate := decimal.New(inv.TaxAmount, 0).
		Div(decimal.New(inv.AmountExcl, 0)).
		Mul(decimal.NewFromInt(100))
	return rate.StringFixed(1) + "%"
}
