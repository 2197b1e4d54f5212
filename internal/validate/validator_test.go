package validate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekker/factuurstroom/internal/llm"
	"github.com/dekker/factuurstroom/internal/model"
)

type stubLLM struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	return s.response, s.err
}

func (s *stubLLM) CompleteVision(_ context.Context, prompt string, _ llm.Document) (string, error) {
	s.lastPrompt = prompt
	return s.response, s.err
}

func newTestValidator(stub *stubLLM) *Validator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewValidator(stub, logger)
}

const plausibleResponse = `{"confidence": 90, "reasoning": "standard 21% rate", "requires_review": false}`

func TestValidateConsistentAmounts(t *testing.T) {
	stub := &stubLLM{response: plausibleResponse}
	v := newTestValidator(stub)

	inv := &model.Invoice{AmountExcl: 10000, AmountIncl: 12100, TaxAmount: 2100}
	update := v.Validate(context.Background(), inv)

	require.NotNil(t, update.Validation)
	assert.Equal(t, 90, update.Validation.Confidence)
	assert.False(t, update.Validation.RequiresReview)
	assert.Empty(t, update.Err)
	assert.Contains(t, stub.lastPrompt, "21.0%")
}

func TestValidateWithinTolerance(t *testing.T) {
	v := newTestValidator(&stubLLM{response: plausibleResponse})

	// Off by exactly one minor unit: rounding slack, no penalty.
	inv := &model.Invoice{AmountExcl: 10000, AmountIncl: 12100, TaxAmount: 2099}
	update := v.Validate(context.Background(), inv)

	assert.Equal(t, 90, update.Validation.Confidence)
	assert.False(t, update.Validation.RequiresReview)
}

func TestValidateDiscrepancyPenalty(t *testing.T) {
	v := newTestValidator(&stubLLM{response: plausibleResponse})

	// Expected tax 2100, recorded 0: discrepancy 2100 forces review.
	inv := &model.Invoice{AmountExcl: 10000, AmountIncl: 12100, TaxAmount: 0}
	update := v.Validate(context.Background(), inv)

	assert.Equal(t, 70, update.Validation.Confidence)
	assert.True(t, update.Validation.RequiresReview)
	assert.Contains(t, update.Validation.Reasoning, "tax off by 2100")
}

func TestValidateSmallDiscrepancyDoesNotForceReview(t *testing.T) {
	v := newTestValidator(&stubLLM{response: plausibleResponse})

	// Expected tax 21, recorded 0: penalty applies but the model's own
	// review flag governs below the forced-review bound.
	inv := &model.Invoice{AmountExcl: 100, AmountIncl: 121, TaxAmount: 0}
	update := v.Validate(context.Background(), inv)

	assert.Equal(t, 70, update.Validation.Confidence)
	assert.False(t, update.Validation.RequiresReview)
}

func TestValidateForcedReviewBoundary(t *testing.T) {
	v := newTestValidator(&stubLLM{response: plausibleResponse})

	cases := []struct {
		name        string
		taxAmount   int64
		forced      bool
	}{
		{"discrepancy 100 not forced", 2000, false}, // expected 2100
		{"discrepancy 101 forced", 1999, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := &model.Invoice{AmountExcl: 10000, AmountIncl: 12100, TaxAmount: tc.taxAmount}
			update := v.Validate(context.Background(), inv)
			assert.Equal(t, tc.forced, update.Validation.RequiresReview)
		})
	}
}

func TestValidateFloorsConfidenceAtZero(t *testing.T) {
	v := newTestValidator(&stubLLM{response: `{"confidence": 10, "reasoning": "odd amounts", "requires_review": false}`})

	inv := &model.Invoice{AmountExcl: 10000, AmountIncl: 12100, TaxAmount: 0}
	update := v.Validate(context.Background(), inv)

	assert.Equal(t, 0, update.Validation.Confidence)
}

func TestValidateModelFailure(t *testing.T) {
	v := newTestValidator(&stubLLM{err: errors.New("timeout")})

	inv := &model.Invoice{AmountExcl: 10000, AmountIncl: 12100, TaxAmount: 2100}
	update := v.Validate(context.Background(), inv)

	require.NotNil(t, update.Validation)
	assert.True(t, update.Validation.RequiresReview)
	assert.NotEmpty(t, update.Err)
}
