// Package gate converts the run's accumulated decisions into one booking
// action. Pure policy, no external calls.
package gate

import "github.com/dekker/factuurstroom/internal/model"

// Thresholds configures the gate policy. Amounts are in minor units.
type Thresholds struct {
	AutoBook     int
	FlagReview   int
	ReviewAmount int64
}

// DefaultThresholds returns the stock policy: auto-book at 90, flag for
// review at 70, and always involve a human above EUR 1000.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AutoBook:     90,
		FlagReview:   70,
		ReviewAmount: 100000,
	}
}

// Aggregate returns the arithmetic mean of the present decisions'
// confidences. Absent decisions do not count; no decisions means 0.
func Aggregate(decisions []model.Decision) int {
	if len(decisions) == 0 {
		return 0
	}
	sum := 0
	for _, d := range decisions {
		sum += d.Confidence
	}
	return sum / len(decisions)
}

// Decide selects the action for a finished judgment chain. Override
// conditions win over any aggregate confidence: a newly created contact,
// an amount above the review threshold, or any stage demanding review
// always reaches a human.
func Decide(state *model.WorkflowState, t Thresholds) (model.Action, int) {
	confidence := Aggregate(state.Decisions())

	if state.IsNewContact {
		return model.ActionAlertUser, confidence
	}
	if state.Invoice != nil && state.Invoice.AmountIncl > t.ReviewAmount {
		return model.ActionAlertUser, confidence
	}
	for _, d := range state.Decisions() {
		if d.RequiresReview {
			return model.ActionAlertUser, confidence
		}
	}

	switch {
	case confidence >= t.AutoBook:
		return model.ActionAutoBook, confidence
	case confidence >= t.FlagReview:
		return model.ActionFlagReview, confidence
	default:
		return model.ActionAlertUser, confidence
	}
}
