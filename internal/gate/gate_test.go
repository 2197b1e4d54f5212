package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekker/factuurstroom/internal/model"
)

func confident(n int) *model.Decision {
	return &model.Decision{Confidence: n}
}

func TestAggregate(t *testing.T) {
	cases := []struct {
		name      string
		decisions []model.Decision
		want      int
	}{
		{"empty", nil, 0},
		{"single", []model.Decision{{Confidence: 80}}, 80},
		{"mean", []model.Decision{{Confidence: 90}, {Confidence: 70}}, 80},
		{"absent entries excluded from denominator", []model.Decision{{Confidence: 95}, {Confidence: 95}, {Confidence: 95}}, 95},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Aggregate(tc.decisions))
		})
	}
}

func TestAggregateSkipsAbsentDecisions(t *testing.T) {
	state := &model.WorkflowState{
		ContactMatch: confident(90),
		Validation:   confident(70),
		// Classification and TransactionMatch absent.
	}
	assert.Equal(t, 80, Aggregate(state.Decisions()))
}

func TestDecideThresholds(t *testing.T) {
	cases := []struct {
		name       string
		confidence int
		want       model.Action
	}{
		{"auto book at threshold", 90, model.ActionAutoBook},
		{"flag review below auto", 89, model.ActionFlagReview},
		{"flag review at threshold", 70, model.ActionFlagReview},
		{"alert below review", 69, model.ActionAlertUser},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := &model.WorkflowState{
				Invoice:      &model.Invoice{AmountIncl: 12100},
				ContactMatch: confident(tc.confidence),
			}
			action, conf := Decide(state, DefaultThresholds())
			assert.Equal(t, tc.want, action)
			assert.Equal(t, tc.confidence, conf)
		})
	}
}

func TestDecideNewContactOverridesEverything(t *testing.T) {
	state := &model.WorkflowState{
		Invoice:      &model.Invoice{AmountIncl: 12100},
		ContactMatch: confident(100),
		Validation:   confident(100),
		IsNewContact: true,
	}
	action, conf := Decide(state, DefaultThresholds())
	assert.Equal(t, model.ActionAlertUser, action)
	assert.Equal(t, 100, conf)
}

func TestDecideLargeAmountOverrides(t *testing.T) {
	state := &model.WorkflowState{
		Invoice:      &model.Invoice{AmountIncl: 100001},
		ContactMatch: confident(100),
	}
	action, _ := Decide(state, DefaultThresholds())
	assert.Equal(t, model.ActionAlertUser, action)

	// At the threshold exactly there is no override.
	state.Invoice.AmountIncl = 100000
	action, _ = Decide(state, DefaultThresholds())
	assert.Equal(t, model.ActionAutoBook, action)
}

func TestDecideAnyReviewFlagOverrides(t *testing.T) {
	state := &model.WorkflowState{
		Invoice:      &model.Invoice{AmountIncl: 12100},
		ContactMatch: confident(100),
		Validation:   &model.Decision{Confidence: 95, RequiresReview: true},
	}
	action, _ := Decide(state, DefaultThresholds())
	assert.Equal(t, model.ActionAlertUser, action)
}

func TestDecideNoDecisions(t *testing.T) {
	state := &model.WorkflowState{Invoice: &model.Invoice{AmountIncl: 12100}}
	action, conf := Decide(state, DefaultThresholds())
	assert.Equal(t, model.ActionAlertUser, action)
	assert.Equal(t, 0, conf)
}
