package classify

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
	"github.com/dekker/factuurstroom/internal/platform"
	"github.com/dekker/factuurstroom/internal/service"
	"github.com/dekker/factuurstroom/internal/testutil"
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

func newTestClassifier(t *testing.T, mock *platform.Mock, stub *stubLLM) (*Classifier, service.Storage) {
	t.Helper()
	store := testutil.NewTestStorage(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClassifier(mock, stub, store, logger), store
}

func hostingCategories() []model.Category {
	return []model.Category{
		{ID: "cat-1", Name: "Hosting en domeinen", Type: model.CategoryTypeExpense},
		{ID: "cat-2", Name: "Kantoorkosten", Type: model.CategoryTypeExpense},
	}
}

func TestClassifySavesMappingAtHighConfidence(t *testing.T) {
	mock := platform.NewMock()
	mock.Categories = hostingCategories()
	stub := &stubLLM{response: `{"category_id": "cat-1", "confidence": 85, "reasoning": "hosting invoice"}`}
	c, store := newTestClassifier(t, mock, stub)

	update := c.Classify(context.Background(), &model.Invoice{ID: "inv-1"}, nil, "Acme Hosting BV")

	require.NotNil(t, update.Category)
	assert.Equal(t, "cat-1", update.Category.ID)
	assert.Equal(t, 85, update.Classification.Confidence)

	mapping, err := store.GetMapping(context.Background(), "Acme Hosting BV")
	require.NoError(t, err)
	assert.Equal(t, "cat-1", mapping.CategoryID)
	assert.Equal(t, 1, mapping.UseCount)
}

func TestClassifyHintAgreementBoost(t *testing.T) {
	mock := platform.NewMock()
	mock.Categories = hostingCategories()
	stub := &stubLLM{response: `{"category_id": "cat-1", "confidence": 85, "reasoning": "hosting invoice"}`}
	c, store := newTestClassifier(t, mock, stub)

	ctx := context.Background()
	require.NoError(t, store.SaveMapping(ctx, &model.SupplierMapping{
		SupplierName: "Acme Hosting BV",
		CategoryID:   "cat-1",
		CategoryName: "Hosting en domeinen",
		Confidence:   90,
	}))

	update := c.Classify(ctx, &model.Invoice{ID: "inv-1"}, nil, "Acme Hosting BV")

	assert.Equal(t, 95, update.Classification.Confidence)
	assert.Contains(t, stub.lastPrompt, "previously booked")

	// The upsert increments the usage counter.
	mapping, err := store.GetMapping(ctx, "Acme Hosting BV")
	require.NoError(t, err)
	assert.Equal(t, 2, mapping.UseCount)
	assert.Equal(t, 95, mapping.Confidence)
}

func TestClassifyBoostCapsAtHundred(t *testing.T) {
	mock := platform.NewMock()
	mock.Categories = hostingCategories()
	stub := &stubLLM{response: `{"category_id": "cat-1", "confidence": 97, "reasoning": "hosting"}`}
	c, store := newTestClassifier(t, mock, stub)

	ctx := context.Background()
	require.NoError(t, store.SaveMapping(ctx, &model.SupplierMapping{
		SupplierName: "Acme Hosting BV",
		CategoryID:   "cat-1",
		CategoryName: "Hosting en domeinen",
		Confidence:   90,
	}))

	update := c.Classify(ctx, &model.Invoice{ID: "inv-1"}, nil, "Acme Hosting BV")
	assert.Equal(t, 100, update.Classification.Confidence)
}

func TestClassifyLowConfidenceDoesNotSaveMapping(t *testing.T) {
	mock := platform.NewMock()
	mock.Categories = hostingCategories()
	stub := &stubLLM{response: `{"category_id": "cat-2", "confidence": 55, "reasoning": "unclear"}`}
	c, store := newTestClassifier(t, mock, stub)

	update := c.Classify(context.Background(), &model.Invoice{ID: "inv-1"}, nil, "Acme Hosting BV")

	assert.Equal(t, 55, update.Classification.Confidence)
	_, err := store.GetMapping(context.Background(), "Acme Hosting BV")
	assert.Error(t, err)
}

func TestClassifyUnknownCategoryID(t *testing.T) {
	mock := platform.NewMock()
	mock.Categories = hostingCategories()
	stub := &stubLLM{response: `{"category_id": "cat-99", "confidence": 80, "reasoning": "made up"}`}
	c, _ := newTestClassifier(t, mock, stub)

	update := c.Classify(context.Background(), &model.Invoice{ID: "inv-1"}, nil, "Acme Hosting BV")

	assert.Nil(t, update.Category)
	assert.Equal(t, 0, update.Classification.Confidence)
	assert.True(t, update.Classification.RequiresReview)
}

func TestClassifyModelFailure(t *testing.T) {
	mock := platform.NewMock()
	mock.Categories = hostingCategories()
	stub := &stubLLM{err: errors.New("model down")}
	c, _ := newTestClassifier(t, mock, stub)

	update := c.Classify(context.Background(), &model.Invoice{ID: "inv-1"}, nil, "Acme Hosting BV")

	assert.True(t, update.Classification.RequiresReview)
	assert.NotEmpty(t, update.Err)
}

func TestClassifyNoCategories(t *testing.T) {
	mock := platform.NewMock()
	c, _ := newTestClassifier(t, mock, &stubLLM{})

	update := c.Classify(context.Background(), &model.Invoice{ID: "inv-1"}, nil, "Acme Hosting BV")

	assert.Nil(t, update.Category)
	assert.True(t, update.Classification.RequiresReview)
	assert.Empty(t, update.Err)
}
