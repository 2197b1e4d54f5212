package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekker/factuurstroom/internal/model"
	"github.com/dekker/factuurstroom/internal/testutil"
)

func TestSaveAndListRuns(t *testing.T) {
	store := testutil.NewTestStorage(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	for i, action := range []model.Action{model.ActionAutoBook, model.ActionAlertUser} {
		run := &model.RunRecord{
			ID:         uuid.NewString(),
			InvoiceID:  "inv-1",
			Action:     action,
			Confidence: 90 - i,
			StateJSON:  `{"stage":"end"}`,
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
		}
		require.NoError(t, store.SaveRun(ctx, run))
	}

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Equal(t, model.ActionAlertUser, runs[0].Action)
	assert.Equal(t, model.ActionAutoBook, runs[1].Action)
	assert.Equal(t, "inv-1", runs[0].InvoiceID)
}

func TestListRunsLimit(t *testing.T) {
	store := testutil.NewTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.SaveRun(ctx, &model.RunRecord{
			ID:         uuid.NewString(),
			StartedAt:  time.Now().Add(time.Duration(i) * time.Second),
			FinishedAt: time.Now(),
		}))
	}

	runs, err := store.ListRuns(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestProcessedStatusRoundTrip(t *testing.T) {
	store := testutil.NewTestStorage(t)
	ctx := context.Background()

	status, err := store.GetProcessedStatus(ctx, "inv-1")
	require.NoError(t, err)
	assert.Empty(t, status)

	require.NoError(t, store.MarkProcessed(ctx, "inv-1", model.ProcessedReview))

	status, err = store.GetProcessedStatus(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, model.ProcessedReview, status)

	// Re-marking overwrites.
	require.NoError(t, store.MarkProcessed(ctx, "inv-1", model.ProcessedCompleted))
	status, err = store.GetProcessedStatus(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, model.ProcessedCompleted, status)
}

func TestSaveCorrectionIsIdempotent(t *testing.T) {
	store := testutil.NewTestStorage(t)
	ctx := context.Background()

	c := &model.Correction{
		ID:            uuid.NewString(),
		InvoiceID:     "inv-1",
		ReplacementID: "inv-2",
		Kind:          model.CorrectionReplace,
		Detail:        "state conflict on direct update",
	}
	require.NoError(t, store.SaveCorrection(ctx, c))
	require.NoError(t, store.SaveCorrection(ctx, c))

	corrections, err := store.ListCorrections(ctx, "inv-1")
	require.NoError(t, err)
	require.Len(t, corrections, 1)
	assert.Equal(t, "inv-2", corrections[0].ReplacementID)
	assert.Equal(t, model.CorrectionReplace, corrections[0].Kind)
}
