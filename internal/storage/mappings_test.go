package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekker/factuurstroom/internal/common"
	"github.com/dekker/factuurstroom/internal/model"
	"github.com/dekker/factuurstroom/internal/testutil"
)

func TestSaveAndGetMapping(t *testing.T) {
	store := testutil.NewTestStorage(t)
	ctx := context.Background()

	mapping := &model.SupplierMapping{
		SupplierName: "Ziggo B.V.",
		SupplierIBAN: "NL91ABNA0417164300",
		CategoryID:   "cat-telecom",
		CategoryName: "Telefoon en internet",
		Confidence:   85,
	}
	require.NoError(t, store.SaveMapping(ctx, mapping))

	got, err := store.GetMapping(ctx, "Ziggo B.V.")
	require.NoError(t, err)
	assert.Equal(t, "cat-telecom", got.CategoryID)
	assert.Equal(t, 85, got.Confidence)
	assert.Equal(t, 1, got.UseCount)
	assert.Equal(t, "NL91ABNA0417164300", got.SupplierIBAN)
}

func TestGetMappingNotFound(t *testing.T) {
	store := testutil.NewTestStorage(t)

	_, err := store.GetMapping(context.Background(), "Onbekende Leverancier")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetMappingIsCaseInsensitive(t *testing.T) {
	store := testutil.NewTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMapping(ctx, &model.SupplierMapping{
		SupplierName: "Coolblue",
		CategoryID:   "cat-hardware",
		CategoryName: "Kantoorapparatuur",
		Confidence:   90,
	}))

	got, err := store.GetMapping(ctx, "coolblue")
	require.NoError(t, err)
	assert.Equal(t, "cat-hardware", got.CategoryID)
}

func TestSaveMappingUpsertIncrementsUseCount(t *testing.T) {
	store := testutil.NewTestStorage(t)
	ctx := context.Background()

	m := &model.SupplierMapping{
		SupplierName: "Ziggo B.V.",
		CategoryID:   "cat-telecom",
		CategoryName: "Telefoon en internet",
		Confidence:   80,
	}
	require.NoError(t, store.SaveMapping(ctx, m))

	// Second save for the same (supplier, category) pair overwrites the
	// confidence and bumps the usage counter; no second row appears.
	m.Confidence = 95
	require.NoError(t, store.SaveMapping(ctx, m))

	got, err := store.GetMapping(ctx, "Ziggo B.V.")
	require.NoError(t, err)
	assert.Equal(t, 95, got.Confidence)
	assert.Equal(t, 2, got.UseCount)

	all, err := store.ListMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveMappingAllowsMultipleCategoriesPerSupplier(t *testing.T) {
	store := testutil.NewTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMapping(ctx, &model.SupplierMapping{
		SupplierName: "Bol.com",
		CategoryID:   "cat-office",
		CategoryName: "Kantoorbenodigdheden",
		Confidence:   82,
	}))
	require.NoError(t, store.SaveMapping(ctx, &model.SupplierMapping{
		SupplierName: "Bol.com",
		CategoryID:   "cat-hardware",
		CategoryName: "Kantoorapparatuur",
		Confidence:   88,
	}))

	all, err := store.ListMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteMapping(t *testing.T) {
	store := testutil.NewTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMapping(ctx, &model.SupplierMapping{
		SupplierName: "Ziggo B.V.",
		CategoryID:   "cat-telecom",
		CategoryName: "Telefoon en internet",
		Confidence:   80,
	}))

	require.NoError(t, store.DeleteMapping(ctx, "Ziggo B.V.", "cat-telecom"))

	_, err := store.GetMapping(ctx, "Ziggo B.V.")
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = store.DeleteMapping(ctx, "Ziggo B.V.", "cat-telecom")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveMappingValidation(t *testing.T) {
	store := testutil.NewTestStorage(t)
	ctx := context.Background()

	assert.Error(t, store.SaveMapping(ctx, nil))
	assert.Error(t, store.SaveMapping(ctx, &model.SupplierMapping{CategoryID: "cat-x"}))
	assert.Error(t, store.SaveMapping(ctx, &model.SupplierMapping{
		SupplierName: "X",
		CategoryID:   "cat-x",
		Confidence:   101,
	}))
}
