package thresholds

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jonathan/monitoring-deck/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_RoundTripAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "thresholds.db")

	store, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)

	missing, err := store.Load(ctx, "gini")
	require.NoError(t, err)
	assert.Nil(t, missing)

	want := types.ThresholdConfig{Green: 0.5, AmberLower: 0.35, AmberUpper: 0.5, Red: 0.35}
	require.NoError(t, store.Save(ctx, "gini", want))
	require.NoError(t, store.Save(ctx, "gini", want))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Load(ctx, "gini")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestSQLiteStore_Upsert(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLiteStore(ctx, filepath.Join(t.TempDir(), "thresholds.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Save(ctx, "psi", types.ThresholdConfig{Green: 0.1, AmberLower: 0.1, AmberUpper: 0.25, Red: 0.25}))
	require.NoError(t, store.Save(ctx, "psi", types.ThresholdConfig{Green: 0.2, AmberLower: 0.1, AmberUpper: 0.2, Red: 0.1}))

	got, err := store.Load(ctx, "psi")
	require.NoError(t, err)
	assert.Equal(t, 0.2, got.Green)
	assert.Equal(t, 0.1, got.Red)
}
