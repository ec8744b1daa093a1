package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/signalengine/internal/core"
)

func newTestStore(t *testing.T) *SQLSampleStore {
	t.Helper()
	store, err := FromSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background()))
	return store
}

func TestSQLSampleStore_SaveAndQueryPendingSamples(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := time.Now().Add(-2 * time.Hour)
	sample := &core.MLSample{
		ID: "s1", Symbol: "BTCUSDT", Interval: core.Interval("1m"),
		CreatedAt: created, UpdatedAt: created,
		FinalSignal: core.ClassBuy, EntryPrice: 100, LabelHorizonMinutes: 60,
	}
	require.NoError(t, store.SaveMLSample(ctx, sample))

	pending, err := store.GetPendingLabelSamples(ctx, 60, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "s1", pending[0].ID)
	assert.False(t, pending[0].LabelReady)
}

func TestSQLSampleStore_GetPendingLabelSamples_ExcludesUnelapsedHorizon(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sample := &core.MLSample{
		ID: "s1", Symbol: "BTCUSDT", Interval: core.Interval("1m"),
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
		FinalSignal: core.ClassBuy, EntryPrice: 100, LabelHorizonMinutes: 60,
	}
	require.NoError(t, store.SaveMLSample(ctx, sample))

	pending, err := store.GetPendingLabelSamples(ctx, 60, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSQLSampleStore_UpdateMLSampleLabel_SetsLabelFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := time.Now().Add(-2 * time.Hour)
	sample := &core.MLSample{
		ID: "s1", Symbol: "BTCUSDT", Interval: core.Interval("1m"),
		CreatedAt: created, UpdatedAt: created,
		FinalSignal: core.ClassBuy, EntryPrice: 100, LabelHorizonMinutes: 60,
	}
	require.NoError(t, store.SaveMLSample(ctx, sample))

	ret, dd := 8.0, -2.0
	require.NoError(t, store.UpdateMLSampleLabel(ctx, "s1", &ret, &dd, true))

	pending, err := store.GetPendingLabelSamples(ctx, 60, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending) // now label_ready, excluded from the pending query
}
