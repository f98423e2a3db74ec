package positions

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/gowal"
	"go.uber.org/zap"

	"github.com/avolkov/bandbot/internal/domain"
)

var testPair = domain.Pair{From: "BTC", To: "USDT"}

func newTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	store, err := NewStore(dir, testPair, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadEmptyReturnsFlat(t *testing.T) {
	store := newTestStore(t, t.TempDir())

	pos, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, domain.StateFlat, pos.State)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)

	pos := domain.NewFlatPosition()
	require.NoError(t, pos.SubmitOrder(domain.SideBuy, "order-1", decimal.RequireFromString("0.5"), decimal.NewFromInt(50000)))
	require.NoError(t, store.Save(pos))
	require.NoError(t, pos.ConfirmFill(decimal.NewFromInt(50100), decimal.RequireFromString("0.5")))
	require.NoError(t, store.Save(pos))
	require.NoError(t, store.Close())

	// reopen as after a restart; only the latest record counts
	reopened := newTestStore(t, dir)
	loaded, err := reopened.Load()
	require.NoError(t, err)
	require.Equal(t, domain.StateOpen, loaded.State)
	require.True(t, loaded.EntryPrice.Equal(decimal.NewFromInt(50100)))
	require.True(t, loaded.Quantity.Equal(decimal.RequireFromString("0.5")))
	require.Empty(t, loaded.OrderID)
}

func TestLoadPendingOrderSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)

	pos := domain.NewFlatPosition()
	require.NoError(t, pos.SubmitOrder(domain.SideBuy, "order-42", decimal.NewFromInt(1), decimal.NewFromInt(100)))
	require.NoError(t, store.Save(pos))
	require.NoError(t, store.Close())

	reopened := newTestStore(t, dir)
	loaded, err := reopened.Load()
	require.NoError(t, err)
	require.Equal(t, domain.StateOrderPending, loaded.State)
	require.Equal(t, domain.SideBuy, loaded.Side)
	require.Equal(t, "order-42", loaded.OrderID)
	require.True(t, loaded.RequestedQty.Equal(decimal.NewFromInt(1)))
}

func TestLoadCorruptedRecordFallsBackToFlat(t *testing.T) {
	dir := t.TempDir()

	// plant a broken record under the store's key before opening it
	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              filepath.Join(dir, testPair.String()),
		Prefix:           "log_",
		SegmentThreshold: walSegmentThreshold,
		MaxSegments:      walMaxSegments,
		IsInSyncDiskMode: true,
	})
	require.NoError(t, err)
	require.NoError(t, wal.Write(1, positionKeyPrefix+testPair.String(), []byte("{not json")))
	require.NoError(t, wal.Close())

	store := newTestStore(t, dir)
	pos, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, domain.StateFlat, pos.State)
}

func TestLoadRejectsInvalidState(t *testing.T) {
	dir := t.TempDir()

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              filepath.Join(dir, testPair.String()),
		Prefix:           "log_",
		SegmentThreshold: walSegmentThreshold,
		MaxSegments:      walMaxSegments,
		IsInSyncDiskMode: true,
	})
	require.NoError(t, err)
	require.NoError(t, wal.Write(1, positionKeyPrefix+testPair.String(), []byte(`{"state":"Launched"}`)))
	require.NoError(t, wal.Close())

	store := newTestStore(t, dir)
	pos, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, domain.StateFlat, pos.State)
}
