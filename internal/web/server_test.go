package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avolkov/bandbot/internal/domain"
	"github.com/avolkov/bandbot/internal/services/strategy/band"
)

var testPair = domain.Pair{From: "BTC", To: "USDT"}

type fakeStatus struct {
	snap band.Snapshot
}

func (f *fakeStatus) Snapshot() band.Snapshot { return f.snap }

type fakePricer struct {
	price decimal.Decimal
	err   error
}

func (f *fakePricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return f.price, f.err
}

func TestHandleStatus(t *testing.T) {
	srv := NewServer(":0", &fakeStatus{snap: band.Snapshot{
		Pair:      "BTC_USDT",
		State:     "Open",
		LastPrice: "50000",
	}}, nil, testPair, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var snap band.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, "BTC_USDT", snap.Pair)
	require.Equal(t, "Open", snap.State)
	require.Equal(t, "50000", snap.LastPrice)
}

func TestHandleStatusIncludesTickerPrice(t *testing.T) {
	pricer := &fakePricer{price: decimal.RequireFromString("50123.45")}
	srv := NewServer(":0", &fakeStatus{snap: band.Snapshot{
		Pair:      "BTC_USDT",
		State:     "Flat",
		LastPrice: "50000",
	}}, pricer, testPair, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "50123.45", resp.TickerPrice)
	// the closed-candle price the strategy trades on stays separate
	require.Equal(t, "50000", resp.LastPrice)
}

func TestHandleStatusOmitsTickerPriceOnError(t *testing.T) {
	pricer := &fakePricer{err: errors.New("exchange unreachable")}
	srv := NewServer(":0", &fakeStatus{snap: band.Snapshot{
		Pair:  "BTC_USDT",
		State: "Flat",
	}}, pricer, testPair, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.TickerPrice)
	require.Equal(t, "Flat", resp.State)
}

func TestHandleStatusWithoutStrategy(t *testing.T) {
	srv := NewServer(":0", nil, nil, testPair, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
