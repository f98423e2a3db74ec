package exchange

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avolkov/bandbot/internal/domain"
)

type fakePricer struct {
	price decimal.Decimal
}

func (p *fakePricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return p.price, nil
}

type fakeRulesProvider struct {
	rules domain.SymbolRules
}

func (r *fakeRulesProvider) GetSymbolRules(ctx context.Context, pair domain.Pair) (domain.SymbolRules, error) {
	return r.rules, nil
}

func newTestSimulateTrader(t *testing.T) *SimulateTrader {
	t.Helper()
	t.Setenv("BANDBOT_SIMULATE_STATE_DIR", t.TempDir())

	trader, err := NewSimulateTrader(
		domain.Pair{From: "BTC", To: "USDT"},
		zap.NewNop(),
		&fakePricer{price: decimal.NewFromInt(50000)},
		&fakeRulesProvider{},
	)
	require.NoError(t, err)
	return trader
}

func TestSimulateMarketBuyAndSell(t *testing.T) {
	trader := newTestSimulateTrader(t)
	ctx := context.Background()
	pair := domain.Pair{From: "BTC", To: "USDT"}

	res, err := trader.PlaceOrder(ctx, domain.OrderRequest{
		Pair:          pair,
		Side:          domain.SideBuy,
		Type:          domain.OrderTypeMarket,
		Quantity:      decimal.RequireFromString("0.1"),
		ClientOrderID: "buy-1",
	})
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusFilled, res.Status)
	require.True(t, res.AvgFillPrice().Equal(decimal.NewFromInt(50000)))

	base, err := trader.GetBalance(ctx, "BTC")
	require.NoError(t, err)
	require.True(t, base.Equal(decimal.RequireFromString("0.1")))

	quote, err := trader.GetBalance(ctx, "USDT")
	require.NoError(t, err)
	require.True(t, quote.Equal(decimal.NewFromInt(5000)), "10000 - 0.1*50000, got %s", quote)

	_, err = trader.PlaceOrder(ctx, domain.OrderRequest{
		Pair:          pair,
		Side:          domain.SideSell,
		Type:          domain.OrderTypeMarket,
		Quantity:      decimal.RequireFromString("0.1"),
		ClientOrderID: "sell-1",
	})
	require.NoError(t, err)

	base, err = trader.GetBalance(ctx, "BTC")
	require.NoError(t, err)
	require.True(t, base.IsZero())
}

func TestSimulateLimitOrderFillsAtRequestedPrice(t *testing.T) {
	trader := newTestSimulateTrader(t)

	res, err := trader.PlaceOrder(context.Background(), domain.OrderRequest{
		Pair:          domain.Pair{From: "BTC", To: "USDT"},
		Side:          domain.SideBuy,
		Type:          domain.OrderTypeLimit,
		Quantity:      decimal.RequireFromString("0.1"),
		Price:         decimal.NewFromInt(48000),
		ClientOrderID: "buy-limit",
	})
	require.NoError(t, err)
	require.True(t, res.AvgFillPrice().Equal(decimal.NewFromInt(48000)))
}

func TestSimulateInsufficientBalance(t *testing.T) {
	trader := newTestSimulateTrader(t)
	ctx := context.Background()
	pair := domain.Pair{From: "BTC", To: "USDT"}

	// wallet starts with 10000 USDT, a 1 BTC buy at 50000 cannot fill
	_, err := trader.PlaceOrder(ctx, domain.OrderRequest{
		Pair:          pair,
		Side:          domain.SideBuy,
		Type:          domain.OrderTypeMarket,
		Quantity:      decimal.NewFromInt(1),
		ClientOrderID: "buy-too-big",
	})
	require.Error(t, err)

	// selling without holdings fails too
	_, err = trader.PlaceOrder(ctx, domain.OrderRequest{
		Pair:          pair,
		Side:          domain.SideSell,
		Type:          domain.OrderTypeMarket,
		Quantity:      decimal.RequireFromString("0.5"),
		ClientOrderID: "sell-nothing",
	})
	require.Error(t, err)
}

func TestSimulateGetOrder(t *testing.T) {
	trader := newTestSimulateTrader(t)
	ctx := context.Background()

	res, err := trader.GetOrder(ctx, domain.Pair{From: "BTC", To: "USDT"}, "never-placed")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusNotFound, res.Status)

	_, err = trader.PlaceOrder(ctx, domain.OrderRequest{
		Pair:          domain.Pair{From: "BTC", To: "USDT"},
		Side:          domain.SideBuy,
		Type:          domain.OrderTypeMarket,
		Quantity:      decimal.RequireFromString("0.1"),
		ClientOrderID: "buy-1",
	})
	require.NoError(t, err)

	res, err = trader.GetOrder(ctx, domain.Pair{From: "BTC", To: "USDT"}, "buy-1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusFilled, res.Status)
	require.True(t, res.ExecutedQty.Equal(decimal.RequireFromString("0.1")))
}

func TestSimulateStateSurvivesRestart(t *testing.T) {
	stateDir := t.TempDir()
	t.Setenv("BANDBOT_SIMULATE_STATE_DIR", stateDir)
	pair := domain.Pair{From: "BTC", To: "USDT"}
	pricer := &fakePricer{price: decimal.NewFromInt(50000)}

	trader, err := NewSimulateTrader(pair, zap.NewNop(), pricer, &fakeRulesProvider{})
	require.NoError(t, err)

	_, err = trader.PlaceOrder(context.Background(), domain.OrderRequest{
		Pair:          pair,
		Side:          domain.SideBuy,
		Type:          domain.OrderTypeMarket,
		Quantity:      decimal.RequireFromString("0.1"),
		ClientOrderID: "buy-1",
	})
	require.NoError(t, err)

	reopened, err := NewSimulateTrader(pair, zap.NewNop(), pricer, &fakeRulesProvider{})
	require.NoError(t, err)

	base, err := reopened.GetBalance(context.Background(), "BTC")
	require.NoError(t, err)
	require.True(t, base.Equal(decimal.RequireFromString("0.1")))

	res, err := reopened.GetOrder(context.Background(), pair, "buy-1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusFilled, res.Status)
}
