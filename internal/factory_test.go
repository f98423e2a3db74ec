package internal

import (
	"testing"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avolkov/bandbot/internal/clients"
	"github.com/avolkov/bandbot/internal/services/pricer"
)

func TestServiceProviderPricerDispatch(t *testing.T) {
	p, err := NewServiceProvider(&binance.Client{}, zap.NewNop())
	require.NoError(t, err)
	pr, err := p.Pricer()
	require.NoError(t, err)
	require.IsType(t, &pricer.BinancePricer{}, pr)

	p, err = NewServiceProvider(&bybit.Client{}, zap.NewNop())
	require.NoError(t, err)
	pr, err = p.Pricer()
	require.NoError(t, err)
	require.IsType(t, &pricer.BybitPricer{}, pr)

	// paper trading fills against live Binance prices
	p, err = NewServiceProvider(clients.NewSimulateClient(), zap.NewNop())
	require.NoError(t, err)
	pr, err = p.Pricer()
	require.NoError(t, err)
	require.IsType(t, &pricer.BinancePricer{}, pr)
}
