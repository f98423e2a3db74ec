package clients

import (
	"github.com/adshao/go-binance/v2"
)

// SimulateClient marks the paper-trading mode. Market data and symbol rules
// come from public Binance endpoints (no credentials needed); orders never
// leave the process.
type SimulateClient struct {
	binance *binance.Client
}

func NewSimulateClient() *SimulateClient {
	return &SimulateClient{binance: binance.NewClient("", "")}
}

// GetBinanceClient exposes the underlying unauthenticated client for market
// data access.
func (c *SimulateClient) GetBinanceClient() *binance.Client {
	return c.binance
}
