// Package collector fetches kline (candlestick) data from exchanges and
// maintains the in-memory candle series the indicator reads.
package collector

import (
	"context"

	"github.com/avolkov/bandbot/internal/domain"
)

// KlineProvider fetches historical kline data for a trading pair.
// interval is the exchange kline interval (e.g. "1m", "15m", "1h"), limit the
// maximum number of klines to fetch.
type KlineProvider interface {
	GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.Candle, error)
}
