package collector

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/avolkov/bandbot/internal/domain"
)

// CandleFeed pulls recent klines for one pair/interval and folds them into a
// fixed-capacity CandleSeries. The newest candle from the exchange is usually
// still forming; the feed marks candles final only once their close time has
// passed, so indicator input never includes a close that can still change.
type CandleFeed struct {
	provider KlineProvider
	pair     domain.Pair
	interval string
	limit    int
	series   *domain.CandleSeries

	// now is injectable for tests.
	now func() time.Time
}

// NewCandleFeed creates a feed retaining at most capacity candles and
// fetching fetchLimit klines per refresh.
func NewCandleFeed(provider KlineProvider, pair domain.Pair, interval string, capacity, fetchLimit int) *CandleFeed {
	if fetchLimit < 1 {
		fetchLimit = capacity
	}
	return &CandleFeed{
		provider: provider,
		pair:     pair,
		interval: interval,
		limit:    fetchLimit,
		series:   domain.NewCandleSeries(capacity),
		now:      time.Now,
	}
}

// Refresh fetches the latest klines and merges them into the series.
func (f *CandleFeed) Refresh(ctx context.Context) error {
	candles, err := f.provider.GetKlines(ctx, f.pair, f.interval, f.limit)
	if err != nil {
		return errors.Wrapf(err, "failed to refresh candles for %s", f.pair.String())
	}
	if len(candles) == 0 {
		return errors.Errorf("exchange returned no candles for %s %s", f.pair.String(), f.interval)
	}

	now := f.now()
	for _, c := range candles {
		c.Final = c.CloseTime.Before(now)
		f.series.Upsert(c)
	}

	return nil
}

// Series exposes the maintained candle series.
func (f *CandleFeed) Series() *domain.CandleSeries {
	return f.series
}
