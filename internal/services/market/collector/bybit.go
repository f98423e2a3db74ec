package collector

import (
	"context"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/avolkov/bandbot/internal/domain"
)

// BybitKlineProvider implements KlineProvider for Bybit.
type BybitKlineProvider struct {
	client *bybit.Client
}

// NewBybitKlineProvider creates a new Bybit kline provider.
func NewBybitKlineProvider(client *bybit.Client) *BybitKlineProvider {
	return &BybitKlineProvider{client: client}
}

// bybitIntervals maps common interval notation to Bybit V5 interval codes.
var bybitIntervals = map[string]string{
	"1m":  "1",
	"3m":  "3",
	"5m":  "5",
	"15m": "15",
	"30m": "30",
	"1h":  "60",
	"2h":  "120",
	"4h":  "240",
	"6h":  "360",
	"12h": "720",
	"1d":  "D",
}

// GetKlines fetches kline data from Bybit. Bybit returns candles
// newest-first and without close times, so the result is reversed and close
// times derived from the interval duration.
func (p *BybitKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.Candle, error) {
	code, ok := bybitIntervals[interval]
	if !ok {
		return nil, errors.Errorf("unsupported kline interval %q for Bybit", interval)
	}

	duration, err := time.ParseDuration(interval)
	if err != nil {
		if interval != "1d" {
			return nil, errors.Wrapf(err, "failed to parse interval %q", interval)
		}
		duration = 24 * time.Hour
	}

	resp, err := p.client.V5().Market().GetKline(bybit.V5GetKlineParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   bybit.SymbolV5(pair.Symbol()),
		Interval: bybit.Interval(code),
		Limit:    &limit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", pair.String())
	}

	list := resp.Result.List
	result := make([]domain.Candle, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		k := list[i]

		startMs, err := decimal.NewFromString(k.StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse kline start time %q", k.StartTime)
		}
		open, err := decimal.NewFromString(k.Open)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse open price")
		}
		high, err := decimal.NewFromString(k.High)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse high price")
		}
		low, err := decimal.NewFromString(k.Low)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse low price")
		}
		close, err := decimal.NewFromString(k.Close)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse close price")
		}
		volume, err := decimal.NewFromString(k.Volume)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse volume")
		}

		openTime := time.Unix(0, startMs.IntPart()*int64(time.Millisecond))
		result = append(result, domain.Candle{
			OpenTime:  openTime,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
			CloseTime: openTime.Add(duration - time.Millisecond),
		})
	}

	return result, nil
}
