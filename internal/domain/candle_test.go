package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func candleAt(openTime time.Time, close float64, final bool) Candle {
	return Candle{
		OpenTime:  openTime,
		Close:     decimal.NewFromFloat(close),
		CloseTime: openTime.Add(15*time.Minute - time.Millisecond),
		Final:     final,
	}
}

func TestCandleSeriesUpsert(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewCandleSeries(10)

	require.True(t, s.Upsert(candleAt(base, 100, true)))
	require.True(t, s.Upsert(candleAt(base.Add(15*time.Minute), 101, false)))
	require.Equal(t, 2, s.Len())

	// same open time replaces the forming tail candle
	require.True(t, s.Upsert(candleAt(base.Add(15*time.Minute), 102, true)))
	require.Equal(t, 2, s.Len())
	last, ok := s.LastClosed()
	require.True(t, ok)
	require.True(t, last.Close.Equal(decimal.NewFromInt(102)))

	// older than the tail is ignored
	require.False(t, s.Upsert(candleAt(base, 999, true)))
	require.Equal(t, 2, s.Len())
	require.True(t, s.Candles()[0].Close.Equal(decimal.NewFromInt(100)))
}

func TestCandleSeriesEvictsOldest(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewCandleSeries(3)

	for i := 0; i < 5; i++ {
		s.Upsert(candleAt(base.Add(time.Duration(i)*15*time.Minute), float64(100+i), true))
	}

	require.Equal(t, 3, s.Len())
	require.True(t, s.Candles()[0].Close.Equal(decimal.NewFromInt(102)))
	require.True(t, s.Candles()[2].Close.Equal(decimal.NewFromInt(104)))
}

func TestClosedClosesSkipsFormingCandle(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewCandleSeries(10)

	s.Upsert(candleAt(base, 100, true))
	s.Upsert(candleAt(base.Add(15*time.Minute), 101, true))
	s.Upsert(candleAt(base.Add(30*time.Minute), 102, false))

	closes := s.ClosedCloses()
	require.Len(t, closes, 2)
	require.True(t, closes[1].Equal(decimal.NewFromInt(101)))

	// the forming candle is never the comparison operand
	last, ok := s.LastClosed()
	require.True(t, ok)
	require.True(t, last.Close.Equal(decimal.NewFromInt(101)))
}

func TestLastClosedEmpty(t *testing.T) {
	s := NewCandleSeries(5)
	_, ok := s.LastClosed()
	require.False(t, ok)

	s.Upsert(candleAt(time.Now(), 100, false))
	_, ok = s.LastClosed()
	require.False(t, ok)
}
