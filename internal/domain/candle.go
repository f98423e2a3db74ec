package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is a single OHLCV candlestick.
type Candle struct {
	OpenTime  time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	CloseTime time.Time
	// Final reports whether the candle interval has ended. The newest candle
	// from the exchange is usually still forming and must not feed the indicator.
	Final bool
}

// CandleSeries is a time-ascending, fixed-capacity sequence of candles.
// Open times are strictly increasing; an in-progress candle with the same
// open time as the tail replaces it instead of appending.
type CandleSeries struct {
	capacity int
	candles  []Candle
}

// NewCandleSeries creates a series that retains at most capacity candles.
func NewCandleSeries(capacity int) *CandleSeries {
	if capacity < 1 {
		capacity = 1
	}
	return &CandleSeries{
		capacity: capacity,
		candles:  make([]Candle, 0, capacity),
	}
}

// Upsert merges a candle into the series. Candles older than the current tail
// are ignored (the series already holds them from a previous fetch), a candle
// with the tail's open time replaces the tail, and a newer candle appends,
// evicting the oldest entry once capacity is exceeded.
// Returns true when the series changed.
func (s *CandleSeries) Upsert(c Candle) bool {
	if len(s.candles) == 0 {
		s.candles = append(s.candles, c)
		return true
	}

	tail := s.candles[len(s.candles)-1]
	switch {
	case c.OpenTime.Before(tail.OpenTime):
		return false
	case c.OpenTime.Equal(tail.OpenTime):
		s.candles[len(s.candles)-1] = c
		return true
	default:
		s.candles = append(s.candles, c)
		if len(s.candles) > s.capacity {
			s.candles = s.candles[len(s.candles)-s.capacity:]
		}
		return true
	}
}

// Len returns the number of candles held.
func (s *CandleSeries) Len() int {
	return len(s.candles)
}

// Candles returns the underlying candles in time-ascending order.
func (s *CandleSeries) Candles() []Candle {
	return s.candles
}

// ClosedCloses returns close prices of final candles only, time-ascending.
func (s *CandleSeries) ClosedCloses() []decimal.Decimal {
	closes := make([]decimal.Decimal, 0, len(s.candles))
	for _, c := range s.candles {
		if c.Final {
			closes = append(closes, c.Close)
		}
	}
	return closes
}

// LastClosed returns the most recent final candle.
func (s *CandleSeries) LastClosed() (Candle, bool) {
	for i := len(s.candles) - 1; i >= 0; i-- {
		if s.candles[i].Final {
			return s.candles[i], true
		}
	}
	return Candle{}, false
}
