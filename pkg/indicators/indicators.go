// Package indicators provides the volatility-band computation driving the
// trading rule.
package indicators

import (
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrInsufficientData is returned when fewer closed candles exist than the
// configured window. Callers must skip the tick instead of acting on a
// degenerate zero-variance band.
var ErrInsufficientData = errors.New("not enough closed candles for band computation")

// BandSnapshot is the band state at the tail of a close-price series.
type BandSnapshot struct {
	Mean  decimal.Decimal
	Std   decimal.Decimal
	Upper decimal.Decimal
	Lower decimal.Decimal
}

// Bollinger computes rolling mean, sample standard deviation (divisor
// window-1) and mean +/- numStdDev*std over the last window entries of
// closes. Band arithmetic stays in decimals so that Upper-Lower equals
// 2*numStdDev*Std exactly; only the square root itself goes through float64.
// Pure and deterministic: re-derivable from the series at any time, never
// persisted.
func Bollinger(closes []decimal.Decimal, window int, numStdDev decimal.Decimal) (BandSnapshot, error) {
	if window < 2 {
		return BandSnapshot{}, errors.Errorf("window must be at least 2, got %d", window)
	}
	if len(closes) < window {
		return BandSnapshot{}, errors.Wrapf(ErrInsufficientData, "need %d closes, have %d", window, len(closes))
	}

	tail := closes[len(closes)-window:]

	sum := decimal.Zero
	for _, c := range tail {
		sum = sum.Add(c)
	}
	mean := sum.Div(decimal.NewFromInt(int64(window)))

	sumSq := decimal.Zero
	for _, c := range tail {
		d := c.Sub(mean)
		sumSq = sumSq.Add(d.Mul(d))
	}
	variance := sumSq.Div(decimal.NewFromInt(int64(window - 1)))

	varFloat, _ := variance.Float64()
	std := decimal.NewFromFloat(math.Sqrt(varFloat))

	delta := numStdDev.Mul(std)
	return BandSnapshot{
		Mean:  mean,
		Std:   std,
		Upper: mean.Add(delta),
		Lower: mean.Sub(delta),
	}, nil
}
