package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrOrderTooSmall means the quantized order violates the exchange minimums
// and must not be submitted.
var ErrOrderTooSmall = errors.New("order below exchange minimum quantity or notional")

// SymbolRules holds exchange-mandated minimum increments for one symbol.
// Fetched once at startup and refreshed on a slow interval, never re-parsed
// per tick.
type SymbolRules struct {
	// TickSize minimum price increment.
	TickSize decimal.Decimal
	// StepSize minimum quantity increment.
	StepSize decimal.Decimal
	// MinQty minimum order quantity in base currency.
	MinQty decimal.Decimal
	// MinNotional minimum price*quantity value.
	MinNotional decimal.Decimal
}

// QuantizePrice rounds the raw price half-up to the nearest tick. The result
// carries exactly the decimal precision the tick size implies.
func (r SymbolRules) QuantizePrice(raw decimal.Decimal) decimal.Decimal {
	if !r.TickSize.IsPositive() {
		return raw
	}
	return raw.Div(r.TickSize).Round(0).Mul(r.TickSize)
}

// QuantizeQuantity floors the raw quantity to the nearest step. Rounding down
// is mandatory: rounding up could request more than the available balance.
func (r SymbolRules) QuantizeQuantity(raw decimal.Decimal) decimal.Decimal {
	if !r.StepSize.IsPositive() {
		return raw
	}
	return raw.Div(r.StepSize).Floor().Mul(r.StepSize)
}

// ValidateOrder checks a quantized price/quantity against the exchange
// minimums. Returns ErrOrderTooSmall when the order must not be submitted.
func (r SymbolRules) ValidateOrder(price, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return errors.Wrap(ErrOrderTooSmall, "quantity is zero after quantization")
	}
	if r.MinQty.IsPositive() && qty.LessThan(r.MinQty) {
		return errors.Wrapf(ErrOrderTooSmall, "quantity %s below min qty %s", qty.String(), r.MinQty.String())
	}
	if r.MinNotional.IsPositive() && price.Mul(qty).LessThan(r.MinNotional) {
		return errors.Wrapf(ErrOrderTooSmall, "notional %s below min notional %s", price.Mul(qty).String(), r.MinNotional.String())
	}
	return nil
}
