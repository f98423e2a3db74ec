package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TradeEvent trading event.
type TradeEvent struct {
	// Side of the executed or submitted order.
	Side OrderSide
	// Pair trading pair.
	Pair Pair
	// Amount quantity of the base currency.
	Amount decimal.Decimal
	// Price price at which the trade was executed or requested.
	Price decimal.Decimal
}

// String returns a human-readable string representation.
func (t *TradeEvent) String() string {
	return fmt.Sprintf("%s side: %s amount: %s price: %s", t.Pair.String(), t.Side, t.Amount.String(), t.Price.String())
}
