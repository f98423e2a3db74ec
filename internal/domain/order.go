package domain

import "github.com/shopspring/decimal"

// OrderSide is the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderType distinguishes market and limit orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatus is the normalized exchange-side order state.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
	// OrderStatusNotFound means the exchange has no order for the queried id.
	// Reported as a status, not an error, so the loop can branch on it.
	OrderStatusNotFound OrderStatus = "NOT_FOUND"
)

// Terminal reports whether the status can no longer change.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired, OrderStatusNotFound:
		return true
	}
	return false
}

// Fill is a single execution of an order.
type Fill struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderRequest describes an order to be submitted to the exchange.
// Quantity is always in base currency and must already be quantized
// against the symbol rules. Price is set for limit orders only.
type OrderRequest struct {
	Pair          Pair
	Side          OrderSide
	Type          OrderType
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	ClientOrderID string
}

// OrderResult is the normalized exchange answer for a placed or queried order.
type OrderResult struct {
	OrderID       string
	ClientOrderID string
	Status        OrderStatus
	ExecutedQty   decimal.Decimal
	// QuoteSpent is the cumulative quote amount of all fills, when the
	// exchange reports it instead of individual fills.
	QuoteSpent decimal.Decimal
	Fills      []Fill
}

// AvgFillPrice returns the volume-weighted average fill price. Falls back to
// QuoteSpent/ExecutedQty when the exchange reported no per-fill breakdown.
// Returns zero when nothing executed.
func (r OrderResult) AvgFillPrice() decimal.Decimal {
	totalQty := decimal.Zero
	totalQuote := decimal.Zero
	for _, f := range r.Fills {
		totalQty = totalQty.Add(f.Quantity)
		totalQuote = totalQuote.Add(f.Price.Mul(f.Quantity))
	}
	if totalQty.IsPositive() {
		return totalQuote.Div(totalQty)
	}
	if r.ExecutedQty.IsPositive() && r.QuoteSpent.IsPositive() {
		return r.QuoteSpent.Div(r.ExecutedQty)
	}
	return decimal.Zero
}
