// Package exchange wraps exchange order-management APIs behind one Trader
// interface with typed outcomes, so the trading loop branches on order status
// instead of catching transport errors.
package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/avolkov/bandbot/internal/domain"
)

// Trader is the order-management surface of an exchange.
//
// GetOrder reports a missing order as domain.OrderStatusNotFound, not as an
// error: an error from any method means "no definitive answer" and callers
// must retry next tick rather than assume success or failure.
type Trader interface {
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error)
	GetOrder(ctx context.Context, pair domain.Pair, clientOrderID string) (domain.OrderResult, error)
	GetBalance(ctx context.Context, asset string) (decimal.Decimal, error)
	GetSymbolRules(ctx context.Context, pair domain.Pair) (domain.SymbolRules, error)
}
