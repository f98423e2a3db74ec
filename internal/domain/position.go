package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PositionState is one of the three states of the single tracked position.
type PositionState string

const (
	// StateFlat means no position and no outstanding order.
	StateFlat PositionState = "Flat"
	// StateOrderPending means an order has been submitted and not yet resolved.
	StateOrderPending PositionState = "OrderPending"
	// StateOpen means a position is held at a fixed entry price.
	StateOpen PositionState = "Open"
)

// ErrInvalidTransition is returned when a state change would violate the
// position lifecycle.
var ErrInvalidTransition = errors.New("invalid position state transition")

// Position is the single durable record of the bot's market exposure.
// Exactly one exists per symbol. All mutation goes through the transition
// methods so an illegal lifecycle step can never be persisted.
type Position struct {
	State PositionState
	// Side of the outstanding order, valid only in StateOrderPending.
	Side OrderSide
	// OrderID is the client order id of the outstanding order.
	OrderID        string
	RequestedQty   decimal.Decimal
	RequestedPrice decimal.Decimal
	// EntryPrice is immutable from fill confirmation until the position closes.
	EntryPrice decimal.Decimal
	Quantity   decimal.Decimal
	UpdatedAt  time.Time
}

// NewFlatPosition returns the safe default state.
func NewFlatPosition() Position {
	return Position{State: StateFlat, UpdatedAt: time.Now()}
}

// SubmitOrder transitions Flat -> OrderPending(BUY) or Open -> OrderPending(SELL).
func (p *Position) SubmitOrder(side OrderSide, orderID string, qty, price decimal.Decimal) error {
	switch {
	case side == SideBuy && p.State == StateFlat:
	case side == SideSell && p.State == StateOpen:
	default:
		return errors.Wrapf(ErrInvalidTransition, "cannot submit %s order in state %s", side, p.State)
	}
	if orderID == "" {
		return errors.New("order id is required")
	}

	p.State = StateOrderPending
	p.Side = side
	p.OrderID = orderID
	p.RequestedQty = qty
	p.RequestedPrice = price
	p.UpdatedAt = time.Now()
	return nil
}

// ConfirmFill applies a confirmed full execution of the outstanding order.
// A BUY fill opens the position at the volume-weighted fill price; a SELL
// fill closes it and returns the record to Flat.
func (p *Position) ConfirmFill(avgPrice, executedQty decimal.Decimal) error {
	if p.State != StateOrderPending {
		return errors.Wrapf(ErrInvalidTransition, "no outstanding order to fill in state %s", p.State)
	}

	switch p.Side {
	case SideBuy:
		if !executedQty.IsPositive() {
			return errors.New("buy fill with non-positive executed quantity")
		}
		entry := avgPrice
		if !entry.IsPositive() {
			entry = p.RequestedPrice
		}
		p.State = StateOpen
		p.EntryPrice = entry
		p.Quantity = executedQty
	case SideSell:
		p.State = StateFlat
		p.EntryPrice = decimal.Zero
		p.Quantity = decimal.Zero
	default:
		return errors.Wrapf(ErrInvalidTransition, "unknown pending side %q", p.Side)
	}

	p.Side = ""
	p.OrderID = ""
	p.RequestedQty = decimal.Zero
	p.RequestedPrice = decimal.Zero
	p.UpdatedAt = time.Now()
	return nil
}

// AbandonOrder resolves an outstanding order that terminated without a fill
// (canceled, rejected, expired or unknown to the exchange). A pending BUY
// returns to Flat, a pending SELL returns to Open with the entry untouched.
func (p *Position) AbandonOrder() error {
	if p.State != StateOrderPending {
		return errors.Wrapf(ErrInvalidTransition, "no outstanding order to abandon in state %s", p.State)
	}

	if p.Side == SideSell {
		p.State = StateOpen
	} else {
		p.State = StateFlat
		p.EntryPrice = decimal.Zero
		p.Quantity = decimal.Zero
	}

	p.Side = ""
	p.OrderID = ""
	p.RequestedQty = decimal.Zero
	p.RequestedPrice = decimal.Zero
	p.UpdatedAt = time.Now()
	return nil
}

// ProfitRatio returns (price - entry) / entry for an open position.
func (p *Position) ProfitRatio(currentPrice decimal.Decimal) decimal.Decimal {
	if p.State != StateOpen || !p.EntryPrice.IsPositive() {
		return decimal.Zero
	}
	return currentPrice.Sub(p.EntryPrice).Div(p.EntryPrice)
}
