package exchange

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/avolkov/bandbot/internal/domain"
	"github.com/avolkov/bandbot/internal/storage/simstate"
)

// Pricer supplies a live price for simulated market-order fills.
type Pricer interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

// RulesProvider supplies real symbol trading rules for the simulated pair.
type RulesProvider interface {
	GetSymbolRules(ctx context.Context, pair domain.Pair) (domain.SymbolRules, error)
}

const defaultSimQuoteBalance = 10000

// SimulateTrader is a paper-trading Trader: orders are filled immediately
// against an in-memory wallet at the requested limit price or the current
// market price, and never reach an exchange. Wallet and fill history persist
// across restarts.
type SimulateTrader struct {
	mu     sync.RWMutex
	pair   domain.Pair
	logger *zap.Logger
	wallet map[string]decimal.Decimal
	orders map[string]simOrder
	pricer Pricer
	rules  RulesProvider
	store  *simstate.Store
}

type simOrder struct {
	side        domain.OrderSide
	status      domain.OrderStatus
	quantity    decimal.Decimal
	fillPrice   decimal.Decimal
	executedQty decimal.Decimal
}

// NewSimulateTrader creates a paper trader seeded with a quote-only wallet.
func NewSimulateTrader(pair domain.Pair, logger *zap.Logger, pricer Pricer, rules RulesProvider) (*SimulateTrader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pricer == nil {
		return nil, errors.New("pricer is required for SimulateTrader")
	}

	store, err := simstate.NewStore(pair)
	if err != nil {
		return nil, errors.Wrap(err, "init simulate state store")
	}

	t := &SimulateTrader{
		pair:   pair,
		logger: logger,
		wallet: map[string]decimal.Decimal{
			pair.From: decimal.Zero,
			pair.To:   decimal.NewFromInt(defaultSimQuoteBalance),
		},
		orders: make(map[string]simOrder),
		pricer: pricer,
		rules:  rules,
		store:  store,
	}

	if err := t.restoreState(); err != nil {
		logger.Warn("failed to restore simulate state", zap.Error(err))
	}

	logger.Info("simulate init",
		zap.String("pair", pair.String()),
		zap.String("base", t.wallet[pair.From].String()),
		zap.String("quote", t.wallet[pair.To].String()))

	return t, nil
}

func (t *SimulateTrader) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	fillPrice := req.Price
	if !fillPrice.IsPositive() {
		price, err := t.pricer.GetPrice(ctx, req.Pair)
		if err != nil {
			return domain.OrderResult{}, errors.Wrap(err, "failed to price simulated market order")
		}
		fillPrice = price
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch req.Side {
	case domain.SideBuy:
		cost := fillPrice.Mul(req.Quantity)
		if t.wallet[req.Pair.To].LessThan(cost) {
			return domain.OrderResult{}, errors.Errorf("insufficient %s balance: have %s, need %s",
				req.Pair.To, t.wallet[req.Pair.To].String(), cost.String())
		}
		t.wallet[req.Pair.To] = t.wallet[req.Pair.To].Sub(cost)
		t.wallet[req.Pair.From] = t.wallet[req.Pair.From].Add(req.Quantity)
	case domain.SideSell:
		if t.wallet[req.Pair.From].LessThan(req.Quantity) {
			return domain.OrderResult{}, errors.Errorf("insufficient %s balance: have %s, need %s",
				req.Pair.From, t.wallet[req.Pair.From].String(), req.Quantity.String())
		}
		t.wallet[req.Pair.From] = t.wallet[req.Pair.From].Sub(req.Quantity)
		t.wallet[req.Pair.To] = t.wallet[req.Pair.To].Add(fillPrice.Mul(req.Quantity))
	default:
		return domain.OrderResult{}, errors.Errorf("unknown order side %q", req.Side)
	}

	t.orders[req.ClientOrderID] = simOrder{
		side:        req.Side,
		status:      domain.OrderStatusFilled,
		quantity:    req.Quantity,
		fillPrice:   fillPrice,
		executedQty: req.Quantity,
	}

	if err := t.persistState(); err != nil {
		t.logger.Warn("failed to persist simulate state", zap.Error(err))
	}

	t.logger.Info("simulated fill",
		zap.String("side", string(req.Side)),
		zap.String("qty", req.Quantity.String()),
		zap.String("price", fillPrice.String()))

	return domain.OrderResult{
		OrderID:       req.ClientOrderID,
		ClientOrderID: req.ClientOrderID,
		Status:        domain.OrderStatusFilled,
		ExecutedQty:   req.Quantity,
		Fills:         []domain.Fill{{Price: fillPrice, Quantity: req.Quantity}},
	}, nil
}

func (t *SimulateTrader) GetOrder(ctx context.Context, pair domain.Pair, clientOrderID string) (domain.OrderResult, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	o, ok := t.orders[clientOrderID]
	if !ok {
		return domain.OrderResult{ClientOrderID: clientOrderID, Status: domain.OrderStatusNotFound}, nil
	}

	return domain.OrderResult{
		OrderID:       clientOrderID,
		ClientOrderID: clientOrderID,
		Status:        o.status,
		ExecutedQty:   o.executedQty,
		Fills:         []domain.Fill{{Price: o.fillPrice, Quantity: o.executedQty}},
	}, nil
}

func (t *SimulateTrader) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.wallet[asset], nil
}

func (t *SimulateTrader) GetSymbolRules(ctx context.Context, pair domain.Pair) (domain.SymbolRules, error) {
	if t.rules == nil {
		return domain.SymbolRules{}, nil
	}
	return t.rules.GetSymbolRules(ctx, pair)
}

func (t *SimulateTrader) restoreState() error {
	state, err := t.store.Load()
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}

	for asset, raw := range state.Wallet {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return errors.Wrapf(err, "decode wallet balance for %s", asset)
		}
		t.wallet[asset] = amount
	}

	for id, so := range state.Orders {
		qty, err := decimal.NewFromString(so.Quantity)
		if err != nil {
			return errors.Wrap(err, "decode order quantity")
		}
		price, err := decimal.NewFromString(so.FillPrice)
		if err != nil {
			return errors.Wrap(err, "decode order fill price")
		}
		executed, err := decimal.NewFromString(so.ExecutedQty)
		if err != nil {
			return errors.Wrap(err, "decode order executed quantity")
		}
		t.orders[id] = simOrder{
			side:        domain.OrderSide(so.Side),
			status:      domain.OrderStatus(so.Status),
			quantity:    qty,
			fillPrice:   price,
			executedQty: executed,
		}
	}

	return nil
}

// persistState must be called with the lock held.
func (t *SimulateTrader) persistState() error {
	state := simstate.State{
		Pair:   t.pair.String(),
		Wallet: make(map[string]string, len(t.wallet)),
		Orders: make(map[string]simstate.StoredOrder, len(t.orders)),
	}
	for asset, amount := range t.wallet {
		state.Wallet[asset] = amount.String()
	}
	for id, o := range t.orders {
		state.Orders[id] = simstate.StoredOrder{
			Side:        string(o.side),
			Status:      string(o.status),
			Quantity:    o.quantity.String(),
			FillPrice:   o.fillPrice.String(),
			ExecutedQty: o.executedQty.String(),
		}
	}

	return t.store.Save(state)
}
