// Package band implements the volatility-band trading strategy: one position,
// one instrument, entries below the scaled lower band and exits at a fixed
// profit target, with an order-reconciliation state machine that survives
// restarts.
package band

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/avolkov/bandbot/internal/domain"
	"github.com/avolkov/bandbot/internal/metrics"
	"github.com/avolkov/bandbot/internal/services/exchange"
	"github.com/avolkov/bandbot/pkg/indicators"
	"github.com/avolkov/bandbot/pkg/retrier"
)

// ErrNoData means there are not enough closed candles yet to evaluate the
// band; the caller should simply wait for the next tick.
var ErrNoData = errors.New("insufficient market data")

const defaultRulesRefreshInterval = 1 * time.Hour

// Feed supplies the maintained candle series.
type Feed interface {
	Refresh(ctx context.Context) error
	Series() *domain.CandleSeries
}

// PositionStore is the durable record of the position state machine.
type PositionStore interface {
	Load() (domain.Position, error)
	Save(domain.Position) error
	Close() error
}

// Config carries the numeric trading rule.
type Config struct {
	Pair domain.Pair
	// Window is the number of closed candles in the rolling band.
	Window int
	// NumStdDev scales the band width.
	NumStdDev decimal.Decimal
	// BuyFactor biases entries below the lower band (< 1, e.g. 0.986).
	BuyFactor decimal.Decimal
	// TakeProfit is the exit threshold as a ratio (e.g. 0.012 for 1.2%).
	TakeProfit decimal.Decimal
	// OrderType selects market or limit execution.
	OrderType domain.OrderType
	// RulesRefreshInterval bounds how long cached symbol rules are trusted.
	RulesRefreshInterval time.Duration
}

func (c Config) validate() error {
	if c.Window < 2 {
		return errors.Errorf("band window must be at least 2, got %d", c.Window)
	}
	if !c.NumStdDev.IsPositive() {
		return errors.New("band std-dev multiplier must be positive")
	}
	if !c.BuyFactor.IsPositive() || c.BuyFactor.GreaterThan(decimal.NewFromInt(1)) {
		return errors.Errorf("buy factor must be in (0, 1], got %s", c.BuyFactor.String())
	}
	if !c.TakeProfit.IsPositive() {
		return errors.New("take-profit threshold must be positive")
	}
	if c.OrderType != domain.OrderTypeMarket && c.OrderType != domain.OrderTypeLimit {
		return errors.Errorf("unsupported order type %q", c.OrderType)
	}
	return nil
}

// Snapshot is a read-only view of the strategy state for the status page.
type Snapshot struct {
	Pair       string    `json:"pair"`
	State      string    `json:"state"`
	OrderID    string    `json:"order_id,omitempty"`
	EntryPrice string    `json:"entry_price,omitempty"`
	Quantity   string    `json:"quantity,omitempty"`
	LastPrice  string    `json:"last_price,omitempty"`
	BandMean   string    `json:"band_mean,omitempty"`
	BandUpper  string    `json:"band_upper,omitempty"`
	BandLower  string    `json:"band_lower,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Strategy runs the reconciliation loop for one pair. All state mutation
// happens inside Tick, one tick at a time; only the snapshot is shared.
type Strategy struct {
	l      *zap.Logger
	cfg    Config
	pair   domain.Pair
	feed   Feed
	trader exchange.Trader
	store  PositionStore

	pos domain.Position

	rules          domain.SymbolRules
	rulesFetchedAt time.Time
	retr           *retrier.Retrier

	snapMu sync.RWMutex
	snap   Snapshot
}

// New returns a configured band strategy.
func New(l *zap.Logger, cfg Config, feed Feed, trader exchange.Trader, store PositionStore) (*Strategy, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.RulesRefreshInterval <= 0 {
		cfg.RulesRefreshInterval = defaultRulesRefreshInterval
	}

	return &Strategy{
		l:      l,
		cfg:    cfg,
		pair:   cfg.Pair,
		feed:   feed,
		trader: trader,
		store:  store,
		pos:    domain.NewFlatPosition(),
		retr:   retrier.New(),
	}, nil
}

// Initialize fetches symbol rules and reloads the persisted position. A
// position recorded as OrderPending is resolved against the exchange on the
// first tick, which repairs a crash between order fill and state save.
func (s *Strategy) Initialize(ctx context.Context) error {
	rules, err := retrier.DoWithData(s.retr, ctx, func(ctx context.Context) (domain.SymbolRules, error) {
		return s.trader.GetSymbolRules(ctx, s.pair)
	})
	if err != nil {
		return errors.Wrapf(err, "failed to fetch symbol rules for %s", s.pair.String())
	}
	s.rules = rules
	s.rulesFetchedAt = time.Now()

	pos, err := s.store.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load persisted position")
	}
	s.pos = pos

	s.l.Info("strategy initialized",
		zap.String("pair", s.pair.String()),
		zap.String("state", string(pos.State)),
		zap.String("tick_size", rules.TickSize.String()),
		zap.String("step_size", rules.StepSize.String()))

	// a pending record may hide a fill the crash interrupted; resolve it now
	// so the first tick starts from the true state
	if pos.State == domain.StateOrderPending {
		s.l.Warn("resuming with an outstanding order, reconciling against the exchange",
			zap.String("order_id", pos.OrderID),
			zap.String("side", string(pos.Side)))
		if _, err := s.resolvePendingOrder(ctx); err != nil {
			s.l.Warn("could not resolve outstanding order at startup, will retry on first tick", zap.Error(err))
		}
	}

	s.publishSnapshot(decimal.Zero, indicators.BandSnapshot{})
	return nil
}

// Tick runs one full pass of the reconciliation loop: refresh market data,
// resolve any outstanding order, then consider a new entry or exit. At most
// one order-placing action happens per tick, and the outstanding-order check
// always runs first.
func (s *Strategy) Tick(ctx context.Context) (*domain.TradeEvent, error) {
	if err := s.feed.Refresh(ctx); err != nil {
		return nil, err
	}
	s.maybeRefreshRules(ctx)

	last, ok := s.feed.Series().LastClosed()
	if !ok {
		return nil, ErrNoData
	}
	// The comparison operand is always the last CLOSED candle close: the
	// indicator and the trigger price come from the same series, never from a
	// separately fetched live ticker.
	price := last.Close
	priceFloat, _ := price.Float64()
	metrics.LastPrice.Set(priceFloat)

	bands, bandsErr := indicators.Bollinger(s.feed.Series().ClosedCloses(), s.cfg.Window, s.cfg.NumStdDev)

	var (
		event *domain.TradeEvent
		err   error
	)
	switch s.pos.State {
	case domain.StateOrderPending:
		event, err = s.resolvePendingOrder(ctx)
	case domain.StateFlat:
		if bandsErr != nil {
			if errors.Is(bandsErr, indicators.ErrInsufficientData) {
				err = ErrNoData
				break
			}
			err = bandsErr
			break
		}
		event, err = s.tryEnter(ctx, price, bands)
	case domain.StateOpen:
		event, err = s.tryExit(ctx, price)
	default:
		err = errors.Errorf("position in unknown state %q", s.pos.State)
	}

	s.publishSnapshot(price, bands)
	return event, err
}

// Close releases the durable position store.
func (s *Strategy) Close() error {
	return s.store.Close()
}

// Position returns a copy of the current position.
func (s *Strategy) Position() domain.Position {
	return s.pos
}

// Snapshot returns the latest published status view.
func (s *Strategy) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// resolvePendingOrder polls the outstanding order and advances the state
// machine. A transport error leaves the state untouched: no definitive answer
// means retry next tick, never assume success or failure.
func (s *Strategy) resolvePendingOrder(ctx context.Context) (*domain.TradeEvent, error) {
	res, err := s.trader.GetOrder(ctx, s.pair, s.pos.OrderID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query outstanding order %s", s.pos.OrderID)
	}

	switch res.Status {
	case domain.OrderStatusFilled:
		return s.applyFill(res)

	case domain.OrderStatusCanceled, domain.OrderStatusRejected, domain.OrderStatusExpired, domain.OrderStatusNotFound:
		// a canceled BUY that partially executed still opened real exposure;
		// losing track of it would be worse than booking the partial entry
		if s.pos.Side == domain.SideBuy && res.ExecutedQty.IsPositive() {
			s.l.Warn("buy order terminated after partial execution, booking partial fill",
				zap.String("order_id", s.pos.OrderID),
				zap.String("status", string(res.Status)),
				zap.String("executed_qty", res.ExecutedQty.String()))
			return s.applyFill(res)
		}

		side := s.pos.Side
		if err := s.pos.AbandonOrder(); err != nil {
			return nil, err
		}
		if err := s.store.Save(s.pos); err != nil {
			return nil, errors.Wrap(err, "failed to persist abandoned order state")
		}
		s.l.Warn("outstanding order terminated without fill",
			zap.String("order_id", res.ClientOrderID),
			zap.String("side", string(side)),
			zap.String("status", string(res.Status)),
			zap.String("state", string(s.pos.State)))
		return nil, nil

	default:
		s.l.Debug("outstanding order still live",
			zap.String("order_id", s.pos.OrderID),
			zap.String("status", string(res.Status)),
			zap.String("executed_qty", res.ExecutedQty.String()))
		return nil, nil
	}
}

func (s *Strategy) applyFill(res domain.OrderResult) (*domain.TradeEvent, error) {
	side := s.pos.Side

	avg := res.AvgFillPrice()
	if !avg.IsPositive() {
		avg = s.pos.RequestedPrice
	}
	qty := res.ExecutedQty
	if !qty.IsPositive() {
		qty = s.pos.RequestedQty
	}

	if err := s.pos.ConfirmFill(avg, qty); err != nil {
		return nil, err
	}
	if err := s.store.Save(s.pos); err != nil {
		return nil, errors.Wrap(err, "failed to persist filled order state")
	}

	s.l.Info("order filled",
		zap.String("side", string(side)),
		zap.String("avg_price", avg.String()),
		zap.String("executed_qty", qty.String()),
		zap.String("state", string(s.pos.State)))

	return &domain.TradeEvent{
		Side:   side,
		Pair:   s.pair,
		Amount: qty,
		Price:  avg,
	}, nil
}

// tryEnter evaluates the buy rule: price at or below buyFactor times the
// lower band, confirmed below the rolling mean, and enough quote balance for
// a valid order.
func (s *Strategy) tryEnter(ctx context.Context, price decimal.Decimal, bands indicators.BandSnapshot) (*domain.TradeEvent, error) {
	triggerPrice := s.cfg.BuyFactor.Mul(bands.Lower)
	if price.GreaterThan(triggerPrice) || price.GreaterThanOrEqual(bands.Mean) {
		return nil, nil
	}

	quote, err := s.trader.GetBalance(ctx, s.pair.To)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get %s balance", s.pair.To)
	}
	if !quote.GreaterThan(s.rules.MinNotional) {
		s.l.Debug("buy signal without sufficient quote balance",
			zap.String("balance", quote.String()),
			zap.String("min_notional", s.rules.MinNotional.String()))
		return nil, nil
	}

	orderPrice := price
	if s.cfg.OrderType == domain.OrderTypeLimit {
		orderPrice = s.rules.QuantizePrice(price)
	}
	qty := s.rules.QuantizeQuantity(quote.Div(orderPrice))
	if err := s.rules.ValidateOrder(orderPrice, qty); err != nil {
		if errors.Is(err, domain.ErrOrderTooSmall) {
			metrics.OrdersRejected.Inc()
			s.l.Info("buy signal rejected locally", zap.Error(err))
			return nil, nil
		}
		return nil, err
	}

	s.l.Info("buy triggered",
		zap.String("price", price.String()),
		zap.String("lower_band", bands.Lower.String()),
		zap.String("trigger", triggerPrice.String()),
		zap.String("qty", qty.String()))

	return s.submitOrder(ctx, domain.SideBuy, qty, orderPrice)
}

// tryExit evaluates the fixed profit target. Quantity comes from the base
// balance actually available, not the recorded entry quantity: the exchange
// balance is authoritative. No stop-loss exists; a losing position is held
// until the target is reached.
func (s *Strategy) tryExit(ctx context.Context, price decimal.Decimal) (*domain.TradeEvent, error) {
	profit := s.pos.ProfitRatio(price)
	if profit.LessThan(s.cfg.TakeProfit) {
		return nil, nil
	}

	base, err := s.trader.GetBalance(ctx, s.pair.From)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get %s balance", s.pair.From)
	}

	orderPrice := price
	if s.cfg.OrderType == domain.OrderTypeLimit {
		orderPrice = s.rules.QuantizePrice(price)
	}
	qty := s.rules.QuantizeQuantity(base)
	if err := s.rules.ValidateOrder(orderPrice, qty); err != nil {
		if errors.Is(err, domain.ErrOrderTooSmall) {
			metrics.OrdersRejected.Inc()
			s.l.Warn("take-profit reached but held quantity below exchange minimums",
				zap.String("base_balance", base.String()),
				zap.Error(err))
			return nil, nil
		}
		return nil, err
	}

	s.l.Info("take-profit triggered",
		zap.String("price", price.String()),
		zap.String("entry_price", s.pos.EntryPrice.String()),
		zap.String("profit_ratio", profit.String()),
		zap.String("qty", qty.String()))

	return s.submitOrder(ctx, domain.SideSell, qty, orderPrice)
}

// submitOrder persists the OrderPending transition BEFORE the exchange call:
// a crash can forget an unsent order (harmless, resolved as not-found) but
// must never leak an untracked one. A submission error also leaves the state
// pending, since the order may have reached the exchange anyway.
func (s *Strategy) submitOrder(ctx context.Context, side domain.OrderSide, qty, refPrice decimal.Decimal) (*domain.TradeEvent, error) {
	clientOrderID := uuid.New().String()

	if err := s.pos.SubmitOrder(side, clientOrderID, qty, refPrice); err != nil {
		return nil, err
	}
	if err := s.store.Save(s.pos); err != nil {
		// nothing was sent yet, roll back the in-memory transition
		_ = s.pos.AbandonOrder()
		return nil, errors.Wrap(err, "failed to persist order intent")
	}

	req := domain.OrderRequest{
		Pair:          s.pair,
		Side:          side,
		Type:          s.cfg.OrderType,
		Quantity:      qty,
		ClientOrderID: clientOrderID,
	}
	if s.cfg.OrderType == domain.OrderTypeLimit {
		req.Price = refPrice
	}

	res, err := s.trader.PlaceOrder(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "order submission failed for %s, keeping pending state for reconciliation", clientOrderID)
	}
	metrics.Orders.WithLabelValues(string(side)).Inc()

	if res.Status == domain.OrderStatusFilled {
		return s.applyFill(res)
	}

	s.l.Info("order submitted",
		zap.String("side", string(side)),
		zap.String("type", string(s.cfg.OrderType)),
		zap.String("order_id", clientOrderID),
		zap.String("qty", qty.String()),
		zap.String("price", refPrice.String()))

	return &domain.TradeEvent{
		Side:   side,
		Pair:   s.pair,
		Amount: qty,
		Price:  refPrice,
	}, nil
}

// maybeRefreshRules refreshes the cached symbol rules on a slow interval.
// Failures keep the cached value: rules change rarely and a stale copy beats
// skipping a tick.
func (s *Strategy) maybeRefreshRules(ctx context.Context) {
	if time.Since(s.rulesFetchedAt) < s.cfg.RulesRefreshInterval {
		return
	}

	rules, err := s.trader.GetSymbolRules(ctx, s.pair)
	if err != nil {
		s.l.Warn("failed to refresh symbol rules, keeping cached values", zap.Error(err))
		s.rulesFetchedAt = time.Now()
		return
	}

	s.rules = rules
	s.rulesFetchedAt = time.Now()
}

func (s *Strategy) publishSnapshot(price decimal.Decimal, bands indicators.BandSnapshot) {
	snap := Snapshot{
		Pair:      s.pair.String(),
		State:     string(s.pos.State),
		OrderID:   s.pos.OrderID,
		UpdatedAt: time.Now(),
	}
	if s.pos.EntryPrice.IsPositive() {
		snap.EntryPrice = s.pos.EntryPrice.String()
	}
	if s.pos.Quantity.IsPositive() {
		snap.Quantity = s.pos.Quantity.String()
	}
	if price.IsPositive() {
		snap.LastPrice = price.String()
	}
	if bands.Mean.IsPositive() {
		snap.BandMean = bands.Mean.String()
		snap.BandUpper = bands.Upper.String()
		snap.BandLower = bands.Lower.String()
	}

	switch s.pos.State {
	case domain.StateOrderPending:
		metrics.PositionState.Set(1)
	case domain.StateOpen:
		metrics.PositionState.Set(2)
	default:
		metrics.PositionState.Set(0)
	}

	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()
}
