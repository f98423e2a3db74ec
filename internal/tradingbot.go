package internal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/avolkov/bandbot/config"
	"github.com/avolkov/bandbot/internal/domain"
	"github.com/avolkov/bandbot/internal/metrics"
	"github.com/avolkov/bandbot/internal/services/exchange"
	"github.com/avolkov/bandbot/internal/services/market/collector"
	"github.com/avolkov/bandbot/internal/services/strategy/band"
	"github.com/avolkov/bandbot/internal/storage/positions"
)

// TradingStrategy is the per-tick decision engine.
type TradingStrategy interface {
	Initialize(ctx context.Context) error
	Tick(ctx context.Context) (*domain.TradeEvent, error)
	Snapshot() band.Snapshot
	Close() error
}

// TradingBot drives one strategy instance on a fixed tick.
type TradingBot struct {
	Config   config.Config
	strategy TradingStrategy
	pricer   exchange.Pricer
}

// NewTradingBot wires the platform client into a band strategy instance.
func NewTradingBot(conf config.Config, client any) (*TradingBot, error) {
	logger := zap.L().With(zap.String("pair", conf.Pair.String()))

	provider, err := NewServiceProvider(client, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create service provider")
	}

	trader, err := provider.Trader(conf.Pair)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create trader")
	}
	klines, err := provider.KlineProvider()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create kline provider")
	}
	livePricer, err := provider.Pricer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pricer")
	}

	feed := collector.NewCandleFeed(klines, conf.Pair, conf.Interval, conf.HistoryLimit, conf.HistoryLimit)

	store, err := positions.NewStore(conf.StateDir, conf.Pair, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open position store")
	}

	strategy, err := band.New(logger, band.Config{
		Pair:       conf.Pair,
		Window:     conf.Window,
		NumStdDev:  conf.NumStdDev,
		BuyFactor:  conf.BuyFactor,
		TakeProfit: conf.TakeProfit,
		OrderType:  conf.OrderType,
	}, feed, trader, store)
	if err != nil {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close position store", zap.Error(cerr))
		}
		return nil, errors.Wrap(err, "failed to create band strategy")
	}

	return &TradingBot{
		Config:   conf,
		strategy: strategy,
		pricer:   livePricer,
	}, nil
}

// Strategy exposes the running strategy, mainly for the status page.
func (b *TradingBot) Strategy() TradingStrategy {
	return b.strategy
}

// Pricer exposes the platform's live-price lookup for the status page.
func (b *TradingBot) Pricer() exchange.Pricer {
	return b.pricer
}

// Close releases the strategy's durable state.
func (b *TradingBot) Close() {
	if err := b.strategy.Close(); err != nil {
		zap.L().Error("failed to close strategy", zap.Error(err))
	}
}

// Run executes the reconciliation loop until the context is cancelled.
// A failed tick is logged and the loop continues: transient exchange errors
// must never kill the bot while it may hold a position.
func (b *TradingBot) Run(ctx context.Context, logger *zap.Logger) error {
	if err := b.strategy.Initialize(ctx); err != nil {
		return errors.Wrap(err, "failed to initialize trading strategy")
	}

	ticker := time.NewTicker(b.Config.PollInterval)
	defer ticker.Stop()

	logger.Info("starting trading loop",
		zap.String("pair", b.Config.Pair.String()),
		zap.String("interval", b.Config.Interval),
		zap.Duration("poll_interval", b.Config.PollInterval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("context done, stopping trading loop", zap.String("pair", b.Config.Pair.String()))
			return ctx.Err()
		case <-ticker.C:
			event, err := b.strategy.Tick(ctx)
			if err != nil {
				if errors.Is(err, band.ErrNoData) {
					metrics.Ticks.WithLabelValues("ok").Inc()
					logger.Debug("not enough market data yet, waiting", zap.String("pair", b.Config.Pair.String()))
					continue
				}
				metrics.Ticks.WithLabelValues("error").Inc()
				logger.Error("tick failed", zap.String("pair", b.Config.Pair.String()), zap.Error(err))
				continue
			}
			metrics.Ticks.WithLabelValues("ok").Inc()

			if event != nil {
				logger.Info("trade event", zap.String("event", event.String()))
			}
		}
	}
}
