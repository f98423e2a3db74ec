package internal

import (
	"fmt"
	"sync"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"
	"go.uber.org/zap"

	"github.com/avolkov/bandbot/internal/clients"
	"github.com/avolkov/bandbot/internal/domain"
	"github.com/avolkov/bandbot/internal/services/exchange"
	"github.com/avolkov/bandbot/internal/services/market/collector"
	"github.com/avolkov/bandbot/internal/services/pricer"
)

// ServiceProvider is a factory for platform-specific services.
type ServiceProvider interface {
	Trader(pair domain.Pair) (exchange.Trader, error)
	KlineProvider() (collector.KlineProvider, error)
	Pricer() (exchange.Pricer, error)
}

// NewServiceProvider dispatches on the client type. This is the single point
// of truth for platform-specific wiring.
func NewServiceProvider(client any, logger *zap.Logger) (ServiceProvider, error) {
	switch c := client.(type) {
	case *binance.Client:
		return &binanceProvider{client: c}, nil
	case *bybit.Client:
		return &bybitProvider{client: c}, nil
	case *clients.SimulateClient:
		return &simulateProvider{client: c, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported client type: %T", client)
	}
}

type binanceProvider struct {
	client *binance.Client
}

func (p *binanceProvider) Trader(_ domain.Pair) (exchange.Trader, error) {
	return exchange.NewBinanceTrader(p.client), nil
}
func (p *binanceProvider) KlineProvider() (collector.KlineProvider, error) {
	return collector.NewBinanceKlineProvider(p.client), nil
}
func (p *binanceProvider) Pricer() (exchange.Pricer, error) {
	return pricer.NewBinancePricer(p.client), nil
}

type bybitProvider struct {
	client *bybit.Client
}

func (p *bybitProvider) Trader(_ domain.Pair) (exchange.Trader, error) {
	return exchange.NewBybitTrader(p.client), nil
}
func (p *bybitProvider) KlineProvider() (collector.KlineProvider, error) {
	return collector.NewBybitKlineProvider(p.client), nil
}
func (p *bybitProvider) Pricer() (exchange.Pricer, error) {
	return pricer.NewBybitPricer(p.client), nil
}

// simulateProvider fills paper orders at live Binance public-market prices and
// borrows real Binance symbol rules, so quantization behaves as in production.
type simulateProvider struct {
	client     *clients.SimulateClient
	logger     *zap.Logger
	pricer     exchange.Pricer
	pricerOnce sync.Once
}

func (p *simulateProvider) getPricer() exchange.Pricer {
	p.pricerOnce.Do(func() {
		p.pricer = pricer.NewBinancePricer(p.client.GetBinanceClient())
	})
	return p.pricer
}

func (p *simulateProvider) Trader(pair domain.Pair) (exchange.Trader, error) {
	rules := exchange.NewBinanceTrader(p.client.GetBinanceClient())
	return exchange.NewSimulateTrader(pair, p.logger, p.getPricer(), rules)
}
func (p *simulateProvider) KlineProvider() (collector.KlineProvider, error) {
	return collector.NewBinanceKlineProvider(p.client.GetBinanceClient()), nil
}
func (p *simulateProvider) Pricer() (exchange.Pricer, error) {
	return p.getPricer(), nil
}
