// Command bandbot runs a single-position volatility-band trading bot.
// It buys below the scaled lower band, sells at a fixed profit target and
// keeps its position durable across restarts.
//
// Usage:
//
//	bandbot setup                 (interactive config wizard)
//	bandbot --config config.yaml
//	bandbot (uses CLI arguments)
//
// Required environment variables:
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/avolkov/bandbot/config"
	"github.com/avolkov/bandbot/internal"
	"github.com/avolkov/bandbot/internal/clients"
	"github.com/avolkov/bandbot/internal/setup"
	"github.com/avolkov/bandbot/internal/web"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}

	conf, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	client, err := makeClient(conf.Platform)
	if err != nil {
		logger.Fatal("failed to create platform client", zap.Error(err))
	}

	bot, err := internal.NewTradingBot(conf, client)
	if err != nil {
		logger.Fatal("failed to create trading bot", zap.Error(err))
	}
	defer bot.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(ctx, logger)
	})
	g.Go(func() error {
		return web.NewServer(conf.WebAddr, bot.Strategy(), bot.Pricer(), conf.Pair, logger).Start(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("bot stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func makeClient(platform string) (any, error) {
	switch platform {
	case "binance":
		apiKey, apiSecret, err := creds("BINANCE_API_KEY", "BINANCE_API_SECRET")
		if err != nil {
			return nil, err
		}
		return clients.NewBinanceClient(apiKey, apiSecret), nil
	case "bybit":
		apiKey, apiSecret, err := creds("BYBIT_API_KEY", "BYBIT_API_SECRET")
		if err != nil {
			return nil, err
		}
		return clients.NewBybitClient(apiKey, apiSecret), nil
	default:
		return clients.NewSimulateClient(), nil
	}
}

func creds(keyEnv, secretEnv string) (string, string, error) {
	apiKey := os.Getenv(keyEnv)
	apiSecret := os.Getenv(secretEnv)
	if apiKey == "" || apiSecret == "" {
		return "", "", fmt.Errorf("%s and %s environment variables must be set", keyEnv, secretEnv)
	}
	return apiKey, apiSecret, nil
}
