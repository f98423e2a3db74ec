package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/bandbot/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGetYamlFull(t *testing.T) {
	path := writeConfig(t, `
platform: binance
pair: ETH_USDT
interval: 1h
window: 20
num_std_dev: "2"
buy_factor: "0.99"
take_profit: "0.02"
poll_interval: 30s
order_type: LIMIT
history_limit: 200
web_addr: ":9090"
state_dir: /tmp/bandbot-wal
`)

	cfg, err := getYaml(path)
	require.NoError(t, err)

	require.Equal(t, "binance", cfg.Platform)
	require.Equal(t, domain.Pair{From: "ETH", To: "USDT"}, cfg.Pair)
	require.Equal(t, "1h", cfg.Interval)
	require.Equal(t, 20, cfg.Window)
	require.True(t, cfg.NumStdDev.Equal(decimal.NewFromInt(2)))
	require.True(t, cfg.BuyFactor.Equal(decimal.RequireFromString("0.99")))
	require.True(t, cfg.TakeProfit.Equal(decimal.RequireFromString("0.02")))
	require.Equal(t, 30*time.Second, cfg.PollInterval)
	require.Equal(t, domain.OrderTypeLimit, cfg.OrderType)
	require.Equal(t, 200, cfg.HistoryLimit)
	require.Equal(t, ":9090", cfg.WebAddr)
	require.Equal(t, "/tmp/bandbot-wal", cfg.StateDir)
}

func TestGetYamlDefaults(t *testing.T) {
	path := writeConfig(t, `
platform: simulate
pair: BTC_USDT
`)

	cfg, err := getYaml(path)
	require.NoError(t, err)

	require.Equal(t, DefaultInterval, cfg.Interval)
	require.Equal(t, DefaultWindow, cfg.Window)
	require.True(t, cfg.NumStdDev.Equal(decimal.RequireFromString(DefaultNumStdDev)))
	require.True(t, cfg.BuyFactor.Equal(decimal.RequireFromString(DefaultBuyFactor)))
	require.True(t, cfg.TakeProfit.Equal(decimal.RequireFromString(DefaultTakeProfit)))
	require.Equal(t, DefaultPollInterval, cfg.PollInterval)
	require.Equal(t, domain.OrderTypeMarket, cfg.OrderType)
	require.Equal(t, DefaultHistoryLimit, cfg.HistoryLimit)
	require.Equal(t, DefaultWebAddr, cfg.WebAddr)
	require.Equal(t, DefaultStateDir, cfg.StateDir)
}

func TestGetYamlRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad pair", "platform: simulate\npair: BTCUSDT\n"},
		{"bad platform", "platform: kraken\npair: BTC_USDT\n"},
		{"bad interval", "platform: simulate\npair: BTC_USDT\ninterval: quarterly\n"},
		{"go duration outside the supported set", "platform: simulate\npair: BTC_USDT\ninterval: 90s\n"},
		{"window too small", "platform: simulate\npair: BTC_USDT\nwindow: 1\n"},
		{"bad order type", "platform: simulate\npair: BTC_USDT\norder_type: STOP\n"},
		{"negative take profit", "platform: simulate\npair: BTC_USDT\ntake_profit: \"-0.01\"\n"},
		{"history smaller than window", "platform: simulate\npair: BTC_USDT\nwindow: 50\nhistory_limit: 20\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := getYaml(writeConfig(t, tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestGetYamlAcceptsDayInterval(t *testing.T) {
	// 1d is exchange-legal but not a Go duration
	path := writeConfig(t, "platform: simulate\npair: BTC_USDT\ninterval: 1d\n")

	cfg, err := getYaml(path)
	require.NoError(t, err)
	require.Equal(t, "1d", cfg.Interval)
}

func TestValidateInterval(t *testing.T) {
	for _, ok := range []string{"1m", "15m", "1h", "1d"} {
		require.NoError(t, ValidateInterval(ok), "interval %q should be accepted", ok)
	}
	for _, bad := range []string{"", "45m", "90s", "2d", "1w", "quarterly"} {
		require.Error(t, ValidateInterval(bad), "interval %q should be rejected", bad)
	}
}

func TestPairFromString(t *testing.T) {
	pair, err := PairFromString("BTC_USDT")
	require.NoError(t, err)
	require.Equal(t, "BTC", pair.From)
	require.Equal(t, "USDT", pair.To)
	require.Equal(t, "BTCUSDT", pair.Symbol())

	for _, bad := range []string{"", "BTCUSDT", "BTC_", "_USDT", "BTC_USDT_X"} {
		_, err := PairFromString(bad)
		require.Error(t, err, "pair %q should be rejected", bad)
	}
}
