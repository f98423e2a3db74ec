package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/avolkov/bandbot/internal/domain"
)

// Defaults for the band trading rule.
const (
	DefaultInterval     = "15m"
	DefaultWindow       = 8
	DefaultNumStdDev    = "1"
	DefaultBuyFactor    = "0.986"
	DefaultTakeProfit   = "0.012"
	DefaultPollInterval = time.Minute
	DefaultHistoryLimit = 500
	DefaultOrderType    = "MARKET"
	DefaultWebAddr      = ":8080"
	DefaultStateDir     = "./wal"
)

// Config holds the full runtime configuration of the bot.
type Config struct {
	Platform     string
	Pair         domain.Pair
	Interval     string
	Window       int
	NumStdDev    decimal.Decimal
	BuyFactor    decimal.Decimal
	TakeProfit   decimal.Decimal
	PollInterval time.Duration
	OrderType    domain.OrderType
	HistoryLimit int
	WebAddr      string
	StateDir     string
}

type configTmp struct {
	Platform     string        `yaml:"platform"`
	Pair         string        `yaml:"pair"`
	Interval     string        `yaml:"interval,omitempty"`
	Window       int           `yaml:"window,omitempty"`
	NumStdDev    string        `yaml:"num_std_dev,omitempty"`
	BuyFactor    string        `yaml:"buy_factor,omitempty"`
	TakeProfit   string        `yaml:"take_profit,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	OrderType    string        `yaml:"order_type,omitempty"`
	HistoryLimit int           `yaml:"history_limit,omitempty"`
	WebAddr      string        `yaml:"web_addr,omitempty"`
	StateDir     string        `yaml:"state_dir,omitempty"`
}

// Get reads configuration from the yaml file given via --config, falling back
// to CLI flags when no file is provided.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	platform := flag.String("platform", "simulate", "trading platform: binance, bybit or simulate")
	pairFlag := flag.String("pair", "BTC_USDT", "trade pair, example: BTC_USDT")
	interval := flag.String("interval", DefaultInterval, "candle interval, example: 15m")
	window := flag.Int("window", DefaultWindow, "number of closed candles in the band window")
	numStd := flag.String("numstddev", DefaultNumStdDev, "standard deviation multiplier for band width")
	buyFactor := flag.String("buyfactor", DefaultBuyFactor, "lower band multiplier for buy trigger, example: 0.986")
	takeProfit := flag.String("takeprofit", DefaultTakeProfit, "take profit ratio, example: 0.012")
	pollInterval := flag.Duration("pollinterval", DefaultPollInterval, "reconciliation tick interval")
	orderType := flag.String("ordertype", DefaultOrderType, "order type: MARKET or LIMIT")
	historyLimit := flag.Int("historylimit", DefaultHistoryLimit, "number of candles to keep and fetch")
	webAddr := flag.String("webaddr", DefaultWebAddr, "status/metrics listen address")
	stateDir := flag.String("statedir", DefaultStateDir, "directory for durable position state")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	tmp := configTmp{
		Platform:     *platform,
		Pair:         *pairFlag,
		Interval:     *interval,
		Window:       *window,
		NumStdDev:    *numStd,
		BuyFactor:    *buyFactor,
		TakeProfit:   *takeProfit,
		PollInterval: *pollInterval,
		OrderType:    *orderType,
		HistoryLimit: *historyLimit,
		WebAddr:      *webAddr,
		StateDir:     *stateDir,
	}

	return tmp.build()
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("failed to parse yaml config: %w", err)
	}

	return tmp.build()
}

func (t configTmp) build() (Config, error) {
	pair, err := PairFromString(t.Pair)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Platform:     strings.ToLower(t.Platform),
		Pair:         pair,
		Interval:     t.Interval,
		Window:       t.Window,
		PollInterval: t.PollInterval,
		HistoryLimit: t.HistoryLimit,
		WebAddr:      t.WebAddr,
		StateDir:     t.StateDir,
	}

	if cfg.Platform == "" {
		cfg.Platform = "simulate"
	}
	switch cfg.Platform {
	case "binance", "bybit", "simulate":
	default:
		return Config{}, fmt.Errorf("unsupported platform %q, expected binance, bybit or simulate", t.Platform)
	}

	if cfg.Interval == "" {
		cfg.Interval = DefaultInterval
	}
	if err := ValidateInterval(cfg.Interval); err != nil {
		return Config{}, err
	}

	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Window < 2 {
		return Config{}, fmt.Errorf("window must be at least 2, got %d", cfg.Window)
	}

	if cfg.NumStdDev, err = decimalOrDefault(t.NumStdDev, DefaultNumStdDev); err != nil {
		return Config{}, fmt.Errorf("incorrect 'num_std_dev' param: %w", err)
	}
	if cfg.BuyFactor, err = decimalOrDefault(t.BuyFactor, DefaultBuyFactor); err != nil {
		return Config{}, fmt.Errorf("incorrect 'buy_factor' param: %w", err)
	}
	if cfg.TakeProfit, err = decimalOrDefault(t.TakeProfit, DefaultTakeProfit); err != nil {
		return Config{}, fmt.Errorf("incorrect 'take_profit' param: %w", err)
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.HistoryLimit < cfg.Window+1 {
		return Config{}, fmt.Errorf("history limit %d too small for window %d", cfg.HistoryLimit, cfg.Window)
	}

	switch strings.ToUpper(t.OrderType) {
	case "", "MARKET":
		cfg.OrderType = domain.OrderTypeMarket
	case "LIMIT":
		cfg.OrderType = domain.OrderTypeLimit
	default:
		return Config{}, fmt.Errorf("unsupported order type %q, expected MARKET or LIMIT", t.OrderType)
	}

	if cfg.WebAddr == "" {
		cfg.WebAddr = DefaultWebAddr
	}
	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDir
	}

	return cfg, nil
}

// supportedIntervals are the candle intervals every supported platform
// accepts. Not every exchange-legal interval is a Go duration (1d), so the
// check is against this set rather than duration syntax.
var supportedIntervals = map[string]struct{}{
	"1m": {}, "3m": {}, "5m": {}, "15m": {}, "30m": {},
	"1h": {}, "2h": {}, "4h": {}, "6h": {}, "12h": {}, "1d": {},
}

// ValidateInterval checks a candle interval against the supported set.
func ValidateInterval(interval string) error {
	if _, ok := supportedIntervals[interval]; !ok {
		return fmt.Errorf("unsupported interval %q, expected one of 1m, 3m, 5m, 15m, 30m, 1h, 2h, 4h, 6h, 12h, 1d", interval)
	}
	return nil
}

func decimalOrDefault(raw, def string) (decimal.Decimal, error) {
	if raw == "" {
		raw = def
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("value must be positive, got %s", d.String())
	}
	return d, nil
}

// PairFromString parses "BTC_USDT" into a domain pair.
func PairFromString(pairStr string) (domain.Pair, error) {
	pairElements := strings.Split(pairStr, "_")
	if len(pairElements) != 2 || pairElements[0] == "" || pairElements[1] == "" {
		return domain.Pair{}, fmt.Errorf("invalid pair %q, expected format BASE_QUOTE (e.g. BTC_USDT)", pairStr)
	}
	return domain.Pair{From: pairElements[0], To: pairElements[1]}, nil
}
