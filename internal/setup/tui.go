// Package setup provides the interactive configuration wizard.
package setup

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/avolkov/bandbot/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

type wizardConfig struct {
	Platform     string        `yaml:"platform"`
	Pair         string        `yaml:"pair"`
	Interval     string        `yaml:"interval"`
	Window       int           `yaml:"window"`
	NumStdDev    string        `yaml:"num_std_dev"`
	BuyFactor    string        `yaml:"buy_factor"`
	TakeProfit   string        `yaml:"take_profit"`
	PollInterval time.Duration `yaml:"poll_interval"`
	OrderType    string        `yaml:"order_type"`
	HistoryLimit int           `yaml:"history_limit"`
	WebAddr      string        `yaml:"web_addr"`
}

// RunTUI launches the terminal configuration wizard and writes config.yaml.
func RunTUI() error {
	var (
		platform        string
		pair            string
		interval        string
		windowStr       string
		numStdStr       string
		buyFactorStr    string
		takeProfitStr   string
		pollIntervalStr string
		orderType       string
		confirm         bool
	)

	// defaults
	interval = config.DefaultInterval
	windowStr = strconv.Itoa(config.DefaultWindow)
	numStdStr = config.DefaultNumStdDev
	buyFactorStr = config.DefaultBuyFactor
	takeProfitStr = config.DefaultTakeProfit
	pollIntervalStr = config.DefaultPollInterval.String()
	orderType = config.DefaultOrderType

	clearScreen()
	fmt.Println(headerStyle.Render("BANDBOT CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Volatility bands, one position, fixed target.\n"))

	fmt.Println(stepStyle.Render("STEP 1: PLATFORM"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Exchange Platform").
				Options(
					huh.NewOption("Binance", "binance"),
					huh.NewOption("Bybit", "bybit"),
					huh.NewOption("Simulation", "simulate"),
				).
				Value(&platform),
		),
	).Run()
	if err != nil {
		return err
	}

	clearScreen()
	fmt.Println(headerStyle.Render("BANDBOT CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: ASSET"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Trading Pair").
				Description("Must contain underscore (e.g. BTC_USDT)").
				Value(&pair).
				Validate(func(s string) error {
					_, err := config.PairFromString(s)
					return err
				}),
			huh.NewInput().
				Title("Candle Interval").
				Description("Candle interval (e.g. 15m, 1h, 1d)").
				Value(&interval).
				Validate(config.ValidateInterval),
		),
	).Run()
	if err != nil {
		return err
	}

	clearScreen()
	fmt.Println(headerStyle.Render("BANDBOT CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: BAND SETTINGS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Band Window").
				Description("Closed candles in the rolling window (e.g. 8)").
				Value(&windowStr).
				Validate(validateWindow),
			huh.NewInput().
				Title("Std Dev Multiplier").
				Description("Band width in standard deviations (e.g. 1)").
				Value(&numStdStr).
				Validate(validatePositiveDecimal),
			huh.NewInput().
				Title("Buy Factor").
				Description("Lower band multiplier for entries (e.g. 0.986)").
				Value(&buyFactorStr).
				Validate(validateBuyFactor),
			huh.NewInput().
				Title("Take Profit Ratio").
				Description("Exit threshold over entry price (e.g. 0.012 for 1.2%)").
				Value(&takeProfitStr).
				Validate(validatePositiveDecimal),
		),
	).Run()
	if err != nil {
		return err
	}

	clearScreen()
	fmt.Println(headerStyle.Render("BANDBOT CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: EXECUTION"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Order Type").
				Options(
					huh.NewOption("Market", "MARKET"),
					huh.NewOption("Limit", "LIMIT"),
				).
				Value(&orderType),
			huh.NewInput().
				Title("Poll Interval").
				Description("Duration between reconciliation ticks (e.g. 1m)").
				Value(&pollIntervalStr).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	pollInterval, err := time.ParseDuration(pollIntervalStr)
	if err != nil {
		return err
	}
	window, err := strconv.Atoi(windowStr)
	if err != nil {
		return err
	}

	cfg := wizardConfig{
		Platform:     platform,
		Pair:         strings.ToUpper(pair),
		Interval:     interval,
		Window:       window,
		NumStdDev:    numStdStr,
		BuyFactor:    buyFactorStr,
		TakeProfit:   takeProfitStr,
		PollInterval: pollInterval,
		OrderType:    orderType,
		HistoryLimit: config.DefaultHistoryLimit,
		WebAddr:      config.DefaultWebAddr,
	}

	payload, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	clearScreen()
	fmt.Println(headerStyle.Render("BANDBOT CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 5: CONFIRM"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render(string(payload)))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Write config.yaml?").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		fmt.Println("aborted, nothing written")
		return nil
	}

	if err := os.WriteFile("config.yaml", payload, 0o644); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render("config.yaml written, start the bot with: bandbot --config config.yaml"))
	if platform == "binance" || platform == "bybit" {
		fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render(
			fmt.Sprintf("remember to export %s_API_KEY and %s_API_SECRET", strings.ToUpper(platform), strings.ToUpper(platform))))
	}
	return nil
}

func clearScreen() {
	fmt.Print("\033[H\033[2J")
}

func validateWindow(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n < 2 {
		return fmt.Errorf("window must be at least 2")
	}
	return nil
}

func validatePositiveDecimal(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a decimal number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateBuyFactor(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a decimal number")
	}
	if !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("must be in (0, 1]")
	}
	return nil
}
