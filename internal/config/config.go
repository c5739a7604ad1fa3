package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"TradePilot/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Broker struct {
		BaseURL            string `yaml:"base_url"`
		AppKey             string `yaml:"app_key"`
		AppSecret          string `yaml:"app_secret"`
		AccountNo          string `yaml:"account_no"`
		AccountProductCode string `yaml:"account_product_code"`
		QuoteExchange      string `yaml:"quote_exchange"`
		OrderExchange      string `yaml:"order_exchange"`
		TokenFile          string `yaml:"token_file"`
	} `yaml:"broker"`
	Discord struct {
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"discord"`
	News struct {
		SentimentURL string `yaml:"sentiment_url"`
	} `yaml:"news"`
	Trading struct {
		Symbols          []string `yaml:"symbols"`
		BuyUnitUSD       float64  `yaml:"buy_unit_usd"`
		MomentumWindow   int      `yaml:"momentum_window"`
		OscillatorPeriod int      `yaml:"oscillator_period"`
		WeightScheme     string   `yaml:"weight_scheme"`
		Weights          *struct {
			Sentiment  float64 `yaml:"sentiment"`
			Momentum   float64 `yaml:"momentum"`
			Oscillator float64 `yaml:"oscillator"`
		} `yaml:"weights"`
		EnforceCashCheck *bool `yaml:"enforce_cash_check"`
		Simulation       bool  `yaml:"simulation"`
		CycleSeconds     int   `yaml:"cycle_seconds"`
		IdleNotifySecs   int   `yaml:"idle_notify_seconds"`
		SpacingSeconds   int   `yaml:"symbol_spacing_seconds"`
		BackoffSeconds   int   `yaml:"restart_backoff_seconds"`
	} `yaml:"trading"`
	Ledger struct {
		SQLitePath string `yaml:"sqlite_path"`
		CSVDir     string `yaml:"csv_dir"`
	} `yaml:"ledger"`
	Report struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"report"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("BROKER_APP_KEY"); v != "" {
		cfg.Broker.AppKey = v
	}
	if v := os.Getenv("BROKER_APP_SECRET"); v != "" {
		cfg.Broker.AppSecret = v
	}
	if v := os.Getenv("BROKER_ACCOUNT_NO"); v != "" {
		cfg.Broker.AccountNo = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Discord.WebhookURL = v
	}
	if v := os.Getenv("SENTIMENT_URL"); v != "" {
		cfg.News.SentimentURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("BUY_UNIT_USD"); v != "" {
		var unit float64
		if _, err := fmt.Sscanf(v, "%f", &unit); err == nil {
			cfg.Trading.BuyUnitUSD = unit
		}
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Ledger.SQLitePath = v
	}

	// Defaults
	if cfg.Broker.BaseURL == "" {
		cfg.Broker.BaseURL = "https://openapi.koreainvestment.com:9443"
	}
	if cfg.Broker.AccountProductCode == "" {
		cfg.Broker.AccountProductCode = "01"
	}
	if cfg.Broker.QuoteExchange == "" {
		cfg.Broker.QuoteExchange = "NAS"
	}
	if cfg.Broker.OrderExchange == "" {
		cfg.Broker.OrderExchange = "NASD"
	}
	if cfg.Broker.TokenFile == "" {
		cfg.Broker.TokenFile = "data/token.json"
	}
	if cfg.Trading.BuyUnitUSD == 0 {
		cfg.Trading.BuyUnitUSD = 1000
	}
	if cfg.Trading.MomentumWindow == 0 {
		cfg.Trading.MomentumWindow = 5
	}
	if cfg.Trading.OscillatorPeriod == 0 {
		cfg.Trading.OscillatorPeriod = 14
	}
	if cfg.Trading.WeightScheme == "" {
		cfg.Trading.WeightScheme = "equal"
	}
	if cfg.Trading.CycleSeconds == 0 {
		cfg.Trading.CycleSeconds = 600
	}
	if cfg.Trading.IdleNotifySecs == 0 {
		cfg.Trading.IdleNotifySecs = 1800
	}
	if cfg.Trading.SpacingSeconds == 0 {
		cfg.Trading.SpacingSeconds = 1
	}
	if cfg.Trading.BackoffSeconds == 0 {
		cfg.Trading.BackoffSeconds = 30
	}
	if cfg.Report.DailyCron == "" {
		cfg.Report.DailyCron = "0 30 16 * * 1-5"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Broker.AppKey == "" {
		return fmt.Errorf("broker.app_key is required")
	}
	if c.Broker.AppSecret == "" {
		return fmt.Errorf("broker.app_secret is required")
	}
	if c.Broker.AccountNo == "" {
		return fmt.Errorf("broker.account_no is required")
	}
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("trading.symbols must list at least one symbol")
	}
	if c.Trading.BuyUnitUSD <= 0 {
		return fmt.Errorf("trading.buy_unit_usd must be positive")
	}
	if c.Trading.MomentumWindow <= 0 {
		return fmt.Errorf("trading.momentum_window must be positive")
	}
	if c.Trading.OscillatorPeriod <= 0 {
		return fmt.Errorf("trading.oscillator_period must be positive")
	}
	if c.Trading.CycleSeconds <= 0 {
		return fmt.Errorf("trading.cycle_seconds must be positive")
	}
	if c.Trading.IdleNotifySecs <= 0 {
		return fmt.Errorf("trading.idle_notify_seconds must be positive")
	}
	if c.Trading.SpacingSeconds <= 0 {
		return fmt.Errorf("trading.symbol_spacing_seconds must be positive")
	}
	if c.Trading.BackoffSeconds <= 0 {
		return fmt.Errorf("trading.restart_backoff_seconds must be positive")
	}
	switch c.Trading.WeightScheme {
	case "equal", "momentum":
	case "custom":
		if c.Trading.Weights == nil {
			return fmt.Errorf("trading.weights is required for the custom weight scheme")
		}
	default:
		return fmt.Errorf("unknown trading.weight_scheme %q", c.Trading.WeightScheme)
	}
	return nil
}

// ScoreWeights resolves the configured weight scheme.
func (c *Config) ScoreWeights() model.Weights {
	switch c.Trading.WeightScheme {
	case "momentum":
		return model.MomentumWeights
	case "custom":
		if w := c.Trading.Weights; w != nil {
			return model.Weights{Sentiment: w.Sentiment, Momentum: w.Momentum, Oscillator: w.Oscillator}
		}
		return model.EqualWeights
	default:
		return model.EqualWeights
	}
}

// EnforceCashCheck defaults to true: skipping the local cash guard is
// an explicit opt-out.
func (c *Config) EnforceCashCheck() bool {
	if c.Trading.EnforceCashCheck == nil {
		return true
	}
	return *c.Trading.EnforceCashCheck
}

// CycleInterval returns the trading cycle interval.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.Trading.CycleSeconds) * time.Second
}

// IdleNotifyEvery returns the idle-notification rate limit.
func (c *Config) IdleNotifyEvery() time.Duration {
	return time.Duration(c.Trading.IdleNotifySecs) * time.Second
}

// SymbolSpacing returns the minimum gap between per-symbol API bursts.
func (c *Config) SymbolSpacing() time.Duration {
	return time.Duration(c.Trading.SpacingSeconds) * time.Second
}

// RestartBackoff returns the supervisor's pause before a restart.
func (c *Config) RestartBackoff() time.Duration {
	return time.Duration(c.Trading.BackoffSeconds) * time.Second
}
