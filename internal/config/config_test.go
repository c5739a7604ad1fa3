package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
broker:
  app_key: key
  app_secret: secret
  account_no: "12345678"
trading:
  symbols: [AAPL]
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://openapi.koreainvestment.com:9443", cfg.Broker.BaseURL)
	assert.Equal(t, "NASD", cfg.Broker.OrderExchange)
	assert.Equal(t, 1000.0, cfg.Trading.BuyUnitUSD)
	assert.Equal(t, 10*time.Minute, cfg.CycleInterval())
	assert.Equal(t, time.Second, cfg.SymbolSpacing())
	assert.Equal(t, 30*time.Second, cfg.RestartBackoff())
	assert.True(t, cfg.EnforceCashCheck(), "cash check is on unless explicitly disabled")
	assert.Equal(t, model.EqualWeights, cfg.ScoreWeights())
}

func TestLoadMissingFileIsUsable(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Error(t, cfg.Validate(), "empty config must fail validation, not load")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BROKER_APP_KEY", "env-key")
	t.Setenv("BUY_UNIT_USD", "250.5")

	cfg, err := Load(writeConfig(t, `
broker:
  app_key: file-key
  app_secret: secret
  account_no: "12345678"
trading:
  symbols: [AAPL]
  buy_unit_usd: 1000
`))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Broker.AppKey)
	assert.Equal(t, 250.5, cfg.Trading.BuyUnitUSD)
}

func TestWeightSchemes(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
broker:
  app_key: key
  app_secret: secret
  account_no: "12345678"
trading:
  symbols: [AAPL]
  weight_scheme: momentum
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, model.MomentumWeights, cfg.ScoreWeights())

	cfg, err = Load(writeConfig(t, `
broker:
  app_key: key
  app_secret: secret
  account_no: "12345678"
trading:
  symbols: [AAPL]
  weight_scheme: custom
  weights:
    sentiment: 0.5
    momentum: 1.5
    oscillator: 0.25
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, model.Weights{Sentiment: 0.5, Momentum: 1.5, Oscillator: 0.25}, cfg.ScoreWeights())
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no symbols", `
broker: {app_key: k, app_secret: s, account_no: "1"}
`},
		{"unknown scheme", `
broker: {app_key: k, app_secret: s, account_no: "1"}
trading: {symbols: [AAPL], weight_scheme: sideways}
`},
		{"custom without weights", `
broker: {app_key: k, app_secret: s, account_no: "1"}
trading: {symbols: [AAPL], weight_scheme: custom}
`},
		{"negative momentum window", `
broker: {app_key: k, app_secret: s, account_no: "1"}
trading: {symbols: [AAPL], momentum_window: -3}
`},
		{"negative oscillator period", `
broker: {app_key: k, app_secret: s, account_no: "1"}
trading: {symbols: [AAPL], oscillator_period: -14}
`},
		{"negative cycle interval", `
broker: {app_key: k, app_secret: s, account_no: "1"}
trading: {symbols: [AAPL], cycle_seconds: -600}
`},
		{"negative symbol spacing", `
broker: {app_key: k, app_secret: s, account_no: "1"}
trading: {symbols: [AAPL], symbol_spacing_seconds: -1}
`},
		{"negative restart backoff", `
broker: {app_key: k, app_secret: s, account_no: "1"}
trading: {symbols: [AAPL], restart_backoff_seconds: -30}
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tc.body))
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnforceCashCheckOptOut(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
broker: {app_key: k, app_secret: s, account_no: "1"}
trading:
  symbols: [AAPL]
  enforce_cash_check: false
`))
	require.NoError(t, err)
	assert.False(t, cfg.EnforceCashCheck())
}
