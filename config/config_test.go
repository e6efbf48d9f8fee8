package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/arbishark/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Permission.PermissionID)
	assert.Equal(t, 10.0, cfg.Permission.DailyLimitUSDC)
	assert.Equal(t, 0.02, cfg.Trading.MinSpreadThreshold)
	assert.Equal(t, 200.0, cfg.Trading.TakerFeeBps)
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.Equal(t, time.Hour, cfg.PositionTimeout())
	assert.Equal(t, 50*time.Millisecond, cfg.LatencyDelay())
	assert.Equal(t, 5*time.Second, cfg.MaxDataDelay())
	assert.Equal(t, 5*time.Minute, cfg.SafeModeCooldown())
	assert.Equal(t, "gamma", cfg.API.Backend)
	assert.Equal(t, 20, cfg.API.MarketLimit)
	assert.Equal(t, "arbishark.db", cfg.Storage.DSN)
	assert.Equal(t, ":3030", cfg.Dashboard.Addr)
	assert.Equal(t, 500, cfg.Log.BufferSize)
	assert.True(t, cfg.Safety.AssumeZero())
	assert.False(t, cfg.Permission.OnChain())
}

func TestLoad_FileValues(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
trading:
  trade_size: 12
strategy:
  blocked_markets: ["0xdead"]
safety:
  assume_zero_on_perm_error: false
api:
  backend: mock
log:
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, 12.0, cfg.Trading.TradeSize)
	assert.Equal(t, []string{"0xdead"}, cfg.Strategy.BlockedMarkets)
	assert.False(t, cfg.Safety.AssumeZero())
	assert.Equal(t, "mock", cfg.API.Backend)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 0.30, cfg.Strategy.Modes().ConservativeThreshold)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ARBISHARK_BACKEND", "mock")
	t.Setenv("ARBISHARK_DAILY_LIMIT", "42.5")
	t.Setenv("ARBISHARK_WEBHOOK_URL", "https://hooks.example/x")
	t.Setenv("ARBISHARK_DASHBOARD_ADDR", "127.0.0.1:9000")

	cfg, err := config.Load(writeConfig(t, "api:\n  backend: gamma\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "mock", cfg.API.Backend)
	assert.Equal(t, 42.5, cfg.Permission.DailyLimitUSDC)
	assert.Equal(t, "https://hooks.example/x", cfg.Notify.WebhookURL)
	assert.Equal(t, "127.0.0.1:9000", cfg.Dashboard.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.Load: read")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"defaults ok", func(*config.Config) {}, ""},
		{"unknown backend", func(c *config.Config) { c.API.Backend = "binance" }, "unknown backend"},
		{"indexer without url", func(c *config.Config) { c.API.Backend = "indexer" }, "indexer_url"},
		{"thresholds inverted", func(c *config.Config) {
			c.Strategy.ConservativeThreshold = 0.8
			c.Strategy.AggressiveThreshold = 0.2
		}, "conservative_threshold"},
		{"onchain without addresses", func(c *config.Config) { c.Permission.RPCURL = "http://rpc" }, "owner_address"},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
		{"drawdown above one", func(c *config.Config) { c.Risk.MaxDrawdown = 1.5 }, "max_drawdown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := config.Load("config.yaml")
	require.NoError(t, err)
	assert.True(t, cfg.Dashboard.Enabled)
	assert.Equal(t, 0.01, cfg.API.MockDrift)
}
