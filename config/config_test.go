package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func validConfig() *Config {
	return &Config{
		API:     APIConfig{Token: "token"},
		Watch:   WatchConfig{Store: StoreConfig{Type: "memory"}},
		Output:  OutputConfig{Format: "table"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
api:
  token: file-token
  timeout: 10s
  rate_limit: 30
filter:
  presets:
    cheap-tg: 'inCategory("telegram") and Price < 100'
watch:
  store:
    type: redis
    redis:
      addr: redis:6379
      ttl: 24h
  watches:
    - name: tg
      category: telegram
      schedule: "@every 1m"
      filter: cheap-tg
      price_max: 200
      params:
        order_by: price_to_up
      auto_buy: true
      max_price: 50
notify:
  nats:
    enabled: true
    url: nats://nats:4222
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.API.Token)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 30, cfg.API.RateLimit)
	assert.Equal(t, 3, cfg.API.RetryMax, "default kept")
	assert.Equal(t, []string{"basic", "read", "market"}, cfg.API.Scopes)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "table", cfg.Output.Format)
	assert.True(t, cfg.Safety.ConfirmPurchase)

	assert.Equal(t, `inCategory("telegram") and Price < 100`, cfg.Filter.Presets["cheap-tg"])
	assert.Equal(t, 100, cfg.Filter.CacheSize, "default kept")

	assert.Equal(t, "redis", cfg.Watch.Store.Type)
	assert.Equal(t, 24*time.Hour, cfg.Watch.Store.Redis.TTL)
	require.Len(t, cfg.Watch.Watches, 1)
	w := cfg.Watch.Watches[0]
	assert.Equal(t, "tg", w.Name)
	assert.Equal(t, "@every 1m", w.Schedule)
	assert.InDelta(t, 200, w.PriceMax, 0.001)
	assert.Equal(t, "price_to_up", w.Params["order_by"])
	assert.True(t, w.AutoBuy)

	assert.True(t, cfg.Notify.NATS.Enabled)
	assert.Equal(t, "lolzmarket.matches", cfg.Notify.NATS.Subject)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LOLZ_API_TOKEN", "env-token")
	t.Setenv("LOLZ_OUTPUT_FORMAT", "json")

	path := writeConfig(t, "logging:\n  level: warn\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.API.Token)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadWithoutConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOLZ_API_TOKEN", "env-token")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.API.Token)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOLZ_API_TOKEN=dotenv-token\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("LOLZ_API_TOKEN") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dotenv-token", cfg.API.Token)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	t.Setenv("LOLZ_API_TOKEN", "env-token")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:   "client credentials instead of token",
			mutate: func(c *Config) { c.API = APIConfig{ClientID: "id", ClientSecret: "secret"} },
		},
		{
			name:    "no credentials",
			mutate:  func(c *Config) { c.API.Token = "" },
			wantErr: "api.token",
		},
		{
			name:    "placeholder token",
			mutate:  func(c *Config) { c.API.Token = "your-token-here" },
			wantErr: "valid token",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: "invalid logging level",
		},
		{
			name:    "bad output",
			mutate:  func(c *Config) { c.Output.Format = "csv" },
			wantErr: "invalid output format",
		},
		{
			name:    "bad store",
			mutate:  func(c *Config) { c.Watch.Store.Type = "etcd" },
			wantErr: "watch.store.type",
		},
		{
			name:    "empty preset",
			mutate:  func(c *Config) { c.Filter.Presets = map[string]string{"x": " "} },
			wantErr: "preset 'x'",
		},
		{
			name: "unknown category",
			mutate: func(c *Config) {
				c.Watch.Watches = []WatchEntry{{Name: "w", Category: "nope", Schedule: "@hourly"}}
			},
			wantErr: "unknown category",
		},
		{
			name: "bad schedule",
			mutate: func(c *Config) {
				c.Watch.Watches = []WatchEntry{{Name: "w", Category: "steam", Schedule: "sometimes"}}
			},
			wantErr: "invalid schedule",
		},
		{
			name: "auto buy without cap",
			mutate: func(c *Config) {
				c.Watch.Watches = []WatchEntry{{Name: "w", Category: "steam", Schedule: "@hourly", AutoBuy: true}}
			},
			wantErr: "max_price",
		},
		{
			name: "duplicate names",
			mutate: func(c *Config) {
				c.Watch.Watches = []WatchEntry{
					{Name: "w", Category: "steam", Schedule: "@hourly"},
					{Name: "w", Category: "1", Schedule: "*/5 * * * *"},
				}
			},
			wantErr: "duplicate name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
