package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/s0up4200/lolzmarket/lolz"
)

// EnvPrefix prefixes environment overrides, e.g. LOLZ_API_TOKEN
const EnvPrefix = "LOLZ"

// Load loads the configuration from file and environment. A missing config
// file is fine unless configPath names one explicitly; the token can come
// from LOLZ_API_TOKEN or a .env file.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".lolzmarket"))
		}
		v.AddConfigPath("/etc/lolzmarket/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values. Every key that may come
// from the environment needs a default for viper to bind it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.token", "")
	v.SetDefault("api.client_id", "")
	v.SetDefault("api.client_secret", "")
	v.SetDefault("api.scopes", []string{"basic", "read", "market"})
	v.SetDefault("api.base_url", lolz.DefaultBaseURL)
	v.SetDefault("api.transfer_url", lolz.DefaultTransferURL)
	v.SetDefault("api.user_agent", "lolzmarket")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.retry_max", 3)
	v.SetDefault("api.rate_limit", 20)
	v.SetDefault("api.rate_burst", 1)

	v.SetDefault("filter.workers", 0)
	v.SetDefault("filter.cache_size", 100)

	v.SetDefault("watch.timeout", "2m")
	v.SetDefault("watch.store.type", "memory")
	v.SetDefault("watch.store.redis.addr", "localhost:6379")
	v.SetDefault("watch.store.redis.password", "")
	v.SetDefault("watch.store.redis.db", 0)
	v.SetDefault("watch.store.redis.prefix", "lolzmarket:seen:")
	v.SetDefault("watch.store.redis.ttl", "168h")

	v.SetDefault("notify.log", true)
	v.SetDefault("notify.nats.enabled", false)
	v.SetDefault("notify.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("notify.nats.subject", "lolzmarket.matches")
	v.SetDefault("notify.nats.name", "lolzmarket")

	v.SetDefault("safety.dry_run", false)
	v.SetDefault("safety.confirm_purchase", true)
	v.SetDefault("safety.confirm_transfer", true)
	v.SetDefault("safety.confirm_delete", true)

	v.SetDefault("output.format", "table")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.API.Token == "" && (cfg.API.ClientID == "" || cfg.API.ClientSecret == "") {
		return fmt.Errorf("api.token (or LOLZ_API_TOKEN) or api.client_id and api.client_secret must be set")
	}
	if cfg.API.Token == "your-token-here" {
		return fmt.Errorf("api.token must be set to a valid token")
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if cfg.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	validOutputs := map[string]bool{
		"table": true,
		"json":  true,
		"yaml":  true,
	}
	if !validOutputs[cfg.Output.Format] {
		return fmt.Errorf("invalid output format: %s (must be table, json or yaml)", cfg.Output.Format)
	}

	for name, expr := range cfg.Filter.Presets {
		if strings.TrimSpace(expr) == "" {
			return fmt.Errorf("filter preset '%s' is empty", name)
		}
	}

	switch cfg.Watch.Store.Type {
	case "memory":
	case "redis":
		if cfg.Watch.Store.Redis.Addr == "" {
			return fmt.Errorf("watch.store.redis.addr is required for the redis store")
		}
	default:
		return fmt.Errorf("invalid watch.store.type: %s (must be 'memory' or 'redis')", cfg.Watch.Store.Type)
	}

	if cfg.Notify.NATS.Enabled && cfg.Notify.NATS.URL == "" {
		return fmt.Errorf("notify.nats.url is required when NATS notifications are enabled")
	}

	names := make(map[string]bool, len(cfg.Watch.Watches))
	for i, w := range cfg.Watch.Watches {
		if err := validateWatch(w); err != nil {
			return fmt.Errorf("watch.watches[%d]: %w", i, err)
		}
		if names[w.Name] {
			return fmt.Errorf("watch.watches[%d]: duplicate name %s", i, w.Name)
		}
		names[w.Name] = true
	}

	return nil
}

func validateWatch(w WatchEntry) error {
	if w.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := lolz.ParseCategory(w.Category); err != nil {
		return fmt.Errorf("%s: %w", w.Name, err)
	}
	if _, err := cron.ParseStandard(w.Schedule); err != nil {
		return fmt.Errorf("%s: invalid schedule %q: %w", w.Name, w.Schedule, err)
	}
	if w.PriceMax > 0 && w.PriceMin > w.PriceMax {
		return fmt.Errorf("%s: price_min exceeds price_max", w.Name)
	}
	if w.AutoBuy && w.MaxPrice <= 0 {
		return fmt.Errorf("%s: auto_buy needs a positive max_price", w.Name)
	}
	return nil
}
