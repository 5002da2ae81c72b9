package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Safety  SafetyConfig  `mapstructure:"safety"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig holds market API connection details
type APIConfig struct {
	Token        string        `mapstructure:"token"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Scopes       []string      `mapstructure:"scopes"`
	BaseURL      string        `mapstructure:"base_url"`
	TransferURL  string        `mapstructure:"transfer_url"`
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryMax     int           `mapstructure:"retry_max"`
	RateLimit    int           `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
}

// FilterConfig contains filter settings
type FilterConfig struct {
	// Presets maps a name to a filter expression
	Presets map[string]string `mapstructure:"presets"`
	Workers int               `mapstructure:"workers"`
	// CacheSize bounds the compiled expression cache, 0 disables it
	CacheSize int `mapstructure:"cache_size"`
}

// WatchConfig configures the market watcher
type WatchConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Store   StoreConfig   `mapstructure:"store"`
	Watches []WatchEntry  `mapstructure:"watches"`
}

// WatchEntry is one scheduled market search
type WatchEntry struct {
	Name           string            `mapstructure:"name"`
	Category       string            `mapstructure:"category"`
	Schedule       string            `mapstructure:"schedule"`
	Filter         string            `mapstructure:"filter"`
	Title          string            `mapstructure:"title"`
	PriceMin       float64           `mapstructure:"price_min"`
	PriceMax       float64           `mapstructure:"price_max"`
	Params         map[string]string `mapstructure:"params"`
	AutoBuy        bool              `mapstructure:"auto_buy"`
	MaxPrice       float64           `mapstructure:"max_price"`
	MaxBuysPerPoll int               `mapstructure:"max_buys_per_poll"`
}

// StoreConfig selects where seen items are remembered
type StoreConfig struct {
	Type  string      `mapstructure:"type"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// NotifyConfig configures match notifications
type NotifyConfig struct {
	Log  bool       `mapstructure:"log"`
	NATS NATSConfig `mapstructure:"nats"`
}

// NATSConfig holds NATS connection details
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
	Name    string `mapstructure:"name"`
}

// SafetyConfig contains safety-related settings
type SafetyConfig struct {
	DryRun          bool `mapstructure:"dry_run"`
	ConfirmPurchase bool `mapstructure:"confirm_purchase"`
	ConfirmTransfer bool `mapstructure:"confirm_transfer"`
	ConfirmDelete   bool `mapstructure:"confirm_delete"`
}

// OutputConfig controls command output
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
