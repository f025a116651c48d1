package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Shisan
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Market      MarketConfig    `toml:"market"`
	Clients     ClientsConfig   `toml:"clients"`
	Estimator   EstimatorConfig `toml:"estimator"`
	Rebalance   RebalanceConfig `toml:"rebalance"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds the embedded store location.
type StorageConfig struct {
	Path string `toml:"path"`
}

// MarketConfig controls the market-data subsystem. When Enabled is false the
// provider factory wires noop providers and every quote request fails with
// ErrMarketDisabled.
type MarketConfig struct {
	Enabled bool   `toml:"enabled"`
	Primary string `toml:"primary"` // preferred source when composite quotes agree
}

// ClientsConfig holds upstream client configurations
type ClientsConfig struct {
	Yahoo         YahooConfig         `toml:"yahoo"`
	GoogleFinance GoogleFinanceConfig `toml:"googlefinance"`
	Tanaka        TanakaConfig        `toml:"tanaka"`
}

// YahooConfig holds Yahoo Finance chart API configuration
type YahooConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// GoogleFinanceConfig holds Google Finance scrape configuration
type GoogleFinanceConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *GoogleFinanceConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// TanakaConfig holds Tanaka Kikinzoku precious-metal page configuration
type TanakaConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *TanakaConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 12 * time.Second
	}
	return d
}

// EstimatorConfig holds comparable-sales estimator defaults
type EstimatorConfig struct {
	HalfLifeDays int    `toml:"half_life_days"`
	Method       string `toml:"method"` // "wmad" or "wmean"
}

// RebalanceConfig holds rebalance planner defaults
type RebalanceConfig struct {
	TolerancePct float64 `toml:"tolerance_pct"`
	MinTradeJPY  float64 `toml:"min_trade_jpy"`
	AdjustTo     string  `toml:"adjust_to"` // "target" or "mid"
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3009,
		},
		Storage: StorageConfig{
			Path: "data/shisan",
		},
		Market: MarketConfig{
			Enabled: false,
			Primary: "yahoo",
		},
		Clients: ClientsConfig{
			Yahoo: YahooConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 5,
				Timeout:   "15s",
			},
			GoogleFinance: GoogleFinanceConfig{
				BaseURL: "https://www.google.com/finance/quote",
				Timeout: "15s",
			},
			Tanaka: TanakaConfig{
				BaseURL: "https://gold.tanaka.co.jp/commodity/souba/",
				Timeout: "12s",
			},
		},
		Estimator: EstimatorConfig{
			HalfLifeDays: 90,
			Method:       "wmad",
		},
		Rebalance: RebalanceConfig{
			TolerancePct: 5,
			MinTradeJPY:  10000,
			AdjustTo:     "target",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SHISAN_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("SHISAN_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("SHISAN_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("SHISAN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("SHISAN_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if v := os.Getenv("SHISAN_MARKET_ENABLE"); v != "" {
		config.Market.Enabled = v == "1" || strings.EqualFold(v, "true")
	}

	if v := os.Getenv("SHISAN_MARKET_PRIMARY"); v != "" {
		config.Market.Primary = strings.ToLower(v)
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
