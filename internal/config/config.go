// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tathienbao/futures-orders/internal/types"
)

// Config represents the full application configuration.
type Config struct {
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Data       DataConfig       `yaml:"data"`
	Execution  ExecutionConfig  `yaml:"execution"`
	Simulation SimulationConfig `yaml:"simulation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ExchangeConfig holds exchange connectivity settings. Credentials are
// normally supplied through the environment rather than the YAML file.
type ExchangeConfig struct {
	APIKey             string `yaml:"api_key"`
	APISecret          string `yaml:"api_secret"`
	Testnet            bool   `yaml:"testnet"`
	RateLimitPerSecond int    `yaml:"rate_limit_per_second"`
}

// DataConfig holds paths to the tabular data sources.
type DataConfig struct {
	PricesCSV    string `yaml:"prices_csv"`
	SentimentCSV string `yaml:"sentiment_csv"`
}

// ExecutionConfig holds per-slice submission settings.
type ExecutionConfig struct {
	MaxRetries   int `yaml:"max_retries"`
	RetryDelayMs int `yaml:"retry_delay_ms"`
	MaxDelayMs   int `yaml:"max_delay_ms"`
}

// SimulationConfig holds fill synthesis settings.
type SimulationConfig struct {
	SlippagePct float64 `yaml:"slippage_pct"` // max perturbation, e.g. 0.002 = 0.2%
	Seed        int64   `yaml:"seed"`         // 0 = time-based
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
	DBPath string `yaml:"db_path"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			Testnet:            true,
			RateLimitPerSecond: 5,
		},
		Data: DataConfig{
			PricesCSV:    "data/historical_prices.csv",
			SentimentCSV: "data/fear_greed.csv",
		},
		Execution: ExecutionConfig{
			MaxRetries:   2,
			RetryDelayMs: 500,
			MaxDelayMs:   5000,
		},
		Simulation: SimulationConfig{
			SlippagePct: 0.002,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			DBPath: "orders.db",
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
	}
}

// Load loads configuration from a YAML file, layered over defaults. An
// empty path or a missing default file falls back to Default(). A `.env`
// file in the working directory is consulted for credentials first, then
// the process environment.
func Load(path string) (*Config, error) {
	// Ignore a missing .env; environment variables still apply.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := unmarshalInto(cfg, data); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromBytes loads configuration from YAML bytes, layered over defaults.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := Default()
	if err := unmarshalInto(cfg, data); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func unmarshalInto(cfg *Config, data []byte) error {
	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// applyEnv overlays credential and testnet settings from the environment,
// matching the variable names the exchange scripts have always used.
func (c *Config) applyEnv() {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("BINANCE_SECRET_KEY"); v != "" {
		c.Exchange.APISecret = v
	}
	if v := os.Getenv("TESTNET"); v != "" {
		c.Exchange.Testnet = strings.EqualFold(strings.TrimSpace(v), "true")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Execution.MaxRetries < 0 {
		errs = append(errs, "execution.max_retries must not be negative")
	}
	if c.Execution.RetryDelayMs <= 0 {
		c.Execution.RetryDelayMs = 500 // default
	}
	if c.Execution.MaxDelayMs < c.Execution.RetryDelayMs {
		c.Execution.MaxDelayMs = c.Execution.RetryDelayMs
	}

	if c.Simulation.SlippagePct < 0 || c.Simulation.SlippagePct > 0.05 {
		errs = append(errs, "simulation.slippage_pct must be between 0 and 0.05")
	}

	if c.Exchange.RateLimitPerSecond <= 0 {
		c.Exchange.RateLimitPerSecond = 5 // default
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, "logging.format must be 'text' or 'json'")
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		errs = append(errs, "metrics.port must be a valid port")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", types.ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

// HasCredentials reports whether both API credentials are present.
func (c *Config) HasCredentials() bool {
	return c.Exchange.APIKey != "" && c.Exchange.APISecret != ""
}

// RequireCredentials fails when live trading is requested without keys.
// This aborts before any order activity.
func (c *Config) RequireCredentials() error {
	if !c.HasCredentials() {
		return types.ErrMissingCredentials
	}
	return nil
}

// RetryDelay returns the initial retry delay duration.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Execution.RetryDelayMs) * time.Millisecond
}

// MaxRetryDelay returns the backoff ceiling.
func (c *Config) MaxRetryDelay() time.Duration {
	return time.Duration(c.Execution.MaxDelayMs) * time.Millisecond
}
