package config

import (
	"errors"
	"os"
	"testing"

	"github.com/tathienbao/futures-orders/internal/types"
)

func TestLoadFromBytes_Defaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(""))
	if err != nil {
		t.Fatalf("LoadFromBytes() error: %v", err)
	}

	if !cfg.Exchange.Testnet {
		t.Error("expected testnet to default to true")
	}
	if cfg.Execution.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.Execution.MaxRetries)
	}
	if cfg.Data.PricesCSV != "data/historical_prices.csv" {
		t.Errorf("unexpected prices csv default: %s", cfg.Data.PricesCSV)
	}
}

func TestLoadFromBytes_Overrides(t *testing.T) {
	yaml := `
execution:
  max_retries: 5
  retry_delay_ms: 100
simulation:
  slippage_pct: 0.001
  seed: 42
logging:
  format: json
`
	cfg, err := LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadFromBytes() error: %v", err)
	}

	if cfg.Execution.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.Execution.MaxRetries)
	}
	if cfg.Simulation.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Simulation.Seed)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Format = %s, want json", cfg.Logging.Format)
	}
}

func TestLoadFromBytes_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/tmp/orders-test.db")

	cfg, err := LoadFromBytes([]byte("logging:\n  db_path: ${TEST_DB_PATH}\n"))
	if err != nil {
		t.Fatalf("LoadFromBytes() error: %v", err)
	}
	if cfg.Logging.DBPath != "/tmp/orders-test.db" {
		t.Errorf("DBPath = %s, want expanded env value", cfg.Logging.DBPath)
	}
}

func TestLoadFromBytes_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative retries", "execution:\n  max_retries: -1\n"},
		{"slippage too large", "simulation:\n  slippage_pct: 0.5\n"},
		{"bad log format", "logging:\n  format: xml\n"},
		{"bad metrics port", "metrics:\n  enabled: true\n  port: 99999\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.yaml))
			if !errors.Is(err, types.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestApplyEnv_Credentials(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "key-from-env")
	t.Setenv("BINANCE_SECRET_KEY", "secret-from-env")
	t.Setenv("TESTNET", "false")

	cfg := Default()
	cfg.applyEnv()

	if cfg.Exchange.APIKey != "key-from-env" {
		t.Errorf("APIKey = %s, want key-from-env", cfg.Exchange.APIKey)
	}
	if !cfg.HasCredentials() {
		t.Error("expected HasCredentials() to be true")
	}
	if cfg.Exchange.Testnet {
		t.Error("expected TESTNET=false to disable testnet")
	}
}

func TestRequireCredentials(t *testing.T) {
	os.Unsetenv("BINANCE_API_KEY")
	os.Unsetenv("BINANCE_SECRET_KEY")

	cfg := Default()
	if err := cfg.RequireCredentials(); !errors.Is(err, types.ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}

	cfg.Exchange.APIKey = "k"
	cfg.Exchange.APISecret = "s"
	if err := cfg.RequireCredentials(); err != nil {
		t.Errorf("unexpected error with credentials set: %v", err)
	}
}
