package exchange

import (
	"context"
	"errors"
	"testing"

	ccxt "github.com/ccxt/ccxt/go/v4"

	"github.com/tathienbao/futures-orders/internal/types"
)

func TestToUnified(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BTCUSDT", "BTC/USDT:USDT"},
		{"ETHUSDT", "ETH/USDT:USDT"},
		{"ADAUSDT", "ADA/USDT:USDT"},
		{"BTC/USDT:USDT", "BTC/USDT:USDT"},
		{"USDT", "USDT"},
		{"BTCBUSD", "BTCBUSD"},
	}

	for _, tt := range tests {
		if got := ToUnified(tt.in); got != tt.want {
			t.Errorf("ToUnified(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClient_ValidateSymbol(t *testing.T) {
	c := &Client{
		markets: map[string]bool{
			"BTC/USDT:USDT": true,
			"XRP/USDT:USDT": true,
		},
		marketsLoaded: true,
	}

	// XRPUSDT is outside the simulated whitelist but listed live.
	if err := c.ValidateSymbol(context.Background(), "XRPUSDT"); err != nil {
		t.Fatalf("ValidateSymbol(XRPUSDT) error: %v", err)
	}
	if err := c.ValidateSymbol(context.Background(), "BTCUSDT"); err != nil {
		t.Fatalf("ValidateSymbol(BTCUSDT) error: %v", err)
	}

	err := c.ValidateSymbol(context.Background(), "NOPEUSDT")
	if !errors.Is(err, types.ErrInvalidSymbol) {
		t.Errorf("ValidateSymbol(NOPEUSDT) error = %v, want ErrInvalidSymbol", err)
	}
}

func TestClassifyError(t *testing.T) {
	if _, retry := classifyError(nil); retry {
		t.Error("nil error should not be retryable")
	}

	rateLimited := &ccxt.Error{Type: ccxt.RateLimitExceededErrType, Message: "slow down"}
	if _, retry := classifyError(rateLimited); !retry {
		t.Error("rate limit errors should be retryable")
	}

	rejected := &ccxt.Error{Type: ccxt.InvalidOrderErrType, Message: "bad order"}
	if _, retry := classifyError(rejected); retry {
		t.Error("rejected orders should not be retryable")
	}

	maintenance := &ccxt.Error{Type: ccxt.OnMaintenanceErrType, Message: "back soon"}
	norm, retry := classifyError(maintenance)
	if retry {
		t.Error("maintenance should not be retryable")
	}
	if !errors.Is(norm, ErrMaintenance) {
		t.Errorf("maintenance error = %v, want ErrMaintenance", norm)
	}
}
