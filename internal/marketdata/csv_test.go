package marketdata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

const sampleCSV = `symbol,timestamp,close
BTCUSDT,2024-01-01 00:00:00,42000.50
BTCUSDT,2024-01-01 01:00:00,42100.25
BTCUSDT,2024-01-01 02:00:00,41950.00
ETHUSDT,2024-01-01 00:00:00,2250.10
bad row
ETHUSDT,2024-01-01 01:00:00,not-a-number
ETHUSDT,2024-01-01 02:00:00,2275.40
`

func TestParseCSV(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseCSV() error: %v", err)
	}

	if len(rows["BTCUSDT"]) != 3 {
		t.Errorf("BTCUSDT rows = %d, want 3", len(rows["BTCUSDT"]))
	}
	// Two valid ETH rows; the malformed line and bad close are skipped.
	if len(rows["ETHUSDT"]) != 2 {
		t.Errorf("ETHUSDT rows = %d, want 2", len(rows["ETHUSDT"]))
	}

	want := decimal.RequireFromString("42000.50")
	if !rows["BTCUSDT"][0].Close.Equal(want) {
		t.Errorf("first BTC close = %s, want %s", rows["BTCUSDT"][0].Close, want)
	}
}

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCSVSource_LatestPrice(t *testing.T) {
	src := NewCSVSource(writeTempCSV(t, sampleCSV))
	ctx := context.Background()

	got, err := src.LatestPrice(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("LatestPrice() error: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("41950.00")) {
		t.Errorf("LatestPrice() = %s, want 41950.00", got)
	}
}

func TestCSVSource_PriceAt_Clamped(t *testing.T) {
	src := NewCSVSource(writeTempCSV(t, sampleCSV))
	ctx := context.Background()

	tests := []struct {
		step int
		want string
	}{
		{0, "42000.50"},
		{1, "42100.25"},
		{2, "41950.00"},
		{99, "41950.00"}, // clamped to last row
		{-1, "42000.50"}, // clamped to first row
	}

	for _, tt := range tests {
		got, err := src.PriceAt(ctx, "BTCUSDT", tt.step)
		if err != nil {
			t.Fatalf("PriceAt(%d) error: %v", tt.step, err)
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("PriceAt(%d) = %s, want %s", tt.step, got, tt.want)
		}
	}
}

func TestCSVSource_UnknownSymbolDefaults(t *testing.T) {
	src := NewCSVSource(writeTempCSV(t, sampleCSV))

	got, err := src.LatestPrice(context.Background(), "ADAUSDT")
	if err != nil {
		t.Fatalf("LatestPrice() error: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("LatestPrice(ADAUSDT) = %s, want default 0.5", got)
	}
}

func TestCSVSource_MissingFileDefaults(t *testing.T) {
	src := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv"))

	got, err := src.LatestPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("LatestPrice() error: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("45000")) {
		t.Errorf("LatestPrice() = %s, want default 45000", got)
	}
}

func TestStaticSource(t *testing.T) {
	src := NewStaticSource(map[string]decimal.Decimal{
		"BTCUSDT": decimal.NewFromInt(50000),
	})

	got, _ := src.PriceAt(context.Background(), "BTCUSDT", 7)
	if !got.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("PriceAt() = %s, want 50000", got)
	}
}
