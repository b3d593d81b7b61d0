package sentiment

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tathienbao/futures-orders/internal/types"
)

func TestAllow(t *testing.T) {
	tests := []struct {
		name  string
		side  types.Side
		index int
		want  bool
	}{
		{"buy in fear", types.SideBuy, 15, true},
		{"sell in fear", types.SideSell, 15, false},
		{"buy in greed", types.SideBuy, 85, false},
		{"sell in greed", types.SideSell, 85, true},
		{"buy neutral", types.SideBuy, 50, true},
		{"sell neutral", types.SideSell, 50, true},
		{"buy at greed boundary", types.SideBuy, 60, true},
		{"sell at fear boundary", types.SideSell, 40, true},
		{"buy just past boundary", types.SideBuy, 61, false},
		{"sell just past boundary", types.SideSell, 39, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allow(tt.side, tt.index); got != tt.want {
				t.Errorf("Allow(%s, %d) = %v, want %v", tt.side, tt.index, got, tt.want)
			}
		})
	}
}

func TestGridCaution(t *testing.T) {
	if GridCaution(70) {
		t.Error("index 70 should not trigger caution")
	}
	if !GridCaution(71) {
		t.Error("index 71 should trigger caution")
	}
}

const sampleCSV = `date,fear_greed_index
2024-01-01,25
2024-01-02,48
bad row
2024-01-03,120
2024-01-04,72
`

func TestParseCSV(t *testing.T) {
	readings, err := ParseCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseCSV() error: %v", err)
	}

	// Malformed row and out-of-range index are skipped.
	if len(readings) != 3 {
		t.Fatalf("readings = %d, want 3", len(readings))
	}
	if readings[0].Index != 25 {
		t.Errorf("first index = %d, want 25", readings[0].Index)
	}
	if readings[2].Index != 72 {
		t.Errorf("last index = %d, want 72", readings[2].Index)
	}
}

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fear_greed.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSource_Latest(t *testing.T) {
	src := NewSource(writeTempCSV(t, sampleCSV))

	got := src.Latest()
	if got.Index != 72 {
		t.Errorf("Latest().Index = %d, want 72", got.Index)
	}
}

func TestSource_On(t *testing.T) {
	src := NewSource(writeTempCSV(t, sampleCSV))

	day := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	if got := src.On(day); got.Index != 48 {
		t.Errorf("On(2024-01-02).Index = %d, want 48", got.Index)
	}

	// Unknown date falls back to the latest reading.
	missing := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	if got := src.On(missing); got.Index != 72 {
		t.Errorf("On(missing).Index = %d, want 72", got.Index)
	}
}

func TestSource_MissingFileNeutral(t *testing.T) {
	src := NewSource(filepath.Join(t.TempDir(), "nope.csv"))

	got := src.Latest()
	if got.Index != NeutralIndex {
		t.Errorf("Latest().Index = %d, want neutral %d", got.Index, NeutralIndex)
	}
}
