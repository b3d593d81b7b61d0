package marketdata

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/futures-orders/internal/types"
)

// Row is one historical price observation.
type Row struct {
	Symbol    string
	Timestamp time.Time
	Close     decimal.Decimal
}

// CSVSource reads historical closing prices from a CSV file.
// CSV format: symbol,timestamp,close (with optional header row).
// Rows are expected in chronological order per symbol.
type CSVSource struct {
	filePath string
	rows     map[string][]Row // symbol -> rows in file order
	loaded   bool
}

// NewCSVSource creates a price source backed by a CSV file. The file is
// read lazily on first use.
func NewCSVSource(filePath string) *CSVSource {
	return &CSVSource{filePath: filePath}
}

// LatestPrice returns the last close recorded for the symbol, falling back
// to the symbol's default price when the file has no rows for it.
func (s *CSVSource) LatestPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	if err := s.ensureLoaded(); err != nil {
		return decimal.Zero, err
	}

	rows := s.rows[symbol]
	if len(rows) == 0 {
		return types.DefaultPrice(symbol), nil
	}
	return rows[len(rows)-1].Close, nil
}

// PriceAt returns the close at the given step, clamped to the last row.
// A schedule longer than the data set keeps reusing the final observation.
func (s *CSVSource) PriceAt(_ context.Context, symbol string, step int) (decimal.Decimal, error) {
	if err := s.ensureLoaded(); err != nil {
		return decimal.Zero, err
	}

	rows := s.rows[symbol]
	if len(rows) == 0 {
		return types.DefaultPrice(symbol), nil
	}
	if step < 0 {
		step = 0
	}
	if step >= len(rows) {
		step = len(rows) - 1
	}
	return rows[step].Close, nil
}

// RowCount returns the number of loaded rows for a symbol.
func (s *CSVSource) RowCount(symbol string) int {
	if err := s.ensureLoaded(); err != nil {
		return 0
	}
	return len(s.rows[symbol])
}

func (s *CSVSource) ensureLoaded() error {
	if s.loaded {
		return nil
	}

	file, err := os.Open(s.filePath)
	if err != nil {
		// A missing data file is not fatal in simulation; defaults apply.
		if os.IsNotExist(err) {
			s.rows = make(map[string][]Row)
			s.loaded = true
			return nil
		}
		return fmt.Errorf("open prices file: %w", err)
	}
	defer file.Close()

	rows, err := ParseCSV(file)
	if err != nil {
		return fmt.Errorf("parse prices csv: %w", err)
	}

	s.rows = rows
	s.loaded = true
	return nil
}

// ParseCSV parses historical price rows grouped by symbol.
func ParseCSV(r io.Reader) (map[string][]Row, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows := make(map[string][]Row)
	lineNum := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		lineNum++

		// Skip header row
		if lineNum == 1 && isHeader(record) {
			continue
		}

		if len(record) < 3 {
			continue // Skip invalid rows
		}

		row, err := parseRecord(record)
		if err != nil {
			// Skip invalid rows instead of failing
			continue
		}

		rows[row.Symbol] = append(rows[row.Symbol], row)
	}

	return rows, nil
}

// parseRecord parses a single symbol,timestamp,close record.
func parseRecord(record []string) (Row, error) {
	var row Row
	row.Symbol = record[0]

	ts, err := parseTimestamp(record[1])
	if err != nil {
		return row, fmt.Errorf("parse timestamp: %w", err)
	}
	row.Timestamp = ts

	row.Close, err = decimal.NewFromString(record[2])
	if err != nil {
		return row, fmt.Errorf("parse close: %w", err)
	}
	if !row.Close.IsPositive() {
		return row, fmt.Errorf("non-positive close: %s", record[2])
	}

	return row, nil
}

// parseTimestamp tries multiple timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	// Try Unix timestamp first
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0), nil
	}

	formats := []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unknown timestamp format: %s", s)
}

// isHeader checks if a record looks like a header row.
func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	headers := []string{"symbol", "timestamp", "time", "date", "datetime"}
	first := record[0]
	for _, h := range headers {
		if first == h {
			return true
		}
	}
	return false
}
