// Package sentiment gates trade direction on the fear & greed index.
package sentiment

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/tathienbao/futures-orders/internal/types"
)

// Index boundaries. Readings below FearThreshold count as fear, above
// GreedThreshold as greed; the band in between is neutral.
const (
	FearThreshold  = 40
	GreedThreshold = 60

	// ExtremeGreedThreshold marks the zone where range-bound strategies
	// are advised against.
	ExtremeGreedThreshold = 70

	// NeutralIndex is used when no reading is available.
	NeutralIndex = 50
)

// Allow reports whether a trade in the given direction passes the
// sentiment gate. The gate only blocks: buying into greed and selling
// into fear are rejected, the neutral band passes everything.
func Allow(side types.Side, index int) bool {
	switch side {
	case types.SideBuy:
		return index <= GreedThreshold
	case types.SideSell:
		return index >= FearThreshold
	default:
		return true
	}
}

// GridCaution reports whether a grid placement deserves a warning. Extreme
// greed makes a symmetric grid around the current price a poor fit; the
// caller warns but proceeds.
func GridCaution(index int) bool {
	return index > ExtremeGreedThreshold
}

// Source reads fear & greed readings from a CSV file.
// CSV format: date,fear_greed_index (with optional header row), rows in
// chronological order.
type Source struct {
	filePath string
	readings []types.SentimentReading
	loaded   bool
}

// NewSource creates a sentiment source backed by a CSV file.
func NewSource(filePath string) *Source {
	return &Source{filePath: filePath}
}

// Latest returns the most recent reading. When the file is missing or
// empty a neutral reading is returned, matching the original behavior of
// defaulting to 50 on any data problem.
func (s *Source) Latest() types.SentimentReading {
	if err := s.ensureLoaded(); err != nil || len(s.readings) == 0 {
		return types.SentimentReading{Index: NeutralIndex}
	}
	return s.readings[len(s.readings)-1]
}

// On returns the reading for a specific date, falling back to the latest.
func (s *Source) On(date time.Time) types.SentimentReading {
	if err := s.ensureLoaded(); err != nil {
		return types.SentimentReading{Index: NeutralIndex}
	}

	y, m, d := date.Date()
	for _, r := range s.readings {
		ry, rm, rd := r.AsOf.Date()
		if ry == y && rm == m && rd == d {
			return r
		}
	}
	return s.Latest()
}

func (s *Source) ensureLoaded() error {
	if s.loaded {
		return nil
	}

	file, err := os.Open(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("open sentiment file: %w", err)
	}
	defer file.Close()

	readings, err := ParseCSV(file)
	if err != nil {
		return fmt.Errorf("parse sentiment csv: %w", err)
	}

	s.readings = readings
	s.loaded = true
	return nil
}

// ParseCSV parses date,fear_greed_index rows.
func ParseCSV(r io.Reader) ([]types.SentimentReading, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var readings []types.SentimentReading
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

		if lineNum == 1 && record[0] == "date" {
			continue
		}
		if len(record) < 2 {
			continue
		}

		asOf, err := time.Parse("2006-01-02", record[0])
		if err != nil {
			continue
		}
		index, err := strconv.Atoi(record[1])
		if err != nil || index < 0 || index > 100 {
			continue
		}

		readings = append(readings, types.SentimentReading{Index: index, AsOf: asOf})
	}

	return readings, nil
}
