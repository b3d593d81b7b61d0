// Package marketdata supplies reference prices for symbols, either from a
// live ticker or from a historical CSV file.
package marketdata

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/futures-orders/internal/types"
)

// PriceSource supplies reference prices for a symbol.
type PriceSource interface {
	// LatestPrice returns the most recent price for the symbol.
	LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// PriceAt returns the price at a logical step of a schedule. Sources
	// without a time dimension return the latest price for every step.
	PriceAt(ctx context.Context, symbol string, step int) (decimal.Decimal, error)
}

// StaticSource serves a fixed price per symbol. Useful for tests.
type StaticSource struct {
	prices map[string]decimal.Decimal
}

// NewStaticSource creates a source from a symbol -> price map.
func NewStaticSource(prices map[string]decimal.Decimal) *StaticSource {
	return &StaticSource{prices: prices}
}

// LatestPrice returns the configured price, or the symbol default.
func (s *StaticSource) LatestPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	if p, ok := s.prices[symbol]; ok {
		return p, nil
	}
	return types.DefaultPrice(symbol), nil
}

// PriceAt returns the configured price regardless of step.
func (s *StaticSource) PriceAt(ctx context.Context, symbol string, _ int) (decimal.Decimal, error) {
	return s.LatestPrice(ctx, symbol)
}
