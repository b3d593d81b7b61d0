// Package types defines shared types used across the order bot.
package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side represents the direction of an order.
type Side int

const (
	SideNone Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "NONE"
	}
}

// ParseSide parses "BUY" or "SELL" (case-insensitive).
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return SideNone, ErrInvalidSide
	}
}

// OrderKind represents the type of order.
type OrderKind int

const (
	KindMarket OrderKind = iota
	KindLimit
	KindStopLimit
)

func (k OrderKind) String() string {
	switch k {
	case KindMarket:
		return "MARKET"
	case KindLimit:
		return "LIMIT"
	case KindStopLimit:
		return "STOP_LIMIT"
	default:
		return "UNKNOWN"
	}
}

// OrderSpec describes a single order to be placed. It is constructed once,
// rounded to symbol precision, and not mutated afterwards.
type OrderSpec struct {
	Symbol    string
	Side      Side
	Kind      OrderKind
	Quantity  decimal.Decimal
	Price     decimal.Decimal // limit price; zero for market orders
	StopPrice decimal.Decimal // stop-limit trigger; zero otherwise
}

// Rounded returns a copy of the spec with quantity and prices rounded to
// the symbol's precision.
func (o OrderSpec) Rounded() OrderSpec {
	o.Quantity = RoundQuantity(o.Quantity, o.Symbol)
	if !o.Price.IsZero() {
		o.Price = RoundPrice(o.Price, o.Symbol)
	}
	if !o.StopPrice.IsZero() {
		o.StopPrice = RoundPrice(o.StopPrice, o.Symbol)
	}
	return o
}

// ScheduleSlice is one child order within a generated schedule. Slices are
// generated once, in execution order, and not mutated.
type ScheduleSlice struct {
	Index       int
	Side        Side
	Quantity    decimal.Decimal
	TargetPrice decimal.Decimal // grid level price; zero for time slices
	TimeOffset  time.Duration   // offset from schedule start; zero for grid
}

// SliceStatus is the terminal outcome of submitting one slice.
type SliceStatus int

const (
	SliceFilled SliceStatus = iota
	SlicePlaced
	SliceFailed
	SliceSkipped
)

func (s SliceStatus) String() string {
	switch s {
	case SliceFilled:
		return "FILLED"
	case SlicePlaced:
		return "NEW"
	case SliceFailed:
		return "FAILED"
	case SliceSkipped:
		return "SKIPPED"
	default:
		return "UNKNOWN"
	}
}

// SimulatedFill records a synthesized fill for one slice.
type SimulatedFill struct {
	SliceIndex int
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	Timestamp  time.Time
}

// ExecutionSummary aggregates the fills of one schedule run. It is always
// recomputed from the fill set, never persisted on its own.
type ExecutionSummary struct {
	RequestedQty   decimal.Decimal
	ExecutedQty    decimal.Decimal
	AveragePrice   decimal.Decimal
	PriceStdDev    decimal.Decimal
	MinPrice       decimal.Decimal
	MaxPrice       decimal.Decimal
	TotalValue     decimal.Decimal
	CompletionRate decimal.Decimal // ratio in [0, 1]
	OrdersPlanned  int
	OrdersExecuted int
	OrdersFailed   int
}

// SentimentReading is one row of the fear & greed index feed.
type SentimentReading struct {
	Index int // 0-100
	AsOf  time.Time
}

// RiskLevel classifies a stop distance relative to the current price.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// Symbols recognized in simulated mode, with fallback prices used when the
// historical CSV has no rows for them.
var simulatedSymbols = map[string]decimal.Decimal{
	"BTCUSDT": decimal.RequireFromString("45000"),
	"ETHUSDT": decimal.RequireFromString("2500"),
	"ADAUSDT": decimal.RequireFromString("0.5"),
	"DOTUSDT": decimal.RequireFromString("7"),
}

// IsKnownSymbol reports whether the symbol is in the simulated whitelist.
func IsKnownSymbol(symbol string) bool {
	_, ok := simulatedSymbols[symbol]
	return ok
}

// DefaultPrice returns the fallback price for a symbol when no market data
// is available. Unknown symbols default to 100.
func DefaultPrice(symbol string) decimal.Decimal {
	if p, ok := simulatedSymbols[symbol]; ok {
		return p
	}
	return decimal.NewFromInt(100)
}

// PricePrecision returns the number of price decimals for a symbol.
// BTC/ETH pairs use 2 decimals, everything else 4. This mirrors the
// exchange filters for the supported pairs rather than querying them.
func PricePrecision(symbol string) int32 {
	if strings.Contains(symbol, "BTC") || strings.Contains(symbol, "ETH") {
		return 2
	}
	return 4
}

// QuantityPrecision returns the number of quantity decimals for a symbol.
func QuantityPrecision(symbol string) int32 {
	switch {
	case strings.Contains(symbol, "BTC"):
		return 3
	case strings.Contains(symbol, "ETH"):
		return 2
	default:
		return 1
	}
}

// RoundPrice rounds a price to the symbol's price precision.
func RoundPrice(price decimal.Decimal, symbol string) decimal.Decimal {
	return price.Round(PricePrecision(symbol))
}

// RoundQuantity rounds a quantity to the symbol's quantity precision.
func RoundQuantity(qty decimal.Decimal, symbol string) decimal.Decimal {
	return qty.Round(QuantityPrecision(symbol))
}
