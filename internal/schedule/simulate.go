package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/tathienbao/futures-orders/internal/types"
	"github.com/tathienbao/futures-orders/pkg/stats"
)

// Summarize recomputes the aggregate statistics from a fill set. The same
// shape is produced for live and simulated runs; only the fill source
// differs.
func Summarize(fills []types.SimulatedFill, requestedQty decimal.Decimal, planned, failed int) types.ExecutionSummary {
	summary := types.ExecutionSummary{
		RequestedQty:   requestedQty,
		OrdersPlanned:  planned,
		OrdersExecuted: len(fills),
		OrdersFailed:   failed,
	}

	if len(fills) == 0 {
		return summary
	}

	prices := make([]decimal.Decimal, len(fills))
	for i, f := range fills {
		prices[i] = f.Price
		summary.ExecutedQty = summary.ExecutedQty.Add(f.Quantity)
		summary.TotalValue = summary.TotalValue.Add(f.Price.Mul(f.Quantity))
	}

	if summary.ExecutedQty.IsPositive() {
		summary.AveragePrice = summary.TotalValue.Div(summary.ExecutedQty)
	}
	summary.PriceStdDev = stats.PopulationStdDev(prices)
	summary.MinPrice, summary.MaxPrice = stats.MinMax(prices)

	if requestedQty.IsPositive() {
		rate := summary.ExecutedQty.Div(requestedQty)
		// Clamp against rounding drift.
		if rate.GreaterThan(decimal.NewFromInt(1)) {
			rate = decimal.NewFromInt(1)
		}
		if rate.IsNegative() {
			rate = decimal.Zero
		}
		summary.CompletionRate = rate
	}

	return summary
}
