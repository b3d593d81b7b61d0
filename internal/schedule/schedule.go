// Package schedule turns a single large order into an ordered sequence of
// child-order slices, either spread over time (TWAP) or over a band of
// price levels (grid), and recomputes aggregate summaries from fill sets.
package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/futures-orders/internal/types"
)

// skipTolerance decides when a grid level is "at" the current price.
// Levels that close to the reference price are skipped rather than
// placed as zero-distance orders.
var skipTolerance = decimal.RequireFromString("0.000001")

// BuildTimeSchedule splits a total quantity into orderCount equal slices
// spaced evenly across duration. The final slice absorbs any division
// remainder so the slice quantities always sum to exactly totalQuantity.
func BuildTimeSchedule(side types.Side, totalQuantity decimal.Decimal, orderCount int, duration time.Duration) ([]types.ScheduleSlice, error) {
	if orderCount < 1 {
		return nil, fmt.Errorf("%w: order count %d must be at least 1",
			types.ErrInvalidScheduleParams, orderCount)
	}
	if !totalQuantity.IsPositive() {
		return nil, fmt.Errorf("%w: total quantity %s must be positive",
			types.ErrInvalidScheduleParams, totalQuantity)
	}
	if duration < 0 {
		return nil, fmt.Errorf("%w: duration %s must not be negative",
			types.ErrInvalidScheduleParams, duration)
	}
	if side != types.SideBuy && side != types.SideSell {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidSide, side)
	}

	count := decimal.NewFromInt(int64(orderCount))
	perSlice := totalQuantity.Div(count)
	interval := duration / time.Duration(orderCount)

	slices := make([]types.ScheduleSlice, orderCount)
	for i := 0; i < orderCount; i++ {
		qty := perSlice
		if i == orderCount-1 {
			// Remainder lands on the last slice.
			qty = totalQuantity.Sub(perSlice.Mul(decimal.NewFromInt(int64(orderCount - 1))))
		}
		slices[i] = types.ScheduleSlice{
			Index:      i,
			Side:       side,
			Quantity:   qty,
			TimeOffset: time.Duration(i) * interval,
		}
	}

	return slices, nil
}

// GridLevel is one price level of a grid, including skipped levels so the
// full plan can be reported.
type GridLevel struct {
	Index    int
	Price    decimal.Decimal
	Side     types.Side
	Quantity decimal.Decimal
	Skip     bool
}

// PriceGrid is a static snapshot of resting orders around a reference
// price. Filled levels are not rebalanced or replaced.
type PriceGrid struct {
	Levels []GridLevel
	Lower  decimal.Decimal
	Upper  decimal.Decimal
	Step   decimal.Decimal
}

// BuildPriceGrid places gridCount evenly spaced levels across a band of
// priceRangePct percent centered on currentPrice. Levels below the
// reference price buy, levels above sell, and a level at the reference
// price itself is skipped. The investment amount is divided evenly across
// the active levels and converted to base quantity at each level's price.
func BuildPriceGrid(currentPrice, investment, priceRangePct decimal.Decimal, gridCount int) (*PriceGrid, error) {
	if gridCount < 2 {
		return nil, fmt.Errorf("%w: grid count %d must be at least 2",
			types.ErrInvalidScheduleParams, gridCount)
	}
	if !priceRangePct.IsPositive() {
		return nil, fmt.Errorf("%w: price range %s%% must be positive",
			types.ErrInvalidScheduleParams, priceRangePct)
	}
	if !currentPrice.IsPositive() {
		return nil, fmt.Errorf("%w: current price %s must be positive",
			types.ErrInvalidScheduleParams, currentPrice)
	}
	if !investment.IsPositive() {
		return nil, fmt.Errorf("%w: investment %s must be positive",
			types.ErrInvalidScheduleParams, investment)
	}

	halfRange := currentPrice.Mul(priceRangePct).
		Div(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(2))
	lower := currentPrice.Sub(halfRange)
	upper := currentPrice.Add(halfRange)
	step := upper.Sub(lower).Div(decimal.NewFromInt(int64(gridCount - 1)))

	tolerance := step.Mul(skipTolerance)

	grid := &PriceGrid{
		Levels: make([]GridLevel, gridCount),
		Lower:  lower,
		Upper:  upper,
		Step:   step,
	}

	active := 0
	for i := 0; i < gridCount; i++ {
		price := lower.Add(step.Mul(decimal.NewFromInt(int64(i))))
		if i == gridCount-1 {
			// Pin the last level to the exact bound; accumulated step
			// truncation must not leak into the top of the band.
			price = upper
		}
		level := GridLevel{Index: i, Price: price}

		switch {
		case price.Sub(currentPrice).Abs().LessThanOrEqual(tolerance):
			level.Skip = true
		case price.LessThan(currentPrice):
			level.Side = types.SideBuy
			active++
		default:
			level.Side = types.SideSell
			active++
		}

		grid.Levels[i] = level
	}

	if active == 0 {
		return nil, fmt.Errorf("%w: no active grid levels", types.ErrInvalidScheduleParams)
	}

	perLevel := investment.Div(decimal.NewFromInt(int64(active)))
	for i := range grid.Levels {
		if grid.Levels[i].Skip {
			continue
		}
		grid.Levels[i].Quantity = perLevel.Div(grid.Levels[i].Price)
	}

	return grid, nil
}

// Slices returns the active grid levels as schedule slices, in ascending
// price order. Skipped levels are excluded.
func (g *PriceGrid) Slices() []types.ScheduleSlice {
	slices := make([]types.ScheduleSlice, 0, len(g.Levels))
	for _, level := range g.Levels {
		if level.Skip {
			continue
		}
		slices = append(slices, types.ScheduleSlice{
			Index:       level.Index,
			Side:        level.Side,
			Quantity:    level.Quantity,
			TargetPrice: level.Price,
		})
	}
	return slices
}

// ActiveCount returns the number of non-skipped levels.
func (g *PriceGrid) ActiveCount() int {
	n := 0
	for _, level := range g.Levels {
		if !level.Skip {
			n++
		}
	}
	return n
}

// TotalQuantity sums the quantities of all slices.
func TotalQuantity(slices []types.ScheduleSlice) decimal.Decimal {
	var total decimal.Decimal
	for _, s := range slices {
		total = total.Add(s.Quantity)
	}
	return total
}
