// Package stats provides decimal descriptive statistics for fill analysis.
package stats

import (
	"github.com/shopspring/decimal"
)

// Mean returns the arithmetic mean of the values, or zero for an empty slice.
func Mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	var sum decimal.Decimal
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}

// PopulationStdDev returns the population standard deviation of the values:
// sqrt(sum((x - mean)^2) / n). Returns zero for fewer than two values.
func PopulationStdDev(values []decimal.Decimal) decimal.Decimal {
	if len(values) < 2 {
		return decimal.Zero
	}

	mean := Mean(values)

	var sumSquares decimal.Decimal
	for _, v := range values {
		diff := v.Sub(mean)
		sumSquares = sumSquares.Add(diff.Mul(diff))
	}

	variance := sumSquares.Div(decimal.NewFromInt(int64(len(values))))
	return Sqrt(variance)
}

// MinMax returns the smallest and largest value. Both are zero for an
// empty slice.
func MinMax(values []decimal.Decimal) (min, max decimal.Decimal) {
	if len(values) == 0 {
		return decimal.Zero, decimal.Zero
	}
	min, max = values[0], values[0]
	for _, v := range values[1:] {
		if v.LessThan(min) {
			min = v
		}
		if v.GreaterThan(max) {
			max = v
		}
	}
	return min, max
}

// Sqrt calculates the square root of a decimal using Newton's method.
func Sqrt(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() || d.IsNegative() {
		return decimal.Zero
	}

	// Initial guess
	guess := d.Div(decimal.NewFromInt(2))
	if guess.IsZero() {
		guess = decimal.NewFromInt(1)
	}

	// Newton's method: x_new = (x + d/x) / 2
	two := decimal.NewFromInt(2)
	epsilon := decimal.RequireFromString("0.00000001")

	for i := 0; i < 100; i++ { // Max iterations
		newGuess := guess.Add(d.Div(guess)).Div(two)
		diff := newGuess.Sub(guess).Abs()
		if diff.LessThan(epsilon) {
			return newGuess.Round(8)
		}
		guess = newGuess
	}

	return guess.Round(8)
}
