// Package order validates order specifications before submission.
//
// Validation separates hard failures (the order must not be sent) from
// warnings (the order is legal but likely not what the caller intended,
// e.g. a limit buy above the current price that would fill immediately).
package order

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/futures-orders/internal/types"
)

// Risk classification boundaries, in percent distance between the stop
// price and the current price.
var (
	lowRiskPct    = decimal.NewFromInt(2)
	mediumRiskPct = decimal.NewFromInt(5)
)

// Fill-likelihood boundaries for resting limit orders, in percent
// distance from the current price.
var (
	nearPricePct = decimal.RequireFromString("0.5")
	farPricePct  = decimal.NewFromInt(2)
)

// FillLikelihood is an informational estimate of how likely a resting
// order is to execute soon.
type FillLikelihood string

const (
	FillLikely   FillLikelihood = "HIGH"
	FillPossible FillLikelihood = "MEDIUM"
	FillUnlikely FillLikelihood = "LOW"
)

// Result carries the informational output of a successful validation.
type Result struct {
	Warnings   []string
	Risk       types.RiskLevel
	RiskPct    decimal.Decimal
	Likelihood FillLikelihood
}

// Validate checks an order spec against the current market price.
// A returned error means the order must not be submitted; warnings in the
// Result are advisory only. Symbol listing is checked by the caller, who
// knows whether the simulated whitelist or the exchange metadata applies.
func Validate(spec types.OrderSpec, currentPrice decimal.Decimal) (Result, error) {
	var res Result

	if strings.TrimSpace(spec.Symbol) == "" {
		return res, fmt.Errorf("%w: empty symbol", types.ErrInvalidSymbol)
	}
	if spec.Side != types.SideBuy && spec.Side != types.SideSell {
		return res, fmt.Errorf("%w: %s", types.ErrInvalidSide, spec.Side)
	}
	if !spec.Quantity.IsPositive() {
		return res, fmt.Errorf("%w: %s", types.ErrInvalidQuantity, spec.Quantity)
	}
	if !currentPrice.IsPositive() {
		return res, fmt.Errorf("%w: current price %s", types.ErrInvalidPrice, currentPrice)
	}

	switch spec.Kind {
	case types.KindMarket:
		res.Likelihood = FillLikely

	case types.KindLimit:
		if !spec.Price.IsPositive() {
			return res, fmt.Errorf("%w: limit price %s", types.ErrInvalidPrice, spec.Price)
		}
		res.Warnings = append(res.Warnings, limitWarnings(spec, currentPrice)...)
		res.Likelihood = estimateLikelihood(spec.Price, currentPrice)

	case types.KindStopLimit:
		if !spec.Price.IsPositive() {
			return res, fmt.Errorf("%w: limit price %s", types.ErrInvalidPrice, spec.Price)
		}
		if !spec.StopPrice.IsPositive() {
			return res, fmt.Errorf("%w: stop price %s", types.ErrInvalidPrice, spec.StopPrice)
		}
		if err := checkStopPlacement(spec, currentPrice); err != nil {
			return res, err
		}
		res.Warnings = append(res.Warnings, stopLimitWarnings(spec)...)
		res.Risk, res.RiskPct = ClassifyRisk(spec.StopPrice, currentPrice)
		res.Likelihood = estimateLikelihood(spec.StopPrice, currentPrice)

	default:
		return res, fmt.Errorf("%w: unknown order kind %s", types.ErrInvalidPrice, spec.Kind)
	}

	return res, nil
}

// limitWarnings flags limit prices that would cross the book immediately.
func limitWarnings(spec types.OrderSpec, currentPrice decimal.Decimal) []string {
	var warnings []string

	switch spec.Side {
	case types.SideBuy:
		if spec.Price.GreaterThanOrEqual(currentPrice) {
			warnings = append(warnings, fmt.Sprintf(
				"limit buy at %s is at or above current price %s and would fill immediately",
				spec.Price, currentPrice))
		}
	case types.SideSell:
		if spec.Price.LessThanOrEqual(currentPrice) {
			warnings = append(warnings, fmt.Sprintf(
				"limit sell at %s is at or below current price %s and would fill immediately",
				spec.Price, currentPrice))
		}
	}

	return warnings
}

// checkStopPlacement rejects stop prices on the wrong side of the market.
// A buy stop must sit above the current price and a sell stop below it,
// otherwise the order would trigger at once.
func checkStopPlacement(spec types.OrderSpec, currentPrice decimal.Decimal) error {
	switch spec.Side {
	case types.SideBuy:
		if spec.StopPrice.LessThanOrEqual(currentPrice) {
			return fmt.Errorf("%w: buy stop %s must be above current price %s",
				types.ErrStopPriceLogic, spec.StopPrice, currentPrice)
		}
	case types.SideSell:
		if spec.StopPrice.GreaterThanOrEqual(currentPrice) {
			return fmt.Errorf("%w: sell stop %s must be below current price %s",
				types.ErrStopPriceLogic, spec.StopPrice, currentPrice)
		}
	}
	return nil
}

// stopLimitWarnings flags limit prices positioned so the order may never
// fill after its stop triggers.
func stopLimitWarnings(spec types.OrderSpec) []string {
	var warnings []string

	switch spec.Side {
	case types.SideBuy:
		if spec.Price.LessThan(spec.StopPrice) {
			warnings = append(warnings, fmt.Sprintf(
				"buy limit %s below stop %s may never fill after triggering",
				spec.Price, spec.StopPrice))
		}
	case types.SideSell:
		if spec.Price.GreaterThan(spec.StopPrice) {
			warnings = append(warnings, fmt.Sprintf(
				"sell limit %s above stop %s may never fill after triggering",
				spec.Price, spec.StopPrice))
		}
	}

	return warnings
}

// ClassifyRisk buckets the distance between a stop price and the current
// price. Informational only.
func ClassifyRisk(stopPrice, currentPrice decimal.Decimal) (types.RiskLevel, decimal.Decimal) {
	pct := stopPrice.Sub(currentPrice).Abs().
		Div(currentPrice).
		Mul(decimal.NewFromInt(100))

	switch {
	case pct.LessThan(lowRiskPct):
		return types.RiskLow, pct
	case pct.LessThan(mediumRiskPct):
		return types.RiskMedium, pct
	default:
		return types.RiskHigh, pct
	}
}

// ValidateOCO checks the two legs of a one-cancels-other pair.
// For a sell pair (exiting a long) the take-profit must sit above the
// current price and the stop below it; a buy pair is the mirror image.
func ValidateOCO(side types.Side, takeProfit, stopPrice, currentPrice decimal.Decimal) error {
	if !takeProfit.IsPositive() || !stopPrice.IsPositive() {
		return fmt.Errorf("%w: prices must be positive", types.ErrInvalidPrice)
	}
	if !currentPrice.IsPositive() {
		return fmt.Errorf("%w: current price %s", types.ErrInvalidPrice, currentPrice)
	}

	switch side {
	case types.SideSell:
		if takeProfit.LessThanOrEqual(currentPrice) {
			return fmt.Errorf("%w: sell take-profit %s must be above current price %s",
				types.ErrOCOPriceLogic, takeProfit, currentPrice)
		}
		if stopPrice.GreaterThanOrEqual(currentPrice) {
			return fmt.Errorf("%w: sell stop %s must be below current price %s",
				types.ErrOCOPriceLogic, stopPrice, currentPrice)
		}
	case types.SideBuy:
		if takeProfit.GreaterThanOrEqual(currentPrice) {
			return fmt.Errorf("%w: buy take-profit %s must be below current price %s",
				types.ErrOCOPriceLogic, takeProfit, currentPrice)
		}
		if stopPrice.LessThanOrEqual(currentPrice) {
			return fmt.Errorf("%w: buy stop %s must be above current price %s",
				types.ErrOCOPriceLogic, stopPrice, currentPrice)
		}
	default:
		return fmt.Errorf("%w: %s", types.ErrInvalidSide, side)
	}

	return nil
}

// estimateLikelihood buckets how far a trigger or limit price sits from
// the current price.
func estimateLikelihood(price, currentPrice decimal.Decimal) FillLikelihood {
	pct := price.Sub(currentPrice).Abs().
		Div(currentPrice).
		Mul(decimal.NewFromInt(100))

	switch {
	case pct.LessThan(nearPricePct):
		return FillLikely
	case pct.LessThan(farPricePct):
		return FillPossible
	default:
		return FillUnlikely
	}
}
