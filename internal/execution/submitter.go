// Package execution submits schedule slices and single orders, either
// against the live exchange or a simulated fill model.
package execution

import (
	"context"
	"math/rand"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tathienbao/futures-orders/internal/exchange"
	"github.com/tathienbao/futures-orders/internal/marketdata"
	"github.com/tathienbao/futures-orders/internal/types"
)

// Submitter places and cancels orders. The live implementation is
// exchange.Client; SimulatedSubmitter synthesizes fills locally.
type Submitter interface {
	SubmitOrder(ctx context.Context, spec types.OrderSpec) (exchange.OrderResult, error)
	CancelOrder(ctx context.Context, orderID, symbol string) error
}

// SimulatedSubmitter is the only simulated fill path: every order fills
// locally, in full, at a slightly perturbed price. Limit and stop-limit
// orders fill at their limit price exactly; market orders walk the
// historical price series one step per submission, so a sliced schedule
// replays successive closes.
type SimulatedSubmitter struct {
	Prices      marketdata.PriceSource
	SlippagePct float64
	Rng         *rand.Rand

	step int
}

// SubmitOrder synthesizes an immediate full fill.
func (s *SimulatedSubmitter) SubmitOrder(ctx context.Context, spec types.OrderSpec) (exchange.OrderResult, error) {
	price := spec.Price
	if price.IsZero() {
		base, err := s.Prices.PriceAt(ctx, spec.Symbol, s.step)
		if err != nil {
			return exchange.OrderResult{}, err
		}
		s.step++
		price = s.perturb(base)
	}

	return exchange.OrderResult{
		ID:     uuid.NewString(),
		Status: types.SliceFilled.String(),
		Price:  price,
	}, nil
}

// CancelOrder is a no-op; simulated fills are immediate so there is never
// a resting order to cancel.
func (s *SimulatedSubmitter) CancelOrder(_ context.Context, _, _ string) error {
	return nil
}

func (s *SimulatedSubmitter) perturb(price decimal.Decimal) decimal.Decimal {
	if s.SlippagePct <= 0 || s.Rng == nil {
		return price
	}
	offset := (s.Rng.Float64()*2 - 1) * s.SlippagePct
	return price.Mul(decimal.NewFromFloat(1 + offset))
}
