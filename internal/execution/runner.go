package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/futures-orders/internal/exchange"
	"github.com/tathienbao/futures-orders/internal/execlog"
	"github.com/tathienbao/futures-orders/internal/metrics"
	"github.com/tathienbao/futures-orders/internal/schedule"
	"github.com/tathienbao/futures-orders/internal/types"
)

// Runner walks a schedule slice by slice, submitting each one with
// bounded retry. A failed slice is logged and counted but never aborts
// the rest of the run.
type Runner struct {
	Submitter Submitter
	Clock     Clock
	Log       *execlog.Logger
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
	Mode      execlog.Mode

	MaxRetries int
	RetryDelay time.Duration
	MaxDelay   time.Duration
}

// RunSchedule executes the slices strictly in order. Time slices become
// market orders; price slices become resting limit orders at their level.
// The returned summary covers whatever was executed, even when some
// slices failed.
func (r *Runner) RunSchedule(ctx context.Context, symbol, strategy string, slices []types.ScheduleSlice) (types.ExecutionSummary, error) {
	logger := r.logger()

	var (
		fills      []types.SimulatedFill
		failed     int
		prevOffset time.Duration
	)

	for _, slice := range slices {
		if wait := slice.TimeOffset - prevOffset; wait > 0 {
			if err := r.Clock.Sleep(ctx, wait); err != nil {
				return schedule.Summarize(fills, schedule.TotalQuantity(slices), len(slices), failed), err
			}
		}
		prevOffset = slice.TimeOffset

		spec := sliceToSpec(symbol, slice).Rounded()

		result, err := r.PlaceOrder(ctx, spec)
		if err != nil {
			if ctx.Err() != nil {
				return schedule.Summarize(fills, schedule.TotalQuantity(slices), len(slices), failed), ctx.Err()
			}
			failed++
			if r.Metrics != nil {
				r.Metrics.RecordSliceFailed(symbol, strategy)
			}
			logger.Warn("slice failed, continuing",
				"strategy", strategy,
				"slice", slice.Index,
				"error", err,
			)
			continue
		}

		price := result.Price
		if price.IsZero() {
			price = slice.TargetPrice
		}
		fills = append(fills, types.SimulatedFill{
			SliceIndex: slice.Index,
			Price:      price,
			Quantity:   spec.Quantity,
			Timestamp:  time.Now().UTC(),
		})
	}

	summary := schedule.Summarize(fills, schedule.TotalQuantity(slices), len(slices), failed)
	if r.Metrics != nil {
		r.Metrics.RecordCompletionRate(symbol, strategy, summary.CompletionRate)
	}

	if summary.OrdersExecuted == 0 {
		return summary, fmt.Errorf("%w: all %d slices failed", types.ErrNoFills, failed)
	}

	logger.Info("schedule complete",
		"strategy", strategy,
		"symbol", symbol,
		"executed", summary.OrdersExecuted,
		"failed", summary.OrdersFailed,
		"completion_rate", summary.CompletionRate,
	)

	return summary, nil
}

// PlaceOrder submits one order with bounded retry and exponential backoff,
// then logs the outcome exactly once.
func (r *Runner) PlaceOrder(ctx context.Context, spec types.OrderSpec) (exchange.OrderResult, error) {
	spec = spec.Rounded()

	// A quantity that rounds away at the symbol's precision must never
	// reach the exchange; a simulated submitter would happily ack it and
	// report a fill for nothing.
	if !spec.Quantity.IsPositive() {
		err := fmt.Errorf("%w: quantity rounds to zero at %s precision",
			types.ErrInvalidQuantity, spec.Symbol)
		r.appendLog(ctx, spec, "", types.SliceFailed.String(), err.Error())
		if r.Metrics != nil {
			r.Metrics.RecordOrder(spec.Symbol, spec.Side.String(), types.SliceFailed.String())
		}
		return exchange.OrderResult{}, err
	}

	var (
		result  exchange.OrderResult
		lastErr error
	)

	delay := r.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := r.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	timer := metrics.NewTimer()
	attempts := r.MaxRetries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		result, lastErr = r.Submitter.SubmitOrder(ctx, spec)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		if attempt == attempts {
			break
		}

		r.logger().Warn("submission failed, retrying",
			"symbol", spec.Symbol,
			"attempt", attempt,
			"wait", delay,
			"error", lastErr,
		)
		if err := r.Clock.Sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}

	if r.Metrics != nil {
		r.Metrics.RecordOrderLatency(timer.Elapsed())
	}

	if lastErr != nil {
		r.appendLog(ctx, spec, "", types.SliceFailed.String(), lastErr.Error())
		if r.Metrics != nil {
			r.Metrics.RecordOrder(spec.Symbol, spec.Side.String(), types.SliceFailed.String())
		}
		return exchange.OrderResult{}, fmt.Errorf("%w: %v", types.ErrSubmission, lastErr)
	}

	status := result.Status
	if status == "" {
		status = types.SlicePlaced.String()
	}
	r.appendLog(ctx, spec, result.ID, status, "")
	if r.Metrics != nil {
		r.Metrics.RecordOrder(spec.Symbol, spec.Side.String(), status)
	}

	return result, nil
}

// OCOPair holds the two acknowledged legs of a one-cancels-other order.
type OCOPair struct {
	TakeProfit exchange.OrderResult
	StopLoss   exchange.OrderResult
}

// PlaceOCO submits a take-profit limit leg and a stop-limit leg as two
// independent orders. This is a client-side emulation, not an exchange
// primitive: if the second leg fails the first is cancelled best-effort,
// and cancellation of one leg on fill of the other is never guaranteed
// by the server.
func (r *Runner) PlaceOCO(ctx context.Context, symbol string, side types.Side, quantity, takeProfit, stopPrice decimal.Decimal) (OCOPair, error) {
	tpSpec := types.OrderSpec{
		Symbol:   symbol,
		Side:     side,
		Kind:     types.KindLimit,
		Quantity: quantity,
		Price:    takeProfit,
	}
	slSpec := types.OrderSpec{
		Symbol:    symbol,
		Side:      side,
		Kind:      types.KindStopLimit,
		Quantity:  quantity,
		Price:     stopPrice,
		StopPrice: stopPrice,
	}

	var pair OCOPair

	tp, err := r.PlaceOrder(ctx, tpSpec)
	if err != nil {
		return pair, fmt.Errorf("take-profit leg: %w", err)
	}
	pair.TakeProfit = tp

	sl, err := r.PlaceOrder(ctx, slSpec)
	if err != nil {
		if cancelErr := r.Submitter.CancelOrder(ctx, tp.ID, symbol); cancelErr != nil {
			r.logger().Error("orphaned take-profit leg: cancel failed",
				"order_id", tp.ID,
				"error", cancelErr,
			)
		} else {
			r.appendLog(ctx, tpSpec, tp.ID, "CANCELED", "sibling leg failed")
		}
		return pair, fmt.Errorf("stop-loss leg: %w", err)
	}
	pair.StopLoss = sl

	return pair, nil
}

func (r *Runner) appendLog(ctx context.Context, spec types.OrderSpec, orderID, status, detail string) {
	if r.Log == nil {
		return
	}

	price := spec.Price
	if price.IsZero() {
		price = spec.StopPrice
	}

	r.Log.Append(ctx, execlog.Record{
		OrderID:  orderID,
		Symbol:   spec.Symbol,
		Side:     spec.Side,
		Kind:     spec.Kind,
		Quantity: spec.Quantity,
		Price:    price,
		Status:   status,
		Mode:     r.Mode,
		Detail:   detail,
	})
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func sliceToSpec(symbol string, slice types.ScheduleSlice) types.OrderSpec {
	spec := types.OrderSpec{
		Symbol:   symbol,
		Side:     slice.Side,
		Quantity: slice.Quantity,
	}
	if slice.TargetPrice.IsZero() {
		spec.Kind = types.KindMarket
	} else {
		spec.Kind = types.KindLimit
		spec.Price = slice.TargetPrice
	}
	return spec
}
