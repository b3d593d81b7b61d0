package execution

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/futures-orders/internal/exchange"
	"github.com/tathienbao/futures-orders/internal/marketdata"
	"github.com/tathienbao/futures-orders/internal/schedule"
	"github.com/tathienbao/futures-orders/internal/types"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// scriptedSubmitter fails the first failures[i] attempts of call i, then
// succeeds. It records every submit and cancel.
type scriptedSubmitter struct {
	failFirst map[int]int // order index -> number of failing attempts
	alwaysErr map[int]bool

	orderIdx  int
	attempts  map[int]int
	submitted []types.OrderSpec
	cancelled []string
	cancelErr error
}

func newScriptedSubmitter() *scriptedSubmitter {
	return &scriptedSubmitter{
		failFirst: make(map[int]int),
		alwaysErr: make(map[int]bool),
		attempts:  make(map[int]int),
	}
}

func (s *scriptedSubmitter) SubmitOrder(_ context.Context, spec types.OrderSpec) (exchange.OrderResult, error) {
	idx := s.orderIdx
	s.attempts[idx]++

	if s.alwaysErr[idx] {
		if s.attempts[idx] >= s.failFirst[idx] {
			s.orderIdx++
		}
		return exchange.OrderResult{}, errors.New("exchange rejected")
	}
	if s.attempts[idx] <= s.failFirst[idx] {
		return exchange.OrderResult{}, errors.New("transient failure")
	}

	s.orderIdx++
	s.submitted = append(s.submitted, spec)
	price := spec.Price
	if price.IsZero() {
		price = d("45000")
	}
	return exchange.OrderResult{
		ID:     "order-" + string(rune('a'+idx)),
		Status: "FILLED",
		Price:  price,
	}, nil
}

func (s *scriptedSubmitter) CancelOrder(_ context.Context, orderID, _ string) error {
	s.cancelled = append(s.cancelled, orderID)
	return s.cancelErr
}

func newRunner(sub Submitter) (*Runner, *VirtualClock) {
	clock := &VirtualClock{}
	return &Runner{
		Submitter:  sub,
		Clock:      clock,
		Mode:       "SIMULATED",
		MaxRetries: 2,
		RetryDelay: 100 * time.Millisecond,
		MaxDelay:   time.Second,
	}, clock
}

func TestRunner_FullSchedule(t *testing.T) {
	slices, err := schedule.BuildTimeSchedule(types.SideBuy, d("0.3"), 6, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	sub := newScriptedSubmitter()
	runner, clock := newRunner(sub)

	summary, err := runner.RunSchedule(context.Background(), "BTCUSDT", "twap", slices)
	if err != nil {
		t.Fatalf("RunSchedule() error: %v", err)
	}

	if summary.OrdersExecuted != 6 || summary.OrdersFailed != 0 {
		t.Errorf("executed/failed = %d/%d, want 6/0", summary.OrdersExecuted, summary.OrdersFailed)
	}
	if !summary.CompletionRate.Equal(decimal.NewFromInt(1)) {
		t.Errorf("completion rate = %s, want 1", summary.CompletionRate)
	}
	// Five inter-slice waits of 10s each on the virtual clock.
	if clock.Elapsed != 50*time.Second {
		t.Errorf("virtual elapsed = %s, want 50s", clock.Elapsed)
	}
}

func TestRunner_FailedSliceContinues(t *testing.T) {
	slices, err := schedule.BuildTimeSchedule(types.SideSell, d("0.4"), 4, 0)
	if err != nil {
		t.Fatal(err)
	}

	sub := newScriptedSubmitter()
	// Second order fails every attempt.
	sub.alwaysErr[1] = true
	sub.failFirst[1] = 3 // MaxRetries=2 means 3 attempts total

	runner, _ := newRunner(sub)

	summary, err := runner.RunSchedule(context.Background(), "BTCUSDT", "twap", slices)
	if err != nil {
		t.Fatalf("RunSchedule() error: %v", err)
	}

	if summary.OrdersExecuted != 3 {
		t.Errorf("executed = %d, want 3", summary.OrdersExecuted)
	}
	if summary.OrdersFailed != 1 {
		t.Errorf("failed = %d, want 1", summary.OrdersFailed)
	}
	if summary.CompletionRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		t.Errorf("completion rate = %s, want < 1", summary.CompletionRate)
	}
}

func TestRunner_RetrySucceeds(t *testing.T) {
	sub := newScriptedSubmitter()
	sub.failFirst[0] = 2 // two transient failures, third attempt succeeds

	runner, clock := newRunner(sub)

	spec := types.OrderSpec{
		Symbol: "BTCUSDT", Side: types.SideBuy, Kind: types.KindMarket, Quantity: d("0.1"),
	}
	result, err := runner.PlaceOrder(context.Background(), spec)
	if err != nil {
		t.Fatalf("PlaceOrder() error: %v", err)
	}
	if result.Status != "FILLED" {
		t.Errorf("status = %s, want FILLED", result.Status)
	}
	if sub.attempts[0] != 3 {
		t.Errorf("attempts = %d, want 3", sub.attempts[0])
	}
	// Backoff doubles: 100ms + 200ms.
	if clock.Elapsed != 300*time.Millisecond {
		t.Errorf("backoff elapsed = %s, want 300ms", clock.Elapsed)
	}
}

func TestRunner_RetriesExhausted(t *testing.T) {
	sub := newScriptedSubmitter()
	sub.alwaysErr[0] = true
	sub.failFirst[0] = 3

	runner, _ := newRunner(sub)

	spec := types.OrderSpec{
		Symbol: "BTCUSDT", Side: types.SideBuy, Kind: types.KindMarket, Quantity: d("0.1"),
	}
	_, err := runner.PlaceOrder(context.Background(), spec)
	if !errors.Is(err, types.ErrSubmission) {
		t.Errorf("error = %v, want ErrSubmission", err)
	}
	if sub.attempts[0] != 3 {
		t.Errorf("attempts = %d, want 3 (bounded)", sub.attempts[0])
	}
}

func TestRunner_QuantityRoundedBeforeSubmission(t *testing.T) {
	sub := newScriptedSubmitter()
	runner, _ := newRunner(sub)

	spec := types.OrderSpec{
		Symbol: "BTCUSDT", Side: types.SideBuy, Kind: types.KindMarket,
		Quantity: d("0.123456"),
	}
	if _, err := runner.PlaceOrder(context.Background(), spec); err != nil {
		t.Fatal(err)
	}

	// BTC quantities round to 3 decimals.
	if !sub.submitted[0].Quantity.Equal(d("0.123")) {
		t.Errorf("submitted quantity = %s, want 0.123", sub.submitted[0].Quantity)
	}
}

func TestRunner_ContextCancelStopsSchedule(t *testing.T) {
	slices, err := schedule.BuildTimeSchedule(types.SideBuy, d("0.3"), 6, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner, _ := newRunner(newScriptedSubmitter())
	_, err = runner.RunSchedule(ctx, "BTCUSDT", "twap", slices)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRunner_PlaceOCO(t *testing.T) {
	sub := newScriptedSubmitter()
	runner, _ := newRunner(sub)

	pair, err := runner.PlaceOCO(context.Background(), "BTCUSDT", types.SideSell,
		d("0.1"), d("47000"), d("43000"))
	if err != nil {
		t.Fatalf("PlaceOCO() error: %v", err)
	}

	if pair.TakeProfit.ID == "" || pair.StopLoss.ID == "" {
		t.Error("both legs should be acknowledged")
	}
	if len(sub.submitted) != 2 {
		t.Fatalf("submitted = %d, want 2", len(sub.submitted))
	}
	if sub.submitted[0].Kind != types.KindLimit {
		t.Errorf("first leg kind = %s, want LIMIT", sub.submitted[0].Kind)
	}
	if sub.submitted[1].Kind != types.KindStopLimit {
		t.Errorf("second leg kind = %s, want STOP_LIMIT", sub.submitted[1].Kind)
	}
}

func TestRunner_PlaceOCO_CancelsSiblingOnFailure(t *testing.T) {
	sub := newScriptedSubmitter()
	sub.alwaysErr[1] = true
	sub.failFirst[1] = 3

	runner, _ := newRunner(sub)

	_, err := runner.PlaceOCO(context.Background(), "BTCUSDT", types.SideSell,
		d("0.1"), d("47000"), d("43000"))
	if err == nil {
		t.Fatal("expected error when stop leg fails")
	}
	if len(sub.cancelled) != 1 {
		t.Fatalf("cancelled = %d, want 1 (best-effort sibling cancel)", len(sub.cancelled))
	}
}

func TestSimulatedSubmitter(t *testing.T) {
	sub := &SimulatedSubmitter{
		Prices: marketdata.NewStaticSource(map[string]decimal.Decimal{
			"BTCUSDT": d("45000"),
		}),
		SlippagePct: 0.002,
		Rng:         rand.New(rand.NewSource(1)),
	}

	market := types.OrderSpec{
		Symbol: "BTCUSDT", Side: types.SideBuy, Kind: types.KindMarket, Quantity: d("0.1"),
	}
	result, err := sub.SubmitOrder(context.Background(), market)
	if err != nil {
		t.Fatalf("SubmitOrder() error: %v", err)
	}
	if result.ID == "" {
		t.Error("expected a generated order id")
	}
	if result.Status != "FILLED" {
		t.Errorf("status = %s, want FILLED", result.Status)
	}

	lower := d("45000").Mul(d("0.998"))
	upper := d("45000").Mul(d("1.002"))
	if result.Price.LessThan(lower) || result.Price.GreaterThan(upper) {
		t.Errorf("fill price %s outside slippage band", result.Price)
	}

	limit := types.OrderSpec{
		Symbol: "BTCUSDT", Side: types.SideBuy, Kind: types.KindLimit,
		Quantity: d("0.1"), Price: d("44000"),
	}
	result, err = sub.SubmitOrder(context.Background(), limit)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Price.Equal(d("44000")) {
		t.Errorf("limit fill price = %s, want exactly 44000", result.Price)
	}
}

func newSimulatedRunner(seed int64, slippage float64) (*Runner, *VirtualClock) {
	sub := &SimulatedSubmitter{
		Prices: marketdata.NewStaticSource(map[string]decimal.Decimal{
			"BTCUSDT": d("45000"),
		}),
		SlippagePct: slippage,
		Rng:         rand.New(rand.NewSource(seed)),
	}
	return newRunner(sub)
}

func TestRunner_DustQuantitySlicesRejected(t *testing.T) {
	// A small investment across a BTC grid produces per-level quantities
	// far below the symbol's 3-decimal step; none of them may be
	// submitted, let alone counted as fills.
	grid, err := schedule.BuildPriceGrid(d("45000"), d("10"), d("8"), 5)
	if err != nil {
		t.Fatal(err)
	}
	slices := grid.Slices()

	sub := newScriptedSubmitter()
	runner, _ := newRunner(sub)

	summary, err := runner.RunSchedule(context.Background(), "BTCUSDT", "grid", slices)
	if !errors.Is(err, types.ErrNoFills) {
		t.Fatalf("error = %v, want ErrNoFills", err)
	}
	if len(sub.submitted) != 0 {
		t.Errorf("submitted = %d orders, want 0", len(sub.submitted))
	}
	if summary.OrdersExecuted != 0 || summary.OrdersFailed != len(slices) {
		t.Errorf("executed/failed = %d/%d, want 0/%d",
			summary.OrdersExecuted, summary.OrdersFailed, len(slices))
	}
	if !summary.ExecutedQty.IsZero() {
		t.Errorf("executed qty = %s, want 0", summary.ExecutedQty)
	}
	if !summary.CompletionRate.IsZero() {
		t.Errorf("completion rate = %s, want 0", summary.CompletionRate)
	}
}

func TestRunner_PlaceOrderRejectsZeroRoundedQuantity(t *testing.T) {
	sub := newScriptedSubmitter()
	runner, _ := newRunner(sub)

	spec := types.OrderSpec{
		Symbol: "BTCUSDT", Side: types.SideBuy, Kind: types.KindMarket,
		Quantity: d("0.0004"), // below the 3-decimal step
	}
	_, err := runner.PlaceOrder(context.Background(), spec)
	if !errors.Is(err, types.ErrInvalidQuantity) {
		t.Fatalf("error = %v, want ErrInvalidQuantity", err)
	}
	if sub.attempts[0] != 0 {
		t.Errorf("submitter called %d times, want 0", sub.attempts[0])
	}
}

func TestRunner_SimulatedFillsRecordedAtRoundedQuantity(t *testing.T) {
	sub := newScriptedSubmitter()
	runner, _ := newRunner(sub)

	slices := []types.ScheduleSlice{
		{Index: 0, Side: types.SideBuy, Quantity: d("0.123456")},
	}
	summary, err := runner.RunSchedule(context.Background(), "BTCUSDT", "twap", slices)
	if err != nil {
		t.Fatal(err)
	}
	if !summary.ExecutedQty.Equal(d("0.123")) {
		t.Errorf("executed qty = %s, want the submitted 0.123", summary.ExecutedQty)
	}
}

func TestRunner_SimulatedDeterministicBySeed(t *testing.T) {
	slices, err := schedule.BuildTimeSchedule(types.SideBuy, d("0.3"), 6, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	run := func() types.ExecutionSummary {
		runner, _ := newSimulatedRunner(99, 0.002)
		summary, err := runner.RunSchedule(context.Background(), "BTCUSDT", "twap", slices)
		if err != nil {
			t.Fatal(err)
		}
		return summary
	}

	first, second := run(), run()
	if !first.AveragePrice.Equal(second.AveragePrice) {
		t.Errorf("average price differs across identical seeds: %s vs %s",
			first.AveragePrice, second.AveragePrice)
	}
	if !first.PriceStdDev.Equal(second.PriceStdDev) {
		t.Errorf("std dev differs across identical seeds: %s vs %s",
			first.PriceStdDev, second.PriceStdDev)
	}
}

func TestRunner_SimulatedSlippageBounded(t *testing.T) {
	slices, err := schedule.BuildTimeSchedule(types.SideBuy, d("0.5"), 20, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	runner, _ := newSimulatedRunner(42, 0.002)
	summary, err := runner.RunSchedule(context.Background(), "BTCUSDT", "twap", slices)
	if err != nil {
		t.Fatal(err)
	}

	lower := d("45000").Mul(d("0.998"))
	upper := d("45000").Mul(d("1.002"))
	if summary.MinPrice.LessThan(lower) || summary.MaxPrice.GreaterThan(upper) {
		t.Errorf("fill range [%s, %s] outside slippage band [%s, %s]",
			summary.MinPrice, summary.MaxPrice, lower, upper)
	}
	if summary.AveragePrice.LessThan(summary.MinPrice) ||
		summary.AveragePrice.GreaterThan(summary.MaxPrice) {
		t.Errorf("average %s outside [%s, %s]",
			summary.AveragePrice, summary.MinPrice, summary.MaxPrice)
	}
}

func TestRunner_SimulatedGridFillsAtLevelPrices(t *testing.T) {
	grid, err := schedule.BuildPriceGrid(d("100"), d("1000"), d("8"), 5)
	if err != nil {
		t.Fatal(err)
	}

	runner, _ := newSimulatedRunner(3, 0.002) // slippage must not touch limit fills
	summary, err := runner.RunSchedule(context.Background(), "BTCUSDT", "grid", grid.Slices())
	if err != nil {
		t.Fatal(err)
	}

	if summary.OrdersExecuted != 4 {
		t.Fatalf("executed = %d, want 4", summary.OrdersExecuted)
	}
	if !summary.MinPrice.Equal(d("96")) || !summary.MaxPrice.Equal(d("104")) {
		t.Errorf("fill range [%s, %s], want exactly [96, 104]",
			summary.MinPrice, summary.MaxPrice)
	}
	// Quantities round at the symbol step, so completion sits just under 1.
	if summary.CompletionRate.LessThan(d("0.999")) ||
		summary.CompletionRate.GreaterThan(d("1")) {
		t.Errorf("completion rate = %s, want within (0.999, 1]", summary.CompletionRate)
	}
}

func TestVirtualClock(t *testing.T) {
	clock := &VirtualClock{}
	ctx := context.Background()

	if err := clock.Sleep(ctx, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := clock.Sleep(ctx, 30*time.Second); err != nil {
		t.Fatal(err)
	}
	if clock.Elapsed != 90*time.Second {
		t.Errorf("elapsed = %s, want 90s", clock.Elapsed)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := clock.Sleep(cancelled, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
