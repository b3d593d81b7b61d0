package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/futures-orders/internal/schedule"
	"github.com/tathienbao/futures-orders/internal/sentiment"
	"github.com/tathienbao/futures-orders/internal/types"
)

func cmdTWAP(args []string) {
	fs := flag.NewFlagSet("twap", flag.ExitOnError)
	flags := registerCommon(fs)
	symbol := fs.String("symbol", "", "Trading pair, e.g. BTCUSDT (required)")
	sideStr := fs.String("side", "", "BUY or SELL (required)")
	qtyStr := fs.String("quantity", "", "Total quantity to execute (required)")
	orders := fs.Int("orders", 5, "Number of slices")
	duration := fs.Duration("duration", 5*time.Minute, "Total execution window, e.g. 10m")
	fs.Parse(args)

	side, err := types.ParseSide(*sideStr)
	if err != nil {
		fatalf("Invalid --side %q: must be BUY or SELL", *sideStr)
	}
	total, err := parseQuantity("quantity", *qtyStr)
	if err != nil {
		fatalf("%v", err)
	}

	slices, err := schedule.BuildTimeSchedule(side, total, *orders, *duration)
	if err != nil {
		fatalf("Invalid schedule: %v", err)
	}

	a, err := newApp(*flags)
	if err != nil {
		fatalf("Startup error: %v", err)
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	if err := a.validateSymbol(ctx, *symbol); err != nil {
		fatalf("Validation failed: %v", err)
	}

	if !a.checkSentiment(ctx, flags.useSentiment, *symbol, side) {
		return
	}

	interval := *duration / time.Duration(*orders)
	fmt.Printf("\n=== TWAP PLAN (%s) ===\n", a.mode())
	fmt.Printf("Symbol:      %s\n", *symbol)
	fmt.Printf("Side:        %s\n", side)
	fmt.Printf("Total qty:   %s\n", total)
	fmt.Printf("Slices:      %d x %s\n", *orders, slices[0].Quantity)
	fmt.Printf("Interval:    %s\n", interval)
	fmt.Println()

	summary, err := a.runner.RunSchedule(ctx, *symbol, "twap", slices)
	if err != nil {
		if errors.Is(err, types.ErrNoFills) {
			printSummary(*symbol, summary)
		}
		fatalf("Schedule aborted: %v", err)
	}

	printSummary(*symbol, summary)
}

func cmdGrid(args []string) {
	fs := flag.NewFlagSet("grid", flag.ExitOnError)
	flags := registerCommon(fs)
	symbol := fs.String("symbol", "", "Trading pair, e.g. BTCUSDT (required)")
	investStr := fs.String("investment", "", "Quote-asset amount to distribute (required)")
	rangeStr := fs.String("range-pct", "8", "Total price band width in percent")
	count := fs.Int("count", 5, "Number of grid levels")
	fs.Parse(args)

	investment, err := parseQuantity("investment", *investStr)
	if err != nil {
		fatalf("%v", err)
	}
	rangePct, err := parseQuantity("range-pct", *rangeStr)
	if err != nil {
		fatalf("%v", err)
	}

	a, err := newApp(*flags)
	if err != nil {
		fatalf("Startup error: %v", err)
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	if err := a.validateSymbol(ctx, *symbol); err != nil {
		fatalf("Validation failed: %v", err)
	}

	current, err := a.currentPrice(ctx, *symbol)
	if err != nil {
		fatalf("Price lookup failed: %v", err)
	}

	grid, err := schedule.BuildPriceGrid(current, investment, rangePct, *count)
	if err != nil {
		fatalf("Invalid grid: %v", err)
	}

	// A grid sells into strength and buys into weakness on both sides, so
	// the directional gate does not apply; extreme greed still deserves a
	// warning because the band is centered on a possibly stretched price.
	if flags.useSentiment {
		reading := a.sentiment.Latest()
		if sentiment.GridCaution(reading.Index) {
			fmt.Printf("Warning: fear & greed index is %d (extreme greed); a symmetric\n", reading.Index)
			fmt.Println("grid around the current price may be poorly positioned.")
		}
	}

	printGridPlan(*symbol, current, grid, a)

	summary, err := a.runner.RunSchedule(ctx, *symbol, "grid", grid.Slices())
	if err != nil {
		if errors.Is(err, types.ErrNoFills) {
			printSummary(*symbol, summary)
		}
		fatalf("Schedule aborted: %v", err)
	}

	printSummary(*symbol, summary)
}

func printGridPlan(symbol string, current decimal.Decimal, grid *schedule.PriceGrid, a *app) {
	fmt.Printf("\n=== GRID PLAN (%s) ===\n", a.mode())
	fmt.Printf("Symbol:        %s\n", symbol)
	fmt.Printf("Current price: %s\n", types.RoundPrice(current, symbol))
	fmt.Printf("Band:          [%s, %s], step %s\n",
		types.RoundPrice(grid.Lower, symbol),
		types.RoundPrice(grid.Upper, symbol),
		types.RoundPrice(grid.Step, symbol))
	fmt.Printf("Levels:        %d (%d active)\n", len(grid.Levels), grid.ActiveCount())
	fmt.Println()

	for _, level := range grid.Levels {
		price := types.RoundPrice(level.Price, symbol)
		if level.Skip {
			fmt.Printf("  %2d  %-10s  (skipped: at current price)\n", level.Index, price)
			continue
		}
		fmt.Printf("  %2d  %-10s  %-4s  qty %s\n",
			level.Index, price, level.Side, types.RoundQuantity(level.Quantity, symbol))
	}
	fmt.Println()
}

func printSummary(symbol string, summary types.ExecutionSummary) {
	fmt.Printf("\n=== EXECUTION SUMMARY ===\n")
	fmt.Printf("Orders planned:   %d\n", summary.OrdersPlanned)
	fmt.Printf("Orders executed:  %d\n", summary.OrdersExecuted)
	fmt.Printf("Orders failed:    %d\n", summary.OrdersFailed)
	fmt.Printf("Requested qty:    %s\n", summary.RequestedQty)
	fmt.Printf("Executed qty:     %s\n", summary.ExecutedQty)
	fmt.Printf("Completion rate:  %s%%\n", summary.CompletionRate.Mul(decimal.NewFromInt(100)).Round(2))
	if summary.OrdersExecuted > 0 {
		fmt.Printf("Average price:    %s\n", types.RoundPrice(summary.AveragePrice, symbol))
		fmt.Printf("Price range:      [%s, %s]\n",
			types.RoundPrice(summary.MinPrice, symbol),
			types.RoundPrice(summary.MaxPrice, symbol))
		fmt.Printf("Price std dev:    %s\n", summary.PriceStdDev.Round(4))
		fmt.Printf("Total value:      %s\n", summary.TotalValue.Round(2))
	}
}
