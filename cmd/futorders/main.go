// Package main is the entry point for the futures order toolkit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/futures-orders/internal/config"
	"github.com/tathienbao/futures-orders/internal/execlog"
	"github.com/tathienbao/futures-orders/internal/marketdata"
	"github.com/tathienbao/futures-orders/internal/metrics"
	"github.com/tathienbao/futures-orders/internal/order"
	"github.com/tathienbao/futures-orders/internal/sentiment"
	"github.com/tathienbao/futures-orders/internal/types"
)

// Version information (set by build flags).
var (
	Version   = "0.3.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		cmdVersion()
	case "help", "-h", "--help":
		printUsage()
	case "market":
		cmdMarket(os.Args[2:])
	case "limit":
		cmdLimit(os.Args[2:])
	case "stoplimit":
		cmdStopLimit(os.Args[2:])
	case "oco":
		cmdOCO(os.Args[2:])
	case "twap":
		cmdTWAP(os.Args[2:])
	case "grid":
		cmdGrid(os.Args[2:])
	case "validate":
		cmdValidate(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`futorders - Binance USDⓈ-M futures order toolkit

Usage:
  futorders <command> [options]

Commands:
  market     Place a market order
  limit      Place a limit order
  stoplimit  Place a stop-limit order
  oco        Place a take-profit/stop-loss pair (client-side OCO)
  twap       Split a large order into timed slices
  grid       Place resting orders across a price band
  validate   Validate configuration and data files
  version    Show version information
  help       Show this help message

Examples:
  futorders market --symbol BTCUSDT --side BUY --quantity 0.01 --simulate
  futorders limit --symbol ETHUSDT --side SELL --quantity 0.5 --price 2600
  futorders twap --symbol BTCUSDT --side BUY --quantity 0.3 --orders 6 --duration 10m
  futorders grid --symbol BTCUSDT --investment 1000 --range-pct 8 --count 5 --simulate

Use "futorders <command> --help" for more information about a command.`)
}

func cmdVersion() {
	fmt.Printf("futorders version %s\n", Version)
	fmt.Printf("  Build time: %s\n", BuildTime)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	metrics.SetBuildInfo(Version, GitCommit, BuildTime)
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	flags := &commonFlags{}
	fs.StringVar(&flags.configPath, "config", "", "Path to configuration file (optional)")
	fs.BoolVar(&flags.simulate, "simulate", false, "Simulate fills from historical CSV data")
	fs.BoolVar(&flags.useSentiment, "sentiment", false, "Apply the fear & greed gate before trading")
	fs.BoolVar(&flags.verbose, "verbose", false, "Verbose output")
	return flags
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func cmdMarket(args []string) {
	fs := flag.NewFlagSet("market", flag.ExitOnError)
	flags := registerCommon(fs)
	symbol := fs.String("symbol", "", "Trading pair, e.g. BTCUSDT (required)")
	sideStr := fs.String("side", "", "BUY or SELL (required)")
	qtyStr := fs.String("quantity", "", "Order quantity in base asset (required)")
	fs.Parse(args)

	runSingleOrder(*flags, *symbol, *sideStr, *qtyStr, "", "", types.KindMarket)
}

func cmdLimit(args []string) {
	fs := flag.NewFlagSet("limit", flag.ExitOnError)
	flags := registerCommon(fs)
	symbol := fs.String("symbol", "", "Trading pair, e.g. BTCUSDT (required)")
	sideStr := fs.String("side", "", "BUY or SELL (required)")
	qtyStr := fs.String("quantity", "", "Order quantity in base asset (required)")
	priceStr := fs.String("price", "", "Limit price (required)")
	fs.Parse(args)

	runSingleOrder(*flags, *symbol, *sideStr, *qtyStr, *priceStr, "", types.KindLimit)
}

func cmdStopLimit(args []string) {
	fs := flag.NewFlagSet("stoplimit", flag.ExitOnError)
	flags := registerCommon(fs)
	symbol := fs.String("symbol", "", "Trading pair, e.g. BTCUSDT (required)")
	sideStr := fs.String("side", "", "BUY or SELL (required)")
	qtyStr := fs.String("quantity", "", "Order quantity in base asset (required)")
	priceStr := fs.String("price", "", "Limit price (required)")
	stopStr := fs.String("stop", "", "Stop trigger price (required)")
	fs.Parse(args)

	runSingleOrder(*flags, *symbol, *sideStr, *qtyStr, *priceStr, *stopStr, types.KindStopLimit)
}

func runSingleOrder(flags commonFlags, symbol, sideStr, qtyStr, priceStr, stopStr string, kind types.OrderKind) {
	side, err := types.ParseSide(sideStr)
	if err != nil {
		fatalf("Invalid --side %q: must be BUY or SELL", sideStr)
	}
	qty, err := parseQuantity("quantity", qtyStr)
	if err != nil {
		fatalf("%v", err)
	}

	spec := types.OrderSpec{Symbol: symbol, Side: side, Kind: kind, Quantity: qty}
	if kind != types.KindMarket {
		price, err := parseQuantity("price", priceStr)
		if err != nil {
			fatalf("%v", err)
		}
		spec.Price = price
	}
	if kind == types.KindStopLimit {
		stop, err := parseQuantity("stop", stopStr)
		if err != nil {
			fatalf("%v", err)
		}
		spec.StopPrice = stop
	}

	a, err := newApp(flags)
	if err != nil {
		fatalf("Startup error: %v", err)
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	if err := a.validateSymbol(ctx, symbol); err != nil {
		fatalf("Validation failed: %v", err)
	}

	current, err := a.currentPrice(ctx, symbol)
	if err != nil {
		fatalf("Price lookup failed: %v", err)
	}

	result, err := order.Validate(spec, current)
	if err != nil {
		fatalf("Validation failed: %v", err)
	}
	for _, warning := range result.Warnings {
		fmt.Printf("Warning: %s\n", warning)
	}
	if kind != types.KindMarket {
		distance := spec.Price.Sub(current).Div(current).Mul(decimal.NewFromInt(100))
		fmt.Printf("Current price:   %s\n", types.RoundPrice(current, symbol))
		fmt.Printf("Distance:        %s%%\n", distance.Round(2))
		fmt.Printf("Order value:     %s\n", spec.Price.Mul(qty).Round(2))
		fmt.Printf("Fill likelihood: %s\n", result.Likelihood)
	}
	if kind == types.KindStopLimit {
		fmt.Printf("Stop distance:   %s%% (%s risk)\n",
			result.RiskPct.Round(2), result.Risk)
	}

	if !a.checkSentiment(ctx, flags.useSentiment, symbol, side) {
		return
	}

	ack, err := a.runner.PlaceOrder(ctx, spec)
	if err != nil {
		fatalf("Order failed: %v", err)
	}

	fmt.Printf("\n=== ORDER PLACED (%s) ===\n", a.mode())
	fmt.Printf("Order ID:   %s\n", ack.ID)
	fmt.Printf("Symbol:     %s\n", symbol)
	fmt.Printf("Side:       %s\n", side)
	fmt.Printf("Type:       %s\n", kind)
	fmt.Printf("Quantity:   %s\n", types.RoundQuantity(qty, symbol))
	if !ack.Price.IsZero() {
		fmt.Printf("Price:      %s\n", types.RoundPrice(ack.Price, symbol))
	}
	fmt.Printf("Status:     %s\n", ack.Status)
}

func cmdOCO(args []string) {
	fs := flag.NewFlagSet("oco", flag.ExitOnError)
	flags := registerCommon(fs)
	symbol := fs.String("symbol", "", "Trading pair, e.g. BTCUSDT (required)")
	sideStr := fs.String("side", "SELL", "BUY or SELL (default SELL, exits a long)")
	qtyStr := fs.String("quantity", "", "Order quantity in base asset (required)")
	tpStr := fs.String("take-profit", "", "Take-profit limit price (required)")
	stopStr := fs.String("stop", "", "Stop-loss trigger price (required)")
	fs.Parse(args)

	side, err := types.ParseSide(*sideStr)
	if err != nil {
		fatalf("Invalid --side %q: must be BUY or SELL", *sideStr)
	}
	qty, err := parseQuantity("quantity", *qtyStr)
	if err != nil {
		fatalf("%v", err)
	}
	takeProfit, err := parseQuantity("take-profit", *tpStr)
	if err != nil {
		fatalf("%v", err)
	}
	stop, err := parseQuantity("stop", *stopStr)
	if err != nil {
		fatalf("%v", err)
	}

	a, err := newApp(*flags)
	if err != nil {
		fatalf("Startup error: %v", err)
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := a.validateSymbol(ctx, *symbol); err != nil {
		fatalf("Validation failed: %v", err)
	}

	current, err := a.currentPrice(ctx, *symbol)
	if err != nil {
		fatalf("Price lookup failed: %v", err)
	}
	if err := order.ValidateOCO(side, takeProfit, stop, current); err != nil {
		fatalf("Validation failed: %v", err)
	}

	reward := takeProfit.Sub(current).Abs()
	risk := current.Sub(stop).Abs()
	if risk.IsPositive() {
		fmt.Printf("Risk/reward: 1:%s (risk %s, reward %s per unit)\n",
			reward.Div(risk).Round(2),
			types.RoundPrice(risk, *symbol),
			types.RoundPrice(reward, *symbol))
	}

	if !a.checkSentiment(ctx, flags.useSentiment, *symbol, side) {
		return
	}

	pair, err := a.runner.PlaceOCO(ctx, *symbol, side, qty, takeProfit, stop)
	if err != nil {
		fatalf("OCO failed: %v", err)
	}

	fmt.Printf("\n=== OCO PLACED (%s) ===\n", a.mode())
	fmt.Printf("Symbol:       %s\n", *symbol)
	fmt.Printf("Side:         %s\n", side)
	fmt.Printf("Quantity:     %s\n", types.RoundQuantity(qty, *symbol))
	fmt.Printf("Take-profit:  %s (order %s)\n", types.RoundPrice(takeProfit, *symbol), pair.TakeProfit.ID)
	fmt.Printf("Stop-loss:    %s (order %s)\n", types.RoundPrice(stop, *symbol), pair.StopLoss.ID)
	fmt.Println("\nNote: the two legs are independent orders. If one fills, the")
	fmt.Println("other must be cancelled client-side; the exchange does not link them.")
}

func cmdValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file (optional)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("Configuration error: %v", err)
	}

	fmt.Println("Configuration is valid!")
	fmt.Printf("  Testnet:        %v\n", cfg.Exchange.Testnet)
	fmt.Printf("  Credentials:    %v\n", cfg.HasCredentials())
	fmt.Printf("  Max retries:    %d\n", cfg.Execution.MaxRetries)
	fmt.Printf("  Slippage:       %.3f%%\n", cfg.Simulation.SlippagePct*100)
	fmt.Printf("  Execution log:  %s\n", cfg.Logging.DBPath)

	if store, err := execlog.NewStore(cfg.Logging.DBPath); err == nil {
		n, _ := store.Count(context.Background(), "BTCUSDT")
		fmt.Printf("  Logged orders:  %d BTCUSDT records\n", n)
		_ = store.Close()
	} else {
		fmt.Printf("  Logged orders:  store unavailable (%v)\n", err)
	}

	prices := marketdata.NewCSVSource(cfg.Data.PricesCSV)
	fmt.Printf("  Prices CSV:     %s (%d BTCUSDT rows)\n",
		cfg.Data.PricesCSV, prices.RowCount("BTCUSDT"))
	fmt.Printf("  Sentiment CSV:  %s (latest index %d)\n",
		cfg.Data.SentimentCSV, sentiment.NewSource(cfg.Data.SentimentCSV).Latest().Index)
}
