package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/futures-orders/internal/config"
	"github.com/tathienbao/futures-orders/internal/exchange"
	"github.com/tathienbao/futures-orders/internal/execlog"
	"github.com/tathienbao/futures-orders/internal/execution"
	"github.com/tathienbao/futures-orders/internal/marketdata"
	"github.com/tathienbao/futures-orders/internal/metrics"
	"github.com/tathienbao/futures-orders/internal/sentiment"
	"github.com/tathienbao/futures-orders/internal/types"
)

// commonFlags are shared by every order-placing command.
type commonFlags struct {
	configPath   string
	simulate     bool
	useSentiment bool
	verbose      bool
}

// app wires the collaborators one command invocation needs. Everything is
// scoped to the invocation and torn down on Close.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	prices    marketdata.PriceSource
	sentiment *sentiment.Source
	runner    *execution.Runner
	client    *exchange.Client // nil in simulation
	store     *execlog.Store   // nil when the db cannot be opened
	metricsSv *metrics.Server  // nil unless enabled
	simulate  bool
}

// newApp loads configuration and builds the execution stack. When
// simulate is false, live credentials are required and their absence is a
// fatal configuration error.
func newApp(flags commonFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	logger := setupLogger(cfg, flags.verbose)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		sentiment: sentiment.NewSource(cfg.Data.SentimentCSV),
		simulate:  flags.simulate,
	}

	store, err := execlog.NewStore(cfg.Logging.DBPath)
	if err != nil {
		// Losing durability is not fatal; the structured log still records
		// every outcome.
		logger.Warn("execution log store unavailable", "path", cfg.Logging.DBPath, "error", err)
	} else {
		a.store = store
	}
	execLogger := execlog.New(logger, a.store)

	mode := execlog.ModeLive
	var submitter execution.Submitter
	var clock execution.Clock = execution.RealClock{}

	if flags.simulate {
		mode = execlog.ModeSimulated
		csv := marketdata.NewCSVSource(cfg.Data.PricesCSV)
		a.prices = csv

		seed := cfg.Simulation.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		submitter = &execution.SimulatedSubmitter{
			Prices:      csv,
			SlippagePct: cfg.Simulation.SlippagePct,
			Rng:         rand.New(rand.NewSource(seed)),
		}
		clock = &execution.VirtualClock{}
	} else {
		client, err := exchange.NewClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		a.client = client
		a.prices = &livePriceSource{client: client}
		submitter = client
	}

	a.runner = &execution.Runner{
		Submitter:  submitter,
		Clock:      clock,
		Log:        execLogger,
		Metrics:    metrics.NewRecorder(),
		Logger:     logger,
		Mode:       mode,
		MaxRetries: cfg.Execution.MaxRetries,
		RetryDelay: cfg.RetryDelay(),
		MaxDelay:   cfg.MaxRetryDelay(),
	}

	if cfg.Metrics.Enabled {
		a.metricsSv = metrics.NewServer(metrics.ServerConfig{
			Port:        cfg.Metrics.Port,
			MetricsPath: cfg.Metrics.Path,
		}, logger)
		a.metricsSv.Start()
	}

	return a, nil
}

// Close releases everything the invocation acquired.
func (a *app) Close() {
	if a.metricsSv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.metricsSv.Shutdown(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// currentPrice resolves the reference price for validation and planning.
func (a *app) currentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return a.prices.LatestPrice(ctx, symbol)
}

// validateSymbol checks the pair against the simulated whitelist in
// simulation and against the exchange's market metadata live.
func (a *app) validateSymbol(ctx context.Context, symbol string) error {
	if a.simulate {
		if !types.IsKnownSymbol(symbol) {
			return fmt.Errorf("%w: %s is not in the simulated set", types.ErrInvalidSymbol, symbol)
		}
		return nil
	}
	return a.client.ValidateSymbol(ctx, symbol)
}

// checkSentiment applies the fear & greed gate when requested. A blocked
// trade is reported and logged as a skip; the caller exits cleanly.
func (a *app) checkSentiment(ctx context.Context, enabled bool, symbol string, side types.Side) bool {
	if !enabled {
		return true
	}

	reading := a.sentiment.Latest()
	if sentiment.Allow(side, reading.Index) {
		a.logger.Info("sentiment gate passed",
			"symbol", symbol,
			"side", side.String(),
			"index", reading.Index,
		)
		return true
	}

	blocked := fmt.Errorf("%w: fear & greed index %d", types.ErrSentimentBlocked, reading.Index)
	a.runner.Metrics.RecordSentimentBlocked(symbol, side.String())
	a.runner.Log.Append(ctx, execlog.Record{
		Symbol: symbol,
		Side:   side,
		Status: types.SliceSkipped.String(),
		Mode:   a.mode(),
		Detail: blocked.Error(),
	})

	fmt.Printf("Trade skipped: %v, %s orders are blocked.\n", blocked, side)
	return false
}

func (a *app) mode() execlog.Mode {
	if a.simulate {
		return execlog.ModeSimulated
	}
	return execlog.ModeLive
}

// livePriceSource adapts the exchange client to the PriceSource interface.
type livePriceSource struct {
	client *exchange.Client
}

func (s *livePriceSource) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return s.client.CurrentPrice(ctx, symbol)
}

func (s *livePriceSource) PriceAt(ctx context.Context, symbol string, _ int) (decimal.Decimal, error) {
	return s.client.CurrentPrice(ctx, symbol)
}

func setupLogger(cfg *config.Config, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseQuantity parses and checks a positive decimal flag value.
func parseQuantity(name, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, fmt.Errorf("--%s is required", name)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: invalid number %q", name, value)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("--%s must be positive", name)
	}
	return d, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
