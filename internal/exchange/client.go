// Package exchange wraps the Binance USDⓈ-M futures client with retry,
// rate limiting and decimal conversion.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/tathienbao/futures-orders/internal/config"
	"github.com/tathienbao/futures-orders/internal/types"
)

// OrderResult is the exchange's acknowledgement of one submitted order.
type OrderResult struct {
	ID     string
	Status string
	Price  decimal.Decimal // average fill price when reported
}

// Client talks to Binance USDⓈ-M futures through ccxt.
type Client struct {
	cfg      config.ExchangeConfig
	retry    retryPolicy
	logger   *slog.Logger
	exchange *ccxt.Binanceusdm
	limiter  *rate.Limiter

	marketsMu     sync.Mutex
	marketsLoaded bool
	markets       map[string]bool // unified symbols listed on the exchange
}

type retryPolicy struct {
	maxAttempts int
	minDelay    time.Duration
	maxDelay    time.Duration
}

// NewClient constructs a futures client from the configuration. Live
// credentials must be present; use RequireCredentials before calling.
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	userConfig := map[string]interface{}{
		"apiKey":          cfg.Exchange.APIKey,
		"secret":          cfg.Exchange.APISecret,
		"enableRateLimit": true,
		"options": map[string]interface{}{
			"adjustForTimeDifference": true,
			"defaultType":             "future",
		},
	}

	ex := ccxt.NewBinanceusdm(userConfig)
	if cfg.Exchange.Testnet {
		ex.SetSandboxMode(true)
	}

	return &Client{
		cfg: cfg.Exchange,
		retry: retryPolicy{
			maxAttempts: cfg.Execution.MaxRetries + 1,
			minDelay:    cfg.RetryDelay(),
			maxDelay:    cfg.MaxRetryDelay(),
		},
		logger:   logger,
		exchange: ex,
		limiter:  rate.NewLimiter(rate.Limit(cfg.Exchange.RateLimitPerSecond), 1),
	}, nil
}

// CurrentPrice fetches the latest traded price for a symbol.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	unified := ToUnified(symbol)

	var last float64
	err := c.callWithRetry(ctx, "fetch_ticker", func() error {
		if err := c.ensureMarketsLoaded(ctx); err != nil {
			return err
		}

		ticker, err := c.exchange.FetchTicker(unified)
		if err != nil {
			return err
		}
		if ticker.Last == nil {
			return fmt.Errorf("%w: no last price for %s", types.ErrMarketDataUnready, symbol)
		}

		last = *ticker.Last
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	return decimal.NewFromFloat(last), nil
}

// SubmitOrder places one order and returns the exchange acknowledgement.
// The spec is rounded to symbol precision before submission.
func (c *Client) SubmitOrder(ctx context.Context, spec types.OrderSpec) (OrderResult, error) {
	spec = spec.Rounded()
	unified := ToUnified(spec.Symbol)
	side := strings.ToLower(spec.Side.String())
	amount, _ := spec.Quantity.Float64()

	var opts []ccxt.CreateOrderOptions
	orderType := "market"

	switch spec.Kind {
	case types.KindMarket:

	case types.KindLimit:
		orderType = "limit"
		price, _ := spec.Price.Float64()
		opts = append(opts,
			ccxt.WithCreateOrderPrice(price),
			ccxt.WithCreateOrderParams(map[string]interface{}{
				"timeInForce": "GTC",
			}),
		)

	case types.KindStopLimit:
		orderType = "limit"
		price, _ := spec.Price.Float64()
		stop, _ := spec.StopPrice.Float64()
		opts = append(opts,
			ccxt.WithCreateOrderPrice(price),
			ccxt.WithCreateOrderParams(map[string]interface{}{
				"stopPrice":   stop,
				"timeInForce": "GTC",
			}),
		)

	default:
		return OrderResult{}, fmt.Errorf("%w: unsupported order kind %s", types.ErrSubmission, spec.Kind)
	}

	var order ccxt.Order
	err := c.callWithRetry(ctx, "create_order", func() error {
		if err := c.ensureMarketsLoaded(ctx); err != nil {
			return err
		}

		result, err := c.exchange.CreateOrder(unified, orderType, side, amount, opts...)
		if err != nil {
			return err
		}

		order = result
		return nil
	})
	if err != nil {
		return OrderResult{}, fmt.Errorf("%w: %v", types.ErrSubmission, err)
	}

	return convertOrder(order), nil
}

// CancelOrder cancels a resting order by id.
func (c *Client) CancelOrder(ctx context.Context, orderID, symbol string) error {
	unified := ToUnified(symbol)

	err := c.callWithRetry(ctx, "cancel_order", func() error {
		_, err := c.exchange.CancelOrder(orderID, ccxt.WithCancelOrderSymbol(unified))
		return err
	})
	if err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}

func convertOrder(order ccxt.Order) OrderResult {
	var res OrderResult
	if order.Id != nil {
		res.ID = *order.Id
	}
	if order.Status != nil {
		res.Status = *order.Status
	}
	if order.Average != nil {
		res.Price = decimal.NewFromFloat(*order.Average)
	} else if order.Price != nil {
		res.Price = decimal.NewFromFloat(*order.Price)
	}
	return res
}

func (c *Client) ensureMarketsLoaded(ctx context.Context) error {
	if c.marketsLoaded {
		return nil
	}

	c.marketsMu.Lock()
	defer c.marketsMu.Unlock()

	if c.marketsLoaded {
		return nil
	}

	loadErr := c.callWithRetry(ctx, "load_markets", func() error {
		loaded, err := c.exchange.LoadMarkets()
		if err != nil {
			return err
		}
		c.markets = make(map[string]bool, len(loaded))
		for unified := range loaded {
			c.markets[unified] = true
		}
		return nil
	})
	if loadErr != nil {
		return loadErr
	}

	c.marketsLoaded = true
	c.logger.Debug("market metadata loaded", "markets", len(c.markets))
	return nil
}

// ValidateSymbol checks a pair against the exchange's market metadata.
// Markets are loaded lazily on the first call.
func (c *Client) ValidateSymbol(ctx context.Context, symbol string) error {
	if err := c.ensureMarketsLoaded(ctx); err != nil {
		return err
	}

	c.marketsMu.Lock()
	listed := c.markets[ToUnified(symbol)]
	c.marketsMu.Unlock()

	if !listed {
		return fmt.Errorf("%w: %s is not listed on the exchange", types.ErrInvalidSymbol, symbol)
	}
	return nil
}

func (c *Client) callWithRetry(ctx context.Context, operation string, fn func() error) error {
	attempt := 0
	delay := c.retry.minDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := c.retry.maxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		attempt++
		start := time.Now()
		err := fn()
		latency := time.Since(start)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("exchange call succeeded after retry",
					"operation", operation,
					"attempts", attempt,
					"latency", latency,
				)
			}
			return nil
		}

		normalizedErr, retryable := classifyError(err)

		if errors.Is(normalizedErr, ErrMaintenance) {
			c.logger.Warn("exchange on maintenance",
				"operation", operation,
				"error", normalizedErr,
			)
			return normalizedErr
		}

		if !retryable || attempt >= c.retry.maxAttempts {
			c.logger.Error("exchange call failed",
				"operation", operation,
				"attempts", attempt,
				"latency", latency,
				"error", normalizedErr,
			)
			return normalizedErr
		}

		wait := delay
		if wait > maxDelay {
			wait = maxDelay
		}

		c.logger.Warn("exchange call failed, retrying",
			"operation", operation,
			"attempt", attempt,
			"wait", wait,
			"error", normalizedErr,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func classifyError(err error) (error, bool) {
	if err == nil {
		return nil, false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err, false
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		if ccxtErr.Type == ccxt.OnMaintenanceErrType {
			message := strings.TrimSpace(ccxtErr.Message)
			if message == "" {
				message = "exchange under maintenance"
			}
			return fmt.Errorf("%w: %s", ErrMaintenance, message), false
		}
		return err, IsRetryable(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return err, true
	}

	return err, false
}

// ToUnified converts a compact futures symbol like "BTCUSDT" into the
// unified ccxt form "BTC/USDT:USDT". Symbols already in unified form pass
// through unchanged.
func ToUnified(symbol string) string {
	if strings.Contains(symbol, "/") {
		return symbol
	}
	base, ok := strings.CutSuffix(symbol, "USDT")
	if !ok || base == "" {
		return symbol
	}
	return base + "/USDT:USDT"
}
