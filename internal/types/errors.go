package types

import "errors"

// Sentinel errors for the order bot.
var (
	// Schedule errors
	ErrInvalidScheduleParams = errors.New("invalid schedule parameters")

	// Validation errors
	ErrInvalidSymbol   = errors.New("invalid symbol")
	ErrInvalidSide     = errors.New("side must be BUY or SELL")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrStopPriceLogic  = errors.New("stop price on wrong side of market")
	ErrOCOPriceLogic   = errors.New("take-profit price on wrong side of market")

	// Execution errors
	ErrSentimentBlocked = errors.New("trade blocked by market sentiment")
	ErrSubmission       = errors.New("order submission failed")
	ErrNoFills          = errors.New("no orders were executed")

	// Configuration errors
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingCredentials = errors.New("live mode requires API credentials")
	ErrMarketDataUnready  = errors.New("market data unavailable")
)
