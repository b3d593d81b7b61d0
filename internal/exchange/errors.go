package exchange

import (
	"errors"

	ccxt "github.com/ccxt/ccxt/go/v4"
)

// ErrMaintenance means the exchange is down for maintenance; callers
// should skip trading rather than retry.
var ErrMaintenance = errors.New("exchange on maintenance")

// IsRetryable reports whether an exchange error is transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		switch ccxtErr.Type {
		case ccxt.NetworkErrorErrType,
			ccxt.RequestTimeoutErrType,
			ccxt.ExchangeNotAvailableErrType,
			ccxt.RateLimitExceededErrType,
			ccxt.DDoSProtectionErrType,
			ccxt.BadResponseErrType,
			ccxt.NullResponseErrType:
			return true
		default:
			return false
		}
	}

	return false
}
