package metrics

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recorder provides methods for recording metrics.
type Recorder struct{}

// NewRecorder creates a new metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordOrder records one submitted order outcome.
func (r *Recorder) RecordOrder(symbol, side, status string) {
	OrdersTotal.WithLabelValues(symbol, side, status).Inc()
}

// RecordSliceFailed records a schedule slice that failed after retries.
func (r *Recorder) RecordSliceFailed(symbol, strategy string) {
	SlicesFailedTotal.WithLabelValues(symbol, strategy).Inc()
}

// RecordSentimentBlocked records a trade skipped by the sentiment gate.
func (r *Recorder) RecordSentimentBlocked(symbol, side string) {
	SentimentBlockedTotal.WithLabelValues(symbol, side).Inc()
}

// RecordCompletionRate records the completion rate of a finished schedule.
func (r *Recorder) RecordCompletionRate(symbol, strategy string, rate decimal.Decimal) {
	ScheduleCompletionRate.WithLabelValues(symbol, strategy).Set(rate.InexactFloat64())
}

// RecordOrderLatency records order submission latency.
func (r *Recorder) RecordOrderLatency(duration time.Duration) {
	OrderLatency.Observe(duration.Seconds())
}

// RecordExchangeError records an exchange call failure.
func (r *Recorder) RecordExchangeError(errorType string) {
	ExchangeErrorsTotal.WithLabelValues(errorType).Inc()
}

// Timer is a helper for measuring latency.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed duration.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// ObserveOrder observes the elapsed time as order latency.
func (t *Timer) ObserveOrder() {
	OrderLatency.Observe(t.Elapsed().Seconds())
}
