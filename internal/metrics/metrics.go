// Package metrics exposes Prometheus metrics for order placement and
// schedule execution.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersTotal counts submitted orders by terminal status.
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "futorders_orders_total",
		Help: "Total orders submitted, by symbol, side and status.",
	}, []string{"symbol", "side", "status"})

	// SlicesFailedTotal counts schedule slices that exhausted their retries.
	SlicesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "futorders_slices_failed_total",
		Help: "Schedule slices that failed after retries, by symbol and strategy.",
	}, []string{"symbol", "strategy"})

	// SentimentBlockedTotal counts trades skipped by the sentiment gate.
	SentimentBlockedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "futorders_sentiment_blocked_total",
		Help: "Trades blocked by the fear & greed gate, by symbol and side.",
	}, []string{"symbol", "side"})

	// ScheduleCompletionRate reports the completion rate of the last run.
	ScheduleCompletionRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "futorders_schedule_completion_rate",
		Help: "Executed/requested quantity ratio of the last schedule run.",
	}, []string{"symbol", "strategy"})

	// OrderLatency observes exchange round-trip time per order.
	OrderLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "futorders_order_latency_seconds",
		Help:    "Order submission latency in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	// ExchangeErrorsTotal counts exchange call failures by class.
	ExchangeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "futorders_exchange_errors_total",
		Help: "Exchange call failures, by error type.",
	}, []string{"type"})

	// BuildInfo carries version metadata as constant labels.
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "futorders_build_info",
		Help: "Build information.",
	}, []string{"version", "commit", "date"})
)

// SetBuildInfo sets the build information metric.
func SetBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
}
