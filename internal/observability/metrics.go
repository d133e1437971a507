// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingest metrics
	PoolUpdatesProcessed prometheus.Counter
	PricePointsStored    prometheus.Counter
	IngestErrors         *prometheus.CounterVec

	// Quote metrics
	QuotesComputed *prometheus.CounterVec
	QuoteErrors    *prometheus.CounterVec
	PricesComputed prometheus.Counter
	QuoteLatency   prometheus.Histogram

	// Wallet metrics
	RecordsClassified *prometheus.CounterVec
	SelectionFailures *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency   *prometheus.HistogramVec
	WSMessageLatency prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastPoolUpdate prometheus.Gauge
	ChainHeight    prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "veilmarket"
	}

	return &Metrics{
		// Ingest metrics
		PoolUpdatesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "pool_updates_processed_total",
			Help:      "Total number of pool-state updates processed",
		}),
		PricePointsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "price_points_stored_total",
			Help:      "Total number of price points stored",
		}),
		IngestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "errors_total",
			Help:      "Total number of ingest errors by type",
		}, []string{"error_type"}),

		// Quote metrics
		QuotesComputed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "computed_total",
			Help:      "Total number of swap quotes computed by side",
		}, []string{"side"}),
		QuoteErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "errors_total",
			Help:      "Total number of quote errors by type",
		}, []string{"error_type"}),
		PricesComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "prices_computed_total",
			Help:      "Total number of spot prices computed",
		}),
		QuoteLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "latency_seconds",
			Help:      "End-to-end quote latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Wallet metrics
		RecordsClassified: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "records_classified_total",
			Help:      "Total number of wallet records classified by kind",
		}, []string{"kind"}),
		SelectionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "selection_failures_total",
			Help:      "Total number of record selection failures by mode",
		}, []string{"mode"}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "RPC call latency in seconds by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "message_latency_seconds",
			Help:      "WebSocket message handling latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastPoolUpdate: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_pool_update_timestamp",
			Help:      "Unix timestamp of the last processed pool update",
		}),
		ChainHeight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "chain_height",
			Help:      "Latest chain height seen",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPoolUpdate increments the pool updates counter and stamps last-update.
func RecordPoolUpdate(timestampMs int64) {
	DefaultMetrics.PoolUpdatesProcessed.Inc()
	DefaultMetrics.LastPoolUpdate.Set(float64(timestampMs) / 1000)
}

// RecordPricePointsStored adds to the stored price points counter.
func RecordPricePointsStored(n int) {
	DefaultMetrics.PricePointsStored.Add(float64(n))
}

// RecordIngestError records an ingest error.
func RecordIngestError(errorType string) {
	DefaultMetrics.IngestErrors.WithLabelValues(errorType).Inc()
}

// RecordQuote increments the quotes computed counter for a side.
func RecordQuote(side string) {
	DefaultMetrics.QuotesComputed.WithLabelValues(side).Inc()
}

// ObserveQuoteLatency records end-to-end quote latency.
func ObserveQuoteLatency(seconds float64) {
	DefaultMetrics.QuoteLatency.Observe(seconds)
}

// RecordQuoteError records a quote error.
func RecordQuoteError(errorType string) {
	DefaultMetrics.QuoteErrors.WithLabelValues(errorType).Inc()
}

// RecordPriceComputed increments the spot prices computed counter.
func RecordPriceComputed() {
	DefaultMetrics.PricesComputed.Inc()
}

// RecordClassified records classified wallet records by kind.
func RecordClassified(kind string, n int) {
	DefaultMetrics.RecordsClassified.WithLabelValues(kind).Add(float64(n))
}

// RecordSelectionFailure records a failed record selection.
func RecordSelectionFailure(mode string) {
	DefaultMetrics.SelectionFailures.WithLabelValues(mode).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// UpdateChainHeight updates the chain height gauge.
func UpdateChainHeight(height int64) {
	DefaultMetrics.ChainHeight.Set(float64(height))
}
