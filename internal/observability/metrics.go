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
	// Issuance metrics
	TokensCreated       prometheus.Counter
	MintOperations      prometheus.Counter
	TokensMinted        prometheus.Counter
	OperationFailures   *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	ConfirmationLatency prometheus.Histogram

	// Solana metrics
	RPCCallLatency *prometheus.HistogramVec

	// Journal metrics
	JournalWrites *prometheus.CounterVec

	// Health metrics
	LastSuccessfulOperation prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "sss_shared"
	}
	factory := promauto.With(reg)

	return &Metrics{
		TokensCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "created_total",
			Help:      "Total number of tokens created",
		}),
		MintOperations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "mint_operations_total",
			Help:      "Total number of confirmed mint operations",
		}),
		TokensMinted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "minted_base_units_total",
			Help:      "Total base units minted across all mints",
		}),
		OperationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "operation_failures_total",
			Help:      "Total number of failed operations by operation and error kind",
		}, []string{"operation", "kind"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "operation_duration_seconds",
			Help:      "End-to-end operation duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		}, []string{"operation"}),
		ConfirmationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "confirmation_latency_seconds",
			Help:      "Time from submission to confirmation in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		}),
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		JournalWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "writes_total",
			Help:      "Total number of journal writes by status",
		}, []string{"status"}),
		LastSuccessfulOperation: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_operation_timestamp",
			Help:      "Unix timestamp of last successful create or mint",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordTokenCreated increments the tokens created counter.
func RecordTokenCreated(durationSeconds float64, unix int64) {
	DefaultMetrics.TokensCreated.Inc()
	DefaultMetrics.OperationDuration.WithLabelValues("create").Observe(durationSeconds)
	DefaultMetrics.LastSuccessfulOperation.Set(float64(unix))
}

// RecordTokensMinted records a confirmed mint of amount base units.
func RecordTokensMinted(amount uint64, durationSeconds float64, unix int64) {
	DefaultMetrics.MintOperations.Inc()
	DefaultMetrics.TokensMinted.Add(float64(amount))
	DefaultMetrics.OperationDuration.WithLabelValues("mint").Observe(durationSeconds)
	DefaultMetrics.LastSuccessfulOperation.Set(float64(unix))
}

// RecordOperationFailure records a failed operation.
func RecordOperationFailure(operation, kind string) {
	DefaultMetrics.OperationFailures.WithLabelValues(operation, kind).Inc()
}

// RecordConfirmationLatency records the submit-to-confirm delay.
func RecordConfirmationLatency(seconds float64) {
	DefaultMetrics.ConfirmationLatency.Observe(seconds)
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordJournalWrite records a journal write outcome.
func RecordJournalWrite(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.JournalWrites.WithLabelValues(status).Inc()
}
