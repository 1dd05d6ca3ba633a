// Package metrics exposes Prometheus instrumentation for the HTTP edge,
// the account actors, and the process's own runtime stats. It replaces
// src/metrics's package-level globals with the same promauto pattern,
// wired to the actor/registry/money types instead of a shared mutable DB.
package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)
)

var (
	// BankingOperationsTotal counts every operation an actor persists, by
	// operation type (deposit, withdraw, card_transaction, transfer_in,
	// transfer_out, refund, exchange) and the status it was recorded with
	// (done, denied). Precondition errors record no operation and are not
	// counted.
	BankingOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "banking_operations_total",
			Help: "Total number of banking operations by type and outcome",
		},
		[]string{"operation", "kind"},
	)

	TransferAmountHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "transfer_amount_minor_units",
			Help:    "Distribution of transfer amounts in minor currency units",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
		},
	)

	AccountBalancesHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "account_balances_minor_units",
			Help:    "Distribution of account default-currency balances in minor units",
			Buckets: []float64{0, 1000, 5000, 10000, 50000, 100000, 500000, 1000000, 5000000},
		},
	)

	// ActiveActorsGauge tracks how many account actor goroutines are
	// currently resident in the registry.
	ActiveActorsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "account_actors_active",
			Help: "Current number of live per-account actor goroutines",
		},
	)

	RatesRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rates_refresh_total",
			Help: "Total number of currency rate refresh attempts",
		},
		[]string{"outcome"},
	)

	EventPublishingErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_publishing_errors_total",
			Help: "Total number of errors publishing operation events to Kafka",
		},
		[]string{"reason"},
	)

	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Total number of operation events dropped before reaching Kafka",
		},
		[]string{"reason"},
	)
)

var (
	GoroutinesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "go_goroutines_current",
			Help: "Current number of goroutines",
		},
	)

	MemoryUsageGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "go_memory_usage_bytes",
			Help: "Memory usage in bytes",
		},
		[]string{"type"},
	)

	UptimeGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "application_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	GCMetrics = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "go_gc_custom_stats",
			Help: "Custom Go garbage collection statistics",
		},
		[]string{"type"},
	)
)

var processStart = time.Time{}

// SetStartTime records the process start instant; called once from
// cmd/api/main.go so UpdateSystemMetrics can derive uptime.
func SetStartTime(t time.Time) {
	processStart = t
}

// UpdateSystemMetrics refreshes the runtime-derived gauges. The
// /prometheus handler calls it on every scrape.
func UpdateSystemMetrics() {
	GoroutinesGauge.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsageGauge.WithLabelValues("heap").Set(float64(m.HeapInuse))
	MemoryUsageGauge.WithLabelValues("stack").Set(float64(m.StackInuse))
	MemoryUsageGauge.WithLabelValues("sys").Set(float64(m.Sys))

	GCMetrics.WithLabelValues("pause_total").Set(float64(m.PauseTotalNs) / 1e9)
	GCMetrics.WithLabelValues("num_gc").Set(float64(m.NumGC))
	GCMetrics.WithLabelValues("heap_objects").Set(float64(m.HeapObjects))

	if !processStart.IsZero() {
		UptimeGauge.Set(time.Since(processStart).Seconds())
	}
}

// RecordBankingOperation tags one ledger mutation attempt.
func RecordBankingOperation(operation, kind string) {
	BankingOperationsTotal.WithLabelValues(operation, kind).Inc()
}

// RecordTransferAmount observes a transfer_out amount (single or one
// recipient leg of a split).
func RecordTransferAmount(amount float64) {
	TransferAmountHistogram.Observe(amount)
}

// RecordAccountBalance observes an account's default-currency balance
// after a mutation, for distribution tracking.
func RecordAccountBalance(balance float64) {
	AccountBalancesHistogram.Observe(balance)
}

// SetActiveActors reports the registry's current live-actor count.
func SetActiveActors(count int) {
	ActiveActorsGauge.Set(float64(count))
}

// RecordRatesRefresh tags one rates-table refresh attempt.
func RecordRatesRefresh(outcome string) {
	RatesRefreshTotal.WithLabelValues(outcome).Inc()
}

// RecordEventPublishingError tags a Kafka publish failure observed by
// the async producer's error-monitoring goroutine.
func RecordEventPublishingError(reason string) {
	EventPublishingErrorsTotal.WithLabelValues(reason).Inc()
}

// RecordEventDropped tags an operation event that never reached the
// producer's input channel (e.g. because it was full).
func RecordEventDropped(reason string) {
	EventsDroppedTotal.WithLabelValues(reason).Inc()
}
