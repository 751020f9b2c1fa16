/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector represents a collector of metrics describing how buckets are updated in the store.
type MetricsCollector interface {
	// IncAttempts increments the total number of execution attempts.
	IncAttempts()

	// IncConflicts increments the total number of lost compare-and-swap races.
	IncConflicts()

	// IncStoreErrors increments the total number of failed store calls.
	IncStoreErrors(op string)

	// IncClockRegressions increments the total number of observed clock regressions.
	IncClockRegressions()

	// ObserveBatchSize registers the number of commands combined into one request.
	ObserveBatchSize(size int)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// See PrometheusMetrics.MustCurryWith method for more details.
	// Keep in mind that if this list is not empty,
	// PrometheusMetrics.MustCurryWith method must be called further with the same labels.
	// Otherwise, the collector will panic.
	CurriedLabelNames []string

	// BatchSizeBuckets are histogram buckets for batch sizes.
	BatchSizeBuckets []float64
}

// DefaultBatchSizeBuckets is the default histogram buckets for batch sizes.
var DefaultBatchSizeBuckets = []float64{1, 2, 4, 8, 16, 32, 64, 128, 256}

const metricsLabelOp = "op"

// PrometheusMetrics represents Prometheus metrics for the backend.
type PrometheusMetrics struct {
	AttemptsTotal         *prometheus.CounterVec
	ConflictsTotal        *prometheus.CounterVec
	StoreErrorsTotal      *prometheus.CounterVec
	ClockRegressionsTotal *prometheus.CounterVec
	BatchSize             *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	batchSizeBuckets := opts.BatchSizeBuckets
	if batchSizeBuckets == nil {
		batchSizeBuckets = DefaultBatchSizeBuckets
	}

	attemptsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "bucket_execution_attempts_total",
			Help:        "Number of attempts to execute a command against a bucket state.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	conflictsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "bucket_cas_conflicts_total",
			Help:        "Number of compare-and-swap writes lost to concurrent writers.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	storeErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "bucket_store_errors_total",
			Help:        "Number of failed store calls.",
			ConstLabels: opts.ConstLabels,
		},
		append(append([]string(nil), opts.CurriedLabelNames...), metricsLabelOp),
	)

	clockRegressionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "bucket_clock_regressions_total",
			Help:        "Number of executions that observed current time behind the last refill time.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	batchSize := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "bucket_batch_size",
			Help:        "Number of commands combined into a single store round trip.",
			ConstLabels: opts.ConstLabels,
			Buckets:     batchSizeBuckets,
		},
		opts.CurriedLabelNames,
	)

	return &PrometheusMetrics{
		AttemptsTotal:         attemptsTotal,
		ConflictsTotal:        conflictsTotal,
		StoreErrorsTotal:      storeErrorsTotal,
		ClockRegressionsTotal: clockRegressionsTotal,
		BatchSize:             batchSize,
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		AttemptsTotal:         pm.AttemptsTotal.MustCurryWith(labels),
		ConflictsTotal:        pm.ConflictsTotal.MustCurryWith(labels),
		StoreErrorsTotal:      pm.StoreErrorsTotal.MustCurryWith(labels),
		ClockRegressionsTotal: pm.ClockRegressionsTotal.MustCurryWith(labels),
		BatchSize:             pm.BatchSize.MustCurryWith(labels).(*prometheus.HistogramVec),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.AttemptsTotal,
		pm.ConflictsTotal,
		pm.StoreErrorsTotal,
		pm.ClockRegressionsTotal,
		pm.BatchSize,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.AttemptsTotal)
	prometheus.Unregister(pm.ConflictsTotal)
	prometheus.Unregister(pm.StoreErrorsTotal)
	prometheus.Unregister(pm.ClockRegressionsTotal)
	prometheus.Unregister(pm.BatchSize)
}

// IncAttempts increments the total number of execution attempts.
func (pm *PrometheusMetrics) IncAttempts() {
	pm.AttemptsTotal.With(nil).Inc()
}

// IncConflicts increments the total number of lost compare-and-swap races.
func (pm *PrometheusMetrics) IncConflicts() {
	pm.ConflictsTotal.With(nil).Inc()
}

// IncStoreErrors increments the total number of failed store calls.
func (pm *PrometheusMetrics) IncStoreErrors(op string) {
	pm.StoreErrorsTotal.With(prometheus.Labels{metricsLabelOp: op}).Inc()
}

// IncClockRegressions increments the total number of observed clock regressions.
func (pm *PrometheusMetrics) IncClockRegressions() {
	pm.ClockRegressionsTotal.With(nil).Inc()
}

// ObserveBatchSize registers the number of commands combined into one request.
func (pm *PrometheusMetrics) ObserveBatchSize(size int) {
	pm.BatchSize.With(nil).Observe(float64(size))
}

type disabledMetrics struct{}

func (disabledMetrics) IncAttempts()          {}
func (disabledMetrics) IncConflicts()         {}
func (disabledMetrics) IncStoreErrors(string) {}
func (disabledMetrics) IncClockRegressions()  {}
func (disabledMetrics) ObserveBatchSize(int)  {}

// DisabledMetrics returns a MetricsCollector that collects nothing.
func DisabledMetrics() MetricsCollector {
	return disabledMetrics{}
}
