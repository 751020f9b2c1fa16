/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package keytable

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector collects statistics of a table.
type MetricsCollector interface {
	// SetAmount sets the number of keys in the table.
	SetAmount(int)

	// IncHits increments the number of lookups that found a value.
	IncHits()

	// IncMisses increments the number of lookups that found nothing.
	IncMisses()

	// AddEvictions increments the number of values evicted to keep the table bounded.
	AddEvictions(int)

	// IncResolveErrors increments the number of failed value resolutions.
	IncResolveErrors()
}

// PrometheusMetricsOpts configures names and labels of PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is prepended to all metric names.
	Namespace string

	// Subsystem distinguishes tables of one process, e.g. "config_cache".
	Subsystem string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics is a MetricsCollector exposing table statistics as Prometheus metrics.
type PrometheusMetrics struct {
	KeysAmount         prometheus.Gauge
	HitsTotal          prometheus.Counter
	MissesTotal        prometheus.Counter
	EvictionsTotal     prometheus.Counter
	ResolveErrorsTotal prometheus.Counter
}

// NewPrometheusMetrics creates PrometheusMetrics without a namespace and labels.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates PrometheusMetrics named and labeled by opts.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Subsystem:   opts.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: opts.ConstLabels,
		})
	}
	return &PrometheusMetrics{
		KeysAmount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Subsystem:   opts.Subsystem,
			Name:        "keys_amount",
			Help:        "Number of keys in the table.",
			ConstLabels: opts.ConstLabels,
		}),
		HitsTotal:          counter("hits_total", "Number of lookups that found a value."),
		MissesTotal:        counter("misses_total", "Number of lookups that found nothing."),
		EvictionsTotal:     counter("evictions_total", "Number of values evicted to keep the table bounded."),
		ResolveErrorsTotal: counter("resolve_errors_total", "Number of failed value resolutions."),
	}
}

func (pm *PrometheusMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{pm.KeysAmount, pm.HitsTotal, pm.MissesTotal, pm.EvictionsTotal, pm.ResolveErrorsTotal}
}

// MustRegister registers the metrics in the default Prometheus registry. It panics on a duplicate registration.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.collectors()...)
}

// Unregister removes the metrics from the default Prometheus registry.
func (pm *PrometheusMetrics) Unregister() {
	for _, c := range pm.collectors() {
		prometheus.Unregister(c)
	}
}

// SetAmount implements MetricsCollector.
func (pm *PrometheusMetrics) SetAmount(amount int) {
	pm.KeysAmount.Set(float64(amount))
}

// IncHits implements MetricsCollector.
func (pm *PrometheusMetrics) IncHits() {
	pm.HitsTotal.Inc()
}

// IncMisses implements MetricsCollector.
func (pm *PrometheusMetrics) IncMisses() {
	pm.MissesTotal.Inc()
}

// AddEvictions implements MetricsCollector.
func (pm *PrometheusMetrics) AddEvictions(n int) {
	pm.EvictionsTotal.Add(float64(n))
}

// IncResolveErrors implements MetricsCollector.
func (pm *PrometheusMetrics) IncResolveErrors() {
	pm.ResolveErrorsTotal.Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetAmount(int)     {}
func (disabledMetrics) IncHits()          {}
func (disabledMetrics) IncMisses()        {}
func (disabledMetrics) AddEvictions(int)  {}
func (disabledMetrics) IncResolveErrors() {}

var disabledMetricsCollector = disabledMetrics{}
