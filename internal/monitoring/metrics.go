package monitoring

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector exposes scheduling and HTTP metrics on its own registry
// and mirrors the scheduling counters into a Monitor.
type MetricsCollector struct {
	registry *prometheus.Registry
	metrics  map[string]prometheus.Collector
	monitor  *Monitor
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(monitor *Monitor) *MetricsCollector {
	if monitor == nil {
		monitor = NewMonitor()
	}
	registry := prometheus.NewRegistry()

	blocksCreated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creamery_blocks_created_total",
			Help: "Production blocks committed, by source",
		},
		[]string{"source"},
	)

	unscheduled := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creamery_recipes_unscheduled_total",
			Help: "Recipes the generator could not place, by reason",
		},
		[]string{"reason"},
	)

	conflicts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creamery_conflicts_rejected_total",
			Help: "Writes rejected for overlapping an existing block, by resource",
		},
		[]string{"resource"},
	)

	forced := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "creamery_forced_assignments_total",
			Help: "Employees double-booked because every certified employee was busy",
		},
	)

	generation := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "creamery_generation_duration_seconds",
			Help:    "Time taken to generate a plan's schedule",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	requests := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "creamery_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	metrics := map[string]prometheus.Collector{
		"blocks_created": blocksCreated,
		"unscheduled":    unscheduled,
		"conflicts":      conflicts,
		"forced":         forced,
		"generation":     generation,
		"requests":       requests,
	}

	for _, metric := range metrics {
		registry.MustRegister(metric)
	}

	return &MetricsCollector{
		registry: registry,
		metrics:  metrics,
		monitor:  monitor,
	}
}

// Registry returns the collector's registry
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// Monitor returns the monitor the collector mirrors into
func (mc *MetricsCollector) Monitor() *Monitor {
	return mc.monitor
}

// Handler serves the registry in the Prometheus exposition format
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

// BlocksCreated records committed blocks
func (mc *MetricsCollector) BlocksCreated(source string, n int) {
	if counter, ok := mc.metrics["blocks_created"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(source).Add(float64(n))
	}
	mc.monitor.IncrementMetric("blocks_created_"+source, float64(n))
}

// RecipeUnscheduled records a recipe left out of a generated schedule
func (mc *MetricsCollector) RecipeUnscheduled(reason string) {
	if counter, ok := mc.metrics["unscheduled"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(reason).Inc()
	}
	mc.monitor.IncrementMetric("unscheduled_"+reason, 1)
}

// ConflictRejected records a write refused because of an overlap
func (mc *MetricsCollector) ConflictRejected(resource string) {
	if counter, ok := mc.metrics["conflicts"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(resource).Inc()
	}
	mc.monitor.IncrementMetric("conflicts_"+resource, 1)
}

// ForcedAssignment records a double-booked employee
func (mc *MetricsCollector) ForcedAssignment() {
	if counter, ok := mc.metrics["forced"].(prometheus.Counter); ok {
		counter.Inc()
	}
	mc.monitor.IncrementMetric("forced_assignments", 1)
}

// GenerationFinished records how long a generation run took
func (mc *MetricsCollector) GenerationFinished(seconds float64) {
	if histogram, ok := mc.metrics["generation"].(prometheus.Histogram); ok {
		histogram.Observe(seconds)
	}
	mc.monitor.IncrementMetric("generation_runs", 1)
	mc.monitor.RecordMetric("last_generation_seconds", seconds)
}

// RecordRequest records one served HTTP request
func (mc *MetricsCollector) RecordRequest(method, route string, status int, seconds float64) {
	if histogram, ok := mc.metrics["requests"].(*prometheus.HistogramVec); ok {
		histogram.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
	}
}
