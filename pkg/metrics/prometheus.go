// Package metrics provides Prometheus metrics for the gridelo rating service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Pipeline
	runsTotal          *prometheus.CounterVec
	runDuration        prometheus.Histogram
	lastRunUnix        prometheus.Gauge
	eventsApplied      prometheus.Counter
	eventsSkipped      *prometheus.CounterVec
	recordsDropped     *prometheus.CounterVec
	competitorsTracked prometheus.Gauge

	// Upstream sources
	sourceFetchLatency *prometheus.HistogramVec
	sourceErrors       *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec

	// Rating store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Triggers
	triggerQueueSize prometheus.Gauge
	triggersTotal    *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gridelo",
		subsystem:        "ratings",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.runsTotal = m.counterVec("runs_total", "Pipeline runs by trigger and status", "trigger", "status")
	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_duration_milliseconds",
		Help:        "Wall time of a pipeline run in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})
	m.lastRunUnix = m.gauge("last_run_unix_seconds", "Finish time of the last successful run")
	m.eventsApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "events_applied_total",
		Help:        "Events folded into the ratings",
		ConstLabels: m.constLabels,
	})
	m.eventsSkipped = m.counterVec("events_skipped_total", "Events skipped during aggregation or rating", "reason")
	m.recordsDropped = m.counterVec("records_dropped_total", "Result rows dropped by the normalizer", "reason")
	m.competitorsTracked = m.gauge("competitors", "Competitors with a rating after the last run")

	m.sourceFetchLatency = m.histogramVec("source_fetch_latency_milliseconds", "Upstream request latency", "provider")
	m.sourceErrors = m.counterVec("source_errors_total", "Upstream failures", "provider", "kind")
	m.cacheLookups = m.counterVec("cache_lookups_total", "Upstream response cache lookups", "result")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Rating store operation latency", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Rating store failures", "op")

	m.triggerQueueSize = m.gauge("trigger_queue_size", "Triggers waiting for the run worker")
	m.triggersTotal = m.counterVec("triggers_total", "Triggers by source and outcome", "source", "outcome")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	})
}

// Pipeline metrics.

// RecordRun records a finished run with its trigger source and status (ok, error, busy).
func RecordRun(trigger, status string, durationMs float64) {
	globalManager.runsTotal.WithLabelValues(trigger, status).Inc()
	globalManager.runDuration.Observe(durationMs)
}

// UpdateLastRunUnix sets the finish time of the last successful run.
func UpdateLastRunUnix(sec float64) {
	globalManager.lastRunUnix.Set(sec)
}

// RecordEventApplied increments the applied events counter.
func RecordEventApplied() {
	globalManager.eventsApplied.Inc()
}

// RecordEventSkipped increments the skipped events counter for reason.
func RecordEventSkipped(reason string) {
	globalManager.eventsSkipped.WithLabelValues(reason).Inc()
}

// RecordRecordsDropped adds n dropped result rows for reason.
func RecordRecordsDropped(reason string, n int) {
	if n <= 0 {
		return
	}
	globalManager.recordsDropped.WithLabelValues(reason).Add(float64(n))
}

// UpdateCompetitors sets the number of rated competitors.
func UpdateCompetitors(n int) {
	globalManager.competitorsTracked.Set(float64(n))
}

// Source metrics.

// RecordSourceFetch records upstream latency for provider.
func RecordSourceFetch(provider string, latencyMs float64) {
	globalManager.sourceFetchLatency.WithLabelValues(provider).Observe(latencyMs)
}

// RecordSourceError counts an upstream failure of kind for provider.
func RecordSourceError(provider, kind string) {
	globalManager.sourceErrors.WithLabelValues(provider, kind).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.cacheLookups.WithLabelValues(result).Inc()
}

// Store metrics.

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// Trigger metrics.

// UpdateTriggerQueueSize sets the number of pending triggers.
func UpdateTriggerQueueSize(size int) {
	globalManager.triggerQueueSize.Set(float64(size))
}

// RecordTrigger counts a trigger from source with outcome (accepted, rejected).
func RecordTrigger(source, outcome string) {
	globalManager.triggersTotal.WithLabelValues(source, outcome).Inc()
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
