// Package metrics provides Prometheus metrics for the discovery search service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeCached   = "cached"
	OutcomeDegraded = "degraded"
)

// Manager owns every Prometheus metric the service emits. It is constructed
// explicitly and handed down to the components that record into it, so tests
// can build isolated instances on private registries.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Search metrics
	searches       *prometheus.CounterVec
	searchDuration prometheus.Histogram

	// Cache metrics
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	cacheEntries prometheus.Gauge

	// Data source metrics
	sourceRequests *prometheus.CounterVec
	sourceLatency  *prometheus.HistogramVec

	// Sync metrics
	syncOps         *prometheus.CounterVec
	syncQueueDepth  prometheus.Gauge
	entitiesByState *prometheus.GaugeVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vinatravel",
		subsystem:        "discovery",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.searches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "searches_total",
		Help:      "Total number of searches by outcome (ok, cached, degraded, error)",
	}, []string{"outcome"})

	m.searchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "search_duration_milliseconds",
		Help:      "End-to-end search duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Total number of cache hits",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_misses_total",
		Help:      "Total number of cache misses",
	})

	m.cacheEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_entries",
		Help:      "Current number of live cache entries",
	})

	m.sourceRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "data_source_requests_total",
		Help:      "Total requests issued per data source and outcome",
	}, []string{"source", "outcome"})

	m.sourceLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "data_source_latency_milliseconds",
		Help:      "Latency per data source call in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"source"})

	m.syncOps = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sync_operations_total",
		Help:      "Total sync projections per operation and outcome",
	}, []string{"operation", "outcome"})

	m.syncQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sync_queue_depth",
		Help:      "Current number of queued projection jobs",
	})

	m.entitiesByState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "partner_entities",
		Help:      "Partner entities by sync state",
	}, []string{"state"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordSearch records one completed search and its duration.
func (m *Manager) RecordSearch(outcome string, d time.Duration) {
	m.searches.WithLabelValues(outcome).Inc()
	m.searchDuration.Observe(float64(d.Milliseconds()))
}

// RecordCacheHit increments the cache hit counter.
func (m *Manager) RecordCacheHit() { m.cacheHits.Inc() }

// RecordCacheMiss increments the cache miss counter.
func (m *Manager) RecordCacheMiss() { m.cacheMisses.Inc() }

// SetCacheEntries updates the live cache entry gauge.
func (m *Manager) SetCacheEntries(n int) { m.cacheEntries.Set(float64(n)) }

// RecordDataSource records one call against a data source.
func (m *Manager) RecordDataSource(source string, success bool, d time.Duration) {
	outcome := OutcomeOK
	if !success {
		outcome = OutcomeError
	}
	m.sourceRequests.WithLabelValues(source, outcome).Inc()
	m.sourceLatency.WithLabelValues(source).Observe(float64(d.Milliseconds()))
}

// RecordSync records one index projection attempt.
func (m *Manager) RecordSync(operation string, success bool) {
	outcome := OutcomeOK
	if !success {
		outcome = OutcomeError
	}
	m.syncOps.WithLabelValues(operation, outcome).Inc()
}

// SetSyncQueueDepth updates the projection queue gauge.
func (m *Manager) SetSyncQueueDepth(n int) { m.syncQueueDepth.Set(float64(n)) }

// SetEntityState updates the per-state partner entity gauge.
func (m *Manager) SetEntityState(state string, n int) {
	m.entitiesByState.WithLabelValues(state).Set(float64(n))
}

// RecordHTTPRequest records one HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Registry exposes the underlying registry for binaries that register
// additional collectors.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler returns an HTTP handler serving this manager's registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
