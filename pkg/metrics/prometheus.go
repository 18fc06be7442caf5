// Package metrics provides Prometheus metrics for the event leaderboard tracker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the tracker service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Polling metrics, labelled by region.
	ticksTotal   *prometheus.CounterVec
	tickDuration *prometheus.HistogramVec
	fetchErrors  *prometheus.CounterVec
	parseErrors  *prometheus.CounterVec
	storeErrors  *prometheus.CounterVec

	// Storage metrics.
	rankInserts        *prometheus.CounterVec
	rankRebinds        *prometheus.CounterVec
	storeUpdateLatency prometheus.Histogram
	openStores         prometheus.Gauge
	dedupeCacheSize    prometheus.Gauge

	// Ops HTTP surface.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "taptrack",
		subsystem:        "tracker",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.ticksTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "ticks_total",
			Help:      "Total number of polling ticks by region and cadence",
		},
		[]string{"region", "cadence"},
	)

	m.tickDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "tick_duration_milliseconds",
			Help:      "Tick duration from wake to last store commit, in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"region"},
	)

	m.fetchErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "fetch_errors_total",
			Help:      "Total number of leaderboard fetches that failed after retries",
		},
		[]string{"region"},
	)

	m.parseErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "parse_errors_total",
			Help:      "Total number of per-target payload parse failures",
		},
		[]string{"region"},
	)

	m.storeErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_errors_total",
			Help:      "Total number of per-event store write failures",
		},
		[]string{"region"},
	)

	m.rankInserts = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rank_inserts_total",
			Help:      "Total number of rank records appended",
		},
		[]string{"region"},
	)

	m.rankRebinds = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rank_rebinds_total",
			Help:      "Total number of head rows rebound to a newer time record",
		},
		[]string{"region"},
	)

	m.storeUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_update_latency_milliseconds",
		Help:      "UpdateRankings transaction latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.openStores = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "open_stores",
		Help:      "Number of currently open per-event database handles",
	})

	m.dedupeCacheSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dedupe_cache_size",
		Help:      "Number of rank entries held in the dedup cache",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of ops HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "Ops HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// Package-level helpers operating on the global manager.

// RecordTick increments the tick counter for a region. Cadence is "normal" or
// "highres".
func RecordTick(region, cadence string) {
	if globalManager.enabled {
		globalManager.ticksTotal.WithLabelValues(region, cadence).Inc()
	}
}

// ObserveTickDuration records one tick's wall time in milliseconds.
func ObserveTickDuration(region string, ms float64) {
	if globalManager.enabled {
		globalManager.tickDuration.WithLabelValues(region).Observe(ms)
	}
}

// RecordFetchError counts a fetch that failed after its retry budget.
func RecordFetchError(region string) {
	if globalManager.enabled {
		globalManager.fetchErrors.WithLabelValues(region).Inc()
	}
}

// RecordParseError counts a per-target parse failure.
func RecordParseError(region string) {
	if globalManager.enabled {
		globalManager.parseErrors.WithLabelValues(region).Inc()
	}
}

// RecordStoreError counts a per-event store write failure.
func RecordStoreError(region string) {
	if globalManager.enabled {
		globalManager.storeErrors.WithLabelValues(region).Inc()
	}
}

// RecordRankWrites counts the insert/rebind split of one store update.
func RecordRankWrites(region string, inserts, rebinds int) {
	if globalManager.enabled {
		globalManager.rankInserts.WithLabelValues(region).Add(float64(inserts))
		globalManager.rankRebinds.WithLabelValues(region).Add(float64(rebinds))
	}
}

// ObserveStoreUpdateLatency records one UpdateRankings transaction's latency.
func ObserveStoreUpdateLatency(ms float64) {
	if globalManager.enabled {
		globalManager.storeUpdateLatency.Observe(ms)
	}
}

// UpdateOpenStores sets the open database handle gauge.
func UpdateOpenStores(count int) {
	if globalManager.enabled {
		globalManager.openStores.Set(float64(count))
	}
}

// UpdateDedupeCacheSize sets the dedup cache size gauge.
func UpdateDedupeCacheSize(size int) {
	if globalManager.enabled {
		globalManager.dedupeCacheSize.Set(float64(size))
	}
}

// RecordHTTPRequest counts one ops HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records one ops HTTP request's duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// GetRegistry returns the custom registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
