// Package metrics provides Prometheus metrics for the sitelog collector and archiver.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ingestion
	eventsIngested  *prometheus.CounterVec
	ingestFailures  *prometheus.CounterVec
	storePutLatency prometheus.Histogram

	// Archival
	archiveRuns       *prometheus.CounterVec
	archiveFiles      prometheus.Counter
	archiveRecords    prometheus.Counter
	archiveSiteErrors prometheus.Counter
	scanPages         prometheus.Counter
	archiveDuration   prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var (
	mu             sync.RWMutex
	customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry
	globalManager  *Manager                   //nolint:gochecknoglobals // process-wide manager
)

func init() { //nolint:gochecknoinits // metrics must be usable before configuration is loaded
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure replaces the process-wide registry and manager, e.g. to attach
// the deployment environment as a constant label.
func Configure(opts ...Option) *Manager {
	reg := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(reg))...)

	mu.Lock()
	customRegistry = reg
	globalManager = m
	mu.Unlock()
	return m
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sitelog",
		subsystem:        "pipeline",
		histogramBuckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.eventsIngested = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "events_ingested_total",
		Help:        "Canonical records written to the keyed store, by kind (single or batch)",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.ingestFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ingest_failures_total",
		Help:        "Requests answered with the generic error shape, by kind",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.storePutLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_put_latency_milliseconds",
		Help:        "Latency of keyed store puts in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.archiveRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "archive_runs_total",
		Help:        "Hourly archive runs by outcome (archived, empty, failed)",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.archiveFiles = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "archive_files_total",
		Help:        "Archive objects written to cold storage",
		ConstLabels: m.constLabels,
	})

	m.archiveRecords = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "archive_records_total",
		Help:        "Records serialized into archive objects",
		ConstLabels: m.constLabels,
	})

	m.archiveSiteErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "archive_site_errors_total",
		Help:        "Sites whose archive object could not be produced",
		ConstLabels: m.constLabels,
	})

	m.scanPages = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "scan_pages_total",
		Help:        "Keyed store scan pages read by the archiver",
		ConstLabels: m.constLabels,
	})

	m.archiveDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "archive_duration_milliseconds",
		Help:        "Wall time of an archive run in milliseconds",
		Buckets:     prometheus.ExponentialBuckets(10, 4, 8),
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint, method and status",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
}

func current() *Manager {
	mu.RLock()
	defer mu.RUnlock()
	return globalManager
}

// RecordEventIngested counts a stored record of the given kind.
func RecordEventIngested(kind string) {
	current().eventsIngested.WithLabelValues(kind).Inc()
}

// RecordIngestFailure counts a request that ended in the error shape.
func RecordIngestFailure(kind string) {
	current().ingestFailures.WithLabelValues(kind).Inc()
}

// RecordStorePutLatency records a keyed store put latency in milliseconds.
func RecordStorePutLatency(latencyMs float64) {
	current().storePutLatency.Observe(latencyMs)
}

// RecordArchiveRun counts an archive run by outcome.
func RecordArchiveRun(outcome string) {
	current().archiveRuns.WithLabelValues(outcome).Inc()
}

// RecordArchiveFile counts one archive object holding records lines.
func RecordArchiveFile(records int) {
	m := current()
	m.archiveFiles.Inc()
	m.archiveRecords.Add(float64(records))
}

// RecordArchiveSiteError counts a site that produced no archive object.
func RecordArchiveSiteError() {
	current().archiveSiteErrors.Inc()
}

// RecordScanPage counts one page read from the keyed store.
func RecordScanPage() {
	current().scanPages.Inc()
}

// RecordArchiveDuration records the wall time of a run in milliseconds.
func RecordArchiveDuration(durationMs float64) {
	current().archiveDuration.Observe(durationMs)
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	current().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	current().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return customRegistry
}
