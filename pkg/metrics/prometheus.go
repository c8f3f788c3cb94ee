// Package metrics provides Prometheus metrics for the zonewatch service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pass status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Manager manages all Prometheus metrics for the zonewatch service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Pass metrics
	passes        *prometheus.CounterVec
	passDuration  prometheus.Histogram
	fixes         prometheus.Counter
	fixesDropped  *prometheus.CounterVec
	fixesFiltered prometheus.Counter
	events        *prometheus.CounterVec

	// State metrics
	vehiclesTracked prometheus.Gauge
	zonesLoaded     prometheus.Gauge
	stateDuration   *prometheus.HistogramVec

	// Sink metrics
	sinkWrites *prometheus.CounterVec

	// Feed metrics
	feedFetchDuration prometheus.Histogram
	feedErrors        prometheus.Counter

	// Notification metrics
	notifyQueueSize        prometheus.Gauge
	notifications          *prometheus.CounterVec
	notificationsDuplicate prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to keep the exposition limited to our collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	customRegistry.MustRegister(collectors.NewGoCollector())
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "zonewatch",
		subsystem:        "geofence",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.passes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "passes_total",
		Help:        "Evaluation passes by outcome",
		ConstLabels: m.constLabels,
	}, []string{"status"})

	m.passDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "pass_duration_milliseconds",
		Help:        "Wall time of a full pass including fetch and persistence",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.fixes = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fixes_total",
		Help:        "Valid fixes evaluated against the zone set",
		ConstLabels: m.constLabels,
	})

	m.fixesDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fixes_dropped_total",
		Help:        "Raw position records dropped before evaluation",
		ConstLabels: m.constLabels,
	}, []string{"reason"})

	m.fixesFiltered = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fixes_filtered_total",
		Help:        "Valid fixes rejected by the fix filter expression",
		ConstLabels: m.constLabels,
	})

	m.events = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "events_total",
		Help:        "Geofence events emitted by kind",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.vehiclesTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "vehicles_tracked",
		Help:        "Vehicles present in the persisted containment state",
		ConstLabels: m.constLabels,
	})

	m.zonesLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "zones_loaded",
		Help:        "Zones in the loaded zone store",
		ConstLabels: m.constLabels,
	})

	m.stateDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "state_operation_duration_milliseconds",
		Help:        "Latency of containment state loads and saves by backend",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"backend", "op"})

	m.sinkWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sink_writes_total",
		Help:        "Event sink writes by sink and outcome",
		ConstLabels: m.constLabels,
	}, []string{"sink", "status"})

	m.feedFetchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "feed_fetch_duration_milliseconds",
		Help:        "Latency of position feed fetches",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.feedErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "feed_errors_total",
		Help:        "Failed position feed fetches",
		ConstLabels: m.constLabels,
	})

	m.notifyQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "notify_queue_size",
		Help:        "Events waiting for asynchronous notification",
		ConstLabels: m.constLabels,
	})

	m.notifications = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "notifications_total",
		Help:        "Event notifications by delivery outcome",
		ConstLabels: m.constLabels,
	}, []string{"status"})

	m.notificationsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "notifications_duplicate_total",
		Help:        "Notifications suppressed because the event was already delivered",
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
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

// Pass metrics.

// RecordPass counts a finished pass and its duration.
func RecordPass(status string, durationMs float64) {
	globalManager.passes.WithLabelValues(status).Inc()
	globalManager.passDuration.Observe(durationMs)
}

// RecordFixes adds evaluated fixes.
func RecordFixes(n int) {
	globalManager.fixes.Add(float64(n))
}

// RecordFixesDropped adds dropped raw records for a reason.
func RecordFixesDropped(reason string, n int) {
	globalManager.fixesDropped.WithLabelValues(reason).Add(float64(n))
}

// RecordFixesFiltered adds fixes rejected by the filter.
func RecordFixesFiltered(n int) {
	globalManager.fixesFiltered.Add(float64(n))
}

// RecordEvent counts an emitted event.
func RecordEvent(kind string) {
	globalManager.events.WithLabelValues(kind).Inc()
}

// State metrics.

// UpdateVehiclesTracked sets the tracked vehicle gauge.
func UpdateVehiclesTracked(n int) {
	globalManager.vehiclesTracked.Set(float64(n))
}

// UpdateZonesLoaded sets the zone gauge.
func UpdateZonesLoaded(n int) {
	globalManager.zonesLoaded.Set(float64(n))
}

// RecordStateOperation records the latency of a state load or save.
func RecordStateOperation(backend, op string, latencyMs float64) {
	globalManager.stateDuration.WithLabelValues(backend, op).Observe(latencyMs)
}

// RecordSinkWrite counts an event sink write.
func RecordSinkWrite(sink, status string) {
	globalManager.sinkWrites.WithLabelValues(sink, status).Inc()
}

// Feed metrics.

// RecordFeedFetch observes a feed fetch latency.
func RecordFeedFetch(latencyMs float64) {
	globalManager.feedFetchDuration.Observe(latencyMs)
}

// RecordFeedError counts a failed fetch.
func RecordFeedError() {
	globalManager.feedErrors.Inc()
}

// Notification metrics.

// UpdateNotifyQueueSize sets the notification backlog gauge.
func UpdateNotifyQueueSize(size int) {
	globalManager.notifyQueueSize.Set(float64(size))
}

// RecordNotification counts a delivery attempt outcome.
func RecordNotification(status string) {
	globalManager.notifications.WithLabelValues(status).Inc()
}

// RecordNotificationDuplicate counts a suppressed duplicate.
func RecordNotificationDuplicate() {
	globalManager.notificationsDuplicate.Inc()
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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
