// Package metrics provides Prometheus metrics for the footsteps service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the footsteps service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Notification intake
	notificationsReceived  *prometheus.CounterVec
	notificationsDuplicate prometheus.Counter
	notificationsIgnored   *prometheus.CounterVec

	// Path sampling
	placementsScheduled prometheus.Counter
	pathSampleLatency   prometheus.Histogram
	placementsPerPath   prometheus.Histogram

	// Decal lifecycle
	decalsCreated  prometheus.Counter
	fadeSteps      prometheus.Counter
	decalsDeleted  prometheus.Counter
	retirements    *prometheus.CounterVec
	staleSkips     prometheus.Counter
	decalsByState  *prometheus.GaugeVec
	storeLatency   *prometheus.HistogramVec
	storeErrors    *prometheus.CounterVec
	storeObjects   prometheus.Gauge
	wsConnections  prometheus.Gauge
	encounterState prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue Metrics
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker Metrics
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
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

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "footsteps",
		subsystem:        "decals",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Enabled reports whether recording is switched on.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often periodic gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	latencyBuckets := []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}

	m.notificationsReceived = auto.NewCounterVec(
		m.counter("notifications_received_total", "Host notifications accepted, by kind"),
		[]string{"kind"},
	)
	m.notificationsDuplicate = auto.NewCounter(
		m.counter("notifications_duplicate_total", "Host notifications dropped as duplicates"),
	)
	m.notificationsIgnored = auto.NewCounterVec(
		m.counter("notifications_ignored_total", "Notifications that produced no effect, by reason"),
		[]string{"reason"},
	)

	m.placementsScheduled = auto.NewCounter(
		m.counter("placements_scheduled_total", "Footstep placements scheduled for creation"),
	)
	m.pathSampleLatency = auto.NewHistogram(
		m.histogram("path_sample_latency_milliseconds", "Time spent sampling a path", latencyBuckets),
	)
	m.placementsPerPath = auto.NewHistogram(
		m.histogram("placements_per_path", "Placements produced per sampled move", []float64{0, 1, 2, 4, 8, 16, 32, 64, 128}),
	)

	m.decalsCreated = auto.NewCounter(m.counter("created_total", "Footprint decals created in the store"))
	m.fadeSteps = auto.NewCounter(m.counter("fade_steps_total", "Fade steps applied to decals"))
	m.decalsDeleted = auto.NewCounter(m.counter("deleted_total", "Footprint decals deleted after fading"))
	m.retirements = auto.NewCounterVec(
		m.counter("retirements_total", "Decals sent into retirement fade, by trigger"),
		[]string{"trigger"},
	)
	m.staleSkips = auto.NewCounter(
		m.counter("stale_skips_total", "Fade steps skipped because the decal no longer existed"),
	)
	m.decalsByState = auto.NewGaugeVec(
		m.gauge("tracked", "Decals tracked by the lifecycle manager, by state"),
		[]string{"state"},
	)
	m.storeLatency = auto.NewHistogramVec(
		m.histogram("store_operation_latency_milliseconds", "Object store operation latency", latencyBuckets),
		[]string{"op"},
	)
	m.storeErrors = auto.NewCounterVec(
		m.counter("store_errors_total", "Object store operations that failed, by op"),
		[]string{"op"},
	)
	m.storeObjects = auto.NewGauge(m.gauge("store_objects", "Objects currently held by the store"))
	m.wsConnections = auto.NewGauge(m.gauge("ws_connections", "Open host bridge connections"))
	m.encounterState = auto.NewGauge(m.gauge("encounter_active", "1 while an encounter is in progress"))

	m.httpRequests = auto.NewCounterVec(
		m.counter("http_requests_total", "Total number of HTTP requests"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogram("http_request_duration_milliseconds", "HTTP request duration in milliseconds", latencyBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.queueSize = auto.NewGauge(m.gauge("queue_size", "Current size of the notification queue"))
	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity", "Maximum capacity of the notification queue"))
	m.queueUtilization = auto.NewGauge(m.gauge("queue_utilization_ratio", "Queue utilization ratio (0-1)"))
	m.queueEnqueueRate = auto.NewCounter(m.counter("queue_enqueue_total", "Total number of enqueue operations"))
	m.queueDequeueRate = auto.NewCounter(m.counter("queue_dequeue_total", "Total number of dequeue operations"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("queue_enqueue_errors_total", "Total number of enqueue errors"))
	m.queueProcessingLatency = auto.NewHistogram(
		m.histogram("queue_processing_latency_milliseconds", "Queue operation latency in milliseconds", latencyBuckets),
	)

	m.workerActiveCount = auto.NewGauge(m.gauge("worker_active_count", "Number of active workers"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogram("worker_processing_latency_milliseconds", "Notification handling latency in milliseconds", latencyBuckets),
	)
	m.workerErrorRate = auto.NewCounter(m.counter("worker_errors_total", "Total number of worker errors"))

	m.errorRateByComponent = auto.NewCounterVec(
		m.counter("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counter("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counter("errors_by_endpoint_total", "Errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogram("error_latency_milliseconds", "Latency of failed operations", latencyBuckets),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds", latencyBuckets),
	)
}

// Notification Metrics Functions.

// RecordNotificationReceived counts an accepted notification of kind.
func RecordNotificationReceived(kind string) {
	if globalManager.enabled {
		globalManager.notificationsReceived.WithLabelValues(kind).Inc()
	}
}

// RecordNotificationDuplicate counts a notification dropped by dedupe.
func RecordNotificationDuplicate() {
	if globalManager.enabled {
		globalManager.notificationsDuplicate.Inc()
	}
}

// RecordNotificationIgnored counts a notification that had no effect.
func RecordNotificationIgnored(reason string) {
	if globalManager.enabled {
		globalManager.notificationsIgnored.WithLabelValues(reason).Inc()
	}
}

// Sampling Metrics Functions.

// RecordPathSampled records one sampled move.
func RecordPathSampled(placements int, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.placementsScheduled.Add(float64(placements))
	globalManager.placementsPerPath.Observe(float64(placements))
	globalManager.pathSampleLatency.Observe(latencyMs)
}

// Lifecycle Metrics Functions.

// RecordDecalCreated increments the created decals counter.
func RecordDecalCreated() {
	if globalManager.enabled {
		globalManager.decalsCreated.Inc()
	}
}

// RecordFadeStep increments the fade step counter.
func RecordFadeStep() {
	if globalManager.enabled {
		globalManager.fadeSteps.Inc()
	}
}

// RecordDecalDeleted increments the deleted decals counter.
func RecordDecalDeleted() {
	if globalManager.enabled {
		globalManager.decalsDeleted.Inc()
	}
}

// RecordRetirement counts n decals retired by trigger ("turn", "encounter_end").
func RecordRetirement(trigger string, n int) {
	if globalManager.enabled {
		globalManager.retirements.WithLabelValues(trigger).Add(float64(n))
	}
}

// RecordStaleSkip counts a fade step skipped for a vanished decal.
func RecordStaleSkip() {
	if globalManager.enabled {
		globalManager.staleSkips.Inc()
	}
}

// UpdateDecalsByState sets the number of tracked decals in state.
func UpdateDecalsByState(state string, count int) {
	if globalManager.enabled {
		globalManager.decalsByState.WithLabelValues(state).Set(float64(count))
	}
}

// RecordStoreOperation records object store latency for op.
func RecordStoreOperation(op string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
	}
}

// RecordStoreError counts a failed object store operation.
func RecordStoreError(op string) {
	if globalManager.enabled {
		globalManager.storeErrors.WithLabelValues(op).Inc()
	}
}

// UpdateStoreObjectsTotal sets the number of objects in the store.
func UpdateStoreObjectsTotal(count int) {
	if globalManager.enabled {
		globalManager.storeObjects.Set(float64(count))
	}
}

// UpdateWSConnections sets the number of open bridge connections.
func UpdateWSConnections(count int) {
	if globalManager.enabled {
		globalManager.wsConnections.Set(float64(count))
	}
}

// UpdateEncounterActive records whether an encounter is in progress.
func UpdateEncounterActive(active bool) {
	if !globalManager.enabled {
		return
	}
	v := 0.0
	if active {
		v = 1
	}
	globalManager.encounterState.Set(v)
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

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
