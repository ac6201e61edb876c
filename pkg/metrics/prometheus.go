// Package metrics provides Prometheus metrics for the hot items service.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the hot items service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Item use cases
	itemsCreated  prometheus.Counter
	itemsLiked    prometheus.Counter
	likeConflicts prometheus.Counter

	// Leaderboard cache
	detailHits           prometheus.Counter
	detailMisses         prometheus.Counter
	leaderboardFallbacks *prometheus.CounterVec
	cacheLatency         *prometheus.HistogramVec
	cacheErrors          *prometheus.CounterVec

	// Durable store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// CDC
	cdcMessages   *prometheus.CounterVec
	cdcDuplicates prometheus.Counter
	cdcLatency    prometheus.Histogram

	// Resync
	resyncRuns        *prometheus.CounterVec
	resyncDuration    prometheus.Histogram
	resyncItems       prometheus.Gauge
	resyncLastSuccess prometheus.Gauge

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueDropped     *prometheus.CounterVec
	queueWait        prometheus.Histogram

	// Workers
	workerActiveCount       prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

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

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "hotitems",
		subsystem:        "",
		histogramBuckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.itemsCreated = m.counter("items_created_total", "Items created")
	m.itemsLiked = m.counter("items_liked_total", "Likes applied")
	m.likeConflicts = m.counter("like_conflicts_total", "Version conflicts hit while liking")

	m.detailHits = m.counter("detail_cache_hits_total", "Item details served from the cache")
	m.detailMisses = m.counter("detail_cache_misses_total", "Ranked ids whose details were missing from the cache")
	m.leaderboardFallbacks = m.counterVec("leaderboard_fallbacks_total", "Hot reads answered from the store, by reason", "reason")
	m.cacheLatency = m.histogramVec("cache_latency_milliseconds", "Cache command latency in milliseconds", "command")
	m.cacheErrors = m.counterVec("cache_errors_total", "Failed cache commands", "command")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Store operation latency in milliseconds", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Failed store operations", "op")

	m.cdcMessages = m.counterVec("cdc_messages_total", "CDC messages by outcome", "outcome")
	m.cdcDuplicates = m.counter("cdc_duplicates_total", "CDC upserts skipped as replays")
	m.cdcLatency = m.histogram("cdc_apply_latency_milliseconds", "Time to apply one CDC message", m.histogramBuckets)

	m.resyncRuns = m.counterVec("resync_runs_total", "Resync runs by result", "result")
	m.resyncDuration = m.histogram("resync_duration_milliseconds", "Resync run duration in milliseconds",
		[]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000})
	m.resyncItems = m.gauge("resync_items", "Items in the last rebuilt ranking")
	m.resyncLastSuccess = m.gauge("resync_last_success_unix", "Unix time of the last successful resync")

	m.queueSize = m.gauge("queue_size", "Messages waiting in the CDC queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the CDC queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "CDC queue fill ratio")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Messages accepted by the CDC queue")
	m.queueDequeued = m.counter("queue_dequeued_total", "Messages handed to workers")
	m.queueDropped = m.counterVec("queue_dropped_total", "Messages refused by the CDC queue, by reason", "reason")
	m.queueWait = m.histogram("queue_wait_milliseconds", "Time messages spent in the CDC queue", m.histogramBuckets)

	m.workerActiveCount = m.gauge("worker_active_count", "Running CDC workers")
	m.workerMessagesPerSecond = m.gauge("worker_messages_per_second", "CDC messages processed per second")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per-message worker latency", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Messages workers failed to apply")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of failed operations", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Most recent GC pause in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Item metrics.

// RecordItemCreated increments the created items counter.
func RecordItemCreated() { globalManager.itemsCreated.Inc() }

// RecordItemLiked increments the applied likes counter.
func RecordItemLiked() { globalManager.itemsLiked.Inc() }

// RecordLikeConflict counts one lost optimistic update.
func RecordLikeConflict() { globalManager.likeConflicts.Inc() }

// Leaderboard metrics.

// RecordDetailHits adds n detail cache hits.
func RecordDetailHits(n int) { globalManager.detailHits.Add(float64(n)) }

// RecordDetailMisses adds n detail cache misses.
func RecordDetailMisses(n int) { globalManager.detailMisses.Add(float64(n)) }

// RecordLeaderboardFallback counts a hot read served from the store.
func RecordLeaderboardFallback(reason string) {
	globalManager.leaderboardFallbacks.WithLabelValues(reason).Inc()
}

// RecordCacheLatency records one cache command latency in milliseconds.
func RecordCacheLatency(command string, latencyMs float64) {
	globalManager.cacheLatency.WithLabelValues(command).Observe(latencyMs)
}

// RecordCacheError counts one failed cache command.
func RecordCacheError(command string) {
	globalManager.cacheErrors.WithLabelValues(command).Inc()
	globalManager.errorRateByComponent.WithLabelValues("cache", command).Inc()
}

// Store metrics.

// RecordStoreLatency records one store operation latency in milliseconds.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts one failed store operation.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
	globalManager.errorRateByComponent.WithLabelValues("store", op).Inc()
}

// CDC metrics.

// RecordCDCMessage counts one message by outcome and records how long it took.
func RecordCDCMessage(outcome string, latencyMs float64) {
	globalManager.cdcMessages.WithLabelValues(outcome).Inc()
	globalManager.cdcLatency.Observe(latencyMs)
}

// RecordCDCDuplicate counts one skipped replay.
func RecordCDCDuplicate() { globalManager.cdcDuplicates.Inc() }

// Resync metrics.

// RecordResyncRun counts one run by result: succeeded, failed or skipped.
func RecordResyncRun(result string) {
	globalManager.resyncRuns.WithLabelValues(result).Inc()
	if result == "succeeded" {
		globalManager.resyncLastSuccess.SetToCurrentTime()
	}
}

// RecordResyncDuration records one run's duration in milliseconds.
func RecordResyncDuration(latencyMs float64) { globalManager.resyncDuration.Observe(latencyMs) }

// RecordResyncItems sets the size of the last rebuilt ranking.
func RecordResyncItems(n int) { globalManager.resyncItems.Set(float64(n)) }

// Queue metrics.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueDrop counts one refused message.
func RecordQueueDrop(reason string) {
	globalManager.queueDropped.WithLabelValues(reason).Inc()
	globalManager.errorRateByComponent.WithLabelValues("queue", reason).Inc()
}

// RecordQueueWait records how long a message waited before a worker took it.
func RecordQueueWait(latencyMs float64) { globalManager.queueWait.Observe(latencyMs) }

// Worker metrics.

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// UpdateWorkerMessagesPerSecond sets the average messages processed per second.
func UpdateWorkerMessagesPerSecond(rate float64) { globalManager.workerMessagesPerSecond.Set(rate) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

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

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// CollectSystem samples runtime statistics once.
func CollectSystem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	UpdateSystemMemoryUsage(ms.HeapInuse)
	UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if ms.NumGC > 0 {
		pause := ms.PauseNs[(ms.NumGC+255)%256]
		RecordSystemGCPauseTime(float64(pause) / float64(time.Millisecond))
	}
}

// StartSystemCollector samples runtime statistics every refresh interval
// until ctx is done. It does nothing when metrics are disabled.
func StartSystemCollector(ctx context.Context) {
	if !globalManager.enabled {
		return
	}
	go func() {
		ticker := time.NewTicker(globalManager.refreshInterval)
		defer ticker.Stop()
		for {
			CollectSystem()
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
