// Package metrics provides Prometheus metrics for the mixer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Labels for mix results.
const (
	ResultFair           = "fair"
	ResultBestEffort     = "best_effort"
	ResultInfeasible     = "infeasible"
	ResultBudgetExceeded = "budget_exceeded"
	ResultInvalid        = "invalid"
)

// Manager owns every metric the mixer exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Balancing
	mixRuns      *prometheus.CounterVec
	mixLatency   prometheus.Histogram
	searchNodes  prometheus.Histogram
	searchGap    prometheus.Histogram
	rosterSize   prometheus.Gauge
	pendingMatch prometheus.Gauge

	// Settlement
	ratingUpdates     prometheus.Counter
	ratingErrors      prometheus.Counter
	outcomeReports    *prometheus.CounterVec
	outcomeDuplicates prometheus.Counter
	matchesExpired    prometheus.Counter

	// Ladder
	ladderSize         *prometheus.GaugeVec
	ladderQueryLatency prometheus.Histogram

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	errorsByComponent *prometheus.CounterVec

	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure replaces the process-wide manager with one built from opts on
// a fresh registry. Call it before anything records.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	opts = append(opts, WithPrometheusRegistry(registry))
	globalManager = NewManager(opts...)
	customRegistry = registry
}

// NewManager creates a manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "mixer",
		subsystem:        "balancer",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.mixRuns = m.counterVec("mix_runs_total", "Mix runs by result", "result")
	m.mixLatency = m.histogram("mix_latency_milliseconds", "Time spent balancing one lobby", m.histogramBuckets)
	m.searchNodes = m.histogram("search_explored_nodes", "Search nodes explored per mix",
		prometheus.ExponentialBuckets(1, 4, 12))
	m.searchGap = m.histogram("composition_gap", "Rating gap of the chosen composition",
		[]float64{0, 25, 50, 100, 200, 300, 500, 1000, 2000, 5000})
	m.rosterSize = m.gauge("roster_size", "Players in the most recent lobby")
	m.pendingMatch = m.gauge("pending_matches", "Matches waiting for an outcome")

	m.ratingUpdates = m.counter("rating_updates_total", "Per-player rating updates produced")
	m.ratingErrors = m.counter("rating_errors_total", "Settlements that failed to rate")
	m.outcomeReports = m.counterVec("outcome_reports_total", "Outcomes settled by result", "outcome")
	m.outcomeDuplicates = m.counter("outcome_duplicates_total", "Outcomes rejected as already settled")
	m.matchesExpired = m.counter("matches_expired_total", "Pending matches dropped after their TTL")

	m.ladderSize = m.gaugeVec("ladder_players", "Players rated per role ladder", "role")
	m.ladderQueryLatency = m.histogram("ladder_query_latency_milliseconds", "Ladder rank and top-N latency",
		[]float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10})

	m.queueSize = m.gauge("queue_size", "Current size of the mix queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size over capacity")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Requests enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Requests dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Requests rejected by the queue")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Enqueue latency", m.histogramBuckets)

	m.workerCount = m.gauge("worker_count", "Configured workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently mixing")
	m.workerIdleCount = m.gauge("worker_idle_count", "Workers waiting for requests")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per-request worker latency", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Requests a worker failed to mix")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordMixRun counts one balancing run under result.
func RecordMixRun(result string) {
	globalManager.mixRuns.WithLabelValues(result).Inc()
}

// RecordMixLatency records balancing latency in milliseconds.
func RecordMixLatency(latencyMs float64) {
	globalManager.mixLatency.Observe(latencyMs)
}

// RecordSearch records the nodes explored and the gap found by one search.
func RecordSearch(explored int, gap float64) {
	globalManager.searchNodes.Observe(float64(explored))
	globalManager.searchGap.Observe(gap)
}

// UpdateRosterSize sets the size of the most recent lobby.
func UpdateRosterSize(n int) {
	globalManager.rosterSize.Set(float64(n))
}

// UpdatePendingMatches sets the number of unsettled matches.
func UpdatePendingMatches(n int) {
	globalManager.pendingMatch.Set(float64(n))
}

// RecordRatingUpdates adds n produced rating updates.
func RecordRatingUpdates(n int) {
	globalManager.ratingUpdates.Add(float64(n))
}

// RecordRatingError counts a failed settlement.
func RecordRatingError() {
	globalManager.ratingErrors.Inc()
}

// RecordOutcome counts a settled outcome.
func RecordOutcome(outcome string) {
	globalManager.outcomeReports.WithLabelValues(outcome).Inc()
}

// RecordOutcomeDuplicate counts an outcome for an already settled match.
func RecordOutcomeDuplicate() {
	globalManager.outcomeDuplicates.Inc()
}

// RecordMatchesExpired adds n matches dropped by the janitor.
func RecordMatchesExpired(n int) {
	globalManager.matchesExpired.Add(float64(n))
}

// UpdateLadderSize sets the number of players rated in a role.
func UpdateLadderSize(role string, n int) {
	globalManager.ladderSize.WithLabelValues(role).Set(float64(n))
}

// RecordLadderQueryLatency records a ladder read in milliseconds.
func RecordLadderQueryLatency(latencyMs float64) {
	globalManager.ladderQueryLatency.Observe(latencyMs)
}

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

// RecordQueueProcessingLatency records enqueue latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
