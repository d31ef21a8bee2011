// Package metrics provides Prometheus metrics for the settlement engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the registry and all engine metrics.
type Manager struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	gameTransitions *prometheus.CounterVec
	prizePool       prometheus.Gauge
	leaderboardSize prometheus.Gauge

	pendingRequests      prometheus.Gauge
	fulfillmentResolved  prometheus.Counter
	fulfillmentDiscarded prometheus.Counter
	fulfillmentReplayed  prometheus.Counter
	fulfillmentLatency   prometheus.Histogram
	queueSize            prometheus.Gauge
	queueEnqueueErrors   *prometheus.CounterVec
	workerErrors         prometheus.Counter

	prizesPaid    prometheus.Counter
	prizesPending prometheus.Counter
	prizesClaimed prometheus.Counter

	activeSessions prometheus.Gauge
	executeDenied  *prometheus.CounterVec
	operatorStarts prometheus.Counter

	memoryUsage    prometheus.Gauge
	goroutineCount prometheus.Gauge
}

// NewManager creates a Manager with a fresh registry.
func NewManager() *Manager {
	m := &Manager{registry: prometheus.NewRegistry()}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bandrush_http_requests_total",
		Help: "HTTP requests by endpoint, method and status code.",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bandrush_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"endpoint", "method"})

	m.gameTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bandrush_game_transitions_total",
		Help: "Game lifecycle transitions by resulting state.",
	}, []string{"state"})

	m.prizePool = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bandrush_season_prize_pool",
		Help: "Current season prize pool in smallest units.",
	})

	m.leaderboardSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bandrush_leaderboard_size",
		Help: "Entries on the current season leaderboard.",
	})

	m.pendingRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bandrush_randomness_pending_requests",
		Help: "Randomness requests awaiting fulfillment.",
	})

	m.fulfillmentResolved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bandrush_randomness_fulfillments_resolved_total",
		Help: "Fulfillment callbacks that activated a game.",
	})

	m.fulfillmentDiscarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bandrush_randomness_fulfillments_discarded_total",
		Help: "Fulfillment callbacks with an unknown request id.",
	})

	m.fulfillmentReplayed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bandrush_randomness_fulfillments_replayed_total",
		Help: "Fulfillment callbacks for an already-resolved request id.",
	})

	m.fulfillmentLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bandrush_fulfillment_resolution_ms",
		Help:    "Time spent resolving one fulfillment in milliseconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	m.queueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bandrush_fulfillment_queue_size",
		Help: "Fulfillments currently queued.",
	})

	m.queueEnqueueErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bandrush_fulfillment_queue_enqueue_errors_total",
		Help: "Rejected enqueues by reason.",
	}, []string{"reason"})

	m.workerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bandrush_fulfillment_worker_errors_total",
		Help: "Fulfillment resolutions that returned an error.",
	})

	m.prizesPaid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bandrush_prizes_paid_total",
		Help: "Prizes delivered by direct push.",
	})

	m.prizesPending = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bandrush_prizes_pending_total",
		Help: "Prizes converted to pull-credits after a failed push.",
	})

	m.prizesClaimed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bandrush_prizes_claimed_total",
		Help: "Pending prizes claimed by winners.",
	})

	m.activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bandrush_active_sessions",
		Help: "Session keys currently live.",
	})

	m.executeDenied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bandrush_execute_denied_total",
		Help: "Session execute calls denied by scope check.",
	}, []string{"reason"})

	m.operatorStarts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bandrush_operator_starts_total",
		Help: "Games started by an authorized operator.",
	})

	m.memoryUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bandrush_memory_usage_bytes",
		Help: "Allocated heap bytes.",
	})

	m.goroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bandrush_goroutine_count",
		Help: "Live goroutines.",
	})

	m.registry.MustRegister(
		m.httpRequests, m.httpRequestDuration,
		m.gameTransitions, m.prizePool, m.leaderboardSize,
		m.pendingRequests, m.fulfillmentResolved, m.fulfillmentDiscarded,
		m.fulfillmentReplayed, m.fulfillmentLatency,
		m.queueSize, m.queueEnqueueErrors, m.workerErrors,
		m.prizesPaid, m.prizesPending, m.prizesClaimed,
		m.activeSessions, m.executeDenied, m.operatorStarts,
		m.memoryUsage, m.goroutineCount,
	)
}

// Handler returns the /metrics HTTP handler for this manager's registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

var (
	defaultManager *Manager
	defaultOnce    sync.Once
)

// Default returns the process-wide manager.
func Default() *Manager {
	defaultOnce.Do(func() {
		defaultManager = NewManager()
	})
	return defaultManager
}

// Package-level helpers over the default manager.

func RecordHTTPRequest(endpoint, method, status string) {
	Default().httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	Default().httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}

func RecordGameTransition(state string) {
	Default().gameTransitions.WithLabelValues(state).Inc()
}

func UpdatePrizePool(amount int64) {
	Default().prizePool.Set(float64(amount))
}

func UpdateLeaderboardSize(n int) {
	Default().leaderboardSize.Set(float64(n))
}

func UpdatePendingRequests(n int) {
	Default().pendingRequests.Set(float64(n))
}

func RecordFulfillmentResolved() {
	Default().fulfillmentResolved.Inc()
}

func RecordFulfillmentDiscarded() {
	Default().fulfillmentDiscarded.Inc()
}

func RecordFulfillmentReplayed() {
	Default().fulfillmentReplayed.Inc()
}

func RecordFulfillmentLatency(ms float64) {
	Default().fulfillmentLatency.Observe(ms)
}

func UpdateQueueSize(n int) {
	Default().queueSize.Set(float64(n))
}

func RecordQueueEnqueueError(reason string) {
	Default().queueEnqueueErrors.WithLabelValues(reason).Inc()
}

func RecordWorkerError() {
	Default().workerErrors.Inc()
}

func RecordPrizePaid() {
	Default().prizesPaid.Inc()
}

func RecordPrizePending() {
	Default().prizesPending.Inc()
}

func RecordPrizeClaimed() {
	Default().prizesClaimed.Inc()
}

func UpdateActiveSessions(n int) {
	Default().activeSessions.Set(float64(n))
}

func RecordExecuteDenied(reason string) {
	Default().executeDenied.WithLabelValues(reason).Inc()
}

func RecordOperatorStart() {
	Default().operatorStarts.Inc()
}

func UpdateMemoryUsage(bytes uint64) {
	Default().memoryUsage.Set(float64(bytes))
}

func UpdateGoroutineCount(n int) {
	Default().goroutineCount.Set(float64(n))
}
