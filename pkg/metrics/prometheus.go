// Package metrics provides Prometheus metrics for the quizboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the quizboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Core business metrics
	participantsJoined prometheus.Counter
	deltasApplied      prometheus.Counter
	submissionsJudged  prometheus.Counter
	submissionsDup     prometheus.Counter
	judgeLatency       prometheus.Histogram

	// Fan-out metrics
	eventsPublished     prometheus.Counter
	eventsDropped       prometheus.Counter
	subscriptionsActive prometheus.Gauge
	dispatchQueueDepth  *prometheus.GaugeVec

	// Store metrics
	sessionsActive     prometheus.Gauge
	participantsTotal  prometheus.Gauge
	sessionsExpired    prometheus.Counter
	storeUpdateLatency prometheus.Histogram
	storeQueryLatency  prometheus.Histogram
	snapshotLatency    prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorsByComponent *prometheus.CounterVec
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
		namespace:        "quizboard",
		subsystem:        "leaderboard",
		histogramBuckets: prometheus.DefBuckets,
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

	m.participantsJoined = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "participants_joined_total",
		Help:      "Total number of participant joins accepted",
	})

	m.deltasApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "deltas_applied_total",
		Help:      "Total number of score deltas applied to the ranked store",
	})

	m.submissionsJudged = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_judged_total",
		Help:      "Total number of answer submissions judged",
	})

	m.submissionsDup = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_duplicate_total",
		Help:      "Total number of duplicate answer submissions detected",
	})

	m.judgeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "judge_latency_milliseconds",
		Help:      "Histogram of answer judging latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.eventsPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "change_events_published_total",
		Help:      "Total number of change events published to the notifier",
	})

	m.eventsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "change_events_dropped_total",
		Help:      "Total number of change events dropped (slow subscriber or full queue)",
	})

	m.subscriptionsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "subscriptions_active",
		Help:      "Number of currently active change event subscriptions",
	})

	m.dispatchQueueDepth = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_queue_depth",
		Help:      "Number of change events waiting in each dispatch shard",
	}, []string{"shard"})

	m.sessionsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_active",
		Help:      "Number of live quiz sessions in the ranked store",
	})

	m.participantsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "participants_total",
		Help:      "Total number of participants across all live sessions",
	})

	m.sessionsExpired = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_expired_total",
		Help:      "Total number of sessions purged after their TTL elapsed",
	})

	m.storeUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_update_latency_milliseconds",
		Help:      "Histogram of ranked store write latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_latency_milliseconds",
		Help:      "Histogram of ranked store read latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.snapshotLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_build_latency_milliseconds",
		Help:      "Histogram of leaderboard snapshot assembly latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Total number of errors by component and kind",
	}, []string{"component", "kind"})
}

// GetRegistry returns the registry metrics are collected on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RecordJoin increments the participant join counter.
func RecordJoin() { globalManager.participantsJoined.Inc() }

// RecordDeltaApplied increments the applied-delta counter.
func RecordDeltaApplied() { globalManager.deltasApplied.Inc() }

// RecordSubmissionJudged increments the judged-submission counter.
func RecordSubmissionJudged() { globalManager.submissionsJudged.Inc() }

// RecordSubmissionDuplicate increments the duplicate-submission counter.
func RecordSubmissionDuplicate() { globalManager.submissionsDup.Inc() }

// RecordJudgeLatency records answer judging latency in milliseconds.
func RecordJudgeLatency(ms float64) { globalManager.judgeLatency.Observe(ms) }

// RecordEventPublished increments the published change event counter.
func RecordEventPublished() { globalManager.eventsPublished.Inc() }

// RecordEventDropped increments the dropped change event counter.
func RecordEventDropped() { globalManager.eventsDropped.Inc() }

// IncrementSubscriptions bumps the active subscription gauge.
func IncrementSubscriptions() { globalManager.subscriptionsActive.Inc() }

// DecrementSubscriptions lowers the active subscription gauge.
func DecrementSubscriptions() { globalManager.subscriptionsActive.Dec() }

// UpdateDispatchQueueDepth sets the queue depth for a dispatch shard.
func UpdateDispatchQueueDepth(shard string, depth int) {
	globalManager.dispatchQueueDepth.WithLabelValues(shard).Set(float64(depth))
}

// UpdateSessionsActive sets the live session gauge.
func UpdateSessionsActive(n int) { globalManager.sessionsActive.Set(float64(n)) }

// UpdateParticipantsTotal sets the total participant gauge.
func UpdateParticipantsTotal(n int) { globalManager.participantsTotal.Set(float64(n)) }

// RecordSessionsExpired adds to the expired session counter.
func RecordSessionsExpired(n int) { globalManager.sessionsExpired.Add(float64(n)) }

// RecordStoreUpdateLatency records ranked store write latency in milliseconds.
func RecordStoreUpdateLatency(ms float64) { globalManager.storeUpdateLatency.Observe(ms) }

// RecordStoreQueryLatency records ranked store read latency in milliseconds.
func RecordStoreQueryLatency(ms float64) { globalManager.storeQueryLatency.Observe(ms) }

// RecordSnapshotLatency records snapshot assembly latency in milliseconds.
func RecordSnapshotLatency(ms float64) { globalManager.snapshotLatency.Observe(ms) }

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}
