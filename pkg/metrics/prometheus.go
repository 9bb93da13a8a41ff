// Package metrics provides Prometheus metrics for the quizgate service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the quizgate service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Session lifecycle
	sessionsStarted     prometheus.Counter
	sessionsExpired     prometheus.Counter
	activeSessions      prometheus.Gauge
	outstandingCaptchas prometheus.Gauge
	sweepDuration       prometheus.Histogram

	// Tracking
	trackEvents     *prometheus.CounterVec
	trackRejected   *prometheus.CounterVec
	trackDuplicates prometheus.Counter

	// Risk assessment
	assessments    *prometheus.CounterVec
	scoringLatency prometheus.Histogram
	scoringErrors  *prometheus.CounterVec
	breakerState   prometheus.Gauge

	// Challenges
	challengesIssued    *prometheus.CounterVec
	challengesReused    *prometheus.CounterVec
	verifications       *prometheus.CounterVec
	verificationElapsed *prometheus.HistogramVec
	passesIssued        prometheus.Counter

	// Telemetry pipeline
	queueCapacity     prometheus.Gauge
	queueSize         prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueDequeued     prometheus.Counter
	queueEnqueueError *prometheus.CounterVec
	workerCount       prometheus.Gauge
	workerLatency     prometheus.Histogram
	workerErrors      prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

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
		namespace:        "quizgate",
		subsystem:        "captcha",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
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

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.sessionsStarted = m.counter("sessions_started_total", "Total number of tracking sessions started")
	m.sessionsExpired = m.counter("sessions_expired_total", "Total number of sessions removed by the expiry sweep")
	m.activeSessions = m.gauge("sessions_active", "Current number of live sessions")
	m.outstandingCaptchas = m.gauge("challenges_outstanding", "Current number of sessions holding an unresolved challenge")
	m.sweepDuration = m.histogram("sweep_duration_milliseconds", "Duration of the session expiry sweep", m.histogramBuckets)

	m.trackEvents = m.counterVec("track_events_total", "Interaction events recorded by type", "type")
	m.trackRejected = m.counterVec("track_rejected_total", "Interaction events rejected by reason", "reason")
	m.trackDuplicates = m.counter("track_duplicates_total", "Interaction events ignored because their event_id was already seen")

	m.assessments = m.counterVec("assessments_total", "Risk assessments by tier", "tier", "degraded")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Latency of scorer calls in milliseconds", m.histogramBuckets)
	m.scoringErrors = m.counterVec("scoring_errors_total", "Scorer failures by reason", "reason")
	m.breakerState = m.gauge("scorer_breaker_state", "Scorer circuit breaker state (0=closed, 1=half-open, 2=open)")

	m.challengesIssued = m.counterVec("challenges_issued_total", "Challenges issued by kind", "kind")
	m.challengesReused = m.counterVec("challenges_reused_total", "Assessments that returned an already outstanding challenge", "kind")
	m.verifications = m.counterVec("verifications_total", "Challenge verifications by kind and outcome", "kind", "outcome")
	m.verificationElapsed = m.histogramVec("verification_elapsed_seconds", "Time between challenge issuance and response",
		[]float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 45, 60, 90, 120}, "kind")
	m.passesIssued = m.counter("passes_issued_total", "Signed access passes issued after a successful verification")

	m.queueCapacity = m.gauge("telemetry_queue_capacity", "Capacity of the telemetry queue")
	m.queueSize = m.gauge("telemetry_queue_size", "Current size of the telemetry queue")
	m.queueEnqueued = m.counter("telemetry_enqueued_total", "Telemetry outcomes enqueued")
	m.queueDequeued = m.counter("telemetry_dequeued_total", "Telemetry outcomes dequeued")
	m.queueEnqueueError = m.counterVec("telemetry_enqueue_errors_total", "Telemetry outcomes dropped by reason", "reason")
	m.workerCount = m.gauge("telemetry_worker_count", "Number of telemetry workers")
	m.workerLatency = m.histogram("telemetry_worker_latency_milliseconds", "Time spent applying one telemetry outcome", m.histogramBuckets)
	m.workerErrors = m.counter("telemetry_worker_errors_total", "Telemetry outcomes that failed to apply")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		m.histogramBuckets, "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component",
		"component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint",
		"endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordSessionStarted increments the sessions started counter.
func RecordSessionStarted() { globalManager.sessionsStarted.Inc() }

// RecordSessionsExpired adds n to the expired sessions counter.
func RecordSessionsExpired(n int) { globalManager.sessionsExpired.Add(float64(n)) }

// UpdateActiveSessions sets the live session gauge.
func UpdateActiveSessions(n int) { globalManager.activeSessions.Set(float64(n)) }

// UpdateOutstandingChallenges sets the outstanding challenge gauge.
func UpdateOutstandingChallenges(n int) { globalManager.outstandingCaptchas.Set(float64(n)) }

// RecordSweepDuration records how long one expiry sweep took.
func RecordSweepDuration(ms float64) { globalManager.sweepDuration.Observe(ms) }

// RecordTrackEvent counts an accepted interaction event.
func RecordTrackEvent(eventType string) { globalManager.trackEvents.WithLabelValues(eventType).Inc() }

// RecordTrackRejected counts a rejected interaction event.
func RecordTrackRejected(reason string) { globalManager.trackRejected.WithLabelValues(reason).Inc() }

// RecordTrackDuplicate counts a deduplicated interaction event.
func RecordTrackDuplicate() { globalManager.trackDuplicates.Inc() }

// RecordAssessment counts a risk assessment.
func RecordAssessment(tier string, degraded bool) {
	globalManager.assessments.WithLabelValues(tier, strconv.FormatBool(degraded)).Inc()
}

// RecordScoringLatency records scorer latency in milliseconds.
func RecordScoringLatency(ms float64) { globalManager.scoringLatency.Observe(ms) }

// RecordScoringError counts a scorer failure.
func RecordScoringError(reason string) { globalManager.scoringErrors.WithLabelValues(reason).Inc() }

// UpdateBreakerState publishes the scorer breaker state.
func UpdateBreakerState(state int) { globalManager.breakerState.Set(float64(state)) }

// RecordChallengeIssued counts a freshly minted challenge.
func RecordChallengeIssued(kind string) { globalManager.challengesIssued.WithLabelValues(kind).Inc() }

// RecordChallengeReused counts an assessment answered with the outstanding challenge.
func RecordChallengeReused(kind string) { globalManager.challengesReused.WithLabelValues(kind).Inc() }

// RecordVerification counts a verification attempt.
func RecordVerification(kind, outcome string) {
	globalManager.verifications.WithLabelValues(kind, outcome).Inc()
}

// RecordVerificationElapsed observes the response time of a verification attempt.
func RecordVerificationElapsed(kind string, seconds float64) {
	globalManager.verificationElapsed.WithLabelValues(kind).Observe(seconds)
}

// RecordPassIssued counts a signed pass.
func RecordPassIssued() { globalManager.passesIssued.Inc() }

// UpdateQueueCapacity sets the telemetry queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueSize sets the telemetry queue length.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// RecordQueueEnqueue counts an enqueued outcome.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue counts a dequeued outcome.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError counts a dropped outcome.
func RecordQueueEnqueueError(reason string) { globalManager.queueEnqueueError.WithLabelValues(reason).Inc() }

// UpdateWorkerCount sets the telemetry worker gauge.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency observes how long a worker spent on one outcome.
func RecordWorkerProcessingLatency(ms float64) { globalManager.workerLatency.Observe(ms) }

// RecordWorkerError counts a failed outcome application.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage updates system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount updates goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
