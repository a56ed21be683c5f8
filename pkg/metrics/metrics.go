package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Histogram buckets for API and database latency, from milliseconds to tens of seconds
	CustomAPIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34}

	// HTTP Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	ActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"http_request_method", "http_route"},
	)

	// Database Client Metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_client_operation_duration_seconds",
			Help:    "Database client operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	DBOperationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_client_operation_total",
			Help: "Total number of database client operations",
		},
		[]string{"operation", "status"},
	)

	// Business Metrics
	RequestTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "getmentor_request_transitions_total",
			Help: "Total number of mentorship request transition attempts",
		},
		[]string{"action", "outcome"},
	)

	RequestConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "getmentor_request_conflicts_total",
			Help: "Total number of transitions lost to a concurrent writer",
		},
		[]string{"action"},
	)

	RequestsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "getmentor_requests_created_total",
			Help: "Total number of mentorship requests created",
		},
		[]string{"status"},
	)

	MeetingLinkUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "getmentor_meeting_link_updates_total",
			Help: "Total number of meeting link updates",
		},
		[]string{"status"},
	)

	SessionsMaterialized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "getmentor_sessions_materialized_total",
			Help: "Total number of sessions created from confirmed requests",
		},
	)

	SessionUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "getmentor_session_updates_total",
			Help: "Total number of session updates",
		},
		[]string{"status"},
	)

	FeedbackSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "getmentor_feedback_submissions_total",
			Help: "Total number of session feedback submissions",
		},
		[]string{"status"},
	)

	// Notification Metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "getmentor_notifications_total",
			Help: "Total number of transition notifications dispatched",
		},
		[]string{"sink", "outcome"},
	)

	NotificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "getmentor_notification_duration_seconds",
			Help:    "Notification dispatch duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"sink"},
	)

	// Infrastructure Metrics
	GoRoutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_goroutines",
			Help: "Number of goroutines",
		},
	)

	HeapAlloc = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_mem_heap_alloc_bytes",
			Help: "Heap allocated bytes",
		},
	)
)

// RecordInfrastructureMetrics collects infrastructure metrics periodically
func RecordInfrastructureMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		for range ticker.C {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			GoRoutines.Set(float64(runtime.NumGoroutine()))
			HeapAlloc.Set(float64(m.HeapAlloc))
		}
	}()
}

// RecordDBOperation records duration and outcome of a database operation
func RecordDBOperation(operation, status string, duration float64) {
	DBOperationDuration.WithLabelValues(operation, status).Observe(duration)
	DBOperationTotal.WithLabelValues(operation, status).Inc()
}

// MeasureDuration measures the duration of an operation
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}
