package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	navigationResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigation_resolutions_total",
			Help: "Total number of navigation catalog resolutions",
		},
		[]string{"role"},
	)

	capabilityDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capability_decisions_total",
			Help: "Total number of dashboard capability decisions",
		},
		[]string{"capability", "decision"},
	)

	permissionWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "permission_writes_total",
			Help: "Total number of dashboard permission map replacements",
		},
	)

	impersonations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impersonations_total",
			Help: "Total number of impersonation attempts",
		},
		[]string{"outcome"},
	)

	attendanceMarked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_marked_total",
			Help: "Total number of attendance records marked",
		},
		[]string{"city"},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications dispatched",
		},
		[]string{"channel", "status"},
	)

	membersImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "members_imported_total",
			Help: "Total number of member records imported",
		},
		[]string{"source"},
	)

	auditEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total number of audit entries created",
		},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes URL paths for metrics to avoid cardinality explosion
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordNavigationResolution records a navigation catalog resolution
func RecordNavigationResolution(role string) {
	navigationResolutions.WithLabelValues(role).Inc()
}

// RecordCapabilityDecision records a dashboard capability decision
func RecordCapabilityDecision(capability string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	capabilityDecisions.WithLabelValues(capability, decision).Inc()
}

// RecordPermissionWrite records a full replacement of a permission map
func RecordPermissionWrite() {
	permissionWrites.Inc()
}

// RecordImpersonation records an impersonation attempt
func RecordImpersonation(allowed bool) {
	outcome := "rejected"
	if allowed {
		outcome = "started"
	}
	impersonations.WithLabelValues(outcome).Inc()
}

// RecordAttendanceMarked records an attendance mark
func RecordAttendanceMarked(city string) {
	attendanceMarked.WithLabelValues(city).Inc()
}

// RecordNotificationSent records a notification dispatch
func RecordNotificationSent(channel, status string) {
	notificationsSent.WithLabelValues(channel, status).Inc()
}

// RecordMembersImported records imported member records
func RecordMembersImported(source string, count int) {
	membersImported.WithLabelValues(source).Add(float64(count))
}

// RecordAuditEntry records an audit entry creation
func RecordAuditEntry() {
	auditEntriesTotal.Inc()
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
