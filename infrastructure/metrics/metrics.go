package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
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

	casesFiled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cases_filed_total",
			Help: "Total number of cases filed",
		},
		[]string{"type"},
	)

	caseStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_status_changes_total",
			Help: "Total number of case status transitions",
		},
		[]string{"to_status"},
	)

	caseTransfers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "case_transfers_total",
			Help: "Total number of case transfers between officers",
		},
	)

	auditEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total number of audit entries written",
		},
	)

	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"outcome"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency per method/path/status.
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

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath keeps label cardinality bounded for paths carrying IDs.
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/..."
	}
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if looksLikeID(segment) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func looksLikeID(segment string) bool {
	if len(segment) < 16 {
		return false
	}
	for _, c := range segment {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		case c == '-':
		default:
			return false
		}
	}
	return true
}

func RecordCaseFiled(caseType string) {
	casesFiled.WithLabelValues(caseType).Inc()
}

func RecordCaseStatusChange(toStatus string) {
	caseStatusChanges.WithLabelValues(toStatus).Inc()
}

func RecordCaseTransfer() {
	caseTransfers.Inc()
}

func RecordAuditEntry() {
	auditEntriesTotal.Inc()
}

func RecordLoginAttempt(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	loginAttempts.WithLabelValues(outcome).Inc()
}
