package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "givewidget_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "givewidget_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "givewidget_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type"},
	)
)

// Domain counters incremented by services.
var (
	// DonationsCompleted counts donations reconciled to completed.
	DonationsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "givewidget_donations_completed_total",
		Help: "Total number of donations reconciled to completed",
	})

	// LicensesIssued counts licenses created from subscription checkouts.
	LicensesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "givewidget_licenses_issued_total",
		Help: "Total number of license keys issued",
	})

	// ReminderEmailsSent counts expiry reminder emails sent.
	ReminderEmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "givewidget_reminder_emails_sent_total",
		Help: "Total number of expiry reminder emails sent",
	}, []string{"milestone"})
)

// Metrics returns a middleware that records Prometheus metrics.
func Metrics() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.status)
			path := normalizePath(r)

			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)

			if wrapped.status >= 400 {
				errorType := "client_error"
				if wrapped.status >= 500 {
					errorType = "server_error"
				}
				errorsTotal.WithLabelValues(errorType).Inc()
			}
		})
	}
}

// normalizePath uses the chi route pattern to avoid cardinality explosion
// from path parameters.
func normalizePath(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
