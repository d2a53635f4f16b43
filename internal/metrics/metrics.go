// Package metrics exposes Prometheus collectors for the API and workers.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// CertificatesDelivered counts per-student certificate deliveries by result (sent|failed).
	CertificatesDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certificates_delivered_total",
		Help: "Certificate deliveries by result.",
	}, []string{"result"})

	// AttendanceRowsImported counts import rows by result (ok|not_found|invalid|error).
	AttendanceRowsImported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_rows_imported_total",
		Help: "Attendance import rows by result.",
	}, []string{"result"})

	// EmailsSent counts outgoing email by kind (certificate|campaign|reminder) and result.
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emails_sent_total",
		Help: "Emails sent by kind and result.",
	}, []string{"kind", "result"})

	// AIReports counts generated participation reports by source (ai|template).
	AIReports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_reports_total",
		Help: "Participation reports by source.",
	}, []string{"source"})
)

// Result maps an error to a "ok"/"error" label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Middleware records request counts and latency by matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
