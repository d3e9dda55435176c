package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/realtyhost/internal/domains/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	domainRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtyhost_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	domainRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "realtyhost_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	domainOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtyhost_domain_operations_total",
		Help: "Domain operations by operation and result code.",
	}, []string{"op", "code"})

	domainReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtyhost_domain_reconcile_total",
		Help: "Scheduled status checks by result.",
	}, []string{"result"})

	domainPendingGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtyhost_domains_pending",
		Help: "Pending custom domains seen by the last reconciliation pass.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		domainRequestsTotal.WithLabelValues(method, path, status).Inc()
		domainRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func recordOperation(op string, err error) {
	domainOperationsTotal.WithLabelValues(op, service.Code(err).String()).Inc()
}

// RecordReconcile records one scheduled status check. result is the new
// domain status, or "failure".
func RecordReconcile(result string) {
	domainReconcileTotal.WithLabelValues(result).Inc()
}

// SetPendingGauge sets the number of pending custom domains.
func SetPendingGauge(n int) {
	domainPendingGauge.Set(float64(n))
}
