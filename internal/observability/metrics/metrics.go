package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	reconcileResults *prometheus.CounterVec
	gatewayRequests  *prometheus.CounterVec
	paymentsOpened   *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		reconcileResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hirelink_reconcile_results_total",
			Help: "Reconciliation outcomes by gateway and result.",
		}, []string{"gateway", "result"}),
		gatewayRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hirelink_gateway_requests_total",
			Help: "Outbound gateway calls by gateway, operation and outcome.",
		}, []string{"gateway", "operation", "outcome"}),
		paymentsOpened: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hirelink_payments_opened_total",
			Help: "Payment sessions opened by gateway.",
		}, []string{"gateway"}),
		httpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hirelink_http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

func (m *Metrics) RecordReconcile(gateway, result string) {
	if m == nil {
		return
	}
	m.reconcileResults.WithLabelValues(label(gateway), label(result)).Inc()
}

func (m *Metrics) RecordGatewayRequest(gateway, operation, outcome string) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(label(gateway), label(operation), label(outcome)).Inc()
}

func (m *Metrics) RecordPaymentOpened(gateway string) {
	if m == nil {
		return
	}
	m.paymentsOpened.WithLabelValues(label(gateway)).Inc()
}

// GinMiddleware records request latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if m == nil {
			return
		}
		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.httpDuration.WithLabelValues(
			route,
			c.Request.Method,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

func label(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}

var Module = fx.Module("observability.metrics",
	fx.Provide(New),
)
