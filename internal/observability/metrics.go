package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector holds all Prometheus metrics for the gateway.
// Uses a custom registry — no global state.
type MetricsCollector struct {
	Registry *prometheus.Registry

	// Gateway operation metrics (files, system, metrics log, app control).
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Process execution metrics.
	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec

	// Policy rejections (allow-list, block-list, token filter).
	PolicyRejectionsTotal *prometheus.CounterVec

	// HTTP transport metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ActiveRequests      prometheus.Gauge
}

// NewMetricsCollector creates a MetricsCollector with all metrics
// registered on a custom prometheus.Registry.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()

	m := &MetricsCollector{
		Registry: reg,

		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cerebro",
			Subsystem: "gateway",
			Name:      "operations_total",
			Help:      "Total gateway operations.",
		}, []string{"operation", "status"}),

		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cerebro",
			Subsystem: "gateway",
			Name:      "operation_duration_seconds",
			Help:      "Gateway operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		ExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cerebro",
			Subsystem: "exec",
			Name:      "executions_total",
			Help:      "Total spawned process executions.",
		}, []string{"kind", "status"}),

		ExecutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cerebro",
			Subsystem: "exec",
			Name:      "execution_duration_seconds",
			Help:      "Spawned process duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"kind"}),

		PolicyRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cerebro",
			Subsystem: "exec",
			Name:      "policy_rejections_total",
			Help:      "Execution requests rejected by policy before spawning.",
		}, []string{"kind", "reason"}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cerebro",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cerebro",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cerebro",
			Subsystem: "http",
			Name:      "active_requests",
			Help:      "In-flight HTTP requests.",
		}),
	}

	reg.MustRegister(
		m.OperationsTotal,
		m.OperationDuration,
		m.ExecutionsTotal,
		m.ExecutionDuration,
		m.PolicyRejectionsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ActiveRequests,
	)

	return m
}

// RecordOperation records one gateway operation. Nil-safe.
func (m *MetricsCollector) RecordOperation(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordExec records one spawned process execution. Nil-safe.
func (m *MetricsCollector) RecordExec(kind, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ExecutionsTotal.WithLabelValues(kind, status).Inc()
	m.ExecutionDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordPolicyRejection records one pre-spawn policy rejection. Nil-safe.
func (m *MetricsCollector) RecordPolicyRejection(kind, reason string) {
	if m == nil {
		return
	}
	m.PolicyRejectionsTotal.WithLabelValues(kind, reason).Inc()
}

func statusCode(code int) string {
	return strconv.Itoa(code)
}
