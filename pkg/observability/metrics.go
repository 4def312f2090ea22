package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics collection for cognition
// execution, tool invocation, and sandbox enforcement.
type Metrics struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	cognitionExecutions *prometheus.CounterVec
	cognitionDuration   *prometheus.HistogramVec
	cognitionErrors     *prometheus.CounterVec

	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	toolErrors       *prometheus.CounterVec

	sandboxDenials *prometheus.CounterVec

	cognitionLogAppends  *prometheus.CounterVec
	cognitionLogDuration prometheus.Histogram

	awaitTimeouts prometheus.Counter
}

// NewMetrics creates a new Metrics instance from configuration. It
// returns (nil, nil) when metrics are disabled so callers can treat a
// nil *Metrics as a safe no-op via the nil-receiver methods below.
func NewMetrics(cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	cfg.SetDefaults()

	m := &Metrics{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}

	m.cognitionExecutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   cfg.Namespace,
		Subsystem:   cfg.Subsystem,
		Name:        "cognition_executions_total",
		Help:        "Total number of cognition tree executions, by root operation.",
		ConstLabels: cfg.ConstLabels,
	}, []string{"operation", "success"})

	m.cognitionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   cfg.Namespace,
		Subsystem:   cfg.Subsystem,
		Name:        "cognition_duration_seconds",
		Help:        "Cognition tree execution duration in seconds.",
		Buckets:     prometheus.ExponentialBuckets(0.001, 2, 16),
		ConstLabels: cfg.ConstLabels,
	}, []string{"operation"})

	m.cognitionErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   cfg.Namespace,
		Subsystem:   cfg.Subsystem,
		Name:        "cognition_errors_total",
		Help:        "Total number of cognition failures, by error kind.",
		ConstLabels: cfg.ConstLabels,
	}, []string{"operation", "kind"})

	m.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   cfg.Namespace,
		Subsystem:   cfg.Subsystem,
		Name:        "tool_calls_total",
		Help:        "Total number of tool invocations.",
		ConstLabels: cfg.ConstLabels,
	}, []string{"tool"})

	m.toolCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   cfg.Namespace,
		Subsystem:   cfg.Subsystem,
		Name:        "tool_call_duration_seconds",
		Help:        "Tool invocation duration in seconds.",
		Buckets:     prometheus.ExponentialBuckets(0.001, 2, 16),
		ConstLabels: cfg.ConstLabels,
	}, []string{"tool"})

	m.toolErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   cfg.Namespace,
		Subsystem:   cfg.Subsystem,
		Name:        "tool_errors_total",
		Help:        "Total number of tool invocation failures, by error kind.",
		ConstLabels: cfg.ConstLabels,
	}, []string{"tool", "kind"})

	m.sandboxDenials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   cfg.Namespace,
		Subsystem:   cfg.Subsystem,
		Name:        "sandbox_denials_total",
		Help:        "Total number of SANDBOXED-EXECUTE calls denied by policy, by reason.",
		ConstLabels: cfg.ConstLabels,
	}, []string{"reason"})

	m.cognitionLogAppends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   cfg.Namespace,
		Subsystem:   cfg.Subsystem,
		Name:        "cognition_log_appends_total",
		Help:        "Total number of cognition log append calls.",
		ConstLabels: cfg.ConstLabels,
	}, []string{"success"})

	m.cognitionLogDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   cfg.Namespace,
		Subsystem:   cfg.Subsystem,
		Name:        "cognition_log_append_duration_seconds",
		Help:        "Cognition log append latency in seconds.",
		Buckets:     prometheus.ExponentialBuckets(0.0001, 2, 16),
		ConstLabels: cfg.ConstLabels,
	})

	m.awaitTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   cfg.Namespace,
		Subsystem:   cfg.Subsystem,
		Name:        "await_timeouts_total",
		Help:        "Total number of AWAIT operations that expired without the awaited event firing.",
		ConstLabels: cfg.ConstLabels,
	})

	m.registry.MustRegister(
		m.cognitionExecutions, m.cognitionDuration, m.cognitionErrors,
		m.toolCalls, m.toolCallDuration, m.toolErrors,
		m.sandboxDenials,
		m.cognitionLogAppends, m.cognitionLogDuration,
		m.awaitTimeouts,
	)

	return m, nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// RecordCognition records the outcome of a root cognition execution.
func (m *Metrics) RecordCognition(operation string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.cognitionExecutions.WithLabelValues(operation, boolLabel(success)).Inc()
	m.cognitionDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCognitionError records a failed cognition, labeled by its error kind.
func (m *Metrics) RecordCognitionError(operation, kind string) {
	if m == nil {
		return
	}
	m.cognitionErrors.WithLabelValues(operation, kind).Inc()
}

// RecordToolCall records a tool invocation's duration.
func (m *Metrics) RecordToolCall(toolName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(toolName).Inc()
	m.toolCallDuration.WithLabelValues(toolName).Observe(duration.Seconds())
}

// RecordToolError records a tool invocation failure.
func (m *Metrics) RecordToolError(toolName, kind string) {
	if m == nil {
		return
	}
	m.toolErrors.WithLabelValues(toolName, kind).Inc()
}

// RecordSandboxDenial records a SANDBOXED-EXECUTE policy denial.
func (m *Metrics) RecordSandboxDenial(reason string) {
	if m == nil {
		return
	}
	m.sandboxDenials.WithLabelValues(reason).Inc()
}

// RecordCognitionLogAppend records a cognition log append's outcome and latency.
func (m *Metrics) RecordCognitionLogAppend(duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.cognitionLogAppends.WithLabelValues(boolLabel(success)).Inc()
	m.cognitionLogDuration.Observe(duration.Seconds())
}

// RecordAwaitTimeout increments the AWAIT timeout counter.
func (m *Metrics) RecordAwaitTimeout() {
	if m == nil {
		return
	}
	m.awaitTimeouts.Inc()
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics not enabled"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
