package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

// Manager owns the lifecycle of the tracing provider and the metrics
// registry, giving callers (cmd/ailctl) a single object to build and
// tear down.
type Manager struct {
	config  *Config
	tracer  trace.TracerProvider
	metrics *Metrics
}

// NewManager creates a Manager from configuration. A nil cfg yields a
// Manager with tracing and metrics both disabled.
func NewManager(ctx context.Context, cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("observability: invalid config: %w", err)
	}

	m := &Manager{config: cfg}

	tp, err := InitGlobalTracer(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("observability: init tracer: %w", err)
	}
	m.tracer = tp
	if cfg.Tracing.Enabled {
		slog.Info("observability: tracing initialized",
			"exporter", cfg.Tracing.Exporter,
			"endpoint", cfg.Tracing.Endpoint,
			"sampling_rate", cfg.Tracing.SamplingRate,
		)
	}

	if cfg.Metrics.Enabled {
		metrics, err := NewMetrics(&cfg.Metrics)
		if err != nil {
			_ = ShutdownTracerProvider(ctx, m.tracer)
			return nil, fmt.Errorf("observability: init metrics: %w", err)
		}
		m.metrics = metrics
		slog.Info("observability: metrics initialized",
			"endpoint", cfg.Metrics.Endpoint,
			"namespace", cfg.Metrics.Namespace,
		)
	}

	return m, nil
}

// Tracer returns the currently installed global tracer provider.
func (m *Manager) Tracer() trace.TracerProvider {
	if m == nil {
		return nil
	}
	return m.tracer
}

// Metrics returns the metrics instance, or nil if disabled.
func (m *Manager) Metrics() *Metrics {
	if m == nil {
		return nil
	}
	return m.metrics
}

// MetricsHandler returns an HTTP handler for the metrics endpoint.
func (m *Manager) MetricsHandler() http.Handler {
	if m == nil || m.metrics == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics not enabled"))
		})
	}
	return m.metrics.Handler()
}

// MetricsEndpoint returns the configured metrics HTTP path.
func (m *Manager) MetricsEndpoint() string {
	if m == nil || m.config == nil {
		return DefaultMetricsPath
	}
	return m.config.Metrics.Endpoint
}

// TracingEnabled reports whether tracing is active.
func (m *Manager) TracingEnabled() bool {
	return m != nil && m.config != nil && m.config.Tracing.Enabled
}

// MetricsEnabled reports whether metrics are active.
func (m *Manager) MetricsEnabled() bool {
	return m != nil && m.metrics != nil
}

// Shutdown flushes and tears down tracing.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	if err := ShutdownTracerProvider(ctx, m.tracer); err != nil {
		return fmt.Errorf("observability: tracer shutdown: %w", err)
	}
	return nil
}
