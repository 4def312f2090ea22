package observability

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_SetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()
	assert.Equal(t, DefaultServiceName, cfg.Tracing.ServiceName)
	assert.Equal(t, 1.0, cfg.Tracing.SamplingRate)
	assert.Equal(t, "otlp", cfg.Tracing.Exporter)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Endpoint)
	assert.Equal(t, DefaultServiceName, cfg.Metrics.Namespace)
}

func TestTracingConfig_Validate(t *testing.T) {
	disabled := &TracingConfig{Enabled: false}
	assert.NoError(t, disabled.Validate())

	invalidRate := &TracingConfig{Enabled: true, Endpoint: "x", SamplingRate: 2}
	assert.Error(t, invalidRate.Validate())

	invalidExporter := &TracingConfig{Enabled: true, Endpoint: "x", SamplingRate: 1, Exporter: "bogus"}
	assert.Error(t, invalidExporter.Validate())

	ok := &TracingConfig{Enabled: true, Endpoint: "x", SamplingRate: 1, Exporter: "otlp"}
	assert.NoError(t, ok.Validate())
}

func TestMetricsConfig_Validate(t *testing.T) {
	disabled := &MetricsConfig{Enabled: false}
	assert.NoError(t, disabled.Validate())

	missing := &MetricsConfig{Enabled: true}
	missing.SetDefaults()
	assert.NoError(t, missing.Validate())
}

func TestNewMetrics_DisabledReturnsNilWithoutError(t *testing.T) {
	m, err := NewMetrics(&MetricsConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestNewMetrics_NilReceiverMethodsAreNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCognition("EXECUTE", time.Millisecond, true)
		m.RecordCognitionError("EXECUTE", "timeout")
		m.RecordToolCall("shell", time.Millisecond)
		m.RecordToolError("shell", "timeout")
		m.RecordSandboxDenial("memory_limit_mb")
		m.RecordCognitionLogAppend(time.Microsecond, true)
		m.RecordAwaitTimeout()
	})
	assert.Nil(t, m.Registry())
}

func TestNewMetrics_RecordsAndExposesViaHandler(t *testing.T) {
	m, err := NewMetrics(&MetricsConfig{Enabled: true, Namespace: "test"})
	require.NoError(t, err)
	require.NotNil(t, m)

	m.RecordCognition("EXECUTE", 10*time.Millisecond, true)
	m.RecordToolCall("shell", 5*time.Millisecond)
	m.RecordSandboxDenial("network_access")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "test_cognition_executions_total")
	assert.Contains(t, body, "test_tool_calls_total")
	assert.Contains(t, body, "test_sandbox_denials_total")
}

func TestInitGlobalTracer_DisabledReturnsNoop(t *testing.T) {
	tp, err := InitGlobalTracer(context.Background(), TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tp)
	tracer := tp.Tracer("test")
	assert.NotNil(t, tracer)
}

func TestNewManager_DisabledByDefault(t *testing.T) {
	m, err := NewManager(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, m.TracingEnabled())
	assert.False(t, m.MetricsEnabled())
	assert.Nil(t, m.Metrics())
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestNewManager_MetricsEnabled(t *testing.T) {
	m, err := NewManager(context.Background(), &Config{
		Metrics: MetricsConfig{Enabled: true},
	})
	require.NoError(t, err)
	assert.True(t, m.MetricsEnabled())
	assert.Equal(t, DefaultMetricsPath, m.MetricsEndpoint())
	require.NoError(t, m.Shutdown(context.Background()))
}
