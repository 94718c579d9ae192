package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/litescript/ls-segment-switch/internal/config"
)

func TestNewWithoutEndpointIsNoop(t *testing.T) {
	p, err := New(config.TelemetryConfig{ServiceName: "segment-switch"})
	require.NoError(t, err)
	require.False(t, p.Enabled())

	_, span := p.Tracer("test").Start(context.Background(), "segment.switch")
	require.False(t, span.IsRecording())
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewRecordsSpansWithResource(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	p, err := New(
		config.TelemetryConfig{ServiceName: "segment-switch-test"},
		WithSpanProcessor(recorder),
		WithVersion("1.2.3"),
	)
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, span := p.Tracer("test").Start(context.Background(), "segment.switch")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "segment.switch", ended[0].Name())

	attrs := map[attribute.Key]string{}
	for _, kv := range ended[0].Resource().Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	require.Equal(t, "segment-switch-test", attrs["service.name"])
	require.Equal(t, "1.2.3", attrs["service.version"])

	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNilProviderIsNoop(t *testing.T) {
	var p *Provider
	require.False(t, p.Enabled())
	require.NotNil(t, p.Tracer("x"))
	require.NoError(t, p.Shutdown(context.Background()))
}
