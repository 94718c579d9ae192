// Package telemetry sets up OpenTelemetry tracing for segment switches.
// Without an OTLP endpoint or extra span processors it hands out no-op
// tracers and exports nothing.
package telemetry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/litescript/ls-segment-switch/internal/config"
)

const dialTimeout = 5 * time.Second

type providerOptions struct {
	exporter       sdktrace.SpanExporter
	spanProcessors []sdktrace.SpanProcessor
	version        string
}

type Option func(*providerOptions)

func WithSpanProcessor(proc sdktrace.SpanProcessor) Option {
	return func(opts *providerOptions) {
		if proc != nil {
			opts.spanProcessors = append(opts.spanProcessors, proc)
		}
	}
}

func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(opts *providerOptions) {
		if exp != nil {
			opts.exporter = exp
		}
	}
}

// WithVersion records the service version on the trace resource.
func WithVersion(v string) Option {
	return func(opts *providerOptions) {
		opts.version = strings.TrimSpace(v)
	}
}

// Provider owns the tracer provider. The zero value and the result of Noop
// are usable and export nothing.
type Provider struct {
	provider *sdktrace.TracerProvider
	shutdown sync.Once
}

// Enabled reports whether cfg names an OTLP endpoint.
func Enabled(cfg config.TelemetryConfig) bool {
	return strings.TrimSpace(cfg.OTLPEndpoint) != ""
}

func New(cfg config.TelemetryConfig, opts ...Option) (*Provider, error) {
	builder := providerOptions{}
	for _, opt := range opts {
		opt(&builder)
	}

	if !Enabled(cfg) && builder.exporter == nil && len(builder.spanProcessors) == 0 {
		return Noop(), nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(resourceAttributes(cfg, builder.version)...),
	)
	if err != nil {
		return nil, err
	}

	exporter := builder.exporter
	if exporter == nil && Enabled(cfg) {
		exporter, err = newExporter(cfg)
		if err != nil {
			return nil, err
		}
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	for _, proc := range builder.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(proc))
	}

	return &Provider{provider: sdktrace.NewTracerProvider(tpOpts...)}, nil
}

func Noop() *Provider {
	return &Provider{}
}

// Enabled reports whether spans are recorded.
func (p *Provider) Enabled() bool {
	return p != nil && p.provider != nil
}

// TracerProvider returns the underlying provider, or a no-op one.
func (p *Provider) TracerProvider() trace.TracerProvider {
	if !p.Enabled() {
		return noop.NewTracerProvider()
	}
	return p.provider
}

func (p *Provider) Tracer(name string) trace.Tracer {
	return p.TracerProvider().Tracer(name)
}

// Shutdown flushes pending spans. Only the first call does any work.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	var shutdownErr error
	p.shutdown.Do(func() {
		shutdownErr = p.provider.Shutdown(ctx)
	})
	return shutdownErr
}

func newExporter(cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	endpoint := strings.TrimSpace(cfg.OTLPEndpoint)
	if endpoint == "" {
		return nil, errors.New("telemetry endpoint is required")
	}
	// The env form is a URL; the gRPC client wants host:port.
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	clientOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(endpoint),
	}
	if cfg.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	return otlptrace.New(ctx, otlptracegrpc.NewClient(clientOpts...))
}

func resourceAttributes(cfg config.TelemetryConfig, version string) []attribute.KeyValue {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "segment-switch"
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(name)}
	if version != "" {
		attrs = append(attrs, semconv.ServiceVersion(version))
	}
	return attrs
}
