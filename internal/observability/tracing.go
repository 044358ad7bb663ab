package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry TracerProvider scoped to one driver's
// lifetime: one span per spawned process (SpawnSpan), with child spans for
// each tool-approval round trip (ApprovalSpan). No OTLP exporter is wired
// by default — a deployment that wants spans shipped off-box attaches one
// via TraceConfig.SpanProcessors before calling NewTracer.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// TraceConfig configures the tracer provider.
type TraceConfig struct {
	ServiceName    string
	ServiceVersion string

	// SamplingRate controls what fraction of traces are recorded, from 0.0
	// to 1.0. Defaults to 1.0.
	SamplingRate float64

	// SpanProcessors lets a caller attach exporters (OTLP, stdout, etc.);
	// left empty, spans are created and ended but never exported, which is
	// enough to exercise context propagation and span attributes in tests.
	SpanProcessors []sdktrace.SpanProcessor
}

// NewTracer builds a Tracer and registers it as the global
// otel.Tracer provider's tracer for this service name.
func NewTracer(config TraceConfig) *Tracer {
	if config.ServiceName == "" {
		config.ServiceName = "convengine"
	}
	if config.SamplingRate <= 0 {
		config.SamplingRate = 1.0
	}

	res, _ := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", config.ServiceName),
		attribute.String("service.version", config.ServiceVersion),
	))

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SamplingRate))),
	}
	for _, sp := range config.SpanProcessors {
		opts = append(opts, sdktrace.WithSpanProcessor(sp))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer("github.com/convengine/engine/internal/executor"),
	}
}

// Shutdown flushes any attached span processors and releases the provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

// SpawnSpan starts a span covering one agent process's full run, tagged
// with the family and working directory.
func (t *Tracer) SpawnSpan(ctx context.Context, family, workingDir string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "executor.spawn",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("agent.family", family),
			attribute.String("agent.working_dir", workingDir),
		),
	)
}

// ApprovalSpan starts a child span covering one tool-approval round trip.
func (t *Tracer) ApprovalSpan(ctx context.Context, tool, callID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "approval.request",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("approval.tool", tool),
			attribute.String("approval.call_id", callID),
		),
	)
}

// EndWithError ends span, marking it as an error span when err is non-nil.
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
