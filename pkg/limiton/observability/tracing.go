package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the limiton tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("limiton")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartAcquireSpan starts a span covering one acquire decision.
	StartAcquireSpan(ctx context.Context, registry string, capacity int, overflow string) (context.Context, trace.Span)

	// EndSpanWithOutcome records the acquire outcome, optionally an error, and ends the span.
	EndSpanWithOutcome(span trace.Span, outcome string, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartAcquireSpan starts a span for an acquire call.
func (m *otelSpanManager) StartAcquireSpan(ctx context.Context, registry string, capacity int, overflow string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "limiton.acquire",
		trace.WithAttributes(
			attribute.String("registry.name", registry),
			attribute.Int("registry.capacity", capacity),
			attribute.String("registry.overflow", overflow),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithOutcome completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithOutcome(span trace.Span, outcome string, err error) {
	if span == nil {
		return
	}
	if outcome != "" {
		span.SetAttributes(attribute.String("acquire.outcome", outcome))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
