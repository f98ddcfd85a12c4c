package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordAdmission does nothing.
func (NoopMetrics) RecordAdmission(_ context.Context, _ string) {}

// RecordEviction does nothing.
func (NoopMetrics) RecordEviction(_ context.Context, _ string) {}

// RecordRejection does nothing.
func (NoopMetrics) RecordRejection(_ context.Context, _ string) {}

// RecordReuse does nothing.
func (NoopMetrics) RecordReuse(_ context.Context, _ string) {}

// RecordMismatch does nothing.
func (NoopMetrics) RecordMismatch(_ context.Context, _ string) {}

// RecordConstruction does nothing.
func (NoopMetrics) RecordConstruction(_ context.Context, _ string, _ time.Duration, _ error) {}

// NoopSpanManager is a SpanManager that does nothing.
// Use when tracing is disabled to avoid overhead.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

// noopSpan is a span that does nothing.
var noopSpan = noop.Span{}

// StartAcquireSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartAcquireSpan(ctx context.Context, _ string, _ int, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithOutcome does nothing.
func (NoopSpanManager) EndSpanWithOutcome(_ trace.Span, _ string, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
