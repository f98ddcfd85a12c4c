package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records registry metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordAdmission records a newly admitted instance.
	RecordAdmission(ctx context.Context, registry string)

	// RecordEviction records a pump-triggered eviction.
	RecordEviction(ctx context.Context, registry string)

	// RecordRejection records a request refused at full occupancy.
	RecordRejection(ctx context.Context, registry string)

	// RecordReuse records a capacity-one registry returning its resident instance.
	RecordReuse(ctx context.Context, registry string)

	// RecordMismatch records a reuse request whose arguments differed.
	RecordMismatch(ctx context.Context, registry string)

	// RecordConstruction records a constructor call with its duration and error status.
	RecordConstruction(ctx context.Context, registry string, duration time.Duration, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	admitted      metric.Int64Counter
	evicted       metric.Int64Counter
	rejected      metric.Int64Counter
	reused        metric.Int64Counter
	mismatched    metric.Int64Counter
	constructErrs metric.Int64Counter
	constructTime metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("limiton")

	admitted, err := meter.Int64Counter("limiton.instances.admitted",
		metric.WithDescription("Number of instances admitted into a registry"),
	)
	if err != nil {
		return nil, err
	}

	evicted, err := meter.Int64Counter("limiton.instances.evicted",
		metric.WithDescription("Number of instances evicted by pump overflow"),
	)
	if err != nil {
		return nil, err
	}

	rejected, err := meter.Int64Counter("limiton.instances.rejected",
		metric.WithDescription("Number of acquire requests rejected at capacity"),
	)
	if err != nil {
		return nil, err
	}

	reused, err := meter.Int64Counter("limiton.instances.reused",
		metric.WithDescription("Number of acquire requests served by a resident singleton"),
	)
	if err != nil {
		return nil, err
	}

	mismatched, err := meter.Int64Counter("limiton.instances.mismatched",
		metric.WithDescription("Number of singleton reuse requests with differing arguments"),
	)
	if err != nil {
		return nil, err
	}

	constructErrs, err := meter.Int64Counter("limiton.constructor.errors",
		metric.WithDescription("Number of failed constructor calls"),
	)
	if err != nil {
		return nil, err
	}

	constructTime, err := meter.Float64Histogram("limiton.constructor.latency_ms",
		metric.WithDescription("Constructor latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		admitted:      admitted,
		evicted:       evicted,
		rejected:      rejected,
		reused:        reused,
		mismatched:    mismatched,
		constructErrs: constructErrs,
		constructTime: constructTime,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func registryAttr(registry string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("registry", registry))
}

// RecordAdmission records an admission.
func (m *otelMetrics) RecordAdmission(ctx context.Context, registry string) {
	m.admitted.Add(ctx, 1, registryAttr(registry))
}

// RecordEviction records an eviction.
func (m *otelMetrics) RecordEviction(ctx context.Context, registry string) {
	m.evicted.Add(ctx, 1, registryAttr(registry))
}

// RecordRejection records a rejection.
func (m *otelMetrics) RecordRejection(ctx context.Context, registry string) {
	m.rejected.Add(ctx, 1, registryAttr(registry))
}

// RecordReuse records a singleton reuse.
func (m *otelMetrics) RecordReuse(ctx context.Context, registry string) {
	m.reused.Add(ctx, 1, registryAttr(registry))
}

// RecordMismatch records an argument mismatch.
func (m *otelMetrics) RecordMismatch(ctx context.Context, registry string) {
	m.mismatched.Add(ctx, 1, registryAttr(registry))
}

// RecordConstruction records a constructor call.
func (m *otelMetrics) RecordConstruction(ctx context.Context, registry string, duration time.Duration, err error) {
	attrs := registryAttr(registry)
	m.constructTime.Record(ctx, Milliseconds(duration), attrs)
	if err != nil {
		m.constructErrs.Add(ctx, 1, attrs)
	}
}
