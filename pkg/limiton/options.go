package limiton

import (
	"log/slog"

	"github.com/randalmurphal/limiton/pkg/limiton/event"
	"github.com/randalmurphal/limiton/pkg/limiton/observability"
)

// registryConfig holds the ambient configuration of a registry.
// Policy lives separately because it is validated, not defaulted.
type registryConfig struct {
	name    string
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	events  event.Sink
}

// defaultRegistryConfig returns a configuration with everything disabled.
func defaultRegistryConfig() registryConfig {
	return registryConfig{
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// Option configures a registry.
type Option func(*registryConfig)

// WithName sets the registry name used in logs, metrics, spans and events.
// Default: the product type name.
func WithName(name string) Option {
	return func(c *registryConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger enables structured logging of admissions, evictions and
// rejections. Admission and eviction log at DEBUG, rejections and
// argument mismatches at WARN, constructor failures at ERROR.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	reg, err := limiton.New[Conn](policy, limiton.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(c *registryConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics using the global meter provider.
func WithMetrics(enabled bool) Option {
	return func(c *registryConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables an OpenTelemetry span per Acquire using the global
// tracer provider.
func WithTracing(enabled bool) Option {
	return func(c *registryConfig) {
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithMetricsRecorder routes metrics to a custom recorder.
func WithMetricsRecorder(rec observability.MetricsRecorder) Option {
	return func(c *registryConfig) {
		if rec != nil {
			c.metrics = rec
		}
	}
}

// WithSpanManager routes acquire spans to a custom span manager.
func WithSpanManager(spans observability.SpanManager) Option {
	return func(c *registryConfig) {
		if spans != nil {
			c.spans = spans
		}
	}
}

// WithEvents publishes lifecycle events to sink after each Acquire.
// Events are published outside the registry lock; a failing sink is
// logged and never fails the Acquire.
func WithEvents(sink event.Sink) Option {
	return func(c *registryConfig) {
		c.events = sink
	}
}
