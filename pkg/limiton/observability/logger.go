// Package observability provides structured logging, metrics, and tracing
// for limiton registries.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds registry context to a logger.
// Returns a new logger with registry, capacity, and overflow fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "db-pool", 4, "pump")
//	enriched.Info("warming up") // includes registry, capacity, overflow
func EnrichLogger(logger *slog.Logger, registry string, capacity int, overflow string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("registry", registry),
		slog.Int("capacity", capacity),
		slog.String("overflow", overflow),
	)
}

// LogAdmit logs a newly admitted instance.
func LogAdmit(logger *slog.Logger, instanceID string, sequence uint64, occupancy int) {
	if logger == nil {
		return
	}
	logger.Debug("instance admitted",
		slog.String("instance_id", instanceID),
		slog.Uint64("sequence", sequence),
		slog.Int("occupancy", occupancy),
	)
}

// LogReuse logs a capacity-one registry handing back its resident instance.
func LogReuse(logger *slog.Logger, instanceID string) {
	if logger == nil {
		return
	}
	logger.Debug("instance reused",
		slog.String("instance_id", instanceID),
	)
}

// LogEvict logs the eviction of the oldest instance.
func LogEvict(logger *slog.Logger, instanceID string, sequence uint64) {
	if logger == nil {
		return
	}
	logger.Debug("instance evicted",
		slog.String("instance_id", instanceID),
		slog.Uint64("sequence", sequence),
	)
}

// LogReject logs a request refused at full occupancy.
func LogReject(logger *slog.Logger, occupancy int) {
	if logger == nil {
		return
	}
	logger.Warn("acquire rejected",
		slog.Int("occupancy", occupancy),
	)
}

// LogConstructError logs a constructor failure. The registry is unchanged.
func LogConstructError(logger *slog.Logger, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("constructor failed",
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogArgMismatch logs a singleton reuse whose arguments differ from
// the resident instance's.
func LogArgMismatch(logger *slog.Logger, instanceID string, strict bool) {
	if logger == nil {
		return
	}
	logger.Warn("arguments differ from resident instance",
		slog.String("instance_id", instanceID),
		slog.Bool("strict", strict),
	)
}

// LogPublishError logs a lifecycle event the sink refused.
// Publishing failures never fail the acquire that produced the event.
func LogPublishError(logger *slog.Logger, eventType string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("event publish failed",
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... construct ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// Milliseconds converts a duration to fractional milliseconds for log fields.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
