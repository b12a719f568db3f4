// Package observability provides production-grade observability features
// for formflow: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every logging helper tolerates a nil logger.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds form context to a logger.
// Returns a new logger with the form_id field.
//
// Example:
//
//	enriched := EnrichLogger(logger, "signup")
//	enriched.Info("doing work") // includes form_id
func EnrichLogger(logger *slog.Logger, formID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("form_id", formID),
	)
}

// LogFormCreated logs form construction.
func LogFormCreated(logger *slog.Logger, fieldCount int) {
	if logger == nil {
		return
	}
	logger.Debug("form created",
		slog.Int("fields", fieldCount),
	)
}

// LogEventPublished logs an event publication.
func LogEventPublished(logger *slog.Logger, eventType string) {
	if logger == nil {
		return
	}
	logger.Debug("event published",
		slog.String("event_type", eventType),
	)
}

// LogEventDeferred logs a deferred event publication.
func LogEventDeferred(logger *slog.Logger, eventType string) {
	if logger == nil {
		return
	}
	logger.Debug("event deferred",
		slog.String("event_type", eventType),
	)
}

// LogFieldChanged logs a field value change.
func LogFieldChanged(logger *slog.Logger, key string) {
	if logger == nil {
		return
	}
	logger.Debug("field changed",
		slog.String("field", key),
	)
}

// LogValidationStart logs the start of a validation run.
func LogValidationStart(logger *slog.Logger, runID string, validatorCount int) {
	if logger == nil {
		return
	}
	logger.Info("validation run starting",
		slog.String("run_id", runID),
		slog.Int("validators", validatorCount),
	)
}

// LogValidationComplete logs successful validation run completion.
func LogValidationComplete(logger *slog.Logger, runID string, durationMs float64, findings int) {
	if logger == nil {
		return
	}
	logger.Info("validation run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("findings", findings),
	)
}

// LogValidationStale logs a run whose terminal event was suppressed
// because a newer run had started.
func LogValidationStale(logger *slog.Logger, runID string) {
	if logger == nil {
		return
	}
	logger.Debug("validation run went stale",
		slog.String("run_id", runID),
	)
}

// LogValidatorError logs a validator fatal error.
func LogValidatorError(logger *slog.Logger, runID string, index int, err error) {
	if logger == nil {
		return
	}
	logger.Error("validator failed",
		slog.String("run_id", runID),
		slog.Int("validator", index),
		slog.String("error", err.Error()),
	)
}

// LogSnapshotSaved logs a values snapshot save.
func LogSnapshotSaved(logger *slog.Logger, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("snapshot saved",
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogSnapshotError logs a snapshot failure (non-fatal).
func LogSnapshotError(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("snapshot failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogBackgroundError logs an error from a path with no caller to return
// to: deferred deliveries and asynchronous validator failures.
func LogBackgroundError(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Error("background operation failed",
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
