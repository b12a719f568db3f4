package observability

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records formflow metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordEvent records one event publication.
	RecordEvent(ctx context.Context, eventType string)

	// RecordFieldChange records one field change request.
	RecordFieldChange(ctx context.Context, key string)

	// RecordValidationRun records a validation run conclusion. Stale
	// runs are runs whose terminal event was suppressed by a newer run.
	RecordValidationRun(ctx context.Context, success, stale bool, durationMs float64, findings int)

	// RecordSnapshot records a values snapshot save.
	RecordSnapshot(ctx context.Context, sizeBytes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	eventsPublished    metric.Int64Counter
	fieldChanges       metric.Int64Counter
	validationRuns     metric.Int64Counter
	validationLatency  metric.Float64Histogram
	validationFindings metric.Int64Histogram
	snapshotSize       metric.Int64Histogram
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
	meter := otel.Meter("formflow")

	eventsPublished, err := meter.Int64Counter("formflow.event.published",
		metric.WithDescription("Number of events published"),
	)
	if err != nil {
		return nil, err
	}

	fieldChanges, err := meter.Int64Counter("formflow.field.changes",
		metric.WithDescription("Number of field change requests"),
	)
	if err != nil {
		return nil, err
	}

	validationRuns, err := meter.Int64Counter("formflow.validation.runs",
		metric.WithDescription("Number of validation runs"),
	)
	if err != nil {
		return nil, err
	}

	validationLatency, err := meter.Float64Histogram("formflow.validation.latency_ms",
		metric.WithDescription("Validation run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	validationFindings, err := meter.Int64Histogram("formflow.validation.findings",
		metric.WithDescription("Findings per validation run"),
	)
	if err != nil {
		return nil, err
	}

	snapshotSize, err := meter.Int64Histogram("formflow.snapshot.size_bytes",
		metric.WithDescription("Values snapshot size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		eventsPublished:    eventsPublished,
		fieldChanges:       fieldChanges,
		validationRuns:     validationRuns,
		validationLatency:  validationLatency,
		validationFindings: validationFindings,
		snapshotSize:       snapshotSize,
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

// RecordEvent records one event publication.
func (m *otelMetrics) RecordEvent(ctx context.Context, eventType string) {
	m.eventsPublished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

// RecordFieldChange records one field change request.
func (m *otelMetrics) RecordFieldChange(ctx context.Context, key string) {
	m.fieldChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("field", key),
	))
}

// RecordValidationRun records a validation run conclusion.
func (m *otelMetrics) RecordValidationRun(ctx context.Context, success, stale bool, durationMs float64, findings int) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
		attribute.Bool("stale", stale),
	}
	m.validationRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.validationLatency.Record(ctx, durationMs, metric.WithAttributes(attrs...))
	m.validationFindings.Record(ctx, int64(findings), metric.WithAttributes(attrs...))
}

// RecordSnapshot records a values snapshot save.
func (m *otelMetrics) RecordSnapshot(ctx context.Context, sizeBytes int64) {
	m.snapshotSize.Record(ctx, sizeBytes)
}
