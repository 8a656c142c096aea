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

// MetricsRecorder records eventflow metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordStepExecution records one step of a pipeline run.
	RecordStepExecution(ctx context.Context, pipeline, step string, duration time.Duration, err error)

	// RecordServe records a finished Serve call and the task's terminal outcome.
	RecordServe(ctx context.Context, pipeline, outcome string, duration time.Duration)

	// RecordEmission records one bus emission.
	RecordEmission(ctx context.Context, listeners, failures int)

	// RecordSnapshot records a context snapshot save.
	RecordSnapshot(ctx context.Context, step string, sizeBytes int64)
}

type otelMetrics struct {
	stepExecutions metric.Int64Counter
	stepLatency    metric.Float64Histogram
	stepErrors     metric.Int64Counter
	serves         metric.Int64Counter
	serveLatency   metric.Float64Histogram
	emissions      metric.Int64Counter
	deliveries     metric.Int64Counter
	listenerErrors metric.Int64Counter
	snapshotSize   metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("eventflow")

	stepExecutions, err := meter.Int64Counter("eventflow.step.executions",
		metric.WithDescription("Number of step executions"),
	)
	if err != nil {
		return nil, err
	}

	stepLatency, err := meter.Float64Histogram("eventflow.step.latency_ms",
		metric.WithDescription("Step execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	stepErrors, err := meter.Int64Counter("eventflow.step.errors",
		metric.WithDescription("Number of step execution errors"),
	)
	if err != nil {
		return nil, err
	}

	serves, err := meter.Int64Counter("eventflow.pipeline.serves",
		metric.WithDescription("Number of tasks served by pipelines"),
	)
	if err != nil {
		return nil, err
	}

	serveLatency, err := meter.Float64Histogram("eventflow.pipeline.latency_ms",
		metric.WithDescription("Serve latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	emissions, err := meter.Int64Counter("eventflow.bus.emissions",
		metric.WithDescription("Number of bus emissions"),
	)
	if err != nil {
		return nil, err
	}

	deliveries, err := meter.Int64Counter("eventflow.bus.deliveries",
		metric.WithDescription("Number of listener invocations"),
	)
	if err != nil {
		return nil, err
	}

	listenerErrors, err := meter.Int64Counter("eventflow.bus.listener_errors",
		metric.WithDescription("Number of listener failures"),
	)
	if err != nil {
		return nil, err
	}

	snapshotSize, err := meter.Int64Histogram("eventflow.snapshot.size_bytes",
		metric.WithDescription("Snapshot size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		stepExecutions: stepExecutions,
		stepLatency:    stepLatency,
		stepErrors:     stepErrors,
		serves:         serves,
		serveLatency:   serveLatency,
		emissions:      emissions,
		deliveries:     deliveries,
		listenerErrors: listenerErrors,
		snapshotSize:   snapshotSize,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
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

// RecordStepExecution records a step execution.
func (m *otelMetrics) RecordStepExecution(ctx context.Context, pipeline, step string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("pipeline", pipeline),
		attribute.String("step", step),
	)

	m.stepExecutions.Add(ctx, 1, attrs)
	m.stepLatency.Record(ctx, float64(duration.Milliseconds()), attrs)

	if err != nil {
		m.stepErrors.Add(ctx, 1, attrs)
	}
}

// RecordServe records a Serve call.
func (m *otelMetrics) RecordServe(ctx context.Context, pipeline, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("pipeline", pipeline),
		attribute.String("outcome", outcome),
	)
	m.serves.Add(ctx, 1, attrs)
	m.serveLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordEmission records an emission and its listener outcomes.
func (m *otelMetrics) RecordEmission(ctx context.Context, listeners, failures int) {
	m.emissions.Add(ctx, 1)
	if listeners > 0 {
		m.deliveries.Add(ctx, int64(listeners))
	}
	if failures > 0 {
		m.listenerErrors.Add(ctx, int64(failures))
	}
}

// RecordSnapshot records a snapshot save.
func (m *otelMetrics) RecordSnapshot(ctx context.Context, step string, sizeBytes int64) {
	m.snapshotSize.Record(ctx, sizeBytes, metric.WithAttributes(
		attribute.String("step", step),
	))
}
