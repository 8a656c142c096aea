package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationScope = "github.com/randalmurphal/eventflow"

// Span attribute keys.
const (
	AttrPipeline  = attribute.Key("eventflow.pipeline")
	AttrTaskID    = attribute.Key("eventflow.task.id")
	AttrTaskName  = attribute.Key("eventflow.task.name")
	AttrStep      = attribute.Key("eventflow.step")
	AttrStepIndex = attribute.Key("eventflow.step.index")
	AttrOutcome   = attribute.Key("eventflow.outcome")
)

// Resolved lazily so that a provider installed after package init is used.
var tracer = func() trace.Tracer { return otel.Tracer(instrumentationScope) }

// SpanManager opens and closes the spans of a Serve call.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartServeSpan opens the root span of one Serve call.
	StartServeSpan(ctx context.Context, pipeline, taskID, taskName string) (context.Context, trace.Span)

	// StartStepSpan opens a child span for the step at index.
	StartStepSpan(ctx context.Context, step string, index int) (context.Context, trace.Span)

	// EndServeSpan records the task's terminal outcome and closes span.
	EndServeSpan(span trace.Span, outcome string, err error)

	// EndSpanWithError closes span, recording err if non-nil.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the span in ctx.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager backed by the global tracer provider:
//
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return otelSpanManager{}
}

func (otelSpanManager) StartServeSpan(ctx context.Context, pipeline, taskID, taskName string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "eventflow.serve",
		trace.WithAttributes(
			AttrPipeline.String(pipeline),
			AttrTaskID.String(taskID),
			AttrTaskName.String(taskName),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (otelSpanManager) StartStepSpan(ctx context.Context, step string, index int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "eventflow.step."+step,
		trace.WithAttributes(
			AttrStep.String(step),
			AttrStepIndex.Int(index),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (otelSpanManager) EndServeSpan(span trace.Span, outcome string, err error) {
	if span == nil {
		return
	}
	span.SetAttributes(AttrOutcome.String(outcome))
	EndSpanWithError(span, err)
}

func (otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

func (otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// EndSpanWithError closes span. A non-nil err is recorded and marks the span
// as failed.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the recording span in ctx, if any.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}
