// Package observability provides structured logging, metrics, and tracing
// for eventflow pipelines and the event bus.
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

// EnrichLogger adds task and pipeline context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "7f1c...", "summarize", "writer")
//	enriched.Info("doing work") // includes task_id, task, pipeline
func EnrichLogger(logger *slog.Logger, taskID, taskName, pipeline string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("task_id", taskID),
		slog.String("task", taskName),
		slog.String("pipeline", pipeline),
	)
}

// LogServeStart logs a pipeline picking up a task.
func LogServeStart(logger *slog.Logger, pipeline, taskID string) {
	if logger == nil {
		return
	}
	logger.Info("pipeline serving task",
		slog.String("pipeline", pipeline),
		slog.String("task_id", taskID),
	)
}

// LogServeComplete logs a task finished by a pipeline.
func LogServeComplete(logger *slog.Logger, pipeline, taskID string, durationMs float64, steps int) {
	if logger == nil {
		return
	}
	logger.Info("pipeline finished task",
		slog.String("pipeline", pipeline),
		slog.String("task_id", taskID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("steps_executed", steps),
	)
}

// LogServeCancelled logs a run stopped at a step boundary.
// nextStep is the step that was skipped.
func LogServeCancelled(logger *slog.Logger, pipeline, taskID, nextStep string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Warn("pipeline cancelled task",
		slog.String("pipeline", pipeline),
		slog.String("task_id", taskID),
		slog.String("next_step", nextStep),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogServeFailed logs a run that failed its task.
func LogServeFailed(logger *slog.Logger, pipeline, taskID string, err error, durationMs float64, lastStep string) {
	if logger == nil {
		return
	}
	logger.Error("pipeline failed task",
		slog.String("pipeline", pipeline),
		slog.String("task_id", taskID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_step", lastStep),
	)
}

// LogStepStart logs step execution start.
func LogStepStart(logger *slog.Logger, step string) {
	if logger == nil {
		return
	}
	logger.Debug("step starting",
		slog.String("step", step),
	)
}

// LogStepComplete logs successful step completion.
func LogStepComplete(logger *slog.Logger, step string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("step completed",
		slog.String("step", step),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStepError logs a step failure together with the stack it was raised from.
func LogStepError(logger *slog.Logger, step string, err error, stack string) {
	if logger == nil {
		return
	}
	logger.Error("step failed",
		slog.String("step", step),
		slog.String("error", err.Error()),
		slog.String("stack", stack),
	)
}

// LogMissingOutput warns that the final context has no value at the output key.
func LogMissingOutput(logger *slog.Logger, pipeline, key string) {
	if logger == nil {
		return
	}
	logger.Warn("output key missing from final context",
		slog.String("pipeline", pipeline),
		slog.String("key", key),
	)
}

// LogListenerError logs a listener failure during emission.
func LogListenerError(logger *slog.Logger, path string, subscriptionID uint64, err error) {
	if logger == nil {
		return
	}
	logger.Error("listener failed",
		slog.String("path", path),
		slog.Uint64("subscription", subscriptionID),
		slog.String("error", err.Error()),
	)
}

// LogTransition logs a task status change.
func LogTransition(logger *slog.Logger, taskName, from, to string) {
	if logger == nil {
		return
	}
	logger.Debug("task transition",
		slog.String("task", taskName),
		slog.String("from", from),
		slog.String("to", to),
	)
}

// LogSnapshot logs a saved context snapshot.
func LogSnapshot(logger *slog.Logger, step string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("snapshot saved",
		slog.String("step", step),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogSnapshotError logs snapshot failure (non-fatal).
func LogSnapshotError(logger *slog.Logger, step string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("snapshot failed",
		slog.String("step", step),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
