package eventflow

import (
	"log/slog"

	"github.com/randalmurphal/eventflow/pkg/eventflow/action"
	"github.com/randalmurphal/eventflow/pkg/eventflow/observability"
	"github.com/randalmurphal/eventflow/pkg/eventflow/snapshot"
)

// Default context keys.
const (
	DefaultTaskInputKey  = "task_input"
	DefaultTaskOutputKey = "task_output"
)

// pipelineConfig holds everything an Option can set.
type pipelineConfig struct {
	description   string
	taskInputKey  string
	taskOutputKey string
	extraInit     action.State
	steps         *StepRegistry
	logger        *slog.Logger
	metrics       observability.MetricsRecorder
	spans         observability.SpanManager
	snapshots     snapshot.Store
}

func defaultPipelineConfig() pipelineConfig {
	return pipelineConfig{
		taskInputKey:  DefaultTaskInputKey,
		taskOutputKey: DefaultTaskOutputKey,
		extraInit:     action.State{},
		logger:        slog.Default(),
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
	}
}

// Option configures a Pipeline.
type Option func(*pipelineConfig)

// WithDescription sets what the pipeline does.
func WithDescription(description string) Option {
	return func(c *pipelineConfig) {
		c.description = description
	}
}

// WithTaskInputKey sets the context key the task handle is stored under.
// Default: "task_input"
func WithTaskInputKey(key string) Option {
	return func(c *pipelineConfig) {
		if key != "" {
			c.taskInputKey = key
		}
	}
}

// WithTaskOutputKey sets the context key the task's result is read from.
// Default: "task_output"
func WithTaskOutputKey(key string) Option {
	return func(c *pipelineConfig) {
		if key != "" {
			c.taskOutputKey = key
		}
	}
}

// WithExtraInitContext sets static defaults for every run's initial context.
// A task's own extra context wins on conflict.
func WithExtraInitContext(extra map[string]any) Option {
	return func(c *pipelineConfig) {
		c.extraInit = action.State(extra).Clone()
	}
}

// WithStepRegistry sets the registry Named sources are resolved from.
func WithStepRegistry(steps *StepRegistry) Option {
	return func(c *pipelineConfig) {
		c.steps = steps
	}
}

// WithLogger sets the logger. Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(c *pipelineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics enables OpenTelemetry metrics through the global meter provider.
func WithMetrics() Option {
	return WithMetricsRecorder(observability.NewMetricsRecorder())
}

// WithMetricsRecorder sets the metrics recorder.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(c *pipelineConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans through the global tracer provider.
func WithTracing() Option {
	return func(c *pipelineConfig) {
		c.spans = observability.NewSpanManager()
	}
}

// WithSnapshots saves the context after every step to store.
// Snapshot failures are logged and never fail the task.
func WithSnapshots(store snapshot.Store) Option {
	return func(c *pipelineConfig) {
		c.snapshots = store
	}
}
