package eventflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/randalmurphal/eventflow/pkg/eventflow/action"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/task"
)

// Pipeline runs an ordered list of steps against one task at a time, threading
// a shared context from each step to the next.
//
// A Pipeline is immutable after New and may serve many tasks concurrently;
// every Serve call has its own context and sequencing channel.
type Pipeline struct {
	name  string
	steps []action.Step
	cfg   pipelineConfig
}

// New builds a pipeline named name from sources, resolving every source now.
// Returns a *ConfigurationError if a source cannot be resolved or there are
// no steps.
//
// Example:
//
//	p, err := eventflow.New("writer", []eventflow.Source{
//	    eventflow.Instance(outline),
//	    eventflow.Factory(newDraftStep),
//	    eventflow.Named("review"),
//	}, eventflow.WithStepRegistry(steps))
func New(name string, sources []Source, opts ...Option) (*Pipeline, error) {
	cfg := defaultPipelineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(sources) == 0 {
		return nil, &ConfigurationError{Pipeline: name, Err: ErrNoSteps}
	}

	steps := make([]action.Step, 0, len(sources))
	for i, src := range sources {
		step, err := src.resolve(cfg.steps)
		if err != nil {
			return nil, &ConfigurationError{
				Pipeline: name,
				Err:      fmt.Errorf("source %d: %w", i, err),
			}
		}
		steps = append(steps, step)
	}

	return &Pipeline{name: name, steps: steps, cfg: cfg}, nil
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Description returns the pipeline description.
func (p *Pipeline) Description() string { return p.cfg.description }

// TaskInputKey returns the context key holding the task handle.
func (p *Pipeline) TaskInputKey() string { return p.cfg.taskInputKey }

// TaskOutputKey returns the context key the result is read from.
func (p *Pipeline) TaskOutputKey() string { return p.cfg.taskOutputKey }

// Steps returns the resolved steps in order.
func (p *Pipeline) Steps() []action.Step {
	return slices.Clone(p.steps)
}

// StepNames returns the names of the steps in order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}

// InjectPersonality returns a copy of p in which every step that carries a
// personality but has none set gets personality. p is not modified.
func (p *Pipeline) InjectPersonality(personality string) *Pipeline {
	steps := make([]action.Step, len(p.steps))
	for i, s := range p.steps {
		steps[i] = s
		if persona, ok := s.(action.Persona); ok && persona.Personality() == "" {
			steps[i] = persona.WithPersonality(personality)
		}
	}
	return &Pipeline{name: p.name, steps: steps, cfg: p.cfg}
}

// Bind subscribes the pipeline to path on bus. Every emission there whose
// payload is a task.Handle is served on the emitting goroutine; Publish
// emissions already run on their own.
//
// Configuration errors from Serve are returned to the bus, which logs them.
// Payloads that are not tasks are ignored.
func (p *Pipeline) Bind(bus *event.Bus, path event.Path) *event.Subscription {
	if bus == nil {
		bus = event.Default()
	}
	return bus.On(path, func(ctx context.Context, evt *event.Event) error {
		h, ok := evt.Payload.(task.Handle)
		if !ok {
			p.cfg.logger.Debug("ignoring non-task payload",
				slog.String("pipeline", p.name),
				slog.String("path", evt.Path.Collapse()),
				slog.String("payload", fmt.Sprintf("%T", evt.Payload)),
			)
			return nil
		}
		return p.Serve(ctx, h)
	})
}

// IsConfigurationError reports whether err came from pipeline configuration.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
