package eventflow

import (
	"fmt"

	"github.com/randalmurphal/eventflow/pkg/eventflow/action"
	"github.com/randalmurphal/eventflow/pkg/eventflow/registry"
)

// StepFactory builds a step.
type StepFactory func() action.Step

// StepRegistry maps step names to factories.
type StepRegistry = registry.Registry[string, StepFactory]

// NewStepRegistry creates an empty step registry.
func NewStepRegistry() *StepRegistry {
	return registry.New[string, StepFactory]()
}

type sourceKind int

const (
	sourceInstance sourceKind = iota + 1
	sourceFactory
	sourceNamed
)

// Source says where a pipeline gets one of its steps. Every source is
// resolved once, when the pipeline is built.
type Source struct {
	kind    sourceKind
	step    action.Step
	factory StepFactory
	name    string
}

// Instance uses step as is.
func Instance(step action.Step) Source {
	return Source{kind: sourceInstance, step: step}
}

// Factory calls f to build the step.
func Factory(f StepFactory) Source {
	return Source{kind: sourceFactory, factory: f}
}

// Named looks the step up in the pipeline's step registry.
func Named(name string) Source {
	return Source{kind: sourceNamed, name: name}
}

// Steps wraps each step with Instance.
func Steps(steps ...action.Step) []Source {
	sources := make([]Source, len(steps))
	for i, s := range steps {
		sources[i] = Instance(s)
	}
	return sources
}

// String implements fmt.Stringer.
func (s Source) String() string {
	switch s.kind {
	case sourceInstance:
		if s.step == nil {
			return "instance(nil)"
		}
		return "instance(" + s.step.Name() + ")"
	case sourceFactory:
		return "factory"
	case sourceNamed:
		return "named(" + s.name + ")"
	default:
		return "invalid"
	}
}

func (s Source) resolve(steps *StepRegistry) (action.Step, error) {
	var step action.Step
	switch s.kind {
	case sourceInstance:
		step = s.step
	case sourceFactory:
		if s.factory != nil {
			step = s.factory()
		}
	case sourceNamed:
		if steps == nil {
			return nil, fmt.Errorf("%w: %s (no step registry)", ErrStepNotFound, s.name)
		}
		f, err := steps.Lookup(s.name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStepNotFound, err)
		}
		if f != nil {
			step = f()
		}
	}
	if step == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSource, s)
	}
	return step, nil
}
