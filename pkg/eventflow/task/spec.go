package task

import (
	"fmt"
	"slices"

	"github.com/randalmurphal/eventflow/pkg/eventflow/config"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

// Spec is the serializable description of a task.
type Spec struct {
	Name         string         `json:"name" yaml:"name"`
	Namespace    []string       `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	Goals        []string       `json:"goals,omitempty" yaml:"goals,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	ExtraContext map[string]any `json:"extra_context,omitempty" yaml:"extra_context,omitempty"`
}

// Spec returns the task's current description.
func (t *Task[T]) Spec() Spec {
	return Spec{
		Name:         t.name,
		Namespace:    t.Namespace().Segments(),
		Description:  t.description,
		Goals:        t.Goals(),
		Dependencies: t.Dependencies(),
		ExtraContext: t.ExtraContext(),
	}
}

// FromSpec creates a pending task from s. opts are applied after s's
// fields, so they may override them.
func FromSpec[T any](s Spec, opts ...Option) (*Task[T], error) {
	base := []Option{
		WithNamespace(s.Namespace...),
		WithDescription(s.Description),
		WithGoals(s.Goals...),
		WithDependencies(s.Dependencies...),
		WithExtraContext(s.ExtraContext),
	}
	return New[T](s.Name, append(base, opts...)...)
}

// FromConfig creates a pending task from a config section:
//
//	name: summarize
//	namespace: [docs, weekly]   # or "docs.weekly"
//	description: Summarize the weekly notes
//	goals: ["one paragraph"]
//	dependencies: [notes/week42.md]
//	extra_context:
//	  tone: formal
func FromConfig[T any](cfg config.Config, opts ...Option) (*Task[T], error) {
	s, err := specFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return FromSpec[T](s, opts...)
}

func specFromConfig(cfg config.Config) (Spec, error) {
	name := cfg.String("name", "")
	if name == "" {
		return Spec{}, fmt.Errorf("%w: name is required", ErrInvalidTask)
	}

	namespace := cfg.StringSlice("namespace", nil)
	if ns := cfg.String("namespace", ""); ns != "" {
		p, err := event.ParsePath(ns)
		if err != nil {
			return Spec{}, fmt.Errorf("%w: namespace: %w", ErrInvalidTask, err)
		}
		namespace = p.Segments()
	}

	return Spec{
		Name:         name,
		Namespace:    slices.Clone(namespace),
		Description:  cfg.String("description", ""),
		Goals:        cfg.StringSlice("goals", nil),
		Dependencies: cfg.StringSlice("dependencies", nil),
		ExtraContext: cfg.StringMap("extra_context"),
	}, nil
}
