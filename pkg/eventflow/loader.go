package eventflow

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/eventflow/pkg/eventflow/config"
)

// FromConfig builds a pipeline from a config section, resolving step names
// through steps:
//
//	name: writer
//	description: Drafts articles
//	steps: [outline, draft, review]
//	task_input_key: task_input       # optional
//	task_output_key: article         # optional
//	extra_init_context:              # optional
//	  tone: formal
//
// opts are applied after the section's settings.
func FromConfig(cfg config.Config, steps *StepRegistry, opts ...Option) (*Pipeline, error) {
	name := cfg.String("name", "")
	if name == "" {
		return nil, &ConfigurationError{Pipeline: "<unnamed>", Err: errors.New("name is required")}
	}

	names := cfg.StringSlice("steps", nil)
	sources := make([]Source, len(names))
	for i, n := range names {
		sources[i] = Named(n)
	}

	base := []Option{
		WithDescription(cfg.String("description", "")),
		WithTaskInputKey(cfg.String("task_input_key", "")),
		WithTaskOutputKey(cfg.String("task_output_key", "")),
		WithExtraInitContext(cfg.StringMap("extra_init_context")),
		WithStepRegistry(steps),
	}
	return New(name, sources, append(base, opts...)...)
}

// RoleFromConfig builds a role from a config section. Each binding is a
// pipeline section plus the path it listens on:
//
//	name: writer
//	personality: terse technical editor
//	bindings:
//	  - on: docs.*.pending
//	    name: summarize
//	    steps: [outline, draft]
//
// opts are passed to every pipeline.
func RoleFromConfig(cfg config.Config, steps *StepRegistry, opts ...Option) (*Role, error) {
	role := &Role{
		Name:        cfg.String("name", ""),
		Description: cfg.String("description", ""),
		Personality: cfg.String("personality", ""),
		Pipelines:   make(map[string]*Pipeline),
	}

	for i, binding := range cfg.Sections("bindings") {
		on := binding.String("on", "")
		if on == "" {
			return nil, &ConfigurationError{
				Pipeline: binding.String("name", "<unnamed>"),
				Err:      fmt.Errorf("role %s: binding %d has no path", role.Name, i),
			}
		}
		p, err := FromConfig(binding, steps, opts...)
		if err != nil {
			return nil, err
		}
		role.Pipelines[on] = p
	}
	return role, nil
}
