package action

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoExecutor indicates an Action was run without an executor.
var ErrNoExecutor = errors.New("action has no executor")

// Executor does the actual work of an Action: an LLM call, a retrieval, a
// sandboxed run. It is the boundary to capabilities outside this module.
type Executor interface {
	Execute(ctx context.Context, state State) (any, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, state State) (any, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, state State) (any, error) {
	return f(ctx, state)
}

// Action is a Step that delegates to an Executor and optionally stores the
// executor's result in the state under its output key.
//
// Executors can read the running Action from their context with Current, for
// example to put its personality into a prompt.
type Action struct {
	name        string
	description string
	personality string
	outputKey   string
	executor    Executor
}

var _ Persona = (*Action)(nil)

// Option configures an Action.
type Option func(*Action)

// WithDescription sets what the action does.
func WithDescription(description string) Option {
	return func(a *Action) { a.description = description }
}

// WithPersonality sets the behavioral hint passed to the executor.
func WithPersonality(personality string) Option {
	return func(a *Action) { a.personality = personality }
}

// WithOutputKey makes the action write its result to key.
func WithOutputKey(key string) Option {
	return func(a *Action) { a.outputKey = key }
}

// New creates an Action.
func New(name string, executor Executor, opts ...Option) *Action {
	a := &Action{name: name, executor: executor}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the action name.
func (a *Action) Name() string { return a.name }

// Description returns the action description.
func (a *Action) Description() string { return a.description }

// Personality returns the behavioral hint.
func (a *Action) Personality() string { return a.personality }

// OutputKey returns the state key the result is written to, or "".
func (a *Action) OutputKey() string { return a.outputKey }

// WithPersonality returns a copy of a with personality set.
func (a *Action) WithPersonality(personality string) Step {
	clone := *a
	clone.personality = personality
	return &clone
}

// Act runs the executor. When an output key is set the result is returned
// under it; otherwise the state is left unchanged.
func (a *Action) Act(ctx context.Context, state State) (State, error) {
	if a.executor == nil {
		return nil, fmt.Errorf("action %s: %w", a.name, ErrNoExecutor)
	}

	out, err := a.executor.Execute(withAction(ctx, a), state)
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", a.name, err)
	}
	if a.outputKey == "" {
		return nil, nil
	}
	return State{a.outputKey: out}, nil
}

// Briefing renders the action as plain text for prompts.
func (a *Action) Briefing() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Action: %s\n", a.name)
	if a.description != "" {
		fmt.Fprintf(&b, "Description: %s\n", a.description)
	}
	if a.personality != "" {
		fmt.Fprintf(&b, "Personality: %s\n", a.personality)
	}
	return b.String()
}

type actionKey struct{}

func withAction(ctx context.Context, a *Action) context.Context {
	return context.WithValue(ctx, actionKey{}, a)
}

// Current returns the Action whose executor is running in ctx, or nil.
func Current(ctx context.Context) *Action {
	a, _ := ctx.Value(actionKey{}).(*Action)
	return a
}
