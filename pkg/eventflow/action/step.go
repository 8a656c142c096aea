package action

import "context"

// Step is one named transform of the pipeline state.
//
// Act receives the current state and returns the entries to merge into it.
// Returning nil leaves the state unchanged. Steps hold no per-run state and
// may be shared by concurrent runs.
type Step interface {
	Name() string
	Act(ctx context.Context, state State) (State, error)
}

// Persona is implemented by steps that carry a personality. WithPersonality
// returns a copy; the receiver is not modified.
type Persona interface {
	Step
	Personality() string
	WithPersonality(personality string) Step
}

// StepFunc is the signature of a step built with Func.
type StepFunc func(ctx context.Context, state State) (State, error)

type funcStep struct {
	name string
	fn   StepFunc
}

// Func wraps fn as a Step named name.
//
// Example:
//
//	double := action.Func("double", func(ctx context.Context, s action.State) (action.State, error) {
//	    x, _ := action.Value[int](s, "x")
//	    return action.State{"x": x * 2}, nil
//	})
func Func(name string, fn StepFunc) Step {
	return &funcStep{name: name, fn: fn}
}

func (f *funcStep) Name() string { return f.name }

func (f *funcStep) Act(ctx context.Context, state State) (State, error) {
	return f.fn(ctx, state)
}
