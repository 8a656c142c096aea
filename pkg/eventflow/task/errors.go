package task

import (
	"errors"
	"fmt"
)

// Sentinel errors for task lifecycle operations.
var (
	// ErrInvalidTransition indicates a lifecycle call from the wrong state.
	ErrInvalidTransition = errors.New("invalid task transition")

	// ErrOutputType indicates FinishValue received a value that is not the task's output type.
	ErrOutputType = errors.New("output has wrong type")

	// ErrInvalidTask indicates a task was built with an invalid name or namespace.
	ErrInvalidTask = errors.New("invalid task")
)

// TransitionError describes a rejected lifecycle transition.
type TransitionError struct {
	Task string
	From Status
	To   Status
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("task %s: cannot move from %s to %s", e.Task, e.From, e.To)
}

// Unwrap returns ErrInvalidTransition for errors.Is support.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
