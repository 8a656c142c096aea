package eventflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline construction and serving.
var (
	// ErrReservedKey indicates the task input key also appears in the
	// initial context, where the task handle would overwrite it.
	ErrReservedKey = errors.New("task input key is reserved")

	// ErrStepNotFound indicates a named step source has no registered factory.
	ErrStepNotFound = errors.New("step not found")

	// ErrNoSteps indicates a pipeline was built without steps.
	ErrNoSteps = errors.New("pipeline has no steps")

	// ErrInvalidSource indicates a step source resolved to nil.
	ErrInvalidSource = errors.New("invalid step source")
)

// ConfigurationError reports a pipeline that cannot be built or cannot serve
// a task as configured. It is the only error Serve returns.
type ConfigurationError struct {
	// Pipeline is the pipeline name.
	Pipeline string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Pipeline, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// StepError reports a step that failed its task.
type StepError struct {
	// Pipeline is the pipeline name.
	Pipeline string
	// Step is the step name.
	Step string
	// Index is the step's position in the pipeline.
	Index int
	// Err is the step's error, or a *PanicError.
	Err error
	// Stack is the stack at the point of failure; set for panics.
	Stack string
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("pipeline %s: step %d (%s): %v", e.Pipeline, e.Index, e.Step, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StepError) Unwrap() error {
	return e.Err
}

// PanicError captures a value recovered from a panicking step.
type PanicError struct {
	// Value is the value passed to panic().
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
