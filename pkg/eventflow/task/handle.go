package task

import (
	"context"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

// Handle is the type-erased view of a Task that pipelines drive.
// Every *Task[T] implements it.
type Handle interface {
	ID() string
	Name() string
	Namespace() event.Path
	Status() Status
	IsCancelled() bool
	ExtraContext() map[string]any
	Briefing() string

	Start(ctx context.Context) error
	FinishValue(ctx context.Context, v any) error
	Fail(ctx context.Context) error
	Cancel(ctx context.Context) error
}

var _ Handle = (*Task[any])(nil)
