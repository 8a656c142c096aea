package task

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/observability"
)

// Task is a unit of work producing a value of type T.
//
// A task moves Pending -> Running -> one of Finished, Failed or Cancelled, and
// announces every transition on its bus at the label
// namespace + name + status word, e.g. "docs.summarize.finished".
//
// Exactly one terminal call (Finish, Fail or Cancel) may ever be made on a
// running task. A second terminal call blocks forever; this is part of the
// contract, not a detected error.
//
// GetOutput is meant for a single consumer. Concurrent callers race for the
// one result and only one receives it.
//
// MoveTo and NestedMoveTo must not be called concurrently with Publish or
// Delegate.
type Task[T any] struct {
	id          string
	name        string
	description string
	bus         *event.Bus
	logger      *slog.Logger

	mu           sync.RWMutex
	namespace    event.Path
	goals        []string
	dependencies []string
	extra        map[string]any
	status       Status

	cancelRequested atomic.Bool

	// terminal holds one token for the first terminal call and is never
	// drained, so any later terminal call blocks.
	terminal chan struct{}
	results  chan Result[T]
}

// Option configures a task.
type Option func(*options)

type options struct {
	namespace    []string
	description  string
	goals        []string
	dependencies []string
	extra        map[string]any
	bus          *event.Bus
	logger       *slog.Logger
}

// WithNamespace sets the namespace segments the task's labels start with.
func WithNamespace(segments ...string) Option {
	return func(o *options) {
		o.namespace = segments
	}
}

// WithDescription sets the task description.
func WithDescription(description string) Option {
	return func(o *options) {
		o.description = description
	}
}

// WithGoals sets the task goals.
func WithGoals(goals ...string) Option {
	return func(o *options) {
		o.goals = goals
	}
}

// WithDependencies sets the files the task depends on.
func WithDependencies(paths ...string) Option {
	return func(o *options) {
		o.dependencies = paths
	}
}

// WithExtraContext sets per-delegation values merged into the pipeline context.
func WithExtraContext(extra map[string]any) Option {
	return func(o *options) {
		o.extra = extra
	}
}

// WithBus sets the bus the task announces on. Default: event.Default().
func WithBus(bus *event.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// WithLogger sets the logger for transitions. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a pending task.
// Returns an error wrapping ErrInvalidTask if name or a namespace segment is
// empty or contains the path delimiter.
func New[T any](name string, opts ...Option) (*Task[T], error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	var probe event.Path
	if err := probe.Push(name); err != nil {
		return nil, fmt.Errorf("%w: name: %w", ErrInvalidTask, err)
	}
	namespace, err := event.NewPath(o.namespace...)
	if err != nil {
		return nil, fmt.Errorf("%w: namespace: %w", ErrInvalidTask, err)
	}

	if o.bus == nil {
		o.bus = event.Default()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	t := &Task[T]{
		id:           uuid.New().String(),
		name:         name,
		description:  o.description,
		bus:          o.bus,
		logger:       o.logger,
		namespace:    namespace,
		goals:        slices.Clone(o.goals),
		dependencies: slices.Clone(o.dependencies),
		extra:        maps.Clone(o.extra),
		status:       Pending,
		terminal:     make(chan struct{}, 1),
		results:      make(chan Result[T], 1),
	}
	if t.extra == nil {
		t.extra = make(map[string]any)
	}
	return t, nil
}

// ID returns the task's unique identifier.
func (t *Task[T]) ID() string { return t.id }

// Name returns the task name.
func (t *Task[T]) Name() string { return t.name }

// Description returns the task description.
func (t *Task[T]) Description() string { return t.description }

// Bus returns the bus the task announces on.
func (t *Task[T]) Bus() *event.Bus { return t.bus }

// Namespace returns a copy of the current namespace.
func (t *Task[T]) Namespace() event.Path {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.namespace.Clone()
}

// Goals returns a copy of the goals.
func (t *Task[T]) Goals() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.goals)
}

// UpdateGoals replaces the goals.
func (t *Task[T]) UpdateGoals(goals ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.goals = slices.Clone(goals)
}

// Dependencies returns a copy of the dependency paths.
func (t *Task[T]) Dependencies() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.dependencies)
}

// AddDependency appends a dependency unless it is already listed.
func (t *Task[T]) AddDependency(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !slices.Contains(t.dependencies, path) {
		t.dependencies = append(t.dependencies, path)
	}
}

// RemoveDependency removes a dependency and reports whether it was listed.
func (t *Task[T]) RemoveDependency(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := slices.Index(t.dependencies, path)
	if i < 0 {
		return false
	}
	t.dependencies = slices.Delete(t.dependencies, i, i+1)
	return true
}

// ClearDependencies removes every dependency.
func (t *Task[T]) ClearDependencies() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dependencies = nil
}

// OverrideDependencies replaces the dependency list.
func (t *Task[T]) OverrideDependencies(paths ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dependencies = slices.Clone(paths)
}

// ExtraContext returns a copy of the per-delegation context.
func (t *Task[T]) ExtraContext() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.extra)
}

// SetExtraContext sets a per-delegation context value.
func (t *Task[T]) SetExtraContext(key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.extra[key] = value
}

// Status returns the current lifecycle state.
func (t *Task[T]) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// RequestCancel asks the pipeline serving the task to stop at the next step
// boundary. The running step is never interrupted.
func (t *Task[T]) RequestCancel() {
	t.cancelRequested.Store(true)
}

// IsCancelled reports whether cancellation was requested or the task is
// already Cancelled.
func (t *Task[T]) IsCancelled() bool {
	return t.cancelRequested.Load() || t.Status() == Cancelled
}

// StatusLabel returns the event path announcing status s.
func (t *Task[T]) StatusLabel(s Status) event.Path {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.labelLocked(s)
}

// PendingLabel returns the path a pipeline bound to this task listens on.
func (t *Task[T]) PendingLabel() event.Path {
	return t.StatusLabel(Pending)
}

func (t *Task[T]) labelLocked(s Status) event.Path {
	label := t.namespace.Clone()
	// name was validated in New and status words contain no delimiter.
	_ = label.Push(t.name)
	_ = label.Push(s.String())
	return label
}

// MoveTo replaces the namespace, changing every future label.
func (t *Task[T]) MoveTo(segments ...string) error {
	namespace, err := event.NewPath(segments...)
	if err != nil {
		return fmt.Errorf("%w: namespace: %w", ErrInvalidTask, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.namespace = namespace
	return nil
}

// NestedMoveTo prepends parent to the current namespace.
func (t *Task[T]) NestedMoveTo(parent ...string) error {
	prefix, err := event.NewPath(parent...)
	if err != nil {
		return fmt.Errorf("%w: namespace: %w", ErrInvalidTask, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.namespace = prefix.Derive(t.namespace)
	return nil
}

// Start moves the task from Pending to Running and announces it.
func (t *Task[T]) Start(ctx context.Context) error {
	t.mu.Lock()
	if !isAllowedTransition(t.status, Running) {
		from := t.status
		t.mu.Unlock()
		return &TransitionError{Task: t.name, From: from, To: Running}
	}
	t.status = Running
	label := t.labelLocked(Running)
	t.mu.Unlock()

	t.announce(ctx, Pending, Running, label)
	return nil
}

// Finish records v as the task's output.
func (t *Task[T]) Finish(ctx context.Context, v T) error {
	return t.settle(ctx, Finished, v)
}

// FinishValue is Finish for callers that only hold a Handle.
// nil finishes with the zero value of T; any other value must have type T.
func (t *Task[T]) FinishValue(ctx context.Context, v any) error {
	if v == nil {
		var zero T
		return t.Finish(ctx, zero)
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return fmt.Errorf("%w: task %s wants %T, got %T", ErrOutputType, t.name, zero, v)
	}
	return t.Finish(ctx, typed)
}

// Fail marks the task failed.
func (t *Task[T]) Fail(ctx context.Context) error {
	var zero T
	return t.settle(ctx, Failed, zero)
}

// Cancel marks the task cancelled.
func (t *Task[T]) Cancel(ctx context.Context) error {
	var zero T
	return t.settle(ctx, Cancelled, zero)
}

func (t *Task[T]) settle(ctx context.Context, to Status, value T) error {
	t.terminal <- struct{}{}

	t.mu.Lock()
	if !isAllowedTransition(t.status, to) {
		from := t.status
		t.mu.Unlock()
		<-t.terminal
		return &TransitionError{Task: t.name, From: from, To: to}
	}
	t.status = to
	label := t.labelLocked(to)
	t.mu.Unlock()

	t.results <- Result[T]{Status: to, Value: value}
	t.announce(ctx, Running, to, label)
	return nil
}

// announce emits the transition. Listener failures are logged by the bus and
// never undo a transition.
func (t *Task[T]) announce(ctx context.Context, from, to Status, label event.Path) {
	observability.LogTransition(t.logger, t.name, from.String(), to.String())
	if err := t.bus.Emit(ctx, label, t); err != nil {
		t.logger.Debug("transition announcement incomplete",
			slog.String("task", t.name),
			slog.String("label", label.Collapse()),
			slog.String("error", err.Error()),
		)
	}
}

// GetOutput waits for the task's result.
// It returns ctx.Err() if ctx is done first; the result stays available.
func (t *Task[T]) GetOutput(ctx context.Context) (Result[T], error) {
	select {
	case r := <-t.results:
		return r, nil
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	}
}

// Publish emits the task at path without waiting for a result. An empty
// path means the pending label. Listeners run on their own goroutine and do
// not inherit ctx's cancellation.
func (t *Task[T]) Publish(ctx context.Context, path event.Path) *event.Future {
	if path.IsEmpty() {
		path = t.PendingLabel()
	}
	return t.bus.EmitFuture(ctx, path, t)
}

// Delegate publishes the task and waits for its result.
func (t *Task[T]) Delegate(ctx context.Context, path event.Path) (Result[T], error) {
	t.Publish(ctx, path)
	return t.GetOutput(ctx)
}

// Briefing renders the task as plain text for prompts and logs.
func (t *Task[T]) Briefing() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", t.name)
	if t.description != "" {
		fmt.Fprintf(&b, "Description: %s\n", t.description)
	}
	if len(t.goals) > 0 {
		b.WriteString("Goals:\n")
		for i, g := range t.goals {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, g)
		}
	}
	if len(t.dependencies) > 0 {
		b.WriteString("Dependencies:\n")
		for _, d := range t.dependencies {
			fmt.Fprintf(&b, "  - %s\n", d)
		}
	}
	return b.String()
}

// String implements fmt.Stringer.
func (t *Task[T]) String() string {
	return fmt.Sprintf("task %s (%s)", t.PendingLabel().Collapse(), t.Status())
}
