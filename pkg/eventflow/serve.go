package eventflow

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/eventflow/pkg/eventflow/action"
	"github.com/randalmurphal/eventflow/pkg/eventflow/observability"
	"github.com/randalmurphal/eventflow/pkg/eventflow/snapshot"
	"github.com/randalmurphal/eventflow/pkg/eventflow/task"
)

// Serve runs every step against t and settles it.
//
// Execution flow:
//  1. Build the initial context from the extra init context, the task's
//     extra context (task wins) and the task itself under the input key
//  2. Start the task
//  3. Before each step, stop if the task was cancelled or ctx is done
//  4. Run the step and merge what it returns into the context
//  5. Finish the task with the context's output key, or cancel it
//
// Serve returns an error only when the task cannot be served: the input key
// is taken by the initial context (ErrReservedKey), or the task is not
// pending. In both cases the task is left untouched.
//
// A failing or panicking step fails the task; the failure is logged and Serve
// returns nil. Cancellation is checked only between steps: a running step is
// never interrupted.
func (p *Pipeline) Serve(ctx context.Context, t task.Handle) error {
	state, err := p.initialState(t)
	if err != nil {
		return err
	}

	logger := observability.EnrichLogger(p.cfg.logger, t.ID(), t.Name(), p.name)
	startTime := time.Now()

	ctx, serveSpan := p.cfg.spans.StartServeSpan(ctx, p.name, t.ID(), t.Name())

	if err := t.Start(ctx); err != nil {
		cfgErr := &ConfigurationError{Pipeline: p.name, Err: err}
		p.cfg.spans.EndServeSpan(serveSpan, t.Status().String(), cfgErr)
		return cfgErr
	}
	observability.LogServeStart(logger, p.name, t.ID())

	// Terminal transitions must happen even when ctx is already done.
	settleCtx := context.WithoutCancel(ctx)

	r := &run{
		pipeline: p,
		task:     t,
		logger:   logger,
		started:  startTime,
		queue:    make(chan action.State, 1),
	}
	r.queue <- state

	outcome, runErr := r.steps(ctx)

	final := <-r.queue
	switch outcome {
	case task.Failed, task.Cancelled:
		outcome = r.settle(settleCtx, outcome, nil)
	default:
		out, ok := final[p.cfg.taskOutputKey]
		if !ok {
			observability.LogMissingOutput(logger, p.name, p.cfg.taskOutputKey)
		}
		outcome = r.settle(settleCtx, task.Finished, out)
	}

	p.cfg.spans.EndServeSpan(serveSpan, outcome.String(), runErr)

	duration := time.Since(startTime)
	p.cfg.metrics.RecordServe(ctx, p.name, outcome.String(), duration)
	if outcome == task.Finished {
		observability.LogServeComplete(logger, p.name, t.ID(), float64(duration.Milliseconds()), r.executed)
	}
	return nil
}

func (p *Pipeline) initialState(t task.Handle) (action.State, error) {
	state := p.cfg.extraInit.Clone().Merge(t.ExtraContext())
	if _, taken := state[p.cfg.taskInputKey]; taken {
		return nil, &ConfigurationError{Pipeline: p.name, Err: ErrReservedKey}
	}
	state[p.cfg.taskInputKey] = t
	return state, nil
}

// run is the state of one Serve call.
type run struct {
	pipeline *Pipeline
	task     task.Handle
	logger   *slog.Logger
	started  time.Time
	// queue holds the context between steps. Its capacity of one means a
	// step can only start once the previous step's output is back in it.
	queue    chan action.State
	executed int
}

// steps runs the steps in order and reports how the run ended. On return the
// context is back in the queue.
func (r *run) steps(ctx context.Context) (task.Status, error) {
	p := r.pipeline
	for i, step := range p.steps {
		state := <-r.queue

		if r.task.IsCancelled() || ctx.Err() != nil {
			r.queue <- state
			p.cfg.spans.AddSpanEvent(ctx, "cancelled", attribute.String("next_step", step.Name()))
			observability.LogServeCancelled(r.logger, p.name, r.task.ID(), step.Name(), r.elapsedMs())
			return task.Cancelled, nil
		}

		updates, err := r.step(ctx, i, step, state)
		if err != nil {
			r.queue <- state
			observability.LogServeFailed(r.logger, p.name, r.task.ID(), err, r.elapsedMs(), step.Name())
			return task.Failed, err
		}

		state = state.Merge(updates)
		r.executed++
		r.snapshot(ctx, i, step.Name(), state)
		r.queue <- state
	}
	return task.Finished, nil
}

// step runs one step with panic recovery, logging, metrics and a span.
func (r *run) step(ctx context.Context, index int, step action.Step, state action.State) (updates action.State, err error) {
	p := r.pipeline
	name := step.Name()

	observability.LogStepStart(r.logger, name)
	stepCtx, span := p.cfg.spans.StartStepSpan(ctx, name, index)
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			updates = nil
			err = &StepError{
				Pipeline: p.name,
				Step:     name,
				Index:    index,
				Err:      &PanicError{Value: rec},
				Stack:    string(debug.Stack()),
			}
		}

		duration := time.Since(start)
		p.cfg.metrics.RecordStepExecution(stepCtx, p.name, name, duration, err)
		p.cfg.spans.EndSpanWithError(span, err)

		if err != nil {
			var stepErr *StepError
			stack := ""
			if errors.As(err, &stepErr) {
				stack = stepErr.Stack
			}
			observability.LogStepError(r.logger, name, err, stack)
			return
		}
		observability.LogStepComplete(r.logger, name, float64(duration.Milliseconds()))
	}()

	updates, err = step.Act(stepCtx, state)
	if err != nil {
		return nil, &StepError{Pipeline: p.name, Step: name, Index: index, Err: err}
	}
	return updates, nil
}

// snapshot saves the context after step index. Failures are logged only.
func (r *run) snapshot(ctx context.Context, index int, stepName string, state action.State) {
	p := r.pipeline
	if p.cfg.snapshots == nil {
		return
	}

	snap, err := snapshot.New(r.task.ID(), p.name, stepName, index, state.Without(p.cfg.taskInputKey))
	if err != nil {
		observability.LogSnapshotError(r.logger, stepName, "encode", err)
		return
	}
	if err := p.cfg.snapshots.Save(ctx, snap); err != nil {
		observability.LogSnapshotError(r.logger, stepName, "save", err)
		return
	}

	observability.LogSnapshot(r.logger, stepName, int(snap.Size()))
	p.cfg.metrics.RecordSnapshot(ctx, stepName, snap.Size())
}

// settle moves the task to a terminal state and returns the state it ended
// in. A task something else already settled is left alone, since a second
// terminal call would block forever.
func (r *run) settle(ctx context.Context, to task.Status, out any) task.Status {
	if current := r.task.Status(); current.IsTerminal() {
		r.logger.Warn("task already settled",
			slog.String("status", current.String()),
			slog.String("wanted", to.String()),
		)
		return current
	}

	var err error
	switch to {
	case task.Finished:
		err = r.task.FinishValue(ctx, out)
		if errors.Is(err, task.ErrOutputType) {
			observability.LogServeFailed(r.logger, r.pipeline.name, r.task.ID(), err, r.elapsedMs(), "")
			to = task.Failed
			err = r.task.Fail(ctx)
		}
	case task.Failed:
		err = r.task.Fail(ctx)
	case task.Cancelled:
		err = r.task.Cancel(ctx)
	}
	if err != nil {
		r.logger.Error("task settle failed",
			slog.String("wanted", to.String()),
			slog.String("error", err.Error()),
		)
		return r.task.Status()
	}
	return to
}

func (r *run) elapsedMs() float64 {
	return float64(time.Since(r.started).Milliseconds())
}
