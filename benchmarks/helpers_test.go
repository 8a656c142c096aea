package benchmarks

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/randalmurphal/eventflow/pkg/eventflow"
	"github.com/randalmurphal/eventflow/pkg/eventflow/action"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/task"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func noopStep(name string) action.Step {
	return action.Func(name, func(context.Context, action.State) (action.State, error) {
		return nil, nil
	})
}

func stepName(n int) string {
	return fmt.Sprintf("step%d", n)
}

func buildLinearPipeline(n int, opts ...eventflow.Option) *eventflow.Pipeline {
	steps := make([]action.Step, 0, n+1)
	for i := range n {
		steps = append(steps, noopStep(stepName(i)))
	}
	steps = append(steps, action.Func("output", func(context.Context, action.State) (action.State, error) {
		return action.State{eventflow.DefaultTaskOutputKey: 1}, nil
	}))
	return mustPipeline(eventflow.New("bench", eventflow.Steps(steps...),
		append([]eventflow.Option{eventflow.WithLogger(discard)}, opts...)...))
}

func mustPipeline(p *eventflow.Pipeline, err error) *eventflow.Pipeline {
	if err != nil {
		panic(err)
	}
	return p
}

func newBus() *event.Bus {
	return event.NewBus(event.BusConfig{Logger: discard})
}

func newTask(bus *event.Bus) *task.Task[int] {
	t, err := task.New[int]("job", task.WithNamespace("bench"), task.WithBus(bus), task.WithLogger(discard))
	if err != nil {
		panic(err)
	}
	return t
}
