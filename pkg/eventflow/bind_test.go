package eventflow_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventflow/pkg/eventflow"
	"github.com/randalmurphal/eventflow/pkg/eventflow/action"
	"github.com/randalmurphal/eventflow/pkg/eventflow/config"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/registry"
	"github.com/randalmurphal/eventflow/pkg/eventflow/snapshot"
	"github.com/randalmurphal/eventflow/pkg/eventflow/task"
)

func TestNew_Sources(t *testing.T) {
	steps := eventflow.NewStepRegistry()
	steps.Register("named", func() action.Step {
		return action.Func("named", func(context.Context, action.State) (action.State, error) { return nil, nil })
	})

	factoryCalls := 0
	p, err := eventflow.New("mixed", []eventflow.Source{
		eventflow.Instance(action.Func("instance", func(context.Context, action.State) (action.State, error) { return nil, nil })),
		eventflow.Factory(func() action.Step {
			factoryCalls++
			return action.Func("factory", func(context.Context, action.State) (action.State, error) { return nil, nil })
		}),
		eventflow.Named("named"),
	}, eventflow.WithStepRegistry(steps), eventflow.WithDescription("three kinds"))
	require.NoError(t, err)

	assert.Equal(t, []string{"instance", "factory", "named"}, p.StepNames())
	assert.Len(t, p.Steps(), 3)
	assert.Equal(t, 1, factoryCalls, "sources resolve once, at construction")
	assert.Equal(t, "mixed", p.Name())
	assert.Equal(t, "three kinds", p.Description())
}

func TestNew_Errors(t *testing.T) {
	steps := eventflow.NewStepRegistry()

	tests := []struct {
		name    string
		sources []eventflow.Source
		opts    []eventflow.Option
		wantErr error
	}{
		{"no steps", nil, nil, eventflow.ErrNoSteps},
		{"unknown name", []eventflow.Source{eventflow.Named("ghost")}, []eventflow.Option{eventflow.WithStepRegistry(steps)}, eventflow.ErrStepNotFound},
		{"named without registry", []eventflow.Source{eventflow.Named("ghost")}, nil, eventflow.ErrStepNotFound},
		{"nil instance", []eventflow.Source{eventflow.Instance(nil)}, nil, eventflow.ErrInvalidSource},
		{"nil factory", []eventflow.Source{eventflow.Factory(nil)}, nil, eventflow.ErrInvalidSource},
		{"factory returns nil", []eventflow.Source{eventflow.Factory(func() action.Step { return nil })}, nil, eventflow.ErrInvalidSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eventflow.New("broken", tt.sources, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var cfgErr *eventflow.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "broken", cfgErr.Pipeline)
		})
	}

	t.Run("unknown name lists known steps", func(t *testing.T) {
		steps := eventflow.NewStepRegistry()
		steps.Register("draft", nil)
		_, err := eventflow.New("p", []eventflow.Source{eventflow.Named("review")}, eventflow.WithStepRegistry(steps))
		assert.ErrorIs(t, err, registry.ErrNotFound)
		assert.Contains(t, err.Error(), "known: [draft]")
	})
}

func TestBind_DelegateEndToEnd(t *testing.T) {
	bus := newBus(t)

	p, err := eventflow.New("summarizer", eventflow.Steps(
		action.New("summarize",
			action.ExecutorFunc(func(_ context.Context, s action.State) (any, error) {
				h, _ := action.Value[task.Handle](s, eventflow.DefaultTaskInputKey)
				return "summary of " + h.Name(), nil
			}),
			action.WithOutputKey(eventflow.DefaultTaskOutputKey),
		),
	))
	require.NoError(t, err)

	sub := p.Bind(bus, event.MustParsePath("docs.*.pending"))
	require.NotNil(t, sub)

	tk, err := task.New[string]("notes", task.WithNamespace("docs"), task.WithBus(bus))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := tk.Delegate(ctx, event.Path{})
	require.NoError(t, err)
	assert.Equal(t, task.Finished, res.Status)
	assert.Equal(t, "summary of notes", res.Value)
}

func TestBind_IgnoresNonTaskPayload(t *testing.T) {
	bus := newBus(t)

	p, err := eventflow.New("p", eventflow.Steps(
		action.Func("fail", func(context.Context, action.State) (action.State, error) {
			t.Error("must not run for non-task payloads")
			return nil, nil
		}),
	))
	require.NoError(t, err)

	path := event.MustParsePath("x.pending")
	p.Bind(bus, path)

	assert.NoError(t, bus.Emit(context.Background(), path, "not a task"))
}

func TestBind_ConfigurationErrorReachesBus(t *testing.T) {
	bus := newBus(t)

	p, err := eventflow.New("p",
		eventflow.Steps(action.Func("noop", func(context.Context, action.State) (action.State, error) { return nil, nil })),
		eventflow.WithExtraInitContext(map[string]any{eventflow.DefaultTaskInputKey: 1}),
	)
	require.NoError(t, err)

	path := event.MustParsePath("test.job.pending")
	p.Bind(bus, path)

	tk := newTask[int](t, bus)
	err = bus.Emit(context.Background(), path, tk)
	assert.ErrorIs(t, err, eventflow.ErrReservedKey)
	assert.Equal(t, task.Pending, tk.Status())
}

func TestSnapshots(t *testing.T) {
	bus := newBus(t)
	store := snapshot.NewMemoryStore()
	defer store.Close()
	metrics := &fakeMetrics{}

	p, err := eventflow.New("snap", eventflow.Steps(
		set("x", func(action.State) any { return 1 }),
		set("task_output", func(action.State) any { return 2 }),
	), eventflow.WithSnapshots(store), eventflow.WithMetricsRecorder(metrics))
	require.NoError(t, err)

	tk := newTask[int](t, bus)
	require.NoError(t, p.Serve(context.Background(), tk))

	ctx := context.Background()
	infos, err := store.List(ctx, tk.ID())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "set-x", infos[0].Step)
	assert.Equal(t, "set-task_output", infos[1].Step)
	assert.Equal(t, "snap", infos[0].Pipeline)

	last, err := store.Latest(ctx, tk.ID())
	require.NoError(t, err)
	state, err := last.Decode()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": float64(1), "task_output": float64(2)}, state)
	assert.NotContains(t, state, eventflow.DefaultTaskInputKey)
	assert.Equal(t, 2, metrics.snaps)
}

func TestSnapshots_EncodeFailureDoesNotFailTask(t *testing.T) {
	bus := newBus(t)
	store := snapshot.NewMemoryStore()
	defer store.Close()
	logs := &testLogHandler{}

	p, err := eventflow.New("chan", eventflow.Steps(
		set("ch", func(action.State) any { return make(chan int) }),
		set("task_output", func(action.State) any { return 5 }),
	), eventflow.WithSnapshots(store), eventflow.WithLogger(slog.New(logs)))
	require.NoError(t, err)

	tk := newTask[int](t, bus)
	require.NoError(t, p.Serve(context.Background(), tk))

	assert.Equal(t, 5, output(t, tk).Value)
	assert.Equal(t, 0, store.Len())
	assert.NotNil(t, logs.find("snapshot failed"))
}

func TestInjectPersonality(t *testing.T) {
	preset := action.New("preset", nil, action.WithPersonality("grumpy"))
	blank := action.New("blank", nil)
	plain := action.Func("plain", func(context.Context, action.State) (action.State, error) { return nil, nil })

	p, err := eventflow.New("p", eventflow.Steps(preset, blank, plain))
	require.NoError(t, err)

	injected := p.InjectPersonality("cheerful")
	steps := injected.Steps()

	assert.Equal(t, "grumpy", steps[0].(*action.Action).Personality())
	assert.Equal(t, "cheerful", steps[1].(*action.Action).Personality())
	assert.Same(t, plain, steps[2])
	assert.Equal(t, "", blank.Personality(), "original step untouched")
}

func TestRole_Register(t *testing.T) {
	bus := newBus(t)

	var seen string
	p, err := eventflow.New("greet", eventflow.Steps(
		action.New("greet",
			action.ExecutorFunc(func(ctx context.Context, _ action.State) (any, error) {
				seen = action.Current(ctx).Personality()
				return 1, nil
			}),
			action.WithOutputKey(eventflow.DefaultTaskOutputKey),
		),
	))
	require.NoError(t, err)

	role := &eventflow.Role{
		Name:        "host",
		Description: "Greets guests",
		Personality: "warm",
		Pipelines:   map[string]*eventflow.Pipeline{"test.*.pending": p},
	}

	subs, err := role.Register(bus)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	tk := newTask[int](t, bus)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := tk.Delegate(ctx, event.Path{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Value)
	assert.Equal(t, "warm", seen)

	brief := role.Briefing()
	assert.Contains(t, brief, "Role: host")
	assert.Contains(t, brief, "Personality: warm")
	assert.Contains(t, brief, "test.*.pending: greet [greet]")

	t.Run("invalid path binds nothing", func(t *testing.T) {
		bus := newBus(t)
		role := &eventflow.Role{
			Name: "bad",
			Pipelines: map[string]*eventflow.Pipeline{
				"a.b":  p,
				"a..b": p,
			},
		}
		_, err := role.Register(bus)
		assert.ErrorIs(t, err, event.ErrInvalidSegment)
		assert.Equal(t, 0, bus.Listeners(event.MustParsePath("a.b")))
	})
}

const writerYAML = `
pipeline:
  name: writer
  description: Drafts and titles
  steps: [draft, title]
  task_output_key: article
  extra_init_context:
    topic: go
role:
  name: newsroom
  personality: brisk
  bindings:
    - on: news.*.pending
      name: writer
      steps: [draft, title]
      task_output_key: article
`

func writerSteps() *eventflow.StepRegistry {
	steps := eventflow.NewStepRegistry()
	steps.Register("draft", func() action.Step {
		return action.New("draft", action.ExecutorFunc(func(_ context.Context, s action.State) (any, error) {
			topic, _ := action.Value[string](s, "topic")
			return "all about " + topic, nil
		}), action.WithOutputKey("body"))
	})
	steps.Register("title", func() action.Step {
		return action.Func("title", func(_ context.Context, s action.State) (action.State, error) {
			body, _ := action.Value[string](s, "body")
			return action.State{"article": "# " + body}, nil
		})
	})
	return steps
}

func TestFromConfig(t *testing.T) {
	cfg, err := config.FromYAML([]byte(writerYAML))
	require.NoError(t, err)

	p, err := eventflow.FromConfig(cfg.Section("pipeline"), writerSteps())
	require.NoError(t, err)

	assert.Equal(t, "writer", p.Name())
	assert.Equal(t, "Drafts and titles", p.Description())
	assert.Equal(t, []string{"draft", "title"}, p.StepNames())
	assert.Equal(t, "article", p.TaskOutputKey())
	assert.Equal(t, eventflow.DefaultTaskInputKey, p.TaskInputKey())

	bus := newBus(t)
	tk, err := task.New[string]("post", task.WithBus(bus))
	require.NoError(t, err)
	require.NoError(t, p.Serve(context.Background(), tk))

	res, err := tk.GetOutput(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "# all about go", res.Value)
}

func TestFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{"no steps", "name: empty\n", eventflow.ErrNoSteps},
		{"unknown step", "name: x\nsteps: [nope]\n", eventflow.ErrStepNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.FromYAML([]byte(tt.doc))
			require.NoError(t, err)
			_, err = eventflow.FromConfig(cfg, writerSteps())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("missing name", func(t *testing.T) {
		_, err := eventflow.FromConfig(config.New(map[string]any{"steps": []any{"draft"}}), writerSteps())
		assert.True(t, eventflow.IsConfigurationError(err))
	})
}

func TestRoleFromConfig(t *testing.T) {
	cfg, err := config.FromYAML([]byte(writerYAML))
	require.NoError(t, err)

	role, err := eventflow.RoleFromConfig(cfg.Section("role"), writerSteps())
	require.NoError(t, err)
	assert.Equal(t, "newsroom", role.Name)
	assert.Equal(t, "brisk", role.Personality)
	require.Contains(t, role.Pipelines, "news.*.pending")

	bus := newBus(t)
	_, err = role.Register(bus)
	require.NoError(t, err)

	tk, err := task.New[string]("daily", task.WithNamespace("news"), task.WithBus(bus))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := tk.Delegate(ctx, event.Path{})
	require.NoError(t, err)
	assert.Equal(t, "# all about ", res.Value)

	t.Run("binding without path", func(t *testing.T) {
		cfg := config.New(map[string]any{
			"name":     "r",
			"bindings": []any{map[string]any{"name": "p", "steps": []any{"draft"}}},
		})
		_, err := eventflow.RoleFromConfig(cfg, writerSteps())
		assert.True(t, eventflow.IsConfigurationError(err))
	})
}
