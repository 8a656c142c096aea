/*
Package eventflow provides event-addressed task orchestration.

# Overview

Work is described by tasks (package task) that announce their lifecycle on an
in-process bus (package event). Pipelines subscribe to the paths tasks are
published at and run an ordered list of steps (package action) against each
task, threading one shared context from step to step.

	bus := event.NewBus(event.BusConfig{})

	writer, err := eventflow.New("writer", eventflow.Steps(
	    action.New("outline", outliner, action.WithOutputKey("outline")),
	    action.New("draft", drafter, action.WithOutputKey("task_output")),
	))
	if err != nil {
	    log.Fatal(err)
	}
	writer.Bind(bus, event.MustParsePath("docs.*.pending"))

	t, _ := task.New[string]("article", task.WithNamespace("docs"), task.WithBus(bus))
	res, err := t.Delegate(ctx, event.Path{})
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(res.Value)

# Serving

Serve starts the task, runs every step in order and settles the task:

  - the context starts as the pipeline's extra init context, overlaid with the
    task's extra context, plus the task itself under the task input key
  - each step's returned entries are merged into the context before the next
    step begins
  - the value under the task output key finishes the task; a missing key
    logs a warning and finishes with the zero value
  - a step error or panic fails the task and is logged with its stack
  - cancellation (task.RequestCancel or a done ctx) is checked between steps
    only and cancels the task

Serve returns an error only when the task cannot be served at all; see
ConfigurationError.

# Steps

A pipeline is built once from sources. Instance uses a step value, Factory
calls a constructor, and Named resolves a name through a step registry:

	steps := eventflow.NewStepRegistry()
	steps.Register("review", newReviewStep)

	p, err := eventflow.New("editor",
	    []eventflow.Source{eventflow.Named("review")},
	    eventflow.WithStepRegistry(steps))

Pipelines can also be declared in YAML and built with FromConfig.

# Roles

A Role binds several pipelines under one personality:

	role := &eventflow.Role{
	    Name:        "editor",
	    Personality: "precise and terse",
	    Pipelines:   map[string]*eventflow.Pipeline{"docs.*.pending": p},
	}
	subs, err := role.Register(bus)

# Observability

	p, err := eventflow.New("writer", sources,
	    eventflow.WithLogger(logger),
	    eventflow.WithMetrics(),
	    eventflow.WithTracing(),
	    eventflow.WithSnapshots(snapshot.NewMemoryStore()))

Logs carry task_id, task and pipeline fields. Metrics and spans go to the
global OpenTelemetry providers: eventflow.serve > eventflow.step.{name}.
Snapshots record the context after every step for later inspection.

# Thread Safety

  - Pipeline IS safe for concurrent use; each Serve has its own context
  - Bus IS safe for concurrent use
  - Task IS safe for concurrent use, except that MoveTo must not race with
    Publish or Delegate and GetOutput has a single consumer
  - action.State is owned by one run and is NOT safe for concurrent use

# Subpackages

  - event: paths, the bus, futures
  - task: the typed task lifecycle
  - action: steps, actions, executors
  - registry: generic keyed registry for step factories
  - snapshot: per-step context snapshots (memory, SQLite)
  - observability: logging, metrics, and tracing helpers
  - config: YAML/JSON configuration loading
*/
package eventflow
