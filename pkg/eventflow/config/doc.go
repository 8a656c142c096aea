// Package config loads eventflow configuration documents.
//
// A Config is a decoded YAML or JSON mapping with forgiving typed accessors.
// Domain packages read their own sections from it:
//
//	cfg, err := config.FromFile("eventflow.yaml")
//	if err != nil {
//	    return err
//	}
//
//	bus := event.NewBus(event.BusConfigFrom(cfg.Section("bus")))
//	pipeline, err := eventflow.FromConfig(cfg.Section("pipeline"), steps)
//
// FromFile expands ${VAR} references from the environment, so paths and
// other deployment details can stay out of the document.
//
// A typical document:
//
//	bus:
//	  max_concurrency: 8
//	snapshots:
//	  driver: sqlite
//	  path: ${EVENTFLOW_DATA}/snapshots.db
//	pipeline:
//	  name: writer
//	  steps: [outline, draft, review]
//	  task_output_key: article
//	  extra_init_context:
//	    tone: formal
//	task:
//	  name: summarize
//	  namespace: [docs, weekly]
//	  goals: ["one paragraph"]
package config
