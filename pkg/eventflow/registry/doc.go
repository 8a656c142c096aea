// Package registry provides a generic thread-safe registry keyed by ordered keys.
//
// Pipelines use it to resolve steps by name:
//
//	steps := registry.New[string, eventflow.StepFactory]()
//	steps.Register("outline", func() action.Step { return newOutline(exec) })
//	steps.Register("draft", func() action.Step { return newDraft(exec) })
//
//	p, err := eventflow.New("writer",
//	    []eventflow.Source{eventflow.Named("outline"), eventflow.Named("draft")},
//	    eventflow.WithStepRegistry(steps),
//	)
//
// Lookup failures name the missing key and list the registered ones:
//
//	_, err := steps.Lookup("review")
//	// review not registered (known: [draft outline])
//
// All methods are safe for concurrent use. All iterates over a snapshot, so
// the registry may be changed while iterating.
package registry
