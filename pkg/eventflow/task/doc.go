// Package task provides Task, a typed unit of work with a five-state
// lifecycle and a single result slot.
//
// A task is created pending, published on a bus, and served by whatever
// pipeline is listening on its pending label:
//
//	t, err := task.New[string]("summarize",
//	    task.WithNamespace("docs"),
//	    task.WithGoals("one paragraph"),
//	    task.WithBus(bus),
//	)
//	if err != nil {
//	    return err
//	}
//
//	res, err := t.Delegate(ctx, event.Path{}) // emits "docs.summarize.pending"
//	if err != nil {
//	    return err
//	}
//	if summary, ok := res.Get(); ok {
//	    fmt.Println(summary)
//	}
//
// Each transition is announced at "<namespace>.<name>.<status>", so observers
// can subscribe to "docs.*.finished" or "*.*.failed".
//
// Results carry an explicit terminal Status: a task that finished with the
// zero value is distinguishable from one that failed or was cancelled.
package task
