// Package event provides hierarchical event paths and an in-process bus.
//
// A Path names a point in the event namespace:
//
//	p := event.MustParsePath("docs.summarize.pending")
//	p.Collapse() // "docs.summarize.pending"
//
// Subscriptions may use Wildcard to match any single segment:
//
//	bus := event.NewBus(event.BusConfig{})
//	bus.On(event.MustParsePath("docs.*.finished"), func(ctx context.Context, evt *event.Event) error {
//	    log.Println("finished:", evt.Path)
//	    return nil
//	})
//
//	_ = bus.Emit(ctx, event.MustParsePath("docs.summarize.finished"), nil)
//
// Three emission forms are provided: Emit runs listeners in registration
// order on the caller's goroutine, EmitAsync runs them concurrently and waits,
// and EmitFuture returns immediately with a Future the caller may await.
//
// Listener failures never stop other listeners. They are logged and returned
// joined as *ListenerError values; panics are recovered with their stack.
package event
