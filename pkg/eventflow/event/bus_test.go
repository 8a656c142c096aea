package event_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/randalmurphal/eventflow/pkg/eventflow/config"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newBus(t *testing.T) *event.Bus {
	t.Helper()
	bus := event.NewBus(event.BusConfig{})
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func counter(n *atomic.Int32) event.Listener {
	return func(context.Context, *event.Event) error {
		n.Add(1)
		return nil
	}
}

func TestBus_Emit_ExactMatch(t *testing.T) {
	bus := newBus(t)
	ctx := context.Background()

	var hits atomic.Int32
	bus.On(event.MustParsePath("a.b"), counter(&hits))

	require.NoError(t, bus.Emit(ctx, event.MustParsePath("a.b"), nil))
	require.NoError(t, bus.Emit(ctx, event.MustParsePath("a.c"), nil))
	require.NoError(t, bus.Emit(ctx, event.MustParsePath("a.b.c"), nil))

	assert.Equal(t, int32(1), hits.Load())
}

func TestBus_Emit_Wildcard(t *testing.T) {
	bus := newBus(t)
	ctx := context.Background()

	var hits atomic.Int32
	bus.On(event.MustParsePath("a.*.c"), counter(&hits))

	tests := []struct {
		path    string
		matched bool
	}{
		{"a.b.c", true},
		{"a.x.c", true},
		{"a.b.d", false},
		{"a.b.c.d", false},
		{"a.c", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			before := hits.Load()
			require.NoError(t, bus.Emit(ctx, event.MustParsePath(tt.path), nil))
			if tt.matched {
				assert.Equal(t, before+1, hits.Load())
			} else {
				assert.Equal(t, before, hits.Load())
			}
		})
	}
}

func TestBus_Emit_RegistrationOrder(t *testing.T) {
	bus := newBus(t)

	var order []string
	record := func(name string) event.Listener {
		return func(context.Context, *event.Event) error {
			order = append(order, name)
			return nil
		}
	}

	// Interleave exact and wildcard subscriptions; they live in different
	// trie branches but must still fire in registration order.
	bus.On(event.MustParsePath("x.*"), record("first"))
	bus.On(event.MustParsePath("x.y"), record("second"))
	bus.On(event.MustParsePath("*.y"), record("third"))
	bus.On(event.MustParsePath("x.y"), record("fourth"))

	require.NoError(t, bus.Emit(context.Background(), event.MustParsePath("x.y"), nil))
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, order)
}

func TestBus_Emit_Payload(t *testing.T) {
	bus := newBus(t)

	var got *event.Event
	bus.On(event.MustParsePath("a"), func(_ context.Context, evt *event.Event) error {
		got = evt
		return nil
	})

	require.NoError(t, bus.Emit(context.Background(), event.MustParsePath("a"), 42))
	require.NotNil(t, got)
	assert.Equal(t, 42, got.Payload)
	assert.Equal(t, "a", got.Path.Collapse())
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Timestamp.IsZero())
}

func TestBus_Once(t *testing.T) {
	bus := newBus(t)
	ctx := context.Background()
	path := event.MustParsePath("a.b")

	var hits atomic.Int32
	sub := bus.Once(path, counter(&hits))
	assert.Equal(t, 1, sub.Remaining())

	require.NoError(t, bus.Emit(ctx, path, nil))
	require.NoError(t, bus.Emit(ctx, path, nil))

	assert.Equal(t, int32(1), hits.Load())
	assert.False(t, sub.Active())
	assert.Equal(t, 0, bus.Listeners(path))
}

func TestBus_Once_ConcurrentEmissions(t *testing.T) {
	bus := newBus(t)
	ctx := context.Background()
	path := event.MustParsePath("race")

	var hits atomic.Int32
	bus.Once(path, counter(&hits))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.EmitAsync(ctx, path, nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
}

func TestBus_TTL(t *testing.T) {
	tests := []struct {
		name     string
		ttl      int
		emits    int
		expected int32
	}{
		{"ttl 3 of 5", 3, 5, 3},
		{"ttl 1", 1, 4, 1},
		{"unlimited", event.Unlimited, 6, 6},
		{"zero is unlimited", 0, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := newBus(t)
			path := event.MustParsePath("tick")

			var hits atomic.Int32
			bus.On(path, counter(&hits), event.WithTTL(tt.ttl))

			for range tt.emits {
				require.NoError(t, bus.Emit(context.Background(), path, nil))
			}
			assert.Equal(t, tt.expected, hits.Load())
		})
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := newBus(t)
	ctx := context.Background()
	path := event.MustParsePath("a.*")

	var hits atomic.Int32
	sub := bus.On(path, counter(&hits))

	require.NoError(t, bus.Emit(ctx, event.MustParsePath("a.b"), nil))
	sub.Unsubscribe()
	sub.Unsubscribe()
	require.NoError(t, bus.Emit(ctx, event.MustParsePath("a.b"), nil))

	assert.Equal(t, int32(1), hits.Load())
	assert.False(t, sub.Active())

	var nilSub *event.Subscription
	assert.NotPanics(t, nilSub.Unsubscribe)
}

func TestBus_ListenerErrorsDoNotStopOthers(t *testing.T) {
	bus := newBus(t)
	path := event.MustParsePath("a")
	errBoom := errors.New("boom")

	var hits atomic.Int32
	bus.On(path, func(context.Context, *event.Event) error { return errBoom })
	bus.On(path, func(context.Context, *event.Event) error { panic("kaboom") })
	bus.On(path, counter(&hits))

	err := bus.Emit(context.Background(), path, nil)

	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.ErrorIs(t, err, errBoom)

	var panicErr *event.PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "kaboom", panicErr.Value)

	var listenerErr *event.ListenerError
	require.ErrorAs(t, err, &listenerErr)
	assert.Equal(t, "a", listenerErr.Path)
}

func TestBus_EmitAsync_RunsConcurrently(t *testing.T) {
	bus := newBus(t)
	path := event.MustParsePath("fan.out")

	// Each listener waits for the other; sequential execution would deadlock.
	var ready sync.WaitGroup
	ready.Add(2)
	listener := func(ctx context.Context, _ *event.Event) error {
		ready.Done()
		ready.Wait()
		return nil
	}
	bus.On(path, listener)
	bus.On(path, listener)

	done := make(chan error, 1)
	go func() { done <- bus.EmitAsync(context.Background(), path, nil) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("EmitAsync did not run listeners concurrently")
	}
}

func TestBus_EmitAsync_MaxConcurrency(t *testing.T) {
	bus := event.NewBus(event.BusConfig{MaxConcurrency: 1})
	defer bus.Close()
	path := event.MustParsePath("limited")

	var running, peak atomic.Int32
	listener := func(context.Context, *event.Event) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return nil
	}
	for range 4 {
		bus.On(path, listener)
	}

	require.NoError(t, bus.EmitAsync(context.Background(), path, nil))
	assert.Equal(t, int32(1), peak.Load())
}

func TestBus_EmitFuture(t *testing.T) {
	bus := newBus(t)
	path := event.MustParsePath("later")

	release := make(chan struct{})
	var hits atomic.Int32
	bus.On(path, func(context.Context, *event.Event) error {
		<-release
		hits.Add(1)
		return nil
	})

	f := bus.EmitFuture(context.Background(), path, nil)

	// The caller is not blocked by the listener.
	assert.Equal(t, int32(0), hits.Load())
	assert.NoError(t, f.Err())
	select {
	case <-f.Done():
		t.Fatal("future resolved before listener returned")
	default:
	}

	close(release)
	require.NoError(t, f.Wait(context.Background()))
	assert.Equal(t, int32(1), hits.Load())
}

func TestBus_EmitFuture_OutlivesCallerContext(t *testing.T) {
	bus := newBus(t)
	path := event.MustParsePath("detached")

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	var sawCancel atomic.Bool
	bus.On(path, func(ctx context.Context, _ *event.Event) error {
		<-release
		sawCancel.Store(ctx.Err() != nil)
		return nil
	})

	f := bus.EmitFuture(ctx, path, nil)
	cancel()
	close(release)

	require.NoError(t, f.Wait(context.Background()))
	assert.False(t, sawCancel.Load())
}

func TestBus_EmitFuture_WaitRespectsContext(t *testing.T) {
	bus := newBus(t)
	path := event.MustParsePath("slow")

	release := make(chan struct{})
	bus.On(path, func(context.Context, *event.Event) error {
		<-release
		return nil
	})

	f := bus.EmitFuture(context.Background(), path, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.Wait(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, f.Wait(context.Background()))
}

func TestBus_EmitFuture_CollectsErrors(t *testing.T) {
	bus := newBus(t)
	path := event.MustParsePath("bad")
	errBoom := errors.New("boom")

	bus.On(path, func(context.Context, *event.Event) error { return errBoom })

	err := bus.EmitFuture(context.Background(), path, nil).Wait(context.Background())
	assert.ErrorIs(t, err, errBoom)
}

func TestBus_Listeners(t *testing.T) {
	bus := newBus(t)

	noop := func(context.Context, *event.Event) error { return nil }
	bus.On(event.MustParsePath("a.b"), noop)
	bus.On(event.MustParsePath("a.*"), noop)
	bus.On(event.MustParsePath("*.*"), noop)
	bus.On(event.MustParsePath("a"), noop)

	assert.Equal(t, 3, bus.Listeners(event.MustParsePath("a.b")))
	assert.Equal(t, 2, bus.Listeners(event.MustParsePath("a.c")))
	assert.Equal(t, 1, bus.Listeners(event.MustParsePath("a")))
	assert.Equal(t, 0, bus.Listeners(event.MustParsePath("b")))
}

func TestBus_Close(t *testing.T) {
	bus := event.NewBus(event.BusConfig{})
	ctx := context.Background()
	path := event.MustParsePath("a")

	var hits atomic.Int32
	sub := bus.On(path, counter(&hits))

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Emit(ctx, path, nil), event.ErrBusClosed)
	assert.ErrorIs(t, bus.EmitAsync(ctx, path, nil), event.ErrBusClosed)
	assert.ErrorIs(t, bus.EmitFuture(ctx, path, nil).Wait(ctx), event.ErrBusClosed)
	assert.Nil(t, bus.On(path, counter(&hits)))
	assert.False(t, sub.Active())
	assert.Equal(t, int32(0), hits.Load())
}

func TestBus_OnNilListenerPanics(t *testing.T) {
	bus := newBus(t)
	assert.Panics(t, func() {
		bus.On(event.MustParsePath("a"), nil)
	})
}

func TestBusConfigFrom(t *testing.T) {
	cfg := config.New(map[string]any{"max_concurrency": 4})
	assert.Equal(t, 4, event.BusConfigFrom(cfg).MaxConcurrency)
	assert.Equal(t, 0, event.BusConfigFrom(config.New(nil)).MaxConcurrency)
}

func TestDefault(t *testing.T) {
	assert.Same(t, event.Default(), event.Default())
}
