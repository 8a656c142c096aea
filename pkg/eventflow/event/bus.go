package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/randalmurphal/eventflow/pkg/eventflow/config"
	"github.com/randalmurphal/eventflow/pkg/eventflow/observability"
	"golang.org/x/sync/errgroup"
)

// Unlimited is the TTL of a persistent subscription.
const Unlimited = -1

// BusConfig configures bus behavior.
type BusConfig struct {
	// MaxConcurrency caps the listeners EmitAsync runs at once.
	// Default: 0 (unlimited)
	MaxConcurrency int

	// Logger receives listener failures. Default: slog.Default()
	Logger *slog.Logger

	// Metrics records emissions. Default: observability.NoopMetrics{}
	Metrics observability.MetricsRecorder
}

// BusConfigFrom reads a BusConfig from a config section:
//
//	max_concurrency: 8
func BusConfigFrom(cfg config.Config) BusConfig {
	return BusConfig{
		MaxConcurrency: cfg.Int("max_concurrency", 0),
	}
}

// Bus is an in-process publish-subscribe registry keyed by Path.
//
// Subscriptions may contain Wildcard segments; emissions are concrete. A
// subscription matches an emission when both have the same number of
// segments and every subscription segment is equal to the emitted one or is
// Wildcard.
//
// Bus is safe for concurrent use. Listeners run outside the bus lock.
type Bus struct {
	config BusConfig

	mu     sync.RWMutex
	root   *trieNode
	nextID uint64
	closed bool
}

// NewBus creates an empty bus.
func NewBus(config BusConfig) *Bus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = observability.NoopMetrics{}
	}
	return &Bus{
		config: config,
		root:   newTrieNode(),
	}
}

// Subscription is a registered listener.
type Subscription struct {
	id        uint64
	path      Path
	listener  Listener
	remaining int
	removed   bool
	bus       *Bus
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*Subscription)

// WithTTL removes the subscription after it has fired n times.
// n <= 0 means unlimited.
func WithTTL(n int) SubscribeOption {
	return func(s *Subscription) {
		if n <= 0 {
			s.remaining = Unlimited
			return
		}
		s.remaining = n
	}
}

// On registers a persistent listener at path. Returns nil if the bus is closed.
//
// Panics if listener is nil.
func (b *Bus) On(path Path, listener Listener, opts ...SubscribeOption) *Subscription {
	if listener == nil {
		panic("event: listener cannot be nil")
	}

	sub := &Subscription{
		path:      path.Clone(),
		listener:  listener,
		remaining: Unlimited,
		bus:       b,
	}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.nextID++
	sub.id = b.nextID
	b.root.insert(sub.path.segments, sub)
	return sub
}

// Once registers a listener that is removed after its first invocation.
func (b *Bus) Once(path Path, listener Listener) *Subscription {
	return b.On(path, listener, WithTTL(1))
}

// Listeners returns the number of subscriptions an emission at path would reach.
func (b *Bus) Listeners(path Path) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.root.collect(path.segments, nil))
}

// Close drops every subscription. Later emissions return ErrBusClosed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.root.each(func(s *Subscription) { s.removed = true })
	b.root = newTrieNode()
	return nil
}

// claim resolves the subscriptions for one emission in registration order and
// charges their TTL. Charging under the write lock is what makes Once fire
// exactly once when emissions race.
func (b *Bus) claim(path Path) ([]*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	subs := b.root.collect(path.segments, nil)
	slices.SortFunc(subs, func(a, c *Subscription) int {
		switch {
		case a.id < c.id:
			return -1
		case a.id > c.id:
			return 1
		}
		return 0
	})

	for _, sub := range subs {
		if sub.remaining == Unlimited {
			continue
		}
		sub.remaining--
		if sub.remaining == 0 {
			b.root.remove(sub.path.segments, sub)
			sub.removed = true
		}
	}
	return subs, nil
}

// Emit invokes every matching listener synchronously in registration order.
// A failing or panicking listener never stops the rest; all failures are
// logged and returned joined as *ListenerError values.
func (b *Bus) Emit(ctx context.Context, path Path, payload any) error {
	subs, err := b.claim(path)
	if err != nil {
		return err
	}

	evt := NewEvent(path, payload)
	var errs []error
	for _, sub := range subs {
		if err := b.invoke(ctx, sub, evt); err != nil {
			errs = append(errs, err)
		}
	}

	b.config.Metrics.RecordEmission(ctx, len(subs), len(errs))
	return errors.Join(errs...)
}

// EmitAsync invokes every matching listener concurrently and waits for all of
// them. Errors are collected as in Emit.
func (b *Bus) EmitAsync(ctx context.Context, path Path, payload any) error {
	subs, err := b.claim(path)
	if err != nil {
		return err
	}
	return b.dispatch(ctx, subs, NewEvent(path, payload))
}

// EmitFuture schedules an emission and returns immediately.
//
// Matching subscriptions are resolved before EmitFuture returns, so a listener
// registered afterwards is not reached. Listeners run with a context that keeps
// ctx's values but not its cancellation: the emission outlives the caller.
func (b *Bus) EmitFuture(ctx context.Context, path Path, payload any) *Future {
	f := newFuture()

	subs, err := b.claim(path)
	if err != nil {
		f.resolve(err)
		return f
	}

	evt := NewEvent(path, payload)
	detached := context.WithoutCancel(ctx)
	go func() {
		f.resolve(b.dispatch(detached, subs, evt))
	}()
	return f
}

func (b *Bus) dispatch(ctx context.Context, subs []*Subscription, evt *Event) error {
	var g errgroup.Group
	if b.config.MaxConcurrency > 0 {
		g.SetLimit(b.config.MaxConcurrency)
	}

	errs := make([]error, len(subs))
	for i, sub := range subs {
		g.Go(func() error {
			errs[i] = b.invoke(ctx, sub, evt)
			return nil
		})
	}
	_ = g.Wait()

	joined := errors.Join(errs...)
	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
		}
	}
	b.config.Metrics.RecordEmission(ctx, len(subs), failures)
	return joined
}

func (b *Bus) invoke(ctx context.Context, sub *Subscription, evt *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ListenerError{
				Path:           evt.Path.Collapse(),
				SubscriptionID: sub.id,
				Err:            &PanicError{Value: r},
				Stack:          string(debug.Stack()),
			}
		}
		if err != nil {
			observability.LogListenerError(b.config.Logger, evt.Path.Collapse(), sub.id, err)
		}
	}()

	if lerr := sub.listener(ctx, evt); lerr != nil {
		return &ListenerError{
			Path:           evt.Path.Collapse(),
			SubscriptionID: sub.id,
			Err:            lerr,
		}
	}
	return nil
}

// ID returns the subscription's registration number. Lower IDs fire first.
func (s *Subscription) ID() uint64 {
	return s.id
}

// Path returns the subscribed path.
func (s *Subscription) Path() Path {
	return s.path.Clone()
}

// Remaining returns how many more times the subscription fires, Unlimited for
// persistent subscriptions, or 0 once removed.
func (s *Subscription) Remaining() int {
	s.bus.mu.RLock()
	defer s.bus.mu.RUnlock()
	if s.removed {
		return 0
	}
	return s.remaining
}

// Active reports whether the subscription can still fire.
func (s *Subscription) Active() bool {
	return s.Remaining() != 0
}

// Unsubscribe removes the subscription. Safe to call more than once and on nil.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if s.removed {
		return
	}
	s.bus.root.remove(s.path.segments, s)
	s.removed = true
}

// String implements fmt.Stringer.
func (s *Subscription) String() string {
	return fmt.Sprintf("subscription %d on %s", s.id, s.path)
}
