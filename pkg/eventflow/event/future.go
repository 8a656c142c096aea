package event

import (
	"context"
	"sync"
)

// Future is the handle of a scheduled emission. Awaiting it is optional.
type Future struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done is closed once every listener has returned.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the emission completes or ctx is done.
// It returns the joined listener errors, or ctx.Err().
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the emission result, or nil while it is still running.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}
