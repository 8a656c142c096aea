package registry

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"
)

// Sentinel errors for registry lookups.
var (
	// ErrNotFound indicates a key is not registered.
	ErrNotFound = errors.New("not registered")

	// ErrDuplicate indicates Add was called with a key already registered.
	ErrDuplicate = errors.New("already registered")
)

// KeyError describes a failed lookup or insertion.
type KeyError[K cmp.Ordered] struct {
	Key K
	// Known lists the registered keys in order, for error messages.
	Known []K
	Err   error
}

// Error implements the error interface.
func (e *KeyError[K]) Error() string {
	if errors.Is(e.Err, ErrNotFound) {
		return fmt.Sprintf("%v %v (known: %v)", e.Key, e.Err, e.Known)
	}
	return fmt.Sprintf("%v %v", e.Key, e.Err)
}

// Unwrap returns the sentinel for errors.Is support.
func (e *KeyError[K]) Unwrap() error {
	return e.Err
}

// Registry is a thread-safe map from ordered keys to values.
// Keys are always reported in sorted order so listings and error messages are
// stable.
type Registry[K cmp.Ordered, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New creates an empty registry.
func New[K cmp.Ordered, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Register adds or replaces the value for key.
func (r *Registry[K, V]) Register(key K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = value
}

// Add registers value under key, failing with ErrDuplicate if key is taken.
func (r *Registry[K, V]) Add(key K, value V) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; ok {
		return &KeyError[K]{Key: key, Err: ErrDuplicate}
	}
	r.entries[key] = value
	return nil
}

// Get returns the value for key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Lookup returns the value for key, or a *KeyError wrapping ErrNotFound that
// lists the registered keys.
func (r *Registry[K, V]) Lookup(key K) (V, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.entries[key]; ok {
		return v, nil
	}
	var zero V
	return zero, &KeyError[K]{Key: key, Known: r.keysLocked(), Err: ErrNotFound}
}

// Has reports whether key is registered.
func (r *Registry[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Delete removes key.
func (r *Registry[K, V]) Delete(key K) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

// Keys returns the registered keys in sorted order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keysLocked()
}

func (r *Registry[K, V]) keysLocked() []K {
	return slices.Sorted(maps.Keys(r.entries))
}

// Len returns the number of entries.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// All iterates over a snapshot of the entries in key order. The registry may
// be modified during iteration without affecting it.
func (r *Registry[K, V]) All() iter.Seq2[K, V] {
	r.mu.RLock()
	snapshot := maps.Clone(r.entries)
	r.mu.RUnlock()

	return func(yield func(K, V) bool) {
		for _, k := range slices.Sorted(maps.Keys(snapshot)) {
			if !yield(k, snapshot[k]) {
				return
			}
		}
	}
}

// GetOrCreate returns the value for key, creating it with factory if absent.
// factory runs at most once per key even under concurrent access.
func (r *Registry[K, V]) GetOrCreate(key K, factory func() V) V {
	r.mu.RLock()
	v, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		return v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.entries[key]; ok {
		return v
	}
	v = factory()
	r.entries[key] = v
	return v
}
