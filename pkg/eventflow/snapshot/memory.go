package snapshot

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	tasks  map[string]map[int]*Snapshot // task ID -> step index -> snapshot
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]map[int]*Snapshot),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if m.tasks[s.TaskID] == nil {
		m.tasks[s.TaskID] = make(map[int]*Snapshot)
	}
	m.tasks[s.TaskID][s.Index] = s.clone()
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, taskID string, index int) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	s, ok := m.tasks[taskID][index]
	if !ok {
		return nil, ErrNotFound
	}
	return s.clone(), nil
}

// Latest implements Store.
func (m *MemoryStore) Latest(_ context.Context, taskID string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	var latest *Snapshot
	for _, s := range m.tasks[taskID] {
		if latest == nil || s.Index > latest.Index {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest.clone(), nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, taskID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	infos := make([]Info, 0, len(m.tasks[taskID]))
	for _, s := range m.tasks[taskID] {
		infos = append(infos, s.Info())
	}
	slices.SortFunc(infos, func(a, b Info) int { return a.Index - b.Index })
	return infos, nil
}

// DeleteTask implements Store.
func (m *MemoryStore) DeleteTask(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.tasks, taskID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.tasks = nil
	return nil
}

// Len returns the number of snapshots across all tasks.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, steps := range m.tasks {
		count += len(steps)
	}
	return count
}
