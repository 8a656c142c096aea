package action

import "maps"

// State is the context a pipeline threads through its steps.
// It is owned by one pipeline run at a time and is not safe for concurrent use.
type State map[string]any

// Clone returns a shallow copy. A nil State clones to an empty one.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	return maps.Clone(s)
}

// Merge copies every entry of other into s, overwriting on conflict, and
// returns s. A nil receiver yields a new State.
func (s State) Merge(other State) State {
	if s == nil {
		s = make(State, len(other))
	}
	maps.Copy(s, other)
	return s
}

// Without returns a copy of s lacking the given keys.
func (s State) Without(keys ...string) State {
	out := s.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Value returns the entry at key as a T.
// ok is false when the key is missing or holds another type.
func Value[T any](s State, key string) (T, bool) {
	v, ok := s[key].(T)
	return v, ok
}
