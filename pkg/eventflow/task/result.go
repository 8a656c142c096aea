package task

// Result is what a task's single result slot delivers.
//
// Status is always one of Finished, Failed or Cancelled. Value is meaningful
// only when Status is Finished; a finished task may still carry the zero
// value, which is distinct from a failed one.
type Result[T any] struct {
	Status Status
	Value  T
}

// Ok reports whether the task finished.
func (r Result[T]) Ok() bool {
	return r.Status == Finished
}

// Get returns the value and whether the task finished.
func (r Result[T]) Get() (T, bool) {
	return r.Value, r.Ok()
}
