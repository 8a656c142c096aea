package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for paths and the bus.
var (
	// ErrInvalidSegment indicates a path segment was empty or contained the delimiter.
	ErrInvalidSegment = errors.New("invalid path segment")

	// ErrBusClosed indicates an emission on a closed bus.
	ErrBusClosed = errors.New("bus is closed")
)

// SegmentError describes a rejected path segment.
type SegmentError struct {
	// Segment is the rejected value.
	Segment string
	// Reason says why it was rejected.
	Reason string
}

// Error implements the error interface.
func (e *SegmentError) Error() string {
	return fmt.Sprintf("invalid path segment %q: %s", e.Segment, e.Reason)
}

// Unwrap returns ErrInvalidSegment for errors.Is support.
func (e *SegmentError) Unwrap() error {
	return ErrInvalidSegment
}

// ListenerError wraps a failure returned (or panicked) by one listener
// during an emission.
type ListenerError struct {
	// Path is the emitted path.
	Path string
	// SubscriptionID identifies the failing subscription.
	SubscriptionID uint64
	// Err is the listener's error.
	Err error
	// Stack is set when the listener panicked.
	Stack string
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %d on %s: %v", e.SubscriptionID, e.Path, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// PanicError captures a value recovered from a panicking listener.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
