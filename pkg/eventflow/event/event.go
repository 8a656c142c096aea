package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one emission delivered to listeners.
type Event struct {
	// ID uniquely identifies the emission.
	ID string
	// Path is the concrete path that was emitted.
	Path Path
	// Payload is whatever the emitter attached, e.g. a task handle.
	Payload any
	// Timestamp is when the emission was made.
	Timestamp time.Time
}

// NewEvent creates an event with a fresh ID.
func NewEvent(path Path, payload any) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Path:      path.Clone(),
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Listener reacts to an emission.
// A listener may be invoked concurrently with itself by EmitAsync and
// EmitFuture and must tolerate that.
type Listener func(ctx context.Context, evt *Event) error
