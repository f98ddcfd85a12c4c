package event

import (
	"errors"
	"fmt"
)

// ErrBusClosed indicates Publish or Subscribe on a closed bus.
var ErrBusClosed = errors.New("event bus closed")

// ErrTooManySubscribers indicates the bus subscriber limit was reached.
var ErrTooManySubscribers = errors.New("subscriber limit reached")

// EventError represents an error while publishing an event.
type EventError struct {
	Event   Event  // The event that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements error interface.
func (e *EventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("event %s: %s: %v", e.Event.ID, e.Message, e.Err)
	}
	return fmt.Sprintf("event %s: %s", e.Event.ID, e.Message)
}

// Unwrap returns the underlying error.
func (e *EventError) Unwrap() error {
	return e.Err
}
