package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type identifies what happened to a registry.
type Type string

// Lifecycle event types.
const (
	TypeAdmitted   Type = "instance.admitted"
	TypeEvicted    Type = "instance.evicted"
	TypeReused     Type = "instance.reused"
	TypeRejected   Type = "acquire.rejected"
	TypeMismatched Type = "args.mismatched"
)

// Event describes one lifecycle transition of a registry.
// Events are immutable values.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Registry   string    `json:"registry"`
	InstanceID string    `json:"instance_id,omitempty"`
	Sequence   uint64    `json:"sequence,omitempty"`
	Occupancy  int       `json:"occupancy"`
	Capacity   int       `json:"capacity"`
	Timestamp  time.Time `json:"timestamp"`
}

// Option configures event creation.
type Option func(*Event)

// WithEventID sets a specific event ID (default: auto-generated UUID).
func WithEventID(id string) Option {
	return func(e *Event) {
		e.ID = id
	}
}

// WithTimestamp sets a specific timestamp (default: time.Now()).
func WithTimestamp(t time.Time) Option {
	return func(e *Event) {
		e.Timestamp = t
	}
}

// WithInstance attaches the affected instance's ID and admission sequence.
func WithInstance(id string, sequence uint64) Option {
	return func(e *Event) {
		e.InstanceID = id
		e.Sequence = sequence
	}
}

// WithOccupancy records the registry occupancy after the transition.
func WithOccupancy(occupancy, capacity int) Option {
	return func(e *Event) {
		e.Occupancy = occupancy
		e.Capacity = capacity
	}
}

// New creates an event of the given type for a registry.
func New(typ Type, registry string, opts ...Option) Event {
	e := Event{
		ID:        uuid.New().String(),
		Type:      typ,
		Registry:  registry,
		Timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Sink receives lifecycle events from a registry.
// Implementations must be safe for concurrent use.
type Sink interface {
	Publish(ctx context.Context, evt Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, evt Event) error

// Publish implements Sink.
func (f SinkFunc) Publish(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Handler processes events delivered by a subscription.
type Handler interface {
	Handle(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}
