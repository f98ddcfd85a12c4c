// Package journal keeps an append-only audit trail of registry lifecycle events.
//
// The journal records what happened to a registry (admissions, evictions,
// rejections); it does not hold instances and cannot restore a registry.
package journal

import (
	"errors"
	"time"

	"github.com/randalmurphal/limiton/pkg/limiton/event"
)

// Store persists lifecycle records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append stores a record. Appending a record whose EventID is
	// already stored is a no-op.
	Append(rec Record) error

	// List returns all records for a registry in append order.
	// Returns empty slice (not error) if the registry has no records.
	List(registry string) ([]Record, error)

	// Count returns how many records of the given type a registry has.
	Count(registry string, typ event.Type) (int, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Record is one journaled lifecycle event.
type Record struct {
	// Position is the store-assigned append position, starting at 1.
	Position   int64
	EventID    string
	Type       event.Type
	Registry   string
	InstanceID string
	Sequence   uint64
	Occupancy  int
	Capacity   int
	Timestamp  time.Time
}

// FromEvent converts an event into a record ready to append.
func FromEvent(evt event.Event) Record {
	return Record{
		EventID:    evt.ID,
		Type:       evt.Type,
		Registry:   evt.Registry,
		InstanceID: evt.InstanceID,
		Sequence:   evt.Sequence,
		Occupancy:  evt.Occupancy,
		Capacity:   evt.Capacity,
		Timestamp:  evt.Timestamp.UTC(),
	}
}

// Sentinel errors for journal operations.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("journal store closed")

	// ErrMissingEventID indicates a record without an event ID.
	ErrMissingEventID = errors.New("record has no event ID")
)
