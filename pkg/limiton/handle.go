package limiton

import (
	"sync/atomic"
	"time"
	"weak"
)

// slot is the registry's strong ownership of one resident instance.
// value is cleared on eviction; handles reach the slot only weakly.
type slot[T any] struct {
	id         string
	seq        uint64
	admittedAt time.Time
	args       any
	hasArgs    bool
	value      atomic.Pointer[T]
}

// evict drops the slot's ownership. Handles report ErrExpired afterwards.
func (s *slot[T]) evict() {
	s.value.Store(nil)
}

// Handle is a non-owning reference to an instance held by a registry.
//
// A Handle never keeps its instance alive: it expires as soon as the
// instance is evicted, or once the registry itself is unreachable and
// has been garbage collected. The zero Handle is expired.
//
// Handles are small values and safe to copy and to share between
// goroutines.
type Handle[T any] struct {
	ref weak.Pointer[slot[T]]
	id  string
	seq uint64
}

func newHandle[T any](s *slot[T]) Handle[T] {
	return Handle[T]{
		ref: weak.Make(s),
		id:  s.id,
		seq: s.seq,
	}
}

// Get returns the instance while it is resident, or ErrExpired.
//
// The returned pointer is an ordinary strong reference; callers that
// keep it around keep the instance alive after eviction. Prefer Do for
// short-lived access.
func (h Handle[T]) Get() (*T, error) {
	s := h.ref.Value()
	if s == nil {
		return nil, ErrExpired
	}
	v := s.value.Load()
	if v == nil {
		return nil, ErrExpired
	}
	return v, nil
}

// Do calls fn with the instance while it is resident.
// Returns ErrExpired without calling fn otherwise.
func (h Handle[T]) Do(fn func(*T) error) error {
	v, err := h.Get()
	if err != nil {
		return err
	}
	return fn(v)
}

// Expired reports whether the instance is no longer resident.
func (h Handle[T]) Expired() bool {
	_, err := h.Get()
	return err != nil
}

// ID returns the instance ID assigned at admission. Empty for the zero Handle.
func (h Handle[T]) ID() string {
	return h.id
}

// Sequence returns the admission sequence number of the instance,
// starting at 1 for each registry. Zero for the zero Handle.
func (h Handle[T]) Sequence() uint64 {
	return h.seq
}
