package journal

import (
	"sync"

	"github.com/randalmurphal/limiton/pkg/limiton/event"
)

// MemoryStore is an in-memory journal for tests and short-lived processes.
// Data is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	seen    map[string]struct{}
	closed  bool
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory journal.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seen: make(map[string]struct{}),
	}
}

// Append implements Store.
func (m *MemoryStore) Append(rec Record) error {
	if rec.EventID == "" {
		return ErrMissingEventID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if _, dup := m.seen[rec.EventID]; dup {
		return nil
	}

	rec.Position = int64(len(m.records) + 1)
	m.records = append(m.records, rec)
	m.seen[rec.EventID] = struct{}{}
	return nil
}

// List implements Store.
func (m *MemoryStore) List(registry string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	out := make([]Record, 0)
	for _, rec := range m.records {
		if rec.Registry == registry {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Count implements Store.
func (m *MemoryStore) Count(registry string, typ event.Type) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStoreClosed
	}

	n := 0
	for _, rec := range m.records {
		if rec.Registry == registry && rec.Type == typ {
			n++
		}
	}
	return n, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.records = nil
	m.seen = nil
	return nil
}
