package table

import "sync"

// Table is a concurrency-safe insert-only map.
// It uses sync.RWMutex since lookups dominate after warm-up.
type Table[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New creates a new empty table.
func New[K comparable, V any]() *Table[K, V] {
	return &Table[K, V]{
		entries: make(map[K]V),
	}
}

// Lookup returns the value for a key and whether it exists.
func (t *Table[K, V]) Lookup(key K) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[key]
	return v, ok
}

// Has returns true if the key exists in the table.
func (t *Table[K, V]) Has(key K) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[key]
	return ok
}

// Insert stores value under key unless the key is already present.
// It returns the stored value and whether this call inserted it.
func (t *Table[K, V]) Insert(key K, value V) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.entries[key]; ok {
		return existing, false
	}
	t.entries[key] = value
	return value, true
}

// LoadOrCreate returns the value for key, creating it with create if it
// doesn't exist. create is called at most once per successful key, even
// under concurrent access; a failed create stores nothing.
func (t *Table[K, V]) LoadOrCreate(key K, create func() (V, error)) (V, bool, error) {
	// Fast path: already present
	t.mu.RLock()
	v, ok := t.entries[key]
	t.mu.RUnlock()
	if ok {
		return v, false, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Double-check after acquiring write lock
	if v, ok := t.entries[key]; ok {
		return v, false, nil
	}

	v, err := create()
	if err != nil {
		var zero V
		return zero, false, err
	}
	t.entries[key] = v
	return v, true, nil
}

// Keys returns all keys in the table.
// The order is not guaranteed.
func (t *Table[K, V]) Keys() []K {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]K, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries in the table.
func (t *Table[K, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Range calls fn for each entry of a snapshot of the table until fn
// returns false.
func (t *Table[K, V]) Range(fn func(K, V) bool) {
	t.mu.RLock()
	snapshot := make(map[K]V, len(t.entries))
	for k, v := range t.entries {
		snapshot[k] = v
	}
	t.mu.RUnlock()

	for k, v := range snapshot {
		if !fn(k, v) {
			return
		}
	}
}
