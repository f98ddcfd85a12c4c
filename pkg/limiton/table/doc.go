// Package table provides a concurrency-safe, insert-only table of values
// indexed by key.
//
// Table backs process-scoped lookups such as the per-type registries of a
// catalog: entries are created lazily, at most once per key, and live as
// long as the table. There is deliberately no Delete.
//
// # Lazy Creation
//
//	t := table.New[reflect.Type, *Entry]()
//	entry, created, err := t.LoadOrCreate(key, func() (*Entry, error) {
//	    return newEntry(key)
//	})
//
// The create function runs at most once per key even under concurrent
// access. If it fails, nothing is stored and a later call may retry.
//
// # Thread Safety
//
// All Table methods are safe for concurrent use. Range iterates over a
// snapshot, so the callback may insert into the table.
package table
