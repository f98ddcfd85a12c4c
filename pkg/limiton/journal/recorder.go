package journal

import (
	"context"

	"github.com/randalmurphal/limiton/pkg/limiton/event"
)

// Recorder writes events into a Store.
//
// It is an event.Handler, for use as a bus subscription, and an
// event.Sink, for journaling a registry synchronously:
//
//	store, _ := journal.NewSQLiteStore("./journal.db")
//	rec := journal.NewRecorder(store)
//	sub, _ := bus.SubscribeAll(rec)
//	defer sub.Unsubscribe()
type Recorder struct {
	store Store
}

// Compile-time interface checks.
var (
	_ event.Handler = (*Recorder)(nil)
	_ event.Sink    = (*Recorder)(nil)
)

// NewRecorder creates a Recorder backed by store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Handle implements event.Handler.
func (r *Recorder) Handle(_ context.Context, evt event.Event) error {
	return r.store.Append(FromEvent(evt))
}

// Publish implements event.Sink.
func (r *Recorder) Publish(ctx context.Context, evt event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.store.Append(FromEvent(evt))
}
