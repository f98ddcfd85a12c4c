// Package event publishes registry lifecycle events.
//
// # Overview
//
// A registry configured with a Sink reports every admission, eviction,
// singleton reuse, rejection and argument mismatch as an Event. The
// LocalBus sink fans events out to subscribers:
//
//	bus := event.NewBus(event.BusConfig{BufferSize: 64})
//	defer bus.Close()
//
//	sub := bus.Subscribe([]event.Type{event.TypeEvicted}, event.HandlerFunc(
//	    func(ctx context.Context, evt event.Event) error {
//	        log.Printf("evicted %s from %s", evt.InstanceID, evt.Registry)
//	        return nil
//	    }))
//	defer sub.Unsubscribe()
//
//	reg, _ := limiton.New[Conn](policy, limiton.WithEvents(bus))
//
// # Delivery
//
// Each subscription owns a buffered channel and a goroutine, so handlers
// run asynchronously and in publish order per subscription. In blocking
// mode (the default) Publish waits for buffer space; with NonBlocking
// set it drops the event and calls OnDrop instead.
//
// Events carry identifiers only, never the instances themselves, so a
// slow subscriber cannot extend an evicted instance's lifetime.
package event
