// Package blobstore persists original and derived verification images and
// emits created-object events so downstream processing stays decoupled from
// the ingest path.
package blobstore

import (
	"context"
	"time"
)

// Store is the byte-storage abstraction shared by the orchestrator, the
// optimizer, and the deletion coordinator.
type Store interface {
	// Put writes data under key, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte) error
	// Get returns the object bytes, or sentinel.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes an object. Deleting a missing object is not an error;
	// lifecycle rules may have reclaimed it first.
	Delete(ctx context.Context, key string) error
	// Health reports whether the store is usable.
	Health(ctx context.Context) error
}

// Event describes one newly written object.
type Event struct {
	Key string
	At  time.Time
}

// Notifier fans created-object events out to consumers over a buffered
// channel. Publishing never blocks the writer: a full queue drops the event,
// which downstream treats as a missed optimization, not a failure.
type Notifier struct {
	events chan Event
	// dropped is called when the queue is full; wired to a metric/log by main.
	dropped func(Event)
}

// NewNotifier creates a notifier with the given queue depth.
func NewNotifier(size int, dropped func(Event)) *Notifier {
	if size <= 0 {
		size = 64
	}
	return &Notifier{events: make(chan Event, size), dropped: dropped}
}

// Publish offers an event to consumers without blocking.
func (n *Notifier) Publish(evt Event) {
	if n == nil {
		return
	}
	select {
	case n.events <- evt:
	default:
		if n.dropped != nil {
			n.dropped(evt)
		}
	}
}

// Events exposes the consumer side of the queue.
func (n *Notifier) Events() <-chan Event {
	return n.events
}

// Close releases the queue. Consumers drain remaining events before exiting.
func (n *Notifier) Close() {
	close(n.events)
}
