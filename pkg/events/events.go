package events

import (
	"sync"
	"time"
)

// Type identifies the kind of event.
type Type string

const (
	CollectionCreated Type = "collection.created"
	CollectionDeleted Type = "collection.deleted"
	DocumentInserted  Type = "document.inserted"
	DocumentUpdated   Type = "document.updated"
	DocumentDeleted   Type = "document.deleted"
)

// Event is one lifecycle notification.
type Event struct {
	Type       Type
	Collection string
	DocumentID string // empty for collection-level events
	// Size is the serialized document size in bytes, for
	// DocumentInserted/DocumentUpdated; for DocumentUpdated it is the
	// signed delta against the previous size, not the new total.
	Size      int64
	Timestamp time.Time
}

// Bus is a single-consumer event channel. Producers (collections) call
// Publish; exactly one consumer (the store's metadata writer) should
// range over Events(). Publish never blocks: a full channel drops the
// event and increments the drop counter, since a missed debounce tick
// just means the next one picks up the latest state.
type Bus struct {
	ch chan Event

	mu      sync.Mutex
	dropped uint64
}

// NewBus creates a Bus with the given channel buffer depth.
func NewBus(buffer int) *Bus {
	return &Bus{ch: make(chan Event, buffer)}
}

// Publish sends an event, setting Timestamp if unset. Non-blocking.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case b.ch <- e:
	default:
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
	}
}

// Events returns the receive side of the channel for the single consumer.
func (b *Bus) Events() <-chan Event {
	return b.ch
}

// Dropped returns the number of events dropped due to a full buffer.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close closes the channel. Only the owner of the Bus, never a producer,
// should call this, after all producers have stopped publishing.
func (b *Bus) Close() {
	close(b.ch)
}

// Debouncer coalesces bursts of events into a single callback invocation
// no more often than every interval, used to batch store metadata writes
// so a bulk insert doesn't fsync the metadata file per document.
type Debouncer struct {
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	pending bool
	timer   *time.Timer
}

// NewDebouncer returns a Debouncer that calls fn at most once per interval.
func NewDebouncer(interval time.Duration, fn func()) *Debouncer {
	return &Debouncer{interval: interval, fn: fn}
}

// Trigger schedules a call to fn within interval if one isn't already
// pending. Safe for concurrent use.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending {
		return
	}
	d.pending = true
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		d.pending = false
		d.mu.Unlock()
		d.fn()
	})
}

// Stop cancels any pending invocation.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
}

// Consume drains the bus, triggering the debouncer for every event, until
// the bus's channel is closed. Intended to run in its own goroutine,
// started by the store that owns both the Bus and Debouncer.
func Consume(bus *Bus, deb *Debouncer) {
	for range bus.Events() {
		deb.Trigger()
	}
}
