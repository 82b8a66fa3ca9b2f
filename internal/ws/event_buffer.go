package ws

import (
	"sync"
	"time"
)

const (
	defaultBufferMaxLen = 256
	defaultBufferMaxAge = 1 * time.Hour
)

// EventBuffer stores recent events for replay on reconnect. Events are
// appended in ID order.
type EventBuffer struct {
	mu     sync.RWMutex
	events []Event
	maxAge time.Duration
	maxLen int
	now    func() time.Time
}

// NewEventBuffer creates an EventBuffer with the given limits.
func NewEventBuffer(maxLen int, maxAge time.Duration) *EventBuffer {
	return &EventBuffer{maxAge: maxAge, maxLen: maxLen, now: time.Now}
}

// Append stores an event, evicting expired and overflow entries.
func (eb *EventBuffer) Append(event *Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.evictExpired()

	eb.events = append(eb.events, *event)
	if len(eb.events) > eb.maxLen {
		eb.events = eb.events[len(eb.events)-eb.maxLen:]
	}
}

// evictExpired drops events older than maxAge. Caller must hold eb.mu.
func (eb *EventBuffer) evictExpired() {
	cutoff := eb.now().Add(-eb.maxAge)

	start := 0
	for start < len(eb.events) && eb.events[start].Time.Before(cutoff) {
		start++
	}
	if start > 0 {
		eb.events = eb.events[start:]
	}
}

// Since returns a copy of all events with ID > lastEventID.
func (eb *EventBuffer) Since(lastEventID uint64) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Binary search for the first event with ID > lastEventID.
	lo, hi := 0, len(eb.events)
	for lo < hi {
		mid := (lo + hi) / 2
		if eb.events[mid].ID <= lastEventID {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	if lo >= len(eb.events) {
		return nil
	}

	result := make([]Event, len(eb.events)-lo)
	copy(result, eb.events[lo:])

	return result
}

// OldestID returns the oldest buffered event ID, or 0 if empty.
func (eb *EventBuffer) OldestID() uint64 {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if len(eb.events) == 0 {
		return 0
	}

	return eb.events[0].ID
}
