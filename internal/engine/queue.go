package engine

import (
	"sync"

	"github.com/roach88/shortlist/internal/ir"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeChange is a store change notification.
	EventTypeChange EventType = iota + 1
	// EventTypeSettled is posted when a verb resolves.
	EventTypeSettled
	// EventTypeRefresh is a refresh request.
	EventTypeRefresh
	// EventTypeBarrier completes once every earlier event is processed.
	EventTypeBarrier
)

// Event is one unit of work for the Run loop.
type Event struct {
	Type EventType

	// Change is set for EventTypeChange.
	Change ir.Change

	// Verb names the resolved verb for EventTypeSettled.
	Verb string

	// Refresh asks for a refresh even when nothing is pending. Set for
	// EventTypeSettled after a commit or a failed bulk delete.
	Refresh bool

	// Trigger labels the refresh for EventTypeRefresh.
	Trigger string

	// Done is closed when an EventTypeBarrier is reached.
	Done chan struct{}
}

// eventQueue is a thread-safe FIFO queue for events.
//
// The queue is unbounded so verbs and the notification forwarder never block
// on the Run loop.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop (prevents goroutine hangs on context cancellation).
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Signal availability (non-blocking - buffer of 1 coalesces multiple signals)
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]

	// Nil out the slot so the backing array does not retain Done channels.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
// Use with select for context-aware waiting:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// HasWork reports whether any non-barrier event is queued.
func (q *eventQueue) HasWork() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.events {
		if e.Type != EventTypeBarrier {
			return true
		}
	}
	return false
}

// IsClosed reports whether Close has been called.
func (q *eventQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel. Barriers still
// queued are released so Settle callers do not hang.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	for _, e := range q.events {
		if e.Type == EventTypeBarrier && e.Done != nil {
			close(e.Done)
		}
	}
	q.events = nil
	close(q.signal)
}
