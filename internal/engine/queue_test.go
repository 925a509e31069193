package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shortlist/internal/ir"
)

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	q.Enqueue(Event{Type: EventTypeChange, Change: ir.Change{Log: ir.LogScores}})
	q.Enqueue(Event{Type: EventTypeSettled, Verb: "score"})
	q.Enqueue(Event{Type: EventTypeRefresh, Trigger: "manual"})

	e1, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, ir.LogScores, e1.Change.Log)

	e2, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "score", e2.Verb)

	e3, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "manual", e3.Trigger)

	_, ok = q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_WaitSignalsEnqueue(t *testing.T) {
	q := newEventQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(Event{Type: EventTypeRefresh})
	}()

	select {
	case <-q.Wait():
		_, ok := q.TryDequeue()
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("wait did not signal")
	}
}

func TestEventQueue_Close(t *testing.T) {
	q := newEventQueue()
	done := make(chan struct{})
	q.Enqueue(Event{Type: EventTypeRefresh})
	q.Enqueue(Event{Type: EventTypeBarrier, Done: done})

	q.Close()
	q.Close()

	assert.True(t, q.IsClosed())
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.Enqueue(Event{Type: EventTypeRefresh}), "enqueue after close should return false")

	select {
	case <-done:
	default:
		t.Fatal("queued barrier not released on close")
	}

	select {
	case <-q.Wait():
	default:
		t.Fatal("wait channel not closed")
	}
}

func TestEventQueue_HasWork(t *testing.T) {
	q := newEventQueue()
	assert.False(t, q.HasWork())

	q.Enqueue(Event{Type: EventTypeBarrier, Done: make(chan struct{})})
	assert.False(t, q.HasWork(), "barriers are not work")

	q.Enqueue(Event{Type: EventTypeRefresh})
	assert.True(t, q.HasWork())
}

func TestEventQueue_ThreadSafe(t *testing.T) {
	q := newEventQueue()

	const producers = 10
	const eventsPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < eventsPerProducer; i++ {
				q.Enqueue(Event{Type: EventTypeChange})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*eventsPerProducer, q.Len())
	n := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		n++
	}
	assert.Equal(t, producers*eventsPerProducer, n)
}
