package store

import (
	"context"
	"sync"

	"github.com/roach88/shortlist/internal/ir"
)

// subscriberBuffer bounds each subscription. Notifications carry no data,
// so dropping one when the buffer is full loses nothing a refresh will not
// recover.
const subscriberBuffer = 64

// broadcaster fans change notifications out to in-process subscribers.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[chan ir.Change]struct{}
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[chan ir.Change]struct{})}
}

func (b *broadcaster) subscribe(ctx context.Context) <-chan ir.Change {
	ch := make(chan ir.Change, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(ch)
	}()
	return ch
}

func (b *broadcaster) remove(ch chan ir.Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *broadcaster) publish(c ir.Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// Subscribe returns a channel that receives a notification after every
// committed write to any log, from any caller of this Store. The channel is
// closed when ctx is done or the Store is closed.
func (s *Store) Subscribe(ctx context.Context) (<-chan ir.Change, error) {
	return s.bus.subscribe(ctx), nil
}

func (s *Store) announce(kind ir.LogKind, op ir.ChangeOp) {
	s.bus.publish(ir.Change{Log: kind, Op: op, At: s.now()})
}
