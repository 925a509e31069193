package engine

import (
	"sync"

	"github.com/roach88/shortlist/internal/view"
)

// Source names what produced a published view.
type Source string

const (
	SourceLoad       Source = "load"
	SourceOptimistic Source = "optimistic"
	SourceRollback   Source = "rollback"
	SourceConfirmed  Source = "confirmed"
	SourceRefresh    Source = "refresh"
)

// Update is one publication of the view cell.
//
// Err is non-nil when the publication carries a problem observers should
// surface: a refresh that found inconsistent data, or a failed refresh (in
// which case View is the unchanged current view).
type Update struct {
	Generation int64
	Source     Source
	View       *view.DerivedView
	Err        error
}

// viewCell holds the current view and its generation.
//
// Publications are totally ordered by generation. publishIf implements
// compare-and-swap on the generation so stale computations lose.
type viewCell struct {
	mu      sync.Mutex
	clock   *Clock
	gen     int64
	v       *view.DerivedView
	subs    map[int]chan Update
	nextSub int

	// onPublish is called under mu with each new generation.
	onPublish func(gen int64)
}

func newViewCell(clock *Clock, onPublish func(int64)) *viewCell {
	return &viewCell{
		clock:     clock,
		subs:      make(map[int]chan Update),
		onPublish: onPublish,
	}
}

// current returns the view and the generation it was published at.
// The returned view must not be modified.
func (c *viewCell) current() (*view.DerivedView, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v, c.gen
}

// publish unconditionally installs v and returns its generation.
func (c *viewCell) publish(v *view.DerivedView, src Source, err error) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.installLocked(v, src, err)
}

// publishIf installs v only if no publication happened since expect.
func (c *viewCell) publishIf(expect int64, v *view.DerivedView, src Source, err error) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != expect {
		return c.gen, false
	}
	return c.installLocked(v, src, err), true
}

// update derives the next view from the current one under the lock.
// It is a no-op before the first load.
func (c *viewCell) update(fn func(*view.DerivedView) *view.DerivedView, src Source) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.v == nil {
		return c.gen, false
	}
	return c.installLocked(fn(c.v), src, nil), true
}

// report sends err to observers without changing the view.
func (c *viewCell) report(src Source, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcastLocked(Update{Generation: c.gen, Source: src, View: c.v, Err: err})
}

func (c *viewCell) installLocked(v *view.DerivedView, src Source, err error) int64 {
	c.gen = c.clock.Next()
	c.v = v
	if c.onPublish != nil {
		c.onPublish(c.gen)
	}
	c.broadcastLocked(Update{Generation: c.gen, Source: src, View: v, Err: err})
	return c.gen
}

// broadcastLocked delivers u to every subscriber. A full subscriber loses its
// oldest pending update, so the newest one always gets through.
func (c *viewCell) broadcastLocked(u Update) {
	for _, ch := range c.subs {
		out := u
		out.View = u.View.Clone()
		select {
		case ch <- out:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- out:
		default:
		}
	}
}

func (c *viewCell) subscribe(buffer int) (<-chan Update, func()) {
	if buffer < 1 {
		buffer = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan Update, buffer)
	c.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}
