package engine

import "sync/atomic"

// Clock hands out view generations.
//
// Every publication into the view cell is stamped with Next(), so a larger
// generation always means a later view. Generations are never reused, even
// when a rollback republishes an earlier value.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next generation and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the latest generation handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
