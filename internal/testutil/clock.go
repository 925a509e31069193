package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the wall time DeterministicClock starts from when none is
// given: noon UTC on a fixed Monday.
var DefaultEpoch = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

// DeterministicClock is a logical clock that also yields wall times for
// stores and engines under test.
//
// Each Next() or Now() advances the logical sequence by one; Now() maps the
// sequence n to epoch + n*step. Two clocks built with the same arguments
// produce identical timestamps for the same call sequence, which keeps
// golden output stable.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	seq   int64
	epoch time.Time
	step  time.Duration
}

// NewDeterministicClock creates a clock at sequence 0.
// A zero epoch means DefaultEpoch; a non-positive step means one second.
func NewDeterministicClock(epoch time.Time, step time.Duration) *DeterministicClock {
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}
	if step <= 0 {
		step = time.Second
	}
	return &DeterministicClock{epoch: epoch.UTC(), step: step}
}

// Next increments and returns the next sequence number.
// The first call returns 1.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Now advances the clock and returns the corresponding wall time.
// Suitable for store.WithNow and engine.WithNow.
func (c *DeterministicClock) Now() time.Time {
	return c.at(c.Next())
}

// Peek returns the wall time of the current sequence without advancing.
func (c *DeterministicClock) Peek() time.Time {
	return c.at(c.Current())
}

func (c *DeterministicClock) at(seq int64) time.Time {
	return c.epoch.Add(time.Duration(seq) * c.step)
}

// Reset resets the clock to 0.
//
// Used for test reuse. After Reset(), the next call to Next() returns 1.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
