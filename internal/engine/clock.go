package engine

import "sync/atomic"

// Clock hands out transaction sequence numbers. Every outermost
// transaction (a mutation, a batch, undo or redo) ticks it once, and the
// history entry it pushes carries that seq. Ordering never depends on wall
// time.
type Clock struct {
	last atomic.Int64
}

// NewClock returns a clock whose first tick is 1.
func NewClock() *Clock { return NewClockAt(0) }

// NewClockAt returns a clock resuming after seq, e.g. when a store is
// rebuilt from persisted facts and numbering must continue.
func NewClockAt(seq int64) *Clock {
	c := new(Clock)
	c.last.Store(seq)
	return c
}

// Next ticks the clock and returns the new seq.
func (c *Clock) Next() int64 { return c.last.Add(1) }

// Current reports the last seq handed out, 0 if none.
func (c *Clock) Current() int64 { return c.last.Load() }
