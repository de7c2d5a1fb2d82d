package testutil

import "sync"

// SequenceClock hands out the step numbers of a scenario trace.
//
// Two runs of the same scenario get the same numbers, so their traces can be
// compared byte for byte. The first Next returns 1.
type SequenceClock struct {
	mu  sync.Mutex
	seq int64
}

// NewSequenceClock returns a clock at 0.
func NewSequenceClock() *SequenceClock {
	return &SequenceClock{}
}

// Next advances the clock and returns the new value.
func (c *SequenceClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last value handed out, or 0.
func (c *SequenceClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock so the next call to Next returns 1 again.
func (c *SequenceClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
