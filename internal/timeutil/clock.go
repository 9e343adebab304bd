// Package timeutil provides a testable abstraction over wall-clock reads.
package timeutil

import (
	"sync"
	"time"
)

// Clock provides the current time. Analysis runs and cache imports take a
// Clock so their timestamps and durations are deterministic under test.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the duration since t.
	Since(t time.Time) time.Duration
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t.
func (RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// MockClock is a manually controlled clock for testing.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a new MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mock's current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Since returns the mock time elapsed since t.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// steppingClock advances by a fixed step on every Now call.
type steppingClock struct {
	*MockClock
	step time.Duration
}

// NewSteppingClock returns a MockClock-backed Clock that advances by step
// after each Now. Useful when code under test measures its own duration.
func NewSteppingClock(start time.Time, step time.Duration) Clock {
	return &steppingClock{MockClock: NewMockClock(start), step: step}
}

func (c *steppingClock) Now() time.Time {
	t := c.MockClock.Now()
	c.Advance(c.step)
	return t
}

func (c *steppingClock) Since(t time.Time) time.Duration {
	return c.MockClock.Now().Sub(t)
}
