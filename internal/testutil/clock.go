// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"sync"
	"time"
)

type (
	// FakeClock is a manually driven clock for deterministic tests of
	// time-dependent loops such as the change watcher. Time only advances when
	// Advance or Set is called.
	FakeClock struct {
		current time.Time
		mu      sync.Mutex
		waiters []waiter
		// waitCh is closed and replaced whenever a waiter registers, so
		// BlockUntil can sleep instead of spinning.
		waitCh chan struct{}
	}

	// waiter tracks a pending After() call.
	waiter struct {
		target time.Time
		ch     chan time.Time
	}
)

// NewFakeClock creates a FakeClock initialized to the given time.
// If initial is zero, defaults to a fixed reference time for reproducibility.
func NewFakeClock(initial time.Time) *FakeClock {
	if initial.IsZero() {
		// Use a fixed reference time for reproducibility in tests
		initial = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &FakeClock{current: initial, waitCh: make(chan struct{})}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After returns a channel that receives the time when the target time is reached.
// The channel receives when Advance() or Set() moves past the target time.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.current
		return ch
	}

	target := c.current.Add(d)
	c.waiters = append(c.waiters, waiter{target: target, ch: ch})
	if c.waitCh != nil {
		close(c.waitCh)
	}
	c.waitCh = make(chan struct{})
	return ch
}

// Waiters returns the number of pending After() calls.
func (c *FakeClock) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// BlockUntil waits until at least n After() calls are pending or timeout
// elapses, reporting whether the count was reached. Tests use it to know a
// loop has finished its cycle and is sleeping.
func (c *FakeClock) BlockUntil(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		c.mu.Lock()
		if len(c.waiters) >= n {
			c.mu.Unlock()
			return true
		}
		if c.waitCh == nil {
			c.waitCh = make(chan struct{})
		}
		ch := c.waitCh
		c.mu.Unlock()

		select {
		case <-ch:
		case <-deadline:
			return false
		}
	}
}

// Since returns the fake time elapsed since t.
func (c *FakeClock) Since(t time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Sub(t)
}

// Advance moves the fake time forward by d.
// This triggers any After() channels waiting for times before the new current.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = c.current.Add(d)
	c.notifyWaiters()
}

// Set sets the fake time to t.
// This triggers any After() channels waiting for times before the new current.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
	c.notifyWaiters()
}

// notifyWaiters notifies all waiters whose target time has been reached.
// Must be called with mu held.
func (c *FakeClock) notifyWaiters() {
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !c.current.Before(w.target) {
			// Target time reached, notify
			select {
			case w.ch <- c.current:
			default:
			}
		} else {
			// Keep waiting
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
}
