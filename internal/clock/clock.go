// Package clock abstracts the wall clock so services can stamp records
// deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time in UTC.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

// NewReal returns the system clock.
func NewReal() Real {
	return Real{}
}

func (Real) Now() time.Time {
	return time.Now().UTC()
}

// Stub is a manually driven clock for tests. The zero value is not usable;
// construct it with NewStub.
type Stub struct {
	mu  sync.Mutex
	now time.Time
}

// NewStub returns a Stub frozen at t.
func NewStub(t time.Time) *Stub {
	return &Stub{now: t.UTC()}
}

func (c *Stub) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *Stub) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

// Advance moves the clock forward by d and returns the new time.
func (c *Stub) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
