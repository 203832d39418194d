// Package clock provides time sources and the pausable clock that measures
// solo runs.
package clock

import (
	"sync"
	"time"
)

// Clock is a source of wall-clock time.
type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to the Clock interface.
type Func func() time.Time

// Now returns the current time.
func (f Func) Now() time.Time {
	return f()
}

// System reads the process wall clock.
var System Clock = Func(time.Now)

// Manual is a Clock that only moves when told to. It is safe for concurrent
// use so tests can advance it while a connection goroutine reads it.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a manual clock reading start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Seconds converts d to seconds at millisecond resolution, so two readings of
// the same instants always produce the same float.
func Seconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000
}
