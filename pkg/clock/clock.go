// Package clock provides an injectable time source.
//
// The eligibility calculator and delivery gate are pure functions that take
// "now" as an argument; the orchestrator and CLI obtain that "now" from a
// Clock so tests can pin time exactly. OS-level schedulers may fire late,
// so nothing in this codebase trusts a scheduling-time instant — the clock
// is re-read at every decision point.
package clock

import "time"

// Clock yields the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the real wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }

// Fixed is a settable clock for tests and dry runs. Not goroutine-safe;
// each test owns its instance.
type Fixed struct {
	ts time.Time
}

// NewFixed returns a Fixed clock pinned at t.
func NewFixed(t time.Time) *Fixed { return &Fixed{ts: t} }

// Now returns the pinned instant.
func (f *Fixed) Now() time.Time { return f.ts }

// Set repins the clock to t.
func (f *Fixed) Set(t time.Time) { f.ts = t }

// Advance moves the clock forward by d and returns the new instant.
func (f *Fixed) Advance(d time.Duration) time.Time {
	f.ts = f.ts.Add(d)
	return f.ts
}
