package queue

import (
	"sync"
	"time"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// floodGate suspends non-content delivery for a conversation until a
// rate-limit ban expires
type floodGate struct {
	mu    sync.Mutex
	until time.Time
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// ban installs a ban until the given time, extending any existing ban
func (g *floodGate) ban(until time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if until.After(g.until) {
		g.until = until
	}
}

// remaining returns how long the ban still runs, or zero when there is no
// active ban
func (g *floodGate) remaining(now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.until.IsZero() || !now.Before(g.until) {
		return 0
	}
	return g.until.Sub(now)
}

// active returns true while a ban is in force
func (g *floodGate) active(now time.Time) bool {
	return g.remaining(now) > 0
}

// lift removes the ban, and returns true if one was installed
func (g *floodGate) lift() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	installed := !g.until.IsZero()
	g.until = time.Time{}
	return installed
}
