package clock

import (
	"sync"
	"time"
)

// Source provides the current time. Real() is used in production, Fake in
// tests that need deterministic intervals.
type Source interface {
	Now() time.Time
}

type realSource struct{}

// Real returns a Source backed by the standard time package.
func Real() Source { return realSource{} }

func (realSource) Now() time.Time { return time.Now() }

// Fake is a manually advanced Source.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake creates a Fake starting at the given time.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake time forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Set jumps the fake time to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}
