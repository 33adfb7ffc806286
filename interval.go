package lensing

import "time"

// Clock tells the current time. Tests substitute a fake.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// PollTimer throttles completeness polls to at most one per interval.
type PollTimer struct {
	clock    Clock
	interval time.Duration
	last     time.Time
}

// NewPollTimer returns a timer started now.
func NewPollTimer(c Clock, interval time.Duration) *PollTimer {
	if c == nil {
		c = SystemClock{}
	}
	return &PollTimer{clock: c, interval: interval, last: c.Now()}
}

// Reset restarts the interval from now.
func (t *PollTimer) Reset() { t.last = t.clock.Now() }

// SetInterval changes the interval without restarting it.
func (t *PollTimer) SetInterval(d time.Duration) { t.interval = d }

// Interval returns the poll interval.
func (t *PollTimer) Interval() time.Duration { return t.interval }

// Due reports whether more than the interval has passed since the last
// poll (or Reset). A true result starts the next interval. An interval of
// zero or less is always due.
func (t *PollTimer) Due() bool {
	now := t.clock.Now()
	if t.interval <= 0 || now.Sub(t.last) > t.interval {
		t.last = now
		return true
	}
	return false
}
