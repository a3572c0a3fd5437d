package clock

import "time"

// spinWindow is how far ahead of the deadline Wait stops sleeping and spins.
const spinWindow = 200 * time.Microsecond

// Limiter paces a loop to a fixed interval.
type Limiter struct {
	interval time.Duration
	next     time.Time
	now      func() time.Time
}

// NewLimiter returns a Limiter for the given interval. A non-positive
// interval disables pacing.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{interval: interval, now: time.Now}
}

// Wait blocks until the next tick is due and reports how late the previous
// deadline was met. A tick that overruns by more than one interval resyncs the
// schedule instead of bursting to catch up.
func (l *Limiter) Wait() (late time.Duration) {
	if l.interval <= 0 {
		l.next = time.Time{}
		return 0
	}
	if l.next.IsZero() {
		l.next = l.now().Add(l.interval)
	} else {
		l.next = l.next.Add(l.interval)
	}

	for {
		remaining := l.next.Sub(l.now())
		if remaining <= 0 {
			break
		}
		if remaining > spinWindow {
			time.Sleep(remaining - spinWindow)
		}
	}

	late = l.now().Sub(l.next)
	if late > l.interval {
		l.next = l.now()
	}
	return late
}
