package fetch

import (
	"sync"
	"time"
)

// Limiter enforces a fixed minimum interval between outbound requests
// shared across the whole worker pool. It intentionally does not allow
// bursts: the provider behavior it protects against is triggered by
// instantaneous request spacing, not by average rate.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewLimiter creates a limiter allowing perSecond requests per second
// in aggregate. A non-positive rate disables limiting.
func NewLimiter(perSecond float64) *Limiter {
	l := &Limiter{}
	if perSecond > 0 {
		l.interval = time.Duration(float64(time.Second) / perSecond)
	}
	return l
}

// Wait blocks until the caller may issue the next request. The lock is
// held across the sleep so that no other worker can slip a request in
// sooner than 1/rate after the previous one.
func (l *Limiter) Wait() {
	if l.interval == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	next := l.last.Add(l.interval)
	if now.Before(next) {
		time.Sleep(next.Sub(now))
		now = next
	}
	l.last = now
}
