package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per caller key. Buckets idle for longer
// than the TTL are dropped on a later call.
type Limiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	callers   map[string]*caller
	lastSweep time.Time
}

type caller struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// NewLimiter allows perMinute calls per caller per minute, all of which may
// be spent at once.
func NewLimiter(perMinute int, ttl time.Duration) *Limiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Limiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		ttl:     ttl,
		now:     time.Now,
		callers: make(map[string]*caller),
	}
}

// Allow consumes a token for key. When none is available it returns false and
// how long until one will be.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)
	c, ok := l.callers[key]
	if !ok {
		c = &caller{bucket: rate.NewLimiter(l.limit, l.burst)}
		l.callers[key] = c
	}
	c.lastSeen = now

	r := c.bucket.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Minute
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Len returns the number of tracked callers.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.callers)
}

func (l *Limiter) sweepLocked(now time.Time) {
	if l.ttl <= 0 || now.Sub(l.lastSweep) < l.ttl/2 {
		return
	}
	l.lastSweep = now
	for k, c := range l.callers {
		if now.Sub(c.lastSeen) > l.ttl {
			delete(l.callers, k)
		}
	}
}
