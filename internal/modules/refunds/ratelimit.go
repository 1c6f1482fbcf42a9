package refunds

import (
	"sync"
	"time"
)

const (
	// DefaultRateLimit caps refund requests per tenant per window.
	DefaultRateLimit  = 100
	DefaultRateWindow = time.Hour

	// maxBuckets bounds the tenant map; expired buckets are swept once the
	// cap is exceeded.
	maxBuckets = 10000
)

type bucket struct {
	windowStart time.Time
	count       int
}

// RateLimiter is a fixed-window per-tenant counter. Windows reset lazily on
// the first request after expiry; there is no background timer. The mutex is
// required: counters are read-modify-write and goroutines race on them.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*bucket
	now     func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow records one request for the tenant and reports whether it is within
// the limit.
func (l *RateLimiter) Allow(tenantID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	b, ok := l.buckets[tenantID]
	if !ok || now.Sub(b.windowStart) >= l.window {
		if !ok && len(l.buckets) >= maxBuckets {
			l.sweepLocked(now)
		}
		l.buckets[tenantID] = &bucket{windowStart: now, count: 1}
		return true
	}

	if b.count >= l.limit {
		return false
	}
	b.count++
	return true
}

func (l *RateLimiter) sweepLocked(now time.Time) {
	for id, b := range l.buckets {
		if now.Sub(b.windowStart) >= l.window {
			delete(l.buckets, id)
		}
	}
}
