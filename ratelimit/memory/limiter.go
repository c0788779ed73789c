package memorylimiter

import (
	"fmt"
	"sync"
	"time"

	"github.com/watercooler-app/watercooler-api/ratelimit"
)

type bucketState struct {
	// timestamps holds request times in Unix ms, newest last.
	timestamps []int64
}

// Limiter is an in-memory sliding-window rate limiter.
// It is the single-node fallback when REDIS_URL is not set.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]ratelimit.Limit
	buckets map[string]*bucketState
	now     func() time.Time
}

// New constructs an in-memory limiter; nil limits uses ratelimit.DefaultLimits.
func New(limits map[string]ratelimit.Limit) *Limiter {
	if limits == nil {
		limits = ratelimit.DefaultLimits()
	}
	return &Limiter{
		limits:  limits,
		buckets: make(map[string]*bucketState),
		now:     time.Now,
	}
}

// WithClock overrides time.Now; returns l for chaining in tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// AllowNamed records one hit for key in bucket and reports whether it fits
// the bucket's window. Denied attempts are not recorded; empty buckets are dropped.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}

	lim := ratelimit.Lookup(l.limits, bucket)
	nowMs := l.now().UnixMilli()
	windowStart := nowMs - lim.Window.Milliseconds()
	limitKey := bucket + ":" + key

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[limitKey]
	if !ok {
		b = &bucketState{}
		l.buckets[limitKey] = b
	}

	ts := b.timestamps
	i := 0
	for i < len(ts) && ts[i] <= windowStart {
		i++
	}
	ts = ts[i:]

	if len(ts) >= lim.Limit {
		b.timestamps = ts
		return false, nil
	}
	b.timestamps = append(ts, nowMs)
	return true, nil
}

// Sweep drops buckets with no hits inside their window.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	nowMs := l.now().UnixMilli()
	for k, b := range l.buckets {
		n := len(b.timestamps)
		if n == 0 || b.timestamps[n-1] <= nowMs-l.maxWindow().Milliseconds() {
			delete(l.buckets, k)
		}
	}
}

func (l *Limiter) maxWindow() time.Duration {
	w := time.Minute
	for _, lim := range l.limits {
		if lim.Window > w {
			w = lim.Window
		}
	}
	return w
}
