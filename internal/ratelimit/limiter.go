// Package ratelimit enforces the gateway usage plan: a sustained request
// rate with a small burst allowance, keyed per caller.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Result reports one admission decision.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	Limit      int
}

// Limiter is an in-memory keyed token bucket. Buckets refill at rate tokens
// per second up to the burst capacity.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   float64

	// now is a clock hook for tests.
	now func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewLimiter creates a limiter with the given sustained rate and burst.
func NewLimiter(rate float64, burst int) *Limiter {
	if rate <= 0 {
		rate = 10
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   float64(burst),
		now:     time.Now,
	}
}

// Allow consumes one token for key if available.
func (l *Limiter) Allow(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.buckets[key]
	if b == nil {
		b = &bucket{tokens: l.burst, last: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.last).Seconds()
	b.tokens = math.Min(l.burst, b.tokens+elapsed*l.rate)
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		return Result{
			Allowed:   true,
			Remaining: int(b.tokens),
			Limit:     int(l.burst),
		}
	}

	wait := time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
	return Result{
		Allowed:    false,
		Remaining:  0,
		RetryAfter: wait,
		Limit:      int(l.burst),
	}
}

// Reset clears the bucket for a key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}
