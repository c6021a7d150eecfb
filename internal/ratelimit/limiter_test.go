package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowBurstThenDeny(t *testing.T) {
	l := NewLimiter(10, 2)
	now := time.Now()
	l.now = func() time.Time { return now }

	first := l.Allow("caller")
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)

	second := l.Allow("caller")
	assert.True(t, second.Allowed)
	assert.Equal(t, 0, second.Remaining)

	third := l.Allow("caller")
	assert.False(t, third.Allowed)
	assert.Greater(t, third.RetryAfter, time.Duration(0))
}

func TestAllowRefillsOverTime(t *testing.T) {
	l := NewLimiter(10, 2)
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("caller").Allowed)
	assert.True(t, l.Allow("caller").Allowed)
	assert.False(t, l.Allow("caller").Allowed)

	// 10 tokens/s: 100ms buys one token back.
	now = now.Add(100 * time.Millisecond)
	assert.True(t, l.Allow("caller").Allowed)
	assert.False(t, l.Allow("caller").Allowed)
}

func TestAllowNeverExceedsBurst(t *testing.T) {
	l := NewLimiter(10, 2)
	now := time.Now()
	l.now = func() time.Time { return now }

	// Drain, then idle for a long time: refill caps at the burst.
	assert.True(t, l.Allow("caller").Allowed)
	assert.True(t, l.Allow("caller").Allowed)

	now = now.Add(time.Hour)
	assert.True(t, l.Allow("caller").Allowed)
	assert.True(t, l.Allow("caller").Allowed)
	assert.False(t, l.Allow("caller").Allowed)
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := NewLimiter(10, 1)
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a").Allowed)
	assert.False(t, l.Allow("a").Allowed)
	assert.True(t, l.Allow("b").Allowed)
}

func TestReset(t *testing.T) {
	l := NewLimiter(10, 1)
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("caller").Allowed)
	assert.False(t, l.Allow("caller").Allowed)

	l.Reset("caller")
	assert.True(t, l.Allow("caller").Allowed)
}
