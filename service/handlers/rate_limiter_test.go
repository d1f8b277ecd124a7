package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxAttempts: 3, Window: time.Hour})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result := rl.Check(ctx, "login_rl:ip:198.51.100.7")
		assert.True(t, result.Allowed, "attempt %d should be allowed", i+1)
	}

	result := rl.Check(ctx, "login_rl:ip:198.51.100.7")
	assert.False(t, result.Allowed)
	assert.Positive(t, result.RetryAfterSec)
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxAttempts: 1, Window: time.Hour})
	ctx := context.Background()

	assert.True(t, rl.Check(ctx, "login_rl:ip:198.51.100.7").Allowed)
	assert.False(t, rl.Check(ctx, "login_rl:ip:198.51.100.7").Allowed)
	assert.True(t, rl.Check(ctx, "login_rl:ip:203.0.113.4").Allowed)
}

func TestRateLimiterWindowExpires(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxAttempts: 1, Window: 50 * time.Millisecond})
	ctx := context.Background()

	assert.True(t, rl.Check(ctx, "k").Allowed)
	assert.False(t, rl.Check(ctx, "k").Allowed)

	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.Check(ctx, "k").Allowed)
}

func TestRateLimiterPeekDoesNotCount(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxAttempts: 2, Window: time.Hour})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Peek(ctx, "k").Allowed)
	}

	assert.True(t, rl.Check(ctx, "k").Allowed)
	assert.True(t, rl.Check(ctx, "k").Allowed)
	assert.False(t, rl.Check(ctx, "k").Allowed)
}

func TestRateLimiterReset(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxAttempts: 1, Window: time.Hour})
	ctx := context.Background()

	assert.True(t, rl.Check(ctx, "k").Allowed)
	assert.False(t, rl.Check(ctx, "k").Allowed)

	rl.Reset(ctx, "k")
	assert.True(t, rl.Check(ctx, "k").Allowed)
}
