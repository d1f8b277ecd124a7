package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pitabwire/util"
)

// RateLimitConfig holds configuration for the request level throttle that
// sits in front of the store backed account lockout.
type RateLimitConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// RateLimitEntry tracks attempts for a single key
type RateLimitEntry struct {
	Attempts  int       `json:"attempts"`
	FirstAt   time.Time `json:"first_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RateLimiter throttles login submissions per IP and per email before any
// credential work happens. State is in process only; the durable lockout
// lives on the user row.
type RateLimiter struct {
	config RateLimitConfig
	mu     sync.RWMutex
	store  map[string]*RateLimitEntry
}

// NewRateLimiter creates a new rate limiter with the given config
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config: config,
		store:  make(map[string]*RateLimitEntry),
	}

	go rl.cleanup()

	return rl
}

// cleanup periodically removes expired entries
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, entry := range rl.store {
			if now.After(entry.ExpiresAt) {
				delete(rl.store, key)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed       bool
	AttemptsUsed  int
	AttemptsLeft  int
	RetryAfter    time.Duration
	RetryAfterSec int
}

// Check checks if an action is allowed for the given key and increments the counter
func (rl *RateLimiter) Check(_ context.Context, key string) RateLimitResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, exists := rl.store[key]

	if !exists || now.After(entry.ExpiresAt) {
		rl.store[key] = &RateLimitEntry{
			Attempts:  1,
			FirstAt:   now,
			ExpiresAt: now.Add(rl.config.Window),
		}
		return RateLimitResult{
			Allowed:      true,
			AttemptsUsed: 1,
			AttemptsLeft: rl.config.MaxAttempts - 1,
		}
	}

	if entry.Attempts >= rl.config.MaxAttempts {
		retryAfter := entry.ExpiresAt.Sub(now)
		return RateLimitResult{
			Allowed:       false,
			AttemptsUsed:  entry.Attempts,
			AttemptsLeft:  0,
			RetryAfter:    retryAfter,
			RetryAfterSec: int(retryAfter.Seconds()),
		}
	}

	entry.Attempts++
	return RateLimitResult{
		Allowed:      true,
		AttemptsUsed: entry.Attempts,
		AttemptsLeft: rl.config.MaxAttempts - entry.Attempts,
	}
}

// Peek checks the current state without incrementing the counter
func (rl *RateLimiter) Peek(_ context.Context, key string) RateLimitResult {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	now := time.Now()
	entry, exists := rl.store[key]

	if !exists || now.After(entry.ExpiresAt) {
		return RateLimitResult{
			Allowed:      true,
			AttemptsLeft: rl.config.MaxAttempts,
		}
	}

	if entry.Attempts >= rl.config.MaxAttempts {
		retryAfter := entry.ExpiresAt.Sub(now)
		return RateLimitResult{
			Allowed:       false,
			AttemptsUsed:  entry.Attempts,
			RetryAfter:    retryAfter,
			RetryAfterSec: int(retryAfter.Seconds()),
		}
	}

	return RateLimitResult{
		Allowed:      true,
		AttemptsUsed: entry.Attempts,
		AttemptsLeft: rl.config.MaxAttempts - entry.Attempts,
	}
}

// Reset resets the rate limit for a key (e.g., after successful login)
func (rl *RateLimiter) Reset(_ context.Context, key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.store, key)
}

// ResetAll clears all rate limit entries (useful for testing)
func (rl *RateLimiter) ResetAll() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.store = make(map[string]*RateLimitEntry)
}

func loginRateLimitKey(keyType, value string) string {
	return fmt.Sprintf("login_rl:%s:%s", keyType, value)
}

// CheckLoginRateLimit checks rate limits for both IP and email and returns
// the most restrictive result.
func (h *AuthServer) CheckLoginRateLimit(ctx context.Context, ip, email string) RateLimitResult {
	log := util.Log(ctx)

	ipResult := h.loginRateLimiter.Check(ctx, loginRateLimitKey("ip", ip))
	if !ipResult.Allowed {
		log.WithFields(map[string]any{
			"ip":            ip,
			"attempts":      ipResult.AttemptsUsed,
			"retry_after_s": ipResult.RetryAfterSec,
		}).Warn("login rate limit exceeded for IP")
		return ipResult
	}

	if email != "" {
		emailResult := h.loginRateLimiter.Check(ctx, loginRateLimitKey("email", email))
		if !emailResult.Allowed {
			log.WithFields(map[string]any{
				"email_prefix":  email[:min(3, len(email))] + "***",
				"attempts":      emailResult.AttemptsUsed,
				"retry_after_s": emailResult.RetryAfterSec,
			}).Warn("login rate limit exceeded for email")
			return emailResult
		}

		if emailResult.AttemptsLeft < ipResult.AttemptsLeft {
			return emailResult
		}
	}

	return ipResult
}

// ResetLoginRateLimit resets rate limits after successful login
func (h *AuthServer) ResetLoginRateLimit(ctx context.Context, ip, email string) {
	h.loginRateLimiter.Reset(ctx, loginRateLimitKey("ip", ip))

	if email != "" {
		h.loginRateLimiter.Reset(ctx, loginRateLimitKey("email", email))
	}
}

// ResetAllLoginRateLimits clears all login rate limits (useful for testing)
func (h *AuthServer) ResetAllLoginRateLimits() {
	if h.loginRateLimiter != nil {
		h.loginRateLimiter.ResetAll()
	}
}
