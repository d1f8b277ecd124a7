package business_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/karibuweb/service-admin/service/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckLockoutRoundsRetryAfter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	user := h.seedUser(t, "owner@example.com", "correct-horse", models.TwoFactorMethodEmail, "", true)
	user.LockedUntil = time.Now().Add(14*time.Minute + 40*time.Second)

	status := h.lockout.CheckLockout(ctx, user)
	assert.False(t, status.Allowed)
	// Never the exact unlock instant, only a coarse estimate.
	assert.Equal(t, 15*time.Minute, status.RetryAfter)
}

func TestCheckLockoutMinimumOneMinute(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	user := h.seedUser(t, "owner@example.com", "correct-horse", models.TwoFactorMethodEmail, "", true)
	user.LockedUntil = time.Now().Add(5 * time.Second)

	status := h.lockout.CheckLockout(ctx, user)
	assert.False(t, status.Allowed)
	assert.Equal(t, time.Minute, status.RetryAfter)
}

func TestCheckLockoutLapsedWindowAllows(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	user := h.seedUser(t, "owner@example.com", "correct-horse", models.TwoFactorMethodEmail, "", true)
	user.FailedAttempts = h.cfg.LockoutThreshold
	user.LockedUntil = time.Now().Add(-time.Minute)

	status := h.lockout.CheckLockout(ctx, user)
	assert.True(t, status.Allowed)
}

func TestConcurrentFailuresNeverUndercount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, "owner@example.com", "correct-horse", models.TwoFactorMethodEmail, "", true)

	const writers = 10
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_ = h.lockout.RecordFailure(ctx, user.GetID())
		}()
	}
	wg.Wait()

	stored, err := h.users.GetByID(ctx, user.GetID())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stored.FailedAttempts, h.cfg.LockoutThreshold)
	assert.True(t, stored.IsLocked(time.Now()))
}
