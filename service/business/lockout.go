package business

import (
	"context"
	"time"

	"github.com/karibuweb/service-admin/service/models"
	"github.com/karibuweb/service-admin/service/repository"
	"github.com/pitabwire/util"
)

// LockoutStatus is the outcome of a lockout check. RetryAfter is rounded to
// the minute so callers never surface the exact unlock instant.
type LockoutStatus struct {
	Allowed    bool
	RetryAfter time.Duration
}

// LockoutPolicy throttles repeated failures per account. Password failures
// and two factor failures feed the same counter so neither factor can be
// brute forced independently.
type LockoutPolicy interface {
	// CheckLockout decides whether an attempt on this account may proceed.
	CheckLockout(ctx context.Context, user *models.User) LockoutStatus
	// RecordFailure bumps the store side counter atomically.
	RecordFailure(ctx context.Context, userID string) error
	// RecordSuccess resets the counter and clears any lockout window.
	RecordSuccess(ctx context.Context, userID string) error
}

func NewLockoutPolicy(userRepo repository.UserRepository, threshold int, cooldown time.Duration) LockoutPolicy {
	return &lockoutPolicy{
		userRepo:  userRepo,
		threshold: threshold,
		cooldown:  cooldown,
	}
}

type lockoutPolicy struct {
	userRepo  repository.UserRepository
	threshold int
	cooldown  time.Duration
}

func (lp *lockoutPolicy) CheckLockout(ctx context.Context, user *models.User) LockoutStatus {
	now := time.Now()
	if user == nil || !user.IsLocked(now) {
		return LockoutStatus{Allowed: true}
	}

	retryAfter := user.LockedUntil.Sub(now).Round(time.Minute)
	if retryAfter <= 0 {
		retryAfter = time.Minute
	}

	util.Log(ctx).WithFields(map[string]any{
		"user_id":       user.GetID(),
		"retry_after_m": retryAfter.Minutes(),
	}).Warn("attempt refused, account lockout in force")

	return LockoutStatus{Allowed: false, RetryAfter: retryAfter}
}

func (lp *lockoutPolicy) RecordFailure(ctx context.Context, userID string) error {
	return storeFailure(lp.userRepo.RecordFailure(ctx, userID, lp.threshold, time.Now().Add(lp.cooldown)))
}

func (lp *lockoutPolicy) RecordSuccess(ctx context.Context, userID string) error {
	return storeFailure(lp.userRepo.ResetLockout(ctx, userID))
}
