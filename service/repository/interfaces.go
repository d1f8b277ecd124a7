package repository

import (
	"context"
	"time"

	"github.com/karibuweb/service-admin/service/models"
)

// UserRepository handles database operations for User entities.
// All lockout mutations are atomic store side updates, never
// read-modify-write from application memory.
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByEmail retrieves a user by email, nil when unknown
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Save creates or updates a user record
	Save(ctx context.Context, user *models.User) error
	// RecordFailure increments the failed attempt counter and sets the
	// lockout window once the counter crosses the threshold, in a single
	// statement so concurrent failures cannot race the counter down
	RecordFailure(ctx context.Context, userID string, threshold int, lockedUntil time.Time) error
	// ResetLockout zeroes the counter and clears the lockout window
	ResetLockout(ctx context.Context, userID string) error
	// UpdateTwoFactor persists the 2FA method, secret and verified flag
	UpdateTwoFactor(ctx context.Context, user *models.User) error
	// Delete removes a user and cascades to their remember tokens
	Delete(ctx context.Context, id string) error
}

// LoginAttemptRepository records the immutable login audit trail.
type LoginAttemptRepository interface {
	// Create persists a new attempt record; attempts are never updated
	Create(ctx context.Context, attempt *models.LoginAttempt) error
	// ListRecent returns the latest attempts for an email, newest first
	ListRecent(ctx context.Context, email string, limit int) ([]*models.LoginAttempt, error)
}

// TwoFactorCodeRepository handles one time code persistence.
type TwoFactorCodeRepository interface {
	// Issue invalidates all prior unused codes for the user and persists
	// the new one in the same transaction, keeping at most one live code
	Issue(ctx context.Context, code *models.TwoFactorCode) error
	// GetLive retrieves the single unused, unexpired code for a user,
	// nil when none exists
	GetLive(ctx context.Context, userID string) (*models.TwoFactorCode, error)
	// MarkUsed consumes a code; marking an already used code is a no-op
	MarkUsed(ctx context.Context, id string) error
}

// RememberTokenRepository handles trusted device token persistence.
type RememberTokenRepository interface {
	// Create persists a new token record
	Create(ctx context.Context, token *models.RememberToken) error
	// GetByHash retrieves a token by its hash, nil when unknown
	GetByHash(ctx context.Context, hash string) (*models.RememberToken, error)
	// TouchLastUsed refreshes the last used timestamp
	TouchLastUsed(ctx context.Context, id string) error
	// Delete removes a token record by ID
	Delete(ctx context.Context, id string) error
	// DeleteByUser removes all tokens belonging to a user
	DeleteByUser(ctx context.Context, userID string) error
	// DeleteExpired removes tokens past their expiry
	DeleteExpired(ctx context.Context) error
}

// SessionRepository handles database operations for Session entities.
type SessionRepository interface {
	// GetByID retrieves a session by ID, nil when unknown
	GetByID(ctx context.Context, id string) (*models.Session, error)
	// Save creates or updates a session record
	Save(ctx context.Context, session *models.Session) error
	// Delete removes a session record by ID
	Delete(ctx context.Context, id string) error
	// DeleteByUser removes all sessions belonging to a user
	DeleteByUser(ctx context.Context, userID string) error
	// DeleteExpired removes expired sessions
	DeleteExpired(ctx context.Context) error
}
