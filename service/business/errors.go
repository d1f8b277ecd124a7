package business

import (
	"errors"
	"fmt"
)

// Login and verification error definitions. The HTTP layer maps these to
// deliberately generic messages; the audit trail keeps the specifics.
var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password, indistinguishably.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked means the lockout window is in force.
	ErrAccountLocked = errors.New("account is locked")
	// ErrTwoFactorRequired signals the login must continue through a
	// second factor challenge.
	ErrTwoFactorRequired = errors.New("two factor verification required")
	// ErrTwoFactorSetupRequired signals the user has no confirmed second
	// factor yet and must enrol first.
	ErrTwoFactorSetupRequired = errors.New("two factor setup required")
	// ErrInvalidOrExpiredCode covers a mismatched, reused and an expired
	// code, indistinguishably.
	ErrInvalidOrExpiredCode = errors.New("verification code is invalid or expired")
	// ErrTokenExpiredOrUnknown covers remember tokens that are unknown,
	// revoked or past expiry.
	ErrTokenExpiredOrUnknown = errors.New("remember token is expired or unknown")
	// ErrDeliveryFailure is transient; the caller may retry issuance.
	ErrDeliveryFailure = errors.New("could not dispatch verification code")
	// ErrSessionExpired covers missing, expired and foreign sessions.
	ErrSessionExpired = errors.New("session is expired")
	// ErrStoreFailure wraps a failed datastore mutation. The request aborts
	// rather than continue in a partially applied state.
	ErrStoreFailure = errors.New("datastore operation failed")
)

// storeFailure tags a datastore error so callers can classify it without
// losing the cause.
func storeFailure(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStoreFailure, err)
}
