package config

import (
	"time"

	"github.com/pitabwire/frame/config"
)

// AdminConfig carries all environment driven settings for the admin
// authentication service.
type AdminConfig struct {
	config.ConfigurationDefault

	// Error handling configuration
	// When true, detailed error messages are shown to users (useful for development)
	// When false, generic messages are shown and details are only logged
	ExposeErrors bool `envDefault:"false" env:"EXPOSE_ERRORS"`

	// Account lockout policy
	LockoutThreshold       int `envDefault:"5"   env:"LOCKOUT_THRESHOLD"`
	LockoutCooldownSeconds int `envDefault:"900" env:"LOCKOUT_COOLDOWN_SECONDS"`

	// Per IP / per email throttle applied in front of the account lockout
	LoginRateLimitMaxAttempts   int `envDefault:"7"    env:"LOGIN_RATE_LIMIT_MAX_ATTEMPTS"`
	LoginRateLimitWindowSeconds int `envDefault:"3600" env:"LOGIN_RATE_LIMIT_WINDOW_SECONDS"`

	// Two factor settings
	TwoFactorCodeLength     int    `envDefault:"6"   env:"TWO_FACTOR_CODE_LENGTH"`
	TwoFactorCodeTTLSeconds int    `envDefault:"600" env:"TWO_FACTOR_CODE_TTL_SECONDS"`
	TwoFactorIssuer         string `envDefault:"Karibu Admin" env:"TWO_FACTOR_ISSUER"`

	// Trusted device tokens skip the second factor for this long after issuance.
	// Expiry is absolute, not sliding.
	RememberTokenTTLSeconds int64 `envDefault:"604800" env:"REMEMBER_TOKEN_TTL_SECONDS"`

	// Session lifetimes. A pending session only lives long enough to complete
	// the second factor.
	SessionTTLSeconds        int64 `envDefault:"28800" env:"SESSION_TTL_SECONDS"`
	PendingSessionTTLSeconds int64 `envDefault:"600"   env:"PENDING_SESSION_TTL_SECONDS"`

	SecureCookieHashKey  string `envDefault:"d1f4f1a3b8d84f79e6d4b8b5c3f04725a8a7d6b4c2f9a987d5e4f3a2b1c086d1" env:"SECURE_COOKIE_HASH_KEY"`
	SecureCookieBlockKey string `envDefault:"a7e7b4f8d2e5a3c1f0b6d9d4f3a5c20798d1c1e7c4f6a3e4b0e5c2f4a7d6b301" env:"SECURE_COOKIE_BLOCK_KEY"`
	CsrfSecret           string `envDefault:"8d2e5a3c1f0b6d9d4f3a5c20798d1c1e" env:"CSRF_SECRET"`

	// Delivery collaborator for email codes. When the address is empty the
	// dispatcher only logs, which is what tests rely on.
	EmailSMTPAddress string `envDefault:""                      env:"EMAIL_SMTP_ADDRESS"`
	EmailFromAddress string `envDefault:"no-reply@karibuweb.com" env:"EMAIL_FROM_ADDRESS"`
}

func (ac *AdminConfig) LockoutCooldown() time.Duration {
	return time.Duration(ac.LockoutCooldownSeconds) * time.Second
}

func (ac *AdminConfig) TwoFactorCodeTTL() time.Duration {
	return time.Duration(ac.TwoFactorCodeTTLSeconds) * time.Second
}

func (ac *AdminConfig) RememberTokenTTL() time.Duration {
	return time.Duration(ac.RememberTokenTTLSeconds) * time.Second
}

func (ac *AdminConfig) SessionTTL() time.Duration {
	return time.Duration(ac.SessionTTLSeconds) * time.Second
}

func (ac *AdminConfig) PendingSessionTTL() time.Duration {
	return time.Duration(ac.PendingSessionTTLSeconds) * time.Second
}
