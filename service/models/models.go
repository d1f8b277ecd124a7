package models

import (
	"strings"
	"time"

	"github.com/pitabwire/frame/data"
	"gorm.io/datatypes"
)

// TwoFactorMethod enumerates the second factor configuration of a user.
type TwoFactorMethod string

const (
	TwoFactorMethodNone  TwoFactorMethod = "none"
	TwoFactorMethodEmail TwoFactorMethod = "email"
	TwoFactorMethodTotp  TwoFactorMethod = "totp"
	TwoFactorMethodBoth  TwoFactorMethod = "both"
)

func (m TwoFactorMethod) RequiresEmailCode() bool {
	return m == TwoFactorMethodEmail || m == TwoFactorMethodBoth
}

func (m TwoFactorMethod) RequiresTotp() bool {
	return m == TwoFactorMethodTotp || m == TwoFactorMethodBoth
}

// HasSecret reports whether the method carries a TOTP secret.
// Invariant: User.TwoFactorSecret is non empty iff this is true.
func (m TwoFactorMethod) HasSecret() bool {
	return m.RequiresTotp()
}

type User struct {
	data.BaseModel
	Email             string `gorm:"type:varchar(255);uniqueIndex"`
	PasswordHash      []byte
	Name              string `gorm:"type:varchar(255)"`
	Phone             string `gorm:"type:varchar(50)"`
	TwoFactorMethod   string `gorm:"type:varchar(10)"`
	TwoFactorSecret   string `gorm:"type:varchar(255)"`
	TwoFactorVerified bool
	Active            bool
	FailedAttempts    int
	LockedUntil       time.Time
}

func (u *User) Method() TwoFactorMethod {
	if u.TwoFactorMethod == "" {
		return TwoFactorMethodNone
	}
	return TwoFactorMethod(u.TwoFactorMethod)
}

// IsLocked reports whether the lockout window is still in effect.
func (u *User) IsLocked(now time.Time) bool {
	return !u.LockedUntil.IsZero() && now.Before(u.LockedUntil)
}

// TwoFactorActive reports whether the user has an enrolled and confirmed
// second factor. Users with method none, or with an unconfirmed secret,
// are routed to setup instead of verification.
func (u *User) TwoFactorActive() bool {
	return u.Method() != TwoFactorMethodNone && u.TwoFactorVerified
}

// LoginAttempt is an insert only audit record, written exactly once per
// login or verification submission after the outcome is known.
type LoginAttempt struct {
	data.BaseModel
	UserID     string `gorm:"type:varchar(50);index"`
	Email      string `gorm:"type:varchar(255);index"`
	IPAddress  string
	UserAgent  string
	Success    bool
	Reason     string `gorm:"type:varchar(50)"`
	Properties datatypes.JSONMap
}

// Audit reasons recorded on LoginAttempt rows. The user visible error never
// distinguishes between these.
const (
	AttemptReasonSuccess         = "success"
	AttemptReasonRememberToken   = "remember_token"
	AttemptReasonUnknownEmail    = "unknown_email"
	AttemptReasonInvalidPassword = "invalid_password"
	AttemptReasonUserInactive    = "user_inactive"
	AttemptReasonTwoFactorOk     = "two_factor_ok"
	AttemptReasonTwoFactorFail   = "two_factor_fail"
	AttemptReasonSetupConfirmed  = "two_factor_setup_confirmed"
)

// TwoFactorCodeChannel is the delivery channel a one time code was issued on.
type TwoFactorCodeChannel string

const (
	TwoFactorChannelEmail TwoFactorCodeChannel = "email"
	TwoFactorChannelSms   TwoFactorCodeChannel = "sms"
)

// TwoFactorCode stores a hashed one time code. Only the hash is persisted;
// issuing a new code invalidates all prior unused codes for the same user.
type TwoFactorCode struct {
	data.BaseModel
	UserID    string `gorm:"type:varchar(50);index"`
	CodeHash  string `gorm:"type:varchar(64)"`
	Channel   string `gorm:"type:varchar(10)"`
	ExpiresAt time.Time
	Used      bool
}

func (c *TwoFactorCode) IsLive(now time.Time) bool {
	return !c.Used && now.Before(c.ExpiresAt)
}

// RememberToken is the stored half of a trusted device credential. The raw
// token is handed to the browser exactly once; only its hash lands here.
type RememberToken struct {
	data.BaseModel
	UserID     string `gorm:"type:varchar(50);index"`
	TokenHash  string `gorm:"type:varchar(64);uniqueIndex"`
	Device     datatypes.JSONMap
	IPAddress  string
	ExpiresAt  time.Time
	LastUsedAt time.Time
}

func (rt *RememberToken) IsExpired(now time.Time) bool {
	return now.After(rt.ExpiresAt)
}

// Session states. A pending session has proven identity but not the second
// factor and grants no privileges.
const (
	SessionStatusPending2FA    = "pending_2fa"
	SessionStatusAuthenticated = "authenticated"
)

// Pending factor markers kept on a session until each is satisfied.
const (
	PendingFactorSetup = "setup"
	PendingFactorEmail = "email"
	PendingFactorTotp  = "totp"
)

type Session struct {
	data.BaseModel
	UserID         string `gorm:"type:varchar(50);index"`
	Status         string `gorm:"type:varchar(20)"`
	PendingFactors string `gorm:"type:varchar(50)"`
	IPAddress      string
	UserAgent      string
	ExpiresAt      time.Time
}

func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

func (s *Session) IsAuthenticated(now time.Time) bool {
	return s.Status == SessionStatusAuthenticated && !s.IsExpired(now)
}

func (s *Session) IsPending(now time.Time) bool {
	return s.Status == SessionStatusPending2FA && !s.IsExpired(now)
}

// PendingList splits the stored factor markers.
func (s *Session) PendingList() []string {
	if s.PendingFactors == "" {
		return nil
	}
	return strings.Split(s.PendingFactors, ",")
}

func (s *Session) HasPendingFactor(factor string) bool {
	for _, f := range s.PendingList() {
		if f == factor {
			return true
		}
	}
	return false
}
