package business

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/karibuweb/service-admin/config"
	"github.com/karibuweb/service-admin/service/models"
	"github.com/karibuweb/service-admin/service/repository"
	"github.com/pitabwire/util"
	"gorm.io/datatypes"
)

// LoginState is the terminal state of a login or verification call.
type LoginState string

const (
	LoginStateRejected         LoginState = "rejected"
	LoginStateSetupTwoFactor   LoginState = "setup_2fa"
	LoginStateTwoFactorPending LoginState = "2fa_pending"
	LoginStateAuthenticated    LoginState = "authenticated"
)

// LoginInput carries everything a credential submission brings along.
type LoginInput struct {
	Email         string
	Password      string
	RememberToken string
	IPAddress     string
	UserAgent     string
	Device        datatypes.JSONMap
}

// VerifyInput carries the second factor submission. Either code may be
// empty when the session does not require that factor.
type VerifyInput struct {
	EmailCode   string
	TotpCode    string
	TrustDevice bool
	IPAddress   string
	UserAgent   string
	Device      datatypes.JSONMap
}

// LoginOutcome reports where the state machine landed. RememberToken is the
// raw trusted device credential when one was just issued, handed out exactly
// once. RetryAfter is only set alongside ErrAccountLocked.
type LoginOutcome struct {
	State         LoginState
	User          *models.User
	Session       *models.Session
	RememberToken string
	RetryAfter    time.Duration
}

// LoginOrchestrator drives the login state machine:
// anonymous -> credentials checked -> setup_2fa | 2fa_pending | authenticated | rejected.
type LoginOrchestrator interface {
	// LoginStep1 checks credentials and decides how the login continues
	LoginStep1(ctx context.Context, input LoginInput) (*LoginOutcome, error)
	// VerifyTwoFactor consumes a second factor submission on a pending session
	VerifyTwoFactor(ctx context.Context, sessionID string, input VerifyInput) (*LoginOutcome, error)
	// ResendEmailCode reissues the email code on a pending session
	ResendEmailCode(ctx context.Context, sessionID string) error
	// BeginTwoFactorSetup provisions a second factor on a session routed to setup
	BeginTwoFactorSetup(ctx context.Context, sessionID string, method models.TwoFactorMethod) (*SetupChallenge, error)
	// ConfirmTwoFactorSetup activates the provisioned factor and finishes the login
	ConfirmTwoFactorSetup(ctx context.Context, sessionID string, submitted string) (*LoginOutcome, error)
	// SessionUser loads a session together with its user, nil when unknown
	SessionUser(ctx context.Context, sessionID string) (*models.Session, *models.User, error)
	// Logout discards a session
	Logout(ctx context.Context, sessionID string) error
}

func NewLoginOrchestrator(
	cfg *config.AdminConfig,
	userRepo repository.UserRepository,
	attemptRepo repository.LoginAttemptRepository,
	sessionRepo repository.SessionRepository,
	verifier CredentialVerifier,
	lockout LockoutPolicy,
	twoFactor TwoFactorManager,
	remember RememberDeviceManager,
) LoginOrchestrator {
	return &loginOrchestrator{
		cfg:         cfg,
		userRepo:    userRepo,
		attemptRepo: attemptRepo,
		sessionRepo: sessionRepo,
		verifier:    verifier,
		lockout:     lockout,
		twoFactor:   twoFactor,
		remember:    remember,
	}
}

type loginOrchestrator struct {
	cfg         *config.AdminConfig
	userRepo    repository.UserRepository
	attemptRepo repository.LoginAttemptRepository
	sessionRepo repository.SessionRepository
	verifier    CredentialVerifier
	lockout     LockoutPolicy
	twoFactor   TwoFactorManager
	remember    RememberDeviceManager
}

func (lo *loginOrchestrator) LoginStep1(ctx context.Context, input LoginInput) (*LoginOutcome, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := lo.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		// Unknown accounts pay the same hashing cost as wrong passwords so
		// the response time never confirms an email exists.
		_ = lo.verifier.Verify(ctx, nil, input.Password)

		err = lo.recordAttempt(ctx, "", email, input.IPAddress, input.UserAgent, false, models.AttemptReasonUnknownEmail)
		if err != nil {
			return nil, err
		}
		return &LoginOutcome{State: LoginStateRejected}, ErrInvalidCredentials
	}

	status := lo.lockout.CheckLockout(ctx, user)
	if !status.Allowed {
		// Nothing recorded while locked, the lock check is the whole story.
		return &LoginOutcome{State: LoginStateRejected, RetryAfter: status.RetryAfter}, ErrAccountLocked
	}

	err = lo.verifier.Verify(ctx, user, input.Password)
	if err != nil {
		if recErr := lo.lockout.RecordFailure(ctx, user.GetID()); recErr != nil {
			return nil, recErr
		}
		err = lo.recordAttempt(ctx, user.GetID(), email, input.IPAddress, input.UserAgent, false, models.AttemptReasonInvalidPassword)
		if err != nil {
			return nil, err
		}
		return &LoginOutcome{State: LoginStateRejected}, ErrInvalidCredentials
	}

	if !user.Active {
		err = lo.recordAttempt(ctx, user.GetID(), email, input.IPAddress, input.UserAgent, false, models.AttemptReasonUserInactive)
		if err != nil {
			return nil, err
		}
		return &LoginOutcome{State: LoginStateRejected}, ErrInvalidCredentials
	}

	err = lo.lockout.RecordSuccess(ctx, user.GetID())
	if err != nil {
		return nil, err
	}

	// A live remember token for this user skips the second factor entirely.
	// Tokens never skip the password check above.
	if input.RememberToken != "" {
		trusted, tokenErr := lo.remember.ValidateToken(ctx, input.RememberToken)
		if tokenErr != nil && !isTokenRejection(tokenErr) {
			return nil, tokenErr
		}
		if trusted != nil && trusted.GetID() == user.GetID() {
			session, sessErr := lo.openSession(ctx, user, models.SessionStatusAuthenticated, "", input.IPAddress, input.UserAgent)
			if sessErr != nil {
				return nil, sessErr
			}
			err = lo.recordAttempt(ctx, user.GetID(), email, input.IPAddress, input.UserAgent, true, models.AttemptReasonRememberToken)
			if err != nil {
				return nil, err
			}
			return &LoginOutcome{State: LoginStateAuthenticated, User: user, Session: session}, nil
		}
	}

	err = lo.recordAttempt(ctx, user.GetID(), email, input.IPAddress, input.UserAgent, true, models.AttemptReasonSuccess)
	if err != nil {
		return nil, err
	}

	if !user.TwoFactorActive() {
		session, sessErr := lo.openSession(ctx, user, models.SessionStatusPending2FA, models.PendingFactorSetup, input.IPAddress, input.UserAgent)
		if sessErr != nil {
			return nil, sessErr
		}
		return &LoginOutcome{State: LoginStateSetupTwoFactor, User: user, Session: session}, nil
	}

	session, err := lo.openSession(ctx, user, models.SessionStatusPending2FA, pendingFactorsFor(user.Method()), input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}

	if user.Method().RequiresEmailCode() {
		err = lo.twoFactor.IssueEmailCode(ctx, user)
		if err != nil {
			// The pending session stays usable, the code can be resent.
			return &LoginOutcome{State: LoginStateTwoFactorPending, User: user, Session: session}, err
		}
	}

	return &LoginOutcome{State: LoginStateTwoFactorPending, User: user, Session: session}, nil
}

func (lo *loginOrchestrator) VerifyTwoFactor(ctx context.Context, sessionID string, input VerifyInput) (*LoginOutcome, error) {
	session, user, err := lo.pendingSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	status := lo.lockout.CheckLockout(ctx, user)
	if !status.Allowed {
		return &LoginOutcome{State: LoginStateRejected, RetryAfter: status.RetryAfter}, ErrAccountLocked
	}

	remaining := session.PendingList()
	var satisfied []string
	attempted := false
	failed := false

	for _, factor := range remaining {
		switch factor {
		case models.PendingFactorEmail:
			if input.EmailCode == "" {
				continue
			}
			attempted = true
			ok, verr := lo.twoFactor.VerifyEmailCode(ctx, user, input.EmailCode)
			if verr != nil {
				return nil, verr
			}
			if ok {
				satisfied = append(satisfied, factor)
			} else {
				failed = true
			}
		case models.PendingFactorTotp:
			if input.TotpCode == "" {
				continue
			}
			attempted = true
			if lo.twoFactor.VerifyTotp(user, input.TotpCode) {
				satisfied = append(satisfied, factor)
			} else {
				failed = true
			}
		}
	}

	if !attempted {
		return &LoginOutcome{State: LoginStateTwoFactorPending, User: user, Session: session}, ErrInvalidOrExpiredCode
	}

	remaining = subtractFactors(remaining, satisfied)
	session.PendingFactors = strings.Join(remaining, ",")

	if failed {
		// Progress on the other factor survives, the failure still counts.
		if err = lo.sessionRepo.Save(ctx, session); err != nil {
			return nil, err
		}
		if err = lo.lockout.RecordFailure(ctx, user.GetID()); err != nil {
			return nil, err
		}
		err = lo.recordAttempt(ctx, user.GetID(), user.Email, input.IPAddress, input.UserAgent, false, models.AttemptReasonTwoFactorFail)
		if err != nil {
			return nil, err
		}
		return &LoginOutcome{State: LoginStateTwoFactorPending, User: user, Session: session}, ErrInvalidOrExpiredCode
	}

	if len(remaining) > 0 {
		if err = lo.sessionRepo.Save(ctx, session); err != nil {
			return nil, err
		}
		return &LoginOutcome{State: LoginStateTwoFactorPending, User: user, Session: session}, nil
	}

	return lo.finishLogin(ctx, session, user, input, models.AttemptReasonTwoFactorOk)
}

func (lo *loginOrchestrator) ResendEmailCode(ctx context.Context, sessionID string) error {
	session, user, err := lo.pendingSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if !session.HasPendingFactor(models.PendingFactorEmail) {
		return ErrSessionExpired
	}

	status := lo.lockout.CheckLockout(ctx, user)
	if !status.Allowed {
		return ErrAccountLocked
	}

	return lo.twoFactor.IssueEmailCode(ctx, user)
}

func (lo *loginOrchestrator) BeginTwoFactorSetup(ctx context.Context, sessionID string, method models.TwoFactorMethod) (*SetupChallenge, error) {
	session, user, err := lo.pendingSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.HasPendingFactor(models.PendingFactorSetup) {
		return nil, ErrSessionExpired
	}

	if method == models.TwoFactorMethodNone {
		return nil, ErrTwoFactorSetupRequired
	}

	challenge, err := lo.twoFactor.BeginSetup(ctx, user, method)
	if err != nil {
		return nil, err
	}

	// Devices trusted under the previous configuration lose their bypass.
	err = lo.remember.RevokeAll(ctx, user.GetID())
	if err != nil {
		return nil, err
	}

	if method.RequiresEmailCode() {
		err = lo.twoFactor.IssueEmailCode(ctx, user)
		if err != nil {
			return challenge, err
		}
	}

	return challenge, nil
}

func (lo *loginOrchestrator) ConfirmTwoFactorSetup(ctx context.Context, sessionID string, submitted string) (*LoginOutcome, error) {
	session, user, err := lo.pendingSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.HasPendingFactor(models.PendingFactorSetup) {
		return nil, ErrSessionExpired
	}

	status := lo.lockout.CheckLockout(ctx, user)
	if !status.Allowed {
		return &LoginOutcome{State: LoginStateRejected, RetryAfter: status.RetryAfter}, ErrAccountLocked
	}

	err = lo.twoFactor.ConfirmSetup(ctx, user, submitted)
	if err != nil {
		if !errors.Is(err, ErrInvalidOrExpiredCode) {
			return nil, err
		}
		if recErr := lo.lockout.RecordFailure(ctx, user.GetID()); recErr != nil {
			return nil, recErr
		}
		recErr := lo.recordAttempt(ctx, user.GetID(), user.Email, session.IPAddress, session.UserAgent, false, models.AttemptReasonTwoFactorFail)
		if recErr != nil {
			return nil, recErr
		}
		return &LoginOutcome{State: LoginStateSetupTwoFactor, User: user, Session: session}, ErrInvalidOrExpiredCode
	}

	session.PendingFactors = ""
	return lo.finishLogin(ctx, session, user, VerifyInput{IPAddress: session.IPAddress, UserAgent: session.UserAgent}, models.AttemptReasonSetupConfirmed)
}

func (lo *loginOrchestrator) SessionUser(ctx context.Context, sessionID string) (*models.Session, *models.User, error) {
	if sessionID == "" {
		return nil, nil, nil
	}

	session, err := lo.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	if session == nil || session.IsExpired(time.Now()) {
		return nil, nil, nil
	}

	user, err := lo.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, err
	}

	if user == nil || !user.Active {
		return nil, nil, nil
	}

	return session, user, nil
}

func (lo *loginOrchestrator) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return lo.sessionRepo.Delete(ctx, sessionID)
}

// finishLogin promotes a pending session to authenticated, resets the
// lockout counter and optionally issues a trusted device token.
func (lo *loginOrchestrator) finishLogin(ctx context.Context, session *models.Session, user *models.User, input VerifyInput, reason string) (*LoginOutcome, error) {
	err := lo.lockout.RecordSuccess(ctx, user.GetID())
	if err != nil {
		return nil, err
	}

	session.Status = models.SessionStatusAuthenticated
	session.PendingFactors = ""
	session.ExpiresAt = time.Now().Add(lo.cfg.SessionTTL())

	err = lo.sessionRepo.Save(ctx, session)
	if err != nil {
		return nil, err
	}

	err = lo.recordAttempt(ctx, user.GetID(), user.Email, input.IPAddress, input.UserAgent, true, reason)
	if err != nil {
		return nil, err
	}

	outcome := &LoginOutcome{State: LoginStateAuthenticated, User: user, Session: session}

	if input.TrustDevice {
		rawToken, tokenErr := lo.remember.IssueToken(ctx, user, input.IPAddress, input.Device)
		if tokenErr != nil {
			// The login itself already succeeded, only the trust grant failed.
			util.Log(ctx).WithError(tokenErr).
				WithField("user_id", user.GetID()).
				Warn("could not issue remember token")
		} else {
			outcome.RememberToken = rawToken
		}
	}

	return outcome, nil
}

// pendingSession resolves a session that must still be awaiting a second
// factor. Anything else looks like an expired session to the caller.
func (lo *loginOrchestrator) pendingSession(ctx context.Context, sessionID string) (*models.Session, *models.User, error) {
	if sessionID == "" {
		return nil, nil, ErrSessionExpired
	}

	session, err := lo.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	if session == nil || !session.IsPending(time.Now()) {
		return nil, nil, ErrSessionExpired
	}

	user, err := lo.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, err
	}

	if user == nil || !user.Active {
		return nil, nil, ErrSessionExpired
	}

	return session, user, nil
}

func (lo *loginOrchestrator) openSession(ctx context.Context, user *models.User, status, pendingFactors, ipAddress, userAgent string) (*models.Session, error) {
	ttl := lo.cfg.SessionTTL()
	if status == models.SessionStatusPending2FA {
		ttl = lo.cfg.PendingSessionTTL()
	}

	session := &models.Session{
		UserID:         user.GetID(),
		Status:         status,
		PendingFactors: pendingFactors,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		ExpiresAt:      time.Now().Add(ttl),
	}
	session.GenID(ctx)

	err := lo.sessionRepo.Save(ctx, session)
	if err != nil {
		return nil, storeFailure(err)
	}

	return session, nil
}

func (lo *loginOrchestrator) recordAttempt(ctx context.Context, userID, email, ipAddress, userAgent string, success bool, reason string) error {
	attempt := &models.LoginAttempt{
		UserID:    userID,
		Email:     email,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   success,
		Reason:    reason,
	}
	attempt.GenID(ctx)
	return storeFailure(lo.attemptRepo.Create(ctx, attempt))
}

func pendingFactorsFor(method models.TwoFactorMethod) string {
	var factors []string
	if method.RequiresEmailCode() {
		factors = append(factors, models.PendingFactorEmail)
	}
	if method.RequiresTotp() {
		factors = append(factors, models.PendingFactorTotp)
	}
	return strings.Join(factors, ",")
}

func subtractFactors(remaining, satisfied []string) []string {
	var out []string
	for _, factor := range remaining {
		done := false
		for _, s := range satisfied {
			if s == factor {
				done = true
				break
			}
		}
		if !done {
			out = append(out, factor)
		}
	}
	return out
}

func isTokenRejection(err error) bool {
	return errors.Is(err, ErrTokenExpiredOrUnknown)
}
