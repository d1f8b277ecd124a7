package handlers

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/karibuweb/service-admin/config"
	"github.com/karibuweb/service-admin/service/business"
	"github.com/karibuweb/service-admin/service/repository"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/util"
)

const (
	SessionCookieName    = "admin_session"
	SessionCookieKey     = "session_id"
	RememberCookieName   = "admin_trusted_device"
	RememberCookieKey    = "trust_token"
	rememberCookieMaxAge = 7 * 24 * 60 * 60
)

type AuthServer struct {
	sc      *securecookie.SecureCookie
	service *frame.Service
	config  *config.AdminConfig

	// Repository dependencies
	userRepo    repository.UserRepository
	attemptRepo repository.LoginAttemptRepository

	orchestrator business.LoginOrchestrator

	loginRateLimiter *RateLimiter
}

func NewAuthServer(ctx context.Context, service *frame.Service, adminConfig *config.AdminConfig) *AuthServer {

	log := util.Log(ctx)

	hashKey, err := hex.DecodeString(adminConfig.SecureCookieHashKey)
	if err != nil {
		log.WithError(err).Fatal("could not decode secure cookie hash key")
	}

	blockKey, err := hex.DecodeString(adminConfig.SecureCookieBlockKey)
	if err != nil {
		log.WithError(err).Fatal("could not decode secure cookie block key")
	}

	userRepo := repository.NewUserRepository(service)
	attemptRepo := repository.NewLoginAttemptRepository(service)
	codeRepo := repository.NewTwoFactorCodeRepository(service)
	tokenRepo := repository.NewRememberTokenRepository(service)
	sessionRepo := repository.NewSessionRepository(service)

	// Expired pending sessions and lapsed device trusts are already refused
	// on read; the sweep just keeps the tables from growing without bound.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if sweepErr := sessionRepo.DeleteExpired(ctx); sweepErr != nil {
					log.WithError(sweepErr).Warn("could not sweep expired sessions")
				}
				if sweepErr := tokenRepo.DeleteExpired(ctx); sweepErr != nil {
					log.WithError(sweepErr).Warn("could not sweep expired remember tokens")
				}
			}
		}
	}()

	lockout := business.NewLockoutPolicy(userRepo, adminConfig.LockoutThreshold, adminConfig.LockoutCooldown())
	verifier := business.NewCredentialVerifier(ctx)
	twoFactor := business.NewTwoFactorManager(service, adminConfig, userRepo, codeRepo)
	remember := business.NewRememberDeviceManager(adminConfig, userRepo, tokenRepo)

	return &AuthServer{
		sc:      securecookie.New(hashKey, blockKey),
		service: service,
		config:  adminConfig,

		userRepo:    userRepo,
		attemptRepo: attemptRepo,

		orchestrator: business.NewLoginOrchestrator(
			adminConfig, userRepo, attemptRepo, sessionRepo,
			verifier, lockout, twoFactor, remember,
		),

		loginRateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts: adminConfig.LoginRateLimitMaxAttempts,
			Window:      time.Duration(adminConfig.LoginRateLimitWindowSeconds) * time.Second,
		}),
	}
}

func (h *AuthServer) Service() *frame.Service {
	return h.service
}

func (h *AuthServer) Config() *config.AdminConfig {
	return h.config
}

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (h *AuthServer) writeError(ctx context.Context, w http.ResponseWriter, err error, code int, msg string) {

	w.Header().Set("Content-Type", "application/json")

	log := h.service.Log(ctx).
		WithField("code", code).
		WithField("message", msg).WithError(err)
	log.Error("internal service error")
	w.WriteHeader(code)

	message := msg
	if h.config.ExposeErrors {
		message = fmt.Sprintf("%s : %s", msg, err)
	}

	err = json.NewEncoder(w).Encode(&ErrorResponse{
		Code:    code,
		Message: message,
	})
	if err != nil {
		log.WithError(err).Error("could not write error to response")
	}
}

// sessionCookie reads and decodes the signed session cookie, empty on any
// failure.
func (h *AuthServer) sessionCookie(req *http.Request) string {
	cookie, err := req.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}

	var sessionID string
	if decodeErr := h.sc.Decode(SessionCookieKey, cookie.Value, &sessionID); decodeErr != nil {
		return ""
	}
	return sessionID
}

func (h *AuthServer) setSessionCookie(rw http.ResponseWriter, sessionID string, ttl time.Duration) error {
	encoded, err := h.sc.Encode(SessionCookieKey, sessionID)
	if err != nil {
		return err
	}

	http.SetCookie(rw, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(ttl),
	})
	return nil
}

func (h *AuthServer) clearSessionCookie(rw http.ResponseWriter) {
	http.SetCookie(rw, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// rememberCookie reads the raw trusted device token off its signed cookie,
// empty on any failure.
func (h *AuthServer) rememberCookie(req *http.Request) string {
	cookie, err := req.Cookie(RememberCookieName)
	if err != nil {
		return ""
	}

	var rawToken string
	if decodeErr := h.sc.Decode(RememberCookieKey, cookie.Value, &rawToken); decodeErr != nil {
		return ""
	}
	return rawToken
}

func (h *AuthServer) setRememberCookie(rw http.ResponseWriter, rawToken string) error {
	encoded, err := h.sc.Encode(RememberCookieKey, rawToken)
	if err != nil {
		return err
	}

	http.SetCookie(rw, &http.Cookie{
		Name:     RememberCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   rememberCookieMaxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(rememberCookieMaxAge * time.Second),
	})
	return nil
}

func (h *AuthServer) clearRememberCookie(rw http.ResponseWriter) {
	http.SetCookie(rw, &http.Cookie{
		Name:     RememberCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
