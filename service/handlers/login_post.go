package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/karibuweb/service-admin/service/business"
	"github.com/karibuweb/service-admin/utils"
	"github.com/pitabwire/util"
	"gorm.io/datatypes"
)

const (
	msgInvalidCredentials = "Invalid email or password."
	msgTooManyAttempts    = "Too many attempts. Please try again later."
	msgCodeInvalid        = "That code is invalid or has expired."
	msgCodeNotSent        = "We could not send your code. Please try again."
)

func lockedMessage(retryAfter time.Duration) string {
	minutes := int(retryAfter.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Too many attempts. Please try again in about %d minutes.", minutes)
}

func deviceInfo(req *http.Request) datatypes.JSONMap {
	return datatypes.JSONMap{
		"user_agent": req.UserAgent(),
		"referer":    req.Referer(),
	}
}

// SubmitLoginEndpoint handles the credential submission, the first step of
// the login state machine.
func (h *AuthServer) SubmitLoginEndpoint(rw http.ResponseWriter, req *http.Request) error {
	ctx := req.Context()
	log := util.Log(ctx)

	email := strings.ToLower(strings.TrimSpace(req.FormValue("email")))
	password := req.FormValue("password")
	ipAddress := util.GetIP(req)

	if email == "" || password == "" || !utils.IsEmail(email) {
		return h.renderLoginError(rw, req, msgInvalidCredentials)
	}

	// Request level throttle fires before any credential or store work.
	if limit := h.CheckLoginRateLimit(ctx, ipAddress, email); !limit.Allowed {
		return h.renderLoginError(rw, req, msgTooManyAttempts)
	}

	outcome, err := h.orchestrator.LoginStep1(ctx, business.LoginInput{
		Email:         email,
		Password:      password,
		RememberToken: h.rememberCookie(req),
		IPAddress:     ipAddress,
		UserAgent:     req.UserAgent(),
		Device:        deviceInfo(req),
	})

	if err != nil {
		switch {
		case errors.Is(err, business.ErrInvalidCredentials):
			return h.renderLoginError(rw, req, msgInvalidCredentials)
		case errors.Is(err, business.ErrAccountLocked):
			return h.renderLoginError(rw, req, lockedMessage(outcome.RetryAfter))
		case errors.Is(err, business.ErrDeliveryFailure):
			// The pending session exists, send the user on so they can
			// request a resend from the verification page.
			log.WithField("email", email).Warn("login code delivery failed at login")
		default:
			return err
		}
	}

	switch outcome.State {
	case business.LoginStateAuthenticated:
		h.ResetLoginRateLimit(ctx, ipAddress, email)
		if cookieErr := h.setSessionCookie(rw, outcome.Session.GetID(), h.config.SessionTTL()); cookieErr != nil {
			return cookieErr
		}
		http.Redirect(rw, req, "/", http.StatusSeeOther)
		return nil

	case business.LoginStateSetupTwoFactor:
		if cookieErr := h.setSessionCookie(rw, outcome.Session.GetID(), h.config.PendingSessionTTL()); cookieErr != nil {
			return cookieErr
		}
		http.Redirect(rw, req, "/s/twofa/setup", http.StatusSeeOther)
		return nil

	case business.LoginStateTwoFactorPending:
		if cookieErr := h.setSessionCookie(rw, outcome.Session.GetID(), h.config.PendingSessionTTL()); cookieErr != nil {
			return cookieErr
		}
		http.Redirect(rw, req, "/s/login/verify", http.StatusSeeOther)
		return nil

	default:
		return h.renderLoginError(rw, req, msgInvalidCredentials)
	}
}
