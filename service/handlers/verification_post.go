package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/karibuweb/service-admin/service/business"
	"github.com/pitabwire/util"
)

// SubmitVerificationEndpoint consumes the second factor submission on a
// pending session.
func (h *AuthServer) SubmitVerificationEndpoint(rw http.ResponseWriter, req *http.Request) error {
	ctx := req.Context()

	sessionID := h.sessionCookie(req)
	ipAddress := util.GetIP(req)

	outcome, err := h.orchestrator.VerifyTwoFactor(ctx, sessionID, business.VerifyInput{
		EmailCode:   strings.TrimSpace(req.FormValue("emailCode")),
		TotpCode:    strings.TrimSpace(req.FormValue("totpCode")),
		TrustDevice: req.FormValue("trustDevice") == "1",
		IPAddress:   ipAddress,
		UserAgent:   req.UserAgent(),
		Device:      deviceInfo(req),
	})

	if err != nil {
		switch {
		case errors.Is(err, business.ErrSessionExpired):
			h.clearSessionCookie(rw)
			http.Redirect(rw, req, "/s/login", http.StatusSeeOther)
			return nil
		case errors.Is(err, business.ErrAccountLocked):
			h.clearSessionCookie(rw)
			return h.renderLoginError(rw, req, lockedMessage(outcome.RetryAfter))
		case errors.Is(err, business.ErrInvalidOrExpiredCode):
			return h.renderVerification(rw, req, outcome.Session, msgCodeInvalid)
		default:
			return err
		}
	}

	if outcome.State == business.LoginStateTwoFactorPending {
		// One factor down, the other still outstanding.
		return h.renderVerification(rw, req, outcome.Session, "")
	}

	h.ResetLoginRateLimit(ctx, ipAddress, outcome.User.Email)

	if outcome.RememberToken != "" {
		if cookieErr := h.setRememberCookie(rw, outcome.RememberToken); cookieErr != nil {
			return cookieErr
		}
	}

	if cookieErr := h.setSessionCookie(rw, outcome.Session.GetID(), h.config.SessionTTL()); cookieErr != nil {
		return cookieErr
	}

	http.Redirect(rw, req, "/", http.StatusSeeOther)
	return nil
}
