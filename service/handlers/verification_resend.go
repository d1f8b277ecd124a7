package handlers

import (
	"errors"
	"net/http"

	"github.com/karibuweb/service-admin/service/business"
	"github.com/karibuweb/service-admin/service/models"
	"github.com/pitabwire/util"
)

// ResendVerificationEndpoint reissues the email code on a pending session.
// The fresh code invalidates any earlier one.
func (h *AuthServer) ResendVerificationEndpoint(rw http.ResponseWriter, req *http.Request) error {
	ctx := req.Context()

	sessionID := h.sessionCookie(req)

	// Resends burn the same throttle budget as login submissions so the
	// mailbox cannot be flooded from a pending session.
	if limit := h.CheckLoginRateLimit(ctx, util.GetIP(req), ""); !limit.Allowed {
		session, _, sessErr := h.orchestrator.SessionUser(ctx, sessionID)
		if sessErr != nil {
			return sessErr
		}
		if session == nil {
			http.Redirect(rw, req, "/s/login", http.StatusSeeOther)
			return nil
		}
		return h.renderVerification(rw, req, session, msgTooManyAttempts)
	}

	err := h.orchestrator.ResendEmailCode(ctx, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, business.ErrSessionExpired):
			h.clearSessionCookie(rw)
			http.Redirect(rw, req, "/s/login", http.StatusSeeOther)
			return nil
		case errors.Is(err, business.ErrAccountLocked):
			h.clearSessionCookie(rw)
			return h.renderLoginError(rw, req, msgTooManyAttempts)
		case errors.Is(err, business.ErrDeliveryFailure):
			session, _, sessErr := h.orchestrator.SessionUser(ctx, sessionID)
			if sessErr != nil {
				return sessErr
			}
			if session == nil || session.Status != models.SessionStatusPending2FA {
				http.Redirect(rw, req, "/s/login", http.StatusSeeOther)
				return nil
			}
			return h.renderVerification(rw, req, session, msgCodeNotSent)
		default:
			return err
		}
	}

	http.Redirect(rw, req, "/s/login/verify", http.StatusSeeOther)
	return nil
}
