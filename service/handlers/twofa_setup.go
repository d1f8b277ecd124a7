package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/karibuweb/service-admin/service/business"
	"github.com/karibuweb/service-admin/service/models"
	"github.com/pitabwire/util"
)

// ShowSetupEndpoint renders the enrolment flow for users who signed in
// without a confirmed second factor.
func (h *AuthServer) ShowSetupEndpoint(rw http.ResponseWriter, req *http.Request) error {
	ctx := req.Context()

	session, _, err := h.orchestrator.SessionUser(ctx, h.sessionCookie(req))
	if err != nil {
		return err
	}

	if session == nil || !session.HasPendingFactor(models.PendingFactorSetup) {
		http.Redirect(rw, req, "/s/login", http.StatusSeeOther)
		return nil
	}

	return h.renderSetup(rw, req, nil, "")
}

// SubmitSetupEndpoint handles both halves of enrolment: provisioning a
// factor and confirming it with a first valid code.
func (h *AuthServer) SubmitSetupEndpoint(rw http.ResponseWriter, req *http.Request) error {
	ctx := req.Context()
	log := util.Log(ctx)

	sessionID := h.sessionCookie(req)

	switch req.FormValue("action") {
	case "begin":
		method := models.TwoFactorMethod(req.FormValue("method"))
		switch method {
		case models.TwoFactorMethodEmail, models.TwoFactorMethodTotp, models.TwoFactorMethodBoth:
		default:
			return h.renderSetup(rw, req, nil, "Pick how you want to verify sign ins.")
		}

		challenge, err := h.orchestrator.BeginTwoFactorSetup(ctx, sessionID, method)
		if err != nil {
			switch {
			case errors.Is(err, business.ErrSessionExpired):
				h.clearSessionCookie(rw)
				http.Redirect(rw, req, "/s/login", http.StatusSeeOther)
				return nil
			case errors.Is(err, business.ErrDeliveryFailure):
				log.Warn("setup code delivery failed")
				return h.renderSetup(rw, req, challenge, msgCodeNotSent)
			default:
				return err
			}
		}

		return h.renderSetup(rw, req, challenge, "")

	case "confirm":
		outcome, err := h.orchestrator.ConfirmTwoFactorSetup(ctx, sessionID, strings.TrimSpace(req.FormValue("code")))
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
				return h.renderSetup(rw, req, &business.SetupChallenge{}, msgCodeInvalid)
			default:
				return err
			}
		}

		if cookieErr := h.setSessionCookie(rw, outcome.Session.GetID(), h.config.SessionTTL()); cookieErr != nil {
			return cookieErr
		}

		http.Redirect(rw, req, "/", http.StatusSeeOther)
		return nil

	default:
		http.Redirect(rw, req, "/s/twofa/setup", http.StatusSeeOther)
		return nil
	}
}

func (h *AuthServer) renderSetup(rw http.ResponseWriter, req *http.Request, challenge *business.SetupChallenge, message string) error {
	payload := map[string]any{
		"error":          message,
		csrf.TemplateTag: csrf.TemplateField(req),
	}

	if challenge != nil {
		payload["challenge"] = true
		payload["secret"] = challenge.Secret
		payload["provisioningURL"] = challenge.URL
	}

	rw.Header().Set("Content-Type", "text/html")
	if message != "" {
		rw.WriteHeader(http.StatusUnprocessableEntity)
	}
	return setupTmpl.Execute(rw, payload)
}
