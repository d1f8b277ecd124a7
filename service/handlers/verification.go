package handlers

import (
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/karibuweb/service-admin/service/models"
)

// ShowVerificationEndpoint renders the second factor form for a pending
// session. Without one the user starts over at the login form.
func (h *AuthServer) ShowVerificationEndpoint(rw http.ResponseWriter, req *http.Request) error {
	ctx := req.Context()

	session, _, err := h.orchestrator.SessionUser(ctx, h.sessionCookie(req))
	if err != nil {
		return err
	}

	if session == nil || session.Status != models.SessionStatusPending2FA {
		http.Redirect(rw, req, "/s/login", http.StatusSeeOther)
		return nil
	}

	if session.HasPendingFactor(models.PendingFactorSetup) {
		http.Redirect(rw, req, "/s/twofa/setup", http.StatusSeeOther)
		return nil
	}

	return h.renderVerification(rw, req, session, "")
}

func (h *AuthServer) renderVerification(rw http.ResponseWriter, req *http.Request, session *models.Session, message string) error {
	payload := map[string]any{
		"error":          message,
		"needsEmailCode": session.HasPendingFactor(models.PendingFactorEmail),
		"needsTotpCode":  session.HasPendingFactor(models.PendingFactorTotp),
		csrf.TemplateTag: csrf.TemplateField(req),
	}

	rw.Header().Set("Content-Type", "text/html")
	if message != "" {
		rw.WriteHeader(http.StatusUnprocessableEntity)
	}
	return verifyTmpl.Execute(rw, payload)
}
