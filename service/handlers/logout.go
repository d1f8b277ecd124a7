package handlers

import (
	"net/http"

	"github.com/pitabwire/util"
)

// ShowLogoutEndpoint discards the current session and clears its cookie.
// The trusted device cookie survives, trust is revoked separately.
func (h *AuthServer) ShowLogoutEndpoint(rw http.ResponseWriter, req *http.Request) error {
	ctx := req.Context()

	sessionID := h.sessionCookie(req)
	if sessionID != "" {
		err := h.orchestrator.Logout(ctx, sessionID)
		if err != nil {
			util.Log(ctx).WithError(err).WithField("session_id", sessionID).Warn("could not discard session")
		}
	}

	h.clearSessionCookie(rw)
	http.Redirect(rw, req, "/s/login", http.StatusSeeOther)
	return nil
}
