package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/csrf"
)

// ShowLoginEndpoint renders the credential form. Users who already carry an
// authenticated session go straight to the dashboard.
func (h *AuthServer) ShowLoginEndpoint(rw http.ResponseWriter, req *http.Request) error {
	ctx := req.Context()

	session, _, err := h.orchestrator.SessionUser(ctx, h.sessionCookie(req))
	if err != nil {
		return err
	}

	if session != nil && session.IsAuthenticated(time.Now()) {
		http.Redirect(rw, req, "/", http.StatusSeeOther)
		return nil
	}

	payload := map[string]any{
		"error":          req.FormValue("error"),
		csrf.TemplateTag: csrf.TemplateField(req),
	}

	rw.Header().Set("Content-Type", "text/html")
	return loginTmpl.Execute(rw, payload)
}

func (h *AuthServer) renderLoginError(rw http.ResponseWriter, req *http.Request, message string) error {
	payload := map[string]any{
		"error":          message,
		csrf.TemplateTag: csrf.TemplateField(req),
	}

	rw.Header().Set("Content-Type", "text/html")
	rw.WriteHeader(http.StatusUnprocessableEntity)
	return loginTmpl.Execute(rw, payload)
}
