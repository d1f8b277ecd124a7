package handlers

import (
	"net/http"
)

const recentAttemptLimit = 10

// IndexEndpoint is the dashboard shown after a completed login. It surfaces
// the account's recent sign in activity so a compromise is noticeable.
func (h *AuthServer) IndexEndpoint(rw http.ResponseWriter, req *http.Request) error {
	ctx := req.Context()

	user, err := h.currentUser(req)
	if err != nil {
		return err
	}

	if user == nil {
		http.Redirect(rw, req, "/s/login", http.StatusSeeOther)
		return nil
	}

	attempts, err := h.attemptRepo.ListRecent(ctx, user.Email, recentAttemptLimit)
	if err != nil {
		return err
	}

	payload := map[string]any{
		"name":     user.Name,
		"attempts": attempts,
	}

	rw.Header().Set("Content-Type", "text/html")
	return indexTmpl.Execute(rw, payload)
}
