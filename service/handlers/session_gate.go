package handlers

import (
	"net/http"
	"time"

	"github.com/karibuweb/service-admin/service/models"
	"github.com/karibuweb/service-admin/utils"
)

// requireLogin gates the admin surface. Anonymous visitors land on the
// login form; a pending session is sent back into the second factor flow
// rather than being granted anything.
func (h *AuthServer) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		ctx := req.Context()

		session, user, err := h.orchestrator.SessionUser(ctx, h.sessionCookie(req))
		if err != nil {
			h.writeError(ctx, rw, err, http.StatusInternalServerError, "could not resolve session")
			return
		}

		if session == nil {
			h.clearSessionCookie(rw)
			http.Redirect(rw, req, "/s/login", http.StatusSeeOther)
			return
		}

		if session.IsPending(time.Now()) {
			if session.HasPendingFactor(models.PendingFactorSetup) {
				http.Redirect(rw, req, "/s/twofa/setup", http.StatusSeeOther)
				return
			}
			http.Redirect(rw, req, "/s/login/verify", http.StatusSeeOther)
			return
		}

		if !session.IsAuthenticated(time.Now()) {
			h.clearSessionCookie(rw)
			http.Redirect(rw, req, "/s/login", http.StatusSeeOther)
			return
		}

		ctx = utils.SessionIDToContext(ctx, session.GetID())
		ctx = utils.UserIDToContext(ctx, user.GetID())
		next.ServeHTTP(rw, req.WithContext(ctx))
	})
}

// currentUser resolves the authenticated user for handlers behind
// requireLogin, nil when the gate did not run.
func (h *AuthServer) currentUser(req *http.Request) (*models.User, error) {
	userID := utils.UserIDFromContext(req.Context())
	if userID == "" {
		return nil, nil
	}
	return h.userRepo.GetByID(req.Context(), userID)
}
