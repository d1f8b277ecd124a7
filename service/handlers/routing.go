package handlers

import (
	"context"
	"encoding/hex"
	"net/http"
	"os"

	"github.com/gorilla/csrf"
	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

func (h *AuthServer) addHandler(router *mux.Router,
	f func(w http.ResponseWriter, r *http.Request) error, path string, name string, method string) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err != nil {
			h.service.Log(r.Context()).WithError(err).
				WithField("path", path).
				WithField("name", name).
				Error("handler error")
			h.writeError(r.Context(), w, err, http.StatusInternalServerError, "could not process request")
		}
	})

	router.Path(path).
		Name(name).
		Handler(handler).
		Methods(method)
}

// NewAdminRouterV1 wires the HTTP surface: the /s login flow behind CSRF
// protection and the gated admin pages at the root.
func (h *AuthServer) NewAdminRouterV1(ctx context.Context) http.Handler {

	log := h.service.Log(ctx)
	router := mux.NewRouter().StrictSlash(true)

	csrfSecret, err := hex.DecodeString(h.config.CsrfSecret)
	if err != nil {
		log.WithError(err).Fatal("could not decode csrf secret")
	}

	csrfMiddleware := csrf.Protect(csrfSecret, csrf.Secure(true))

	sRouter := router.PathPrefix("/s").Subrouter()
	sRouter.Use(csrfMiddleware)

	h.addHandler(sRouter, h.ShowLoginEndpoint, "/login", "ShowLoginEndpoint", "GET")
	h.addHandler(sRouter, h.SubmitLoginEndpoint, "/login/post", "SubmitLoginEndpoint", "POST")
	h.addHandler(sRouter, h.ShowVerificationEndpoint, "/login/verify", "ShowVerificationEndpoint", "GET")
	h.addHandler(sRouter, h.SubmitVerificationEndpoint, "/login/verify/post", "SubmitVerificationEndpoint", "POST")
	h.addHandler(sRouter, h.ResendVerificationEndpoint, "/login/verify/resend", "ResendVerificationEndpoint", "POST")
	h.addHandler(sRouter, h.ShowSetupEndpoint, "/twofa/setup", "ShowSetupEndpoint", "GET")
	h.addHandler(sRouter, h.SubmitSetupEndpoint, "/twofa/setup/post", "SubmitSetupEndpoint", "POST")
	h.addHandler(sRouter, h.ShowLogoutEndpoint, "/logout", "ShowLogoutEndpoint", "GET")

	h.addHandler(router, h.ErrorEndpoint, "/error", "ErrorEndpoint", "GET")
	h.addHandler(router, h.HealthEndpoint, "/healthz", "HealthEndpoint", "GET")

	gated := router.PathPrefix("/").Subrouter()
	gated.Use(csrfMiddleware)
	gated.Use(h.requireLogin)
	h.addHandler(gated, h.IndexEndpoint, "/", "IndexEndpoint", "GET")

	router.NotFoundHandler = http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if nfErr := h.NotFoundEndpoint(rw, req); nfErr != nil {
			h.writeError(req.Context(), rw, nfErr, http.StatusInternalServerError, "could not render page")
		}
	})

	return ghandlers.RecoveryHandler()(
		ghandlers.CombinedLoggingHandler(os.Stdout, router))
}
