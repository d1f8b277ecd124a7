package handlers

import (
	"net/http"
)

func (h *AuthServer) ErrorEndpoint(rw http.ResponseWriter, req *http.Request) error {

	payload := map[string]any{
		"errorTitle":       req.FormValue("error"),
		"errorDescription": req.FormValue("error_description"),
	}

	rw.Header().Set("Content-Type", "text/html")
	rw.WriteHeader(http.StatusInternalServerError)
	return errorTmpl.Execute(rw, payload)
}

func (h *AuthServer) NotFoundEndpoint(rw http.ResponseWriter, _ *http.Request) error {
	rw.Header().Set("Content-Type", "text/html")
	rw.WriteHeader(http.StatusNotFound)
	return notFoundTmpl.Execute(rw, map[string]any{})
}
