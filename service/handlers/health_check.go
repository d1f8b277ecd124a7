package handlers

import (
	"encoding/json"
	"net/http"
)

// HealthEndpoint reports liveness including the datastore connection.
func (h *AuthServer) HealthEndpoint(rw http.ResponseWriter, req *http.Request) error {
	ctx := req.Context()

	status := "ok"
	code := http.StatusOK

	db := h.service.DB(ctx, true)
	if db == nil {
		status = "datastore unavailable"
		code = http.StatusServiceUnavailable
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	return json.NewEncoder(rw).Encode(map[string]string{"status": status})
}
