package http

import (
	"net/http"

	"github.com/mkrupp/taskmanager/internal/domain"
)

// HealthHandler reports liveness of the named service. It does not touch any store.
func HealthHandler(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_ = WriteJSON(w, http.StatusOK, domain.HealthStatus{Status: "ok", Service: service})
	}
}
