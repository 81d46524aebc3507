package httpx

import (
	"net/http"

	"github.com/target/rolegate/internal/service"
)

type healthResponse struct {
	Status       string `json:"status"`
	RoleRegistry string `json:"role_registry,omitempty"`
}

// healthHandler returns a 200 OK status for readiness/liveness checks, reporting the role
// registry cache state when available. HEAD requests get no body.
func healthHandler(registryState func() service.RegistryState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			return
		}
		resp := healthResponse{Status: "ok"}
		if registryState != nil {
			resp.RoleRegistry = string(registryState())
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
