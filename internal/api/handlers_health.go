package api

import (
	"context"
	"net/http"
	"time"

	"github.com/property-portfolio/internal/logging"
	"github.com/property-portfolio/internal/types"
)

const healthTimeout = 2 * time.Second

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := types.HealthStatus{Status: "healthy", Database: "ok"}

	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := s.health.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).WithError(err).Warn("health check: database unreachable")
			status = types.HealthStatus{Status: "unhealthy", Database: "unreachable"}
			respondJSON(w, http.StatusServiceUnavailable, status)
			return
		}
	}

	respondJSON(w, http.StatusOK, status)
}
