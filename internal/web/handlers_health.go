package web

import (
	"net/http"

	"github.com/JonMunkholm/coursetrack/internal/core"
)

// HealthResponse reports liveness and refresh slot usage.
type HealthResponse struct {
	Status  string                `json:"status"`
	Refresh core.RunLimiterStatus `json:"refresh"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok", Refresh: s.service.LimiterStatus()})
}
