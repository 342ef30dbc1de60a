// health_handler.go - HTTP handlers for /nodehealth, /health/liveness, /health/readiness
package server

import (
	"net/http"
)

// HandleLiveness responds to /health/liveness
func (s *Server) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{Alive: s.NodeLiveness()})
}

// HandleReadiness responds to /health/readiness
func (s *Server) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ready := s.NodeReadiness()
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, ReadinessResponse{Ready: ready})
}

// NodeHealthResponse is the response type for the /nodehealth endpoint
type NodeHealthResponse struct {
	Status  string      `json:"status"`
	Metrics NodeMetrics `json:"metrics"`
}

// HandleNodeHealth responds to /nodehealth (summary health)
func (s *Server) HandleNodeHealth(w http.ResponseWriter, r *http.Request) {
	metrics := s.GetNodeMetrics()
	writeJSON(w, http.StatusOK, NodeHealthResponse{Status: nodeStatus(metrics), Metrics: metrics})
}
