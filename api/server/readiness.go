// readiness.go - Readiness probe logic
package server

// NodeReadiness returns true if the chain is loaded and passes validation.
func (s *Server) NodeReadiness() bool {
	return s.NodeLiveness() && s.svc.ValidateChain()
}
