// liveness.go - Liveness probe logic
package server

// NodeLiveness returns true once the chain has been loaded.
func (s *Server) NodeLiveness() bool {
	return len(s.svc.Chain()) > 0
}
