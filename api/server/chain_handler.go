package server

import (
	"net/http"

	"medchain/core/block"
	"medchain/core/scan"
	"medchain/core/validation"
)

type ChainResponse struct {
	Length     int            `json:"length"`
	MerkleRoot string         `json:"merkle_root"`
	Blocks     []scan.Summary `json:"blocks"`
}

type ValidateResponse struct {
	Valid      bool                   `json:"valid"`
	Violations []validation.Violation `json:"violations"`
}

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	chain := s.svc.Chain()
	writeJSON(w, http.StatusOK, ChainResponse{
		Length:     len(chain),
		MerkleRoot: block.MerkleRoot(chain),
		Blocks:     scan.Summaries(chain),
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	viols := s.svc.Diagnose()
	if viols == nil {
		viols = []validation.Violation{}
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: len(viols) == 0, Violations: viols})
}
