package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"medchain/core/access"
	"medchain/core/auth"
)

type Server struct {
	svc        *access.Service
	verifier   *auth.Verifier
	ListenAddr string
	log        zerolog.Logger
	startTime  time.Time
}

type Option func(*Server)

// WithVerifier turns on bearer-token checks for the /api routes.
func WithVerifier(v *auth.Verifier) Option {
	return func(s *Server) { s.verifier = v }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

func NewServer(svc *access.Service, listenAddr string, opts ...Option) *Server {
	s := &Server{
		svc:        svc,
		ListenAddr: listenAddr,
		log:        zerolog.Nop(),
		startTime:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Access requests
	mux.Handle("POST /api/requests", s.guard(s.handleCreateRequest, auth.RoleDoctor))
	mux.Handle("GET /api/requests/pending/{patientId}", s.guard(s.handlePending, auth.RolePatient))
	mux.Handle("GET /api/requests/doctor/{doctorId}", s.guard(s.handleDoctorHistory, auth.RoleDoctor))
	mux.Handle("GET /api/requests/{blockIndex}", s.guard(s.handleRequestStatus, auth.RoleDoctor, auth.RolePatient))
	mux.Handle("POST /api/requests/{blockIndex}/approve", s.guard(s.handleApprove, auth.RolePatient))
	mux.Handle("POST /api/requests/{blockIndex}/reject", s.guard(s.handleReject, auth.RolePatient))

	// Grants and records
	mux.Handle("GET /api/access", s.guard(s.handleAccessCheck, auth.RoleDoctor, auth.RolePatient))
	mux.Handle("GET /api/patient/{patientId}/data", s.guard(s.handlePatientData, auth.RoleDoctor))
	mux.Handle("GET /api/audit/{patientId}", s.guard(s.handleAudit, auth.RolePatient))

	// Chain inspection
	mux.Handle("GET /api/chain", s.guard(s.handleChain, auth.RoleAdmin))
	mux.Handle("GET /api/chain/validate", s.guard(s.handleValidate, auth.RoleAdmin))

	// Modular health/status endpoints
	mux.HandleFunc("GET /nodehealth", s.HandleNodeHealth)
	mux.HandleFunc("GET /health/liveness", s.HandleLiveness)
	mux.HandleFunc("GET /health/readiness", s.HandleReadiness)
	mux.HandleFunc("GET /status", s.HandleStatus)

	return s.requestID(s.accessLog(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.ListenAddr).Msg("api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info().Msg("api shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
