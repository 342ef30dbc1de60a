package server

import (
	"context"
	"errors"
	"net/http"

	"medchain/core/access"
	"medchain/core/auth"
	"medchain/core/pow"
	"medchain/core/records"
	"medchain/core/state"
	"medchain/core/storage"
)

// StatusClientClosedRequest is reported when the caller went away before
// the write finished.
const StatusClientClosedRequest = 499

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, access.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, access.ErrAccessDenied), errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, state.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, access.ErrAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, pow.ErrPuzzleNotFound), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	case errors.Is(err, storage.ErrPersistence), errors.Is(err, records.ErrUnavailable), errors.Is(err, records.ErrInvalidRecord):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	ev := s.log.Warn()
	if code >= 500 {
		ev = s.log.Error()
	}
	ev.Err(err).Str("request_id", RequestIDFrom(r.Context())).Int("status", code).Msg("request failed")

	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = http.StatusText(code)
	}
	writeJSON(w, code, ErrorResponse{Error: msg, RequestID: RequestIDFrom(r.Context())})
}
