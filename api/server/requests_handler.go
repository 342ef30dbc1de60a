package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"medchain/core/access"
	"medchain/core/auth"
	"medchain/core/state"
)

const maxBodyBytes = 1 << 20

// CreateRequestBody is the payload of POST /api/requests.
type CreateRequestBody struct {
	DoctorID  string `json:"doctorId"`
	PatientID string `json:"patientId"`
	Purpose   string `json:"purpose,omitempty"`
}

type CreateRequestResponse struct {
	Message    string            `json:"message"`
	BlockIndex uint64            `json:"blockIndex"`
	Request    state.RequestView `json:"request"`
}

type DecisionResponse struct {
	Message           string `json:"message"`
	RequestBlockIndex uint64 `json:"requestBlockIndex"`
	BlockIndex        uint64 `json:"blockIndex"`
}

type AccessResponse struct {
	DoctorID   string `json:"doctorId"`
	PatientID  string `json:"patientId"`
	Authorized bool   `json:"authorized"`
}

// actingAs checks that an authenticated caller with role speaks for id.
// Admins may act for anyone.
func actingAs(r *http.Request, role, id string) error {
	c := ClaimsFrom(r.Context())
	if c == nil || c.Role == auth.RoleAdmin {
		return nil
	}
	if c.Role != role || c.Subject != id {
		return fmt.Errorf("%w: token subject %s cannot act as %s %s", auth.ErrForbidden, c.Subject, role, id)
	}
	return nil
}

func blockIndexParam(r *http.Request) (uint64, error) {
	idx, err := strconv.ParseUint(r.PathValue("blockIndex"), 10, 64)
	if err != nil || idx == 0 {
		return 0, fmt.Errorf("%w: block index must be a positive integer", access.ErrInvalidInput)
	}
	return idx, nil
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body CreateRequestBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid JSON: %v", access.ErrInvalidInput, err))
		return
	}
	if err := actingAs(r, auth.RoleDoctor, body.DoctorID); err != nil {
		s.writeError(w, r, err)
		return
	}

	idx, err := s.svc.CreateRequest(r.Context(), body.DoctorID, body.PatientID, body.Purpose)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.svc.Request(idx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateRequestResponse{Message: "Request created", BlockIndex: idx, Request: view})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("patientId")
	if err := actingAs(r, auth.RolePatient, patientID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pending": s.svc.PendingFor(patientID)})
}

func (s *Server) handleDoctorHistory(w http.ResponseWriter, r *http.Request) {
	doctorID := r.PathValue("doctorId")
	if err := actingAs(r, auth.RoleDoctor, doctorID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": s.svc.HistoryFor(doctorID)})
}

func (s *Server) handleRequestStatus(w http.ResponseWriter, r *http.Request) {
	idx, err := blockIndexParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.svc.Request(idx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if actingAs(r, auth.RoleDoctor, view.DoctorRef) != nil && actingAs(r, auth.RolePatient, view.PatientRef) != nil {
		s.writeError(w, r, auth.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, "Approved", s.svc.Approve)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, "Rejected", s.svc.Reject)
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request, message string, apply func(context.Context, uint64) (uint64, error)) {
	idx, err := blockIndexParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ClaimsFrom(r.Context()) != nil {
		view, err := s.svc.Request(idx)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := actingAs(r, auth.RolePatient, view.PatientRef); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	at, err := apply(r.Context(), idx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DecisionResponse{Message: message, RequestBlockIndex: idx, BlockIndex: at})
}

func (s *Server) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	doctorID := r.URL.Query().Get("doctorId")
	patientID := r.URL.Query().Get("patientId")
	if doctorID == "" || patientID == "" {
		s.writeError(w, r, fmt.Errorf("%w: doctorId and patientId are required", access.ErrInvalidInput))
		return
	}
	if actingAs(r, auth.RoleDoctor, doctorID) != nil && actingAs(r, auth.RolePatient, patientID) != nil {
		s.writeError(w, r, auth.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, AccessResponse{
		DoctorID:   doctorID,
		PatientID:  patientID,
		Authorized: s.svc.IsAuthorized(doctorID, patientID),
	})
}

func (s *Server) handlePatientData(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("patientId")
	doctorID := r.URL.Query().Get("doctorId")
	if c := ClaimsFrom(r.Context()); doctorID == "" && c != nil {
		doctorID = c.Subject
	}
	if doctorID == "" {
		s.writeError(w, r, fmt.Errorf("%w: doctorId is required", access.ErrInvalidInput))
		return
	}
	if err := actingAs(r, auth.RoleDoctor, doctorID); err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.svc.PatientData(doctorID, patientID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("patientId")
	if err := actingAs(r, auth.RolePatient, patientID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.AuditTrail(patientID))
}
