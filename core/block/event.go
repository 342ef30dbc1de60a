package block

import (
	"errors"
	"fmt"
)

// EventType tags the payload variant carried by a block.
type EventType string

const (
	EventGenesis         EventType = "GENESIS"
	EventRequestCreated  EventType = "REQUEST_CREATED"
	EventRequestApproved EventType = "REQUEST_APPROVED"
	EventRequestRejected EventType = "REQUEST_REJECTED"
)

// DefaultPurpose is recorded when a doctor does not state one.
const DefaultPurpose = "medical_review"

// Event is the payload of a block. Which fields are set depends on Type:
// REQUEST_CREATED carries DoctorRef/PatientRef/Purpose, the resolutions carry
// RequestBlockIndex. Refs are either plaintext ids or identifier hashes.
type Event struct {
	Type              EventType `json:"type"`
	DoctorRef         string    `json:"doctorRef,omitempty"`
	PatientRef        string    `json:"patientRef,omitempty"`
	Purpose           string    `json:"purpose,omitempty"`
	RequestBlockIndex uint64    `json:"requestBlockIndex,omitempty"`
}

// GenesisEvent returns the payload of the first block.
func GenesisEvent() Event {
	return Event{Type: EventGenesis}
}

// RequestCreated builds a REQUEST_CREATED payload.
func RequestCreated(doctorRef, patientRef, purpose string) Event {
	if purpose == "" {
		purpose = DefaultPurpose
	}
	return Event{Type: EventRequestCreated, DoctorRef: doctorRef, PatientRef: patientRef, Purpose: purpose}
}

// RequestApproved builds a REQUEST_APPROVED payload referencing a request block.
func RequestApproved(requestBlockIndex uint64) Event {
	return Event{Type: EventRequestApproved, RequestBlockIndex: requestBlockIndex}
}

// RequestRejected builds a REQUEST_REJECTED payload referencing a request block.
func RequestRejected(requestBlockIndex uint64) Event {
	return Event{Type: EventRequestRejected, RequestBlockIndex: requestBlockIndex}
}

// IsResolution reports whether the event approves or rejects a request.
func (e Event) IsResolution() bool {
	return e.Type == EventRequestApproved || e.Type == EventRequestRejected
}

// Validate checks that the fields required by the event type are present.
func (e Event) Validate() error {
	switch e.Type {
	case EventGenesis:
		return nil
	case EventRequestCreated:
		if e.DoctorRef == "" {
			return errors.New("doctorRef is required")
		}
		if e.PatientRef == "" {
			return errors.New("patientRef is required")
		}
		if len(e.Purpose) > 256 {
			return errors.New("purpose too long (max 256 characters)")
		}
		return nil
	case EventRequestApproved, EventRequestRejected:
		if e.RequestBlockIndex == 0 {
			return errors.New("requestBlockIndex is required")
		}
		return nil
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
}

// fields is the canonical map form of the payload; unset fields are left out
// so that a payload hashes the same however it was built.
func (e Event) fields() map[string]interface{} {
	m := map[string]interface{}{"type": string(e.Type)}
	if e.DoctorRef != "" {
		m["doctorRef"] = e.DoctorRef
	}
	if e.PatientRef != "" {
		m["patientRef"] = e.PatientRef
	}
	if e.Purpose != "" {
		m["purpose"] = e.Purpose
	}
	if e.RequestBlockIndex != 0 {
		m["requestBlockIndex"] = e.RequestBlockIndex
	}
	return m
}
