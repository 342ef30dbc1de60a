// Package state derives request status, grants and audit trails by replaying
// the chain. Nothing is cached: every query scans a fresh snapshot, so answers
// always reflect the latest append.
package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"medchain/core/block"
)

// ErrRequestNotFound is returned when a block index does not hold a
// REQUEST_CREATED event.
var ErrRequestNotFound = errors.New("request not found")

// Status is the resolved state of an access request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Source provides an immutable copy of the chain.
type Source interface {
	Snapshot() []block.Block
}

// RequestView is a REQUEST_CREATED event annotated with its status.
type RequestView struct {
	BlockIndex uint64    `json:"blockIndex"`
	DoctorRef  string    `json:"doctorId"`
	PatientRef string    `json:"patientId"`
	Purpose    string    `json:"purpose"`
	CreatedAt  time.Time `json:"createdAt"`
	Status     Status    `json:"status"`
}

// AuditEntry is one line of a patient's trail.
type AuditEntry struct {
	Event             block.EventType `json:"event"`
	BlockIndex        uint64          `json:"blockIndex"`
	RequestBlockIndex uint64          `json:"requestBlockIndex"`
	DoctorRef         string          `json:"doctorId"`
	PatientRef        string          `json:"patientId"`
	Purpose           string          `json:"purpose,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
}

// AuditTrail is a patient's trail, newest first. Orphans counts resolution
// events anywhere in the chain that point at a block which is not a request;
// such events name no patient, so the count is chain-wide and the same for
// every trail built from one snapshot.
type AuditTrail struct {
	Entries []AuditEntry `json:"audit"`
	Orphans int          `json:"orphans"`
}

// Projector answers derived queries over a Source.
type Projector struct {
	src Source
	log zerolog.Logger
}

func NewProjector(src Source, log zerolog.Logger) *Projector {
	return &Projector{src: src, log: log}
}

// replay is one pass over a snapshot. Resolutions are indexed by the first
// event seen for each request; later ones are ignored.
type replay struct {
	chain    []block.Block
	requests map[uint64]block.Block
	resolved map[uint64]Status
}

func newReplay(chain []block.Block) *replay {
	r := &replay{
		chain:    chain,
		requests: make(map[uint64]block.Block),
		resolved: make(map[uint64]Status),
	}
	for _, b := range chain {
		switch b.Data.Type {
		case block.EventRequestCreated:
			r.requests[b.Index] = b
		case block.EventRequestApproved, block.EventRequestRejected:
			idx := b.Data.RequestBlockIndex
			if _, seen := r.resolved[idx]; seen {
				continue
			}
			if b.Data.Type == block.EventRequestApproved {
				r.resolved[idx] = StatusApproved
			} else {
				r.resolved[idx] = StatusRejected
			}
		}
	}
	return r
}

func (r *replay) status(idx uint64) Status {
	if s, ok := r.resolved[idx]; ok {
		return s
	}
	return StatusPending
}

func (r *replay) view(b block.Block) RequestView {
	return RequestView{
		BlockIndex: b.Index,
		DoctorRef:  b.Data.DoctorRef,
		PatientRef: b.Data.PatientRef,
		Purpose:    b.Data.Purpose,
		CreatedAt:  b.Timestamp,
		Status:     r.status(b.Index),
	}
}

// StatusOf returns the status of the request created at idx.
func (p *Projector) StatusOf(idx uint64) (Status, error) {
	r := newReplay(p.src.Snapshot())
	if _, ok := r.requests[idx]; !ok {
		return "", fmt.Errorf("block %d: %w", idx, ErrRequestNotFound)
	}
	return r.status(idx), nil
}

// Request returns the view of the request created at idx.
func (p *Projector) Request(idx uint64) (RequestView, error) {
	r := newReplay(p.src.Snapshot())
	b, ok := r.requests[idx]
	if !ok {
		return RequestView{}, fmt.Errorf("block %d: %w", idx, ErrRequestNotFound)
	}
	return r.view(b), nil
}

// PendingFor lists the patient's unresolved requests in chain order.
func (p *Projector) PendingFor(patientRef string) []RequestView {
	r := newReplay(p.src.Snapshot())
	out := []RequestView{}
	for _, b := range r.chain {
		if b.Data.Type != block.EventRequestCreated || b.Data.PatientRef != patientRef {
			continue
		}
		if v := r.view(b); v.Status == StatusPending {
			out = append(out, v)
		}
	}
	return out
}

// HistoryFor lists every request the doctor has made, in chain order.
func (p *Projector) HistoryFor(doctorRef string) []RequestView {
	r := newReplay(p.src.Snapshot())
	out := []RequestView{}
	for _, b := range r.chain {
		if b.Data.Type == block.EventRequestCreated && b.Data.DoctorRef == doctorRef {
			out = append(out, r.view(b))
		}
	}
	return out
}

// IsAuthorized reports whether any request from doctorRef to patientRef has
// been approved. A false result is a denial, not an error.
func (p *Projector) IsAuthorized(doctorRef, patientRef string) bool {
	r := newReplay(p.src.Snapshot())
	for idx, b := range r.requests {
		if b.Data.DoctorRef == doctorRef && b.Data.PatientRef == patientRef && r.status(idx) == StatusApproved {
			return true
		}
	}
	return false
}

// AuditTrail returns the patient's creation and resolution events, newest
// first.
func (p *Projector) AuditTrail(patientRef string) AuditTrail {
	r := newReplay(p.src.Snapshot())
	trail := AuditTrail{Entries: []AuditEntry{}}

	for _, b := range r.chain {
		switch b.Data.Type {
		case block.EventRequestCreated:
			if b.Data.PatientRef != patientRef {
				continue
			}
			trail.Entries = append(trail.Entries, AuditEntry{
				Event:             b.Data.Type,
				BlockIndex:        b.Index,
				RequestBlockIndex: b.Index,
				DoctorRef:         b.Data.DoctorRef,
				PatientRef:        b.Data.PatientRef,
				Purpose:           b.Data.Purpose,
				Timestamp:         b.Timestamp,
			})
		case block.EventRequestApproved, block.EventRequestRejected:
			req, ok := r.requests[b.Data.RequestBlockIndex]
			if !ok {
				trail.Orphans++
				continue
			}
			if req.Data.PatientRef != patientRef {
				continue
			}
			trail.Entries = append(trail.Entries, AuditEntry{
				Event:             b.Data.Type,
				BlockIndex:        b.Index,
				RequestBlockIndex: req.Index,
				DoctorRef:         req.Data.DoctorRef,
				PatientRef:        req.Data.PatientRef,
				Timestamp:         b.Timestamp,
			})
		}
	}

	if trail.Orphans > 0 {
		p.log.Debug().Int("orphans", trail.Orphans).Msg("chain holds resolutions that reference no request")
	}

	for i, j := 0, len(trail.Entries)-1; i < j; i, j = i+1, j-1 {
		trail.Entries[i], trail.Entries[j] = trail.Entries[j], trail.Entries[i]
	}
	return trail
}

// Static is a Source over a fixed chain.
type Static []block.Block

func (s Static) Snapshot() []block.Block { return s }
