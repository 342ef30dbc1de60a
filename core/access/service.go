// Package access is the application core: it writes request events to the
// ledger and answers queries through the projector, applying the identifier
// mode on the way in and out.
package access

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"medchain/core/audit"
	"medchain/core/block"
	"medchain/core/identity"
	"medchain/core/ledger"
	"medchain/core/notify"
	"medchain/core/records"
	"medchain/core/state"
	"medchain/core/validation"
)

var (
	// ErrAlreadyResolved is returned when approving or rejecting a request
	// that already has a decision on the chain.
	ErrAlreadyResolved = errors.New("request already resolved")
	// ErrAccessDenied is returned when a doctor without an approved request
	// asks for patient data.
	ErrAccessDenied = errors.New("access denied")
	ErrInvalidInput = errors.New("invalid input")
)

// Service is the entry point used by the HTTP and CLI adapters.
type Service struct {
	ledger    *ledger.Ledger
	projector *state.Projector
	validator *validation.Validator
	ids       *identity.Resolver
	records   records.Store
	audit     audit.AuditLogger
	notifier  notify.Notifier
	log       zerolog.Logger
}

type Option func(*Service)

// WithResolver sets the identifier mode. The default is plaintext.
func WithResolver(r *identity.Resolver) Option {
	return func(s *Service) { s.ids = r }
}

func WithRecords(r records.Store) Option {
	return func(s *Service) { s.records = r }
}

func WithAuditLogger(a audit.AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New wires a Service around l. The validator uses the ledger's own solver.
func New(l *ledger.Ledger, opts ...Option) *Service {
	s := &Service{
		ledger:    l,
		validator: validation.New(l.Solver()),
		ids:       identity.NewResolver(identity.ModePlaintext, nil, nil),
		audit:     audit.NewLogAuditLogger(zerolog.Nop()),
		notifier:  notify.NewLogNotifier(zerolog.Nop()),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.projector = state.NewProjector(l, s.log)
	return s
}

// CreateRequest records a doctor's request to read a patient's records and
// returns the block index that identifies it. An empty purpose defaults to
// medical_review.
func (s *Service) CreateRequest(ctx context.Context, doctorID, patientID, purpose string) (uint64, error) {
	ev := block.RequestCreated(doctorID, patientID, purpose)
	if err := ev.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	doctorRef, err := s.ids.Register(identity.KindDoctor, doctorID)
	if err != nil {
		return 0, err
	}
	patientRef, err := s.ids.Register(identity.KindPatient, patientID)
	if err != nil {
		return 0, err
	}
	ev.DoctorRef, ev.PatientRef = doctorRef, patientRef

	blk, err := s.ledger.Commit(ctx, func([]block.Block) (block.Event, error) { return ev, nil })
	if err != nil {
		return 0, err
	}

	s.audit.LogEvent(audit.AuditEvent{
		EventType: audit.EventRequestCreated,
		EntityID:  doctorID,
		Result:    "success",
		Reason:    ev.Purpose,
		Metadata:  map[string]string{"patient": patientID, "block": strconv.FormatUint(blk.Index, 10)},
	})
	s.notifier.Notify(notify.Notification{
		Type:              notify.NotifyPatient,
		Recipient:         patientID,
		RequestBlockIndex: blk.Index,
		Event:             string(block.EventRequestCreated),
		Reason:            ev.Purpose,
	})
	return blk.Index, nil
}

// Approve grants the request created at requestIndex.
func (s *Service) Approve(ctx context.Context, requestIndex uint64) (uint64, error) {
	return s.resolve(ctx, requestIndex, block.RequestApproved(requestIndex))
}

// Reject denies the request created at requestIndex.
func (s *Service) Reject(ctx context.Context, requestIndex uint64) (uint64, error) {
	return s.resolve(ctx, requestIndex, block.RequestRejected(requestIndex))
}

func (s *Service) resolve(ctx context.Context, requestIndex uint64, ev block.Event) (uint64, error) {
	var req state.RequestView
	blk, err := s.ledger.Commit(ctx, func(chain []block.Block) (block.Event, error) {
		view, err := state.NewProjector(state.Static(chain), s.log).Request(requestIndex)
		if err != nil {
			return block.Event{}, err
		}
		if view.Status != state.StatusPending {
			return block.Event{}, fmt.Errorf("block %d is %s: %w", requestIndex, view.Status, ErrAlreadyResolved)
		}
		req = view
		return ev, nil
	})
	if err != nil {
		return 0, err
	}

	doctorID := s.ids.Reveal(req.DoctorRef)
	s.audit.LogEvent(audit.AuditEvent{
		EventType: audit.EventRequestDecision,
		EntityID:  s.ids.Reveal(req.PatientRef),
		Result:    "success",
		Reason:    string(ev.Type),
		Metadata:  map[string]string{"doctor": doctorID, "request": strconv.FormatUint(requestIndex, 10)},
	})
	s.notifier.Notify(notify.Notification{
		Type:              notify.NotifyDoctor,
		Recipient:         doctorID,
		RequestBlockIndex: requestIndex,
		Event:             string(ev.Type),
	})
	return blk.Index, nil
}

// Status returns the resolved status of one request.
func (s *Service) Status(requestIndex uint64) (state.Status, error) {
	return s.projector.StatusOf(requestIndex)
}

// Request returns one request with its status and plaintext identifiers.
func (s *Service) Request(requestIndex uint64) (state.RequestView, error) {
	v, err := s.projector.Request(requestIndex)
	if err != nil {
		return state.RequestView{}, err
	}
	return s.reveal([]state.RequestView{v})[0], nil
}

// PendingFor lists the patient's open requests in chain order.
func (s *Service) PendingFor(patientID string) []state.RequestView {
	return s.reveal(s.projector.PendingFor(s.ids.Ref(identity.KindPatient, patientID)))
}

// HistoryFor lists every request made by the doctor with its status.
func (s *Service) HistoryFor(doctorID string) []state.RequestView {
	return s.reveal(s.projector.HistoryFor(s.ids.Ref(identity.KindDoctor, doctorID)))
}

// IsAuthorized reports whether doctorID holds an approved request for
// patientID.
func (s *Service) IsAuthorized(doctorID, patientID string) bool {
	return s.projector.IsAuthorized(
		s.ids.Ref(identity.KindDoctor, doctorID),
		s.ids.Ref(identity.KindPatient, patientID),
	)
}

// AuditTrail returns the patient's request history, newest first.
func (s *Service) AuditTrail(patientID string) state.AuditTrail {
	trail := s.projector.AuditTrail(s.ids.Ref(identity.KindPatient, patientID))
	for i := range trail.Entries {
		trail.Entries[i].DoctorRef = s.ids.Reveal(trail.Entries[i].DoctorRef)
		trail.Entries[i].PatientRef = s.ids.Reveal(trail.Entries[i].PatientRef)
	}
	return trail
}

// PatientData returns the patient's records if doctorID is authorized.
func (s *Service) PatientData(doctorID, patientID string) (records.PatientData, error) {
	meta := map[string]string{"patient": patientID}
	if !s.IsAuthorized(doctorID, patientID) {
		s.audit.LogEvent(audit.AuditEvent{
			EventType: audit.EventRecordRead,
			EntityID:  doctorID,
			Result:    "denied",
			Reason:    "no approved request",
			Metadata:  meta,
		})
		return records.PatientData{}, ErrAccessDenied
	}
	if s.records == nil {
		return records.PatientData{}, fmt.Errorf("%w: no record store configured", records.ErrUnavailable)
	}
	data, err := records.Load(s.records, patientID)
	if err != nil {
		s.audit.LogEvent(audit.AuditEvent{
			EventType: audit.EventRecordRead,
			EntityID:  doctorID,
			Result:    "failure",
			Reason:    err.Error(),
			Metadata:  meta,
		})
		return records.PatientData{}, err
	}
	s.audit.LogEvent(audit.AuditEvent{
		EventType: audit.EventRecordRead,
		EntityID:  doctorID,
		Result:    "success",
		Metadata:  meta,
	})
	return data, nil
}

// ValidateChain reports whether the current chain is intact.
func (s *Service) ValidateChain() bool {
	return s.validator.Validate(s.ledger.Snapshot())
}

// Diagnose lists every integrity violation in the current chain.
func (s *Service) Diagnose() []validation.Violation {
	return s.validator.Diagnose(s.ledger.Snapshot())
}

// Difficulty is the proof-of-work target the ledger writes with.
func (s *Service) Difficulty() int {
	return s.ledger.Solver().Difficulty()
}

// Chain returns a snapshot of the chain.
func (s *Service) Chain() []block.Block {
	return s.ledger.Snapshot()
}

func (s *Service) reveal(views []state.RequestView) []state.RequestView {
	for i := range views {
		views[i].DoctorRef = s.ids.Reveal(views[i].DoctorRef)
		views[i].PatientRef = s.ids.Reveal(views[i].PatientRef)
	}
	return views
}
