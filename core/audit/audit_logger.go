package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event types.
const (
	EventRequestCreated    = "AccessRequestCreated"
	EventRequestDecision   = "AccessRequestDecision"
	EventRecordRead        = "PatientRecordRead"
	EventTokenVerification = "TokenVerification"
)

// AuditEvent represents an access-control decision made outside the chain.
type AuditEvent struct {
	ID        string
	Timestamp time.Time
	EventType string
	EntityID  string // doctor, patient or token subject
	Result    string // "success", "failure", "denied"
	Reason    string
	Metadata  map[string]string
}

// AuditLogger is the interface for logging audit events.
type AuditLogger interface {
	LogEvent(event AuditEvent)
}

// LogAuditLogger writes events as structured log lines.
type LogAuditLogger struct {
	log zerolog.Logger
}

// NewLogAuditLogger returns an AuditLogger backed by log.
func NewLogAuditLogger(log zerolog.Logger) AuditLogger {
	return &LogAuditLogger{log: log.With().Str("component", "audit").Logger()}
}

func (l *LogAuditLogger) LogEvent(event AuditEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	e := l.log.Info()
	if event.Result != "success" {
		e = l.log.Warn()
	}
	e.Str("audit_id", event.ID).
		Time("at", event.Timestamp).
		Str("event", event.EventType).
		Str("entity", event.EntityID).
		Str("result", event.Result).
		Str("reason", event.Reason).
		Fields(stringFields(event.Metadata)).
		Msg("audit")
}

func stringFields(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Recorder keeps events in memory. Tests use it to assert on decisions.
type Recorder struct {
	Events []AuditEvent
}

func (r *Recorder) LogEvent(event AuditEvent) {
	r.Events = append(r.Events, event)
}
