package notify

import (
	"sync"

	"github.com/rs/zerolog"
)

// NotificationType says who is being told.
type NotificationType string

const (
	NotifyPatient NotificationType = "patient"
	NotifyDoctor  NotificationType = "doctor"
)

// Notification holds the data for a notification event.
type Notification struct {
	Type              NotificationType
	Recipient         string
	RequestBlockIndex uint64
	Event             string
	Reason            string
}

// Notifier delivers notifications. Delivery failures are the notifier's
// problem; callers never block a ledger write on them.
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notify").Logger()}
}

func (l *LogNotifier) Notify(n Notification) {
	l.log.Info().
		Str("to", n.Recipient).
		Str("type", string(n.Type)).
		Str("event", n.Event).
		Uint64("request_block_index", n.RequestBlockIndex).
		Str("reason", n.Reason).
		Msg("notify")
}

// Outbox collects notifications in memory.
type Outbox struct {
	mu   sync.Mutex
	sent []Notification
}

func (o *Outbox) Notify(n Notification) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, n)
}

// Sent returns a copy of everything delivered so far.
func (o *Outbox) Sent() []Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Notification, len(o.sent))
	copy(out, o.sent)
	return out
}
