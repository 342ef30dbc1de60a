package audit

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAuditLoggerWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogAuditLogger(zerolog.New(&buf))

	l.LogEvent(AuditEvent{
		EventType: EventRecordRead,
		EntityID:  "D1",
		Result:    "denied",
		Reason:    "no approved request",
		Metadata:  map[string]string{"patient": "P1"},
	})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, EventRecordRead, line["event"])
	assert.Equal(t, "P1", line["patient"])
	assert.NotEmpty(t, line["audit_id"])
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	r.LogEvent(AuditEvent{EventType: EventRequestCreated})
	assert.Len(t, r.Events, 1)
}
