// Package audit records who searched what against the scheduling API. Audit
// events carry criteria field names and outcome shape, never patient data.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk-ai/clinicdesk/pkg/logging"
)

// EventType represents the type of access event.
type EventType string

const (
	// EventAppointmentSearch is recorded for every find_appointments call.
	EventAppointmentSearch EventType = "access.appointment_search"
	// EventPatientDisambiguation is recorded when a name search was too
	// broad and the caller was asked to clarify.
	EventPatientDisambiguation EventType = "access.patient_disambiguation"
)

// Event is an immutable access-audit record.
type Event struct {
	ID          string    `json:"id"`
	EventType   EventType `json:"event_type"`
	RequestID   string    `json:"request_id,omitempty"`
	Criteria    string    `json:"criteria"` // supplied field names, comma-joined
	Outcome     string    `json:"outcome"`
	ResultCount int       `json:"result_count"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists audit events.
type Store interface {
	Insert(ctx context.Context, event Event) error
}

// Recorder emits every event to the structured log and, when a store is
// configured, persists it. Storage failures are logged and do not fail the
// search that produced the event.
type Recorder struct {
	store  Store
	logger *logging.Logger
}

// NewRecorder creates a recorder. store may be nil for log-only auditing.
func NewRecorder(store Store, logger *logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Recorder{store: store, logger: logger}
}

// Record assigns the event identity and timestamp if unset, logs it, and
// persists it. Safe on a nil recorder.
func (r *Recorder) Record(ctx context.Context, event Event) {
	if r == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	r.logger.Info("audit event",
		"event_id", event.ID,
		"event_type", string(event.EventType),
		"request_id", event.RequestID,
		"criteria", event.Criteria,
		"outcome", event.Outcome,
		"result_count", event.ResultCount,
		"duration_ms", event.DurationMS,
	)

	if r.store == nil {
		return
	}
	if err := r.store.Insert(ctx, event); err != nil {
		r.logger.Error("audit event not persisted",
			"event_id", event.ID,
			"error", err,
		)
	}
}
