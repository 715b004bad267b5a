package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of auditable event
type EventType string

const (
	EventEnrollmentStarted   EventType = "ENROLLMENT_STARTED"
	EventFrameAccepted       EventType = "FRAME_ACCEPTED"
	EventFrameRejected       EventType = "FRAME_REJECTED"
	EventEnrollmentCompleted EventType = "ENROLLMENT_COMPLETED"
	EventEnrollmentCancelled EventType = "ENROLLMENT_CANCELLED"
	EventEnrollmentExpired   EventType = "ENROLLMENT_EXPIRED"
)

// Event records who was enrolled, which pose was handled and by which
// verifier. Images are never part of an event.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType EventType         `json:"event_type"`
	SessionID uuid.UUID         `json:"session_id"`
	ChildID   string            `json:"child_id,omitempty"`
	Pose      string            `json:"pose,omitempty"`
	Verifier  string            `json:"verifier,omitempty"`
	Success   bool              `json:"success"`
	Reason    string            `json:"reason,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event) error
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger   *slog.Logger
	verifier string
}

// NewSlogLogger creates an audit logger. verifier names the frame verifier
// and is stamped on events that do not carry one.
func NewSlogLogger(logger *slog.Logger, verifier string) *SlogLogger {
	return &SlogLogger{
		logger:   logger.With("component", "audit"),
		verifier: verifier,
	}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Verifier == "" {
		event.Verifier = l.verifier
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal audit event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
		)
		return err
	}

	l.logger.InfoContext(ctx, "audit_event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("session_id", event.SessionID.String()),
		slog.String("verifier", event.Verifier),
		slog.Bool("success", event.Success),
		slog.String("event_data", string(eventJSON)),
	)

	return nil
}

// NoOpLogger is a logger that does nothing (for testing or when audit is disabled)
type NoOpLogger struct{}

// Log does nothing and returns nil
func (l *NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}
