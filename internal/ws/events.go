package ws

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventFrameAccepted EventType = "enrollment.frame_accepted"
	EventFrameRejected EventType = "enrollment.frame_rejected"
	EventCompleted     EventType = "enrollment.completed"
	EventCancelled     EventType = "enrollment.cancelled"
	EventExpired       EventType = "enrollment.expired"
)

type Event struct {
	SessionID uuid.UUID   `json:"session_id"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
