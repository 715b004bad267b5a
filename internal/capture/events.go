package capture

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
)

type State int

const (
	StateIdle State = iota
	StateActive
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type EventType string

const (
	EventStarted        EventType = "started"
	EventGuidance       EventType = "guidance"
	EventUploading      EventType = "uploading"
	EventAccepted       EventType = "accepted"
	EventRejected       EventType = "rejected"
	EventUploadFailed   EventType = "upload_failed"
	EventCompleted      EventType = "completed"
	EventCompleteFailed EventType = "complete_failed"
	EventCancelled      EventType = "cancelled"
)

// Event is delivered to the Observer. Message is user-facing.
type Event struct {
	Type      EventType
	SessionID string
	Bucket    domain.PoseBucket
	Message   string
	Progress  int
	Captured  []domain.PoseBucket
	Err       error
}

// Observer is the presentation layer. Notify is called without the
// controller lock held and may be called from upload goroutines.
type Observer interface {
	Notify(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) Notify(Event) {}
