package enrollment

import "github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"

// StartRequest for POST /start-enrollment
type StartRequest struct {
	ChildID string `json:"childId"`
	Name    string `json:"name,omitempty"`
}

// StartResponse from POST /start-enrollment
type StartResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// FrameResponse from POST /enroll-frame
type FrameResponse struct {
	Success   bool                `json:"success"`
	Accepted  bool                `json:"accepted"`
	Pose      domain.PoseBucket   `json:"pose"`
	Progress  int                 `json:"progress"`
	Completed bool                `json:"completed"`
	Quality   *float64            `json:"quality,omitempty"`
	Message   string              `json:"message"`
	Captured  []domain.PoseBucket `json:"captured,omitempty"`
}

// SessionRequest for POST /complete and POST /cancel-enrollment
type SessionRequest struct {
	SessionID string `json:"sessionId"`
}

// AckResponse from POST /complete and POST /cancel-enrollment
type AckResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
