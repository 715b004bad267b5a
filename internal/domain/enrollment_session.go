package domain

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
	SessionExpired   SessionStatus = "expired"
)

// EnrollmentSession is the server-side record of one enrollment attempt.
// CapturedBuckets only grows while the session is active.
type EnrollmentSession struct {
	ID              uuid.UUID     `json:"id"`
	ChildID         string        `json:"child_id"`
	Name            string        `json:"name,omitempty"`
	Status          SessionStatus `json:"status"`
	CapturedBuckets []PoseBucket  `json:"captured_buckets"`
	ExpiresAt       time.Time     `json:"expires_at"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// IsExpired checks if the session has expired
func (s *EnrollmentSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

func (s *EnrollmentSession) IsActive() bool {
	return s.Status == SessionActive && !s.IsExpired()
}

// Progress rebuilds the captured set from the stored bucket list.
func (s *EnrollmentSession) Progress() PoseProgress {
	var p PoseProgress
	for _, b := range s.CapturedBuckets {
		p.Add(b)
	}
	return p
}

func (s *EnrollmentSession) HasBucket(b PoseBucket) bool {
	for _, c := range s.CapturedBuckets {
		if c == b {
			return true
		}
	}
	return false
}

// ProgressPercent returns the completion percentage in [0,100].
func (s *EnrollmentSession) ProgressPercent() int {
	p := s.Progress()
	return p.Percent()
}

// Enrollment-specific errors
var (
	ErrSessionNotFound = &AppError{
		Code:       "SESSION_NOT_FOUND",
		Message:    "Enrollment session not found",
		StatusCode: 404,
	}

	ErrSessionExpired = &AppError{
		Code:       "SESSION_EXPIRED",
		Message:    "Enrollment session has expired",
		StatusCode: 410,
	}

	ErrSessionNotActive = &AppError{
		Code:       "SESSION_NOT_ACTIVE",
		Message:    "Enrollment session is not active",
		StatusCode: 409,
	}

	ErrSessionIncomplete = &AppError{
		Code:       "SESSION_INCOMPLETE",
		Message:    "Enrollment session has not captured every pose",
		StatusCode: 409,
	}

	ErrChildIDRequired = &AppError{
		Code:       "CHILD_ID_REQUIRED",
		Message:    "childId is required",
		StatusCode: 422,
	}
)
