package domain

import (
	"errors"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "error without wrapped error",
			appErr:   ErrSessionNotFound,
			expected: "Enrollment session not found",
		},
		{
			name: "error with wrapped error",
			appErr: &AppError{
				Code:       "TEST_ERROR",
				Message:    "Test message",
				StatusCode: 500,
				Err:        errors.New("underlying error"),
			},
			expected: "Test message: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppError_WithError(t *testing.T) {
	underlying := errors.New("db connection failed")
	newErr := ErrInternal.WithError(underlying)

	if newErr.Code != ErrInternal.Code {
		t.Errorf("Code = %v, want %v", newErr.Code, ErrInternal.Code)
	}
	if newErr.Err != underlying {
		t.Errorf("Err = %v, want %v", newErr.Err, underlying)
	}
	if !errors.Is(newErr, underlying) {
		t.Errorf("errors.Is should return true for wrapped error")
	}
	if !errors.Is(newErr, ErrInternal) {
		t.Errorf("errors.Is should match the sentinel by code")
	}
	if errors.Is(newErr, ErrSessionNotFound) {
		t.Errorf("errors.Is should not match a different code")
	}
}

func TestAppError_WithErrorKeepsSentinel(t *testing.T) {
	wrapped := ErrInvalidPoseBucket.WithError(errors.New("sideways"))

	if ErrInvalidPoseBucket.Err != nil {
		t.Errorf("WithError must not mutate the sentinel")
	}
	if wrapped.StatusCode != ErrInvalidPoseBucket.StatusCode {
		t.Errorf("StatusCode = %v, want %v", wrapped.StatusCode, ErrInvalidPoseBucket.StatusCode)
	}
	if wrapped.Error() != "Pose bucket must be one of front, left, right, up, down: sideways" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
}

func TestErrorsAs(t *testing.T) {
	err := ErrSessionExpired.WithError(errors.New("expired at 10:00"))

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("errors.As should match AppError")
	}
	if appErr.Code != "SESSION_EXPIRED" {
		t.Errorf("Code = %v, want SESSION_EXPIRED", appErr.Code)
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err        *AppError
		code       string
		statusCode int
	}{
		{ErrInternal, "INTERNAL_ERROR", 500},
		{ErrInvalidQuality, "INVALID_QUALITY", 422},
		{ErrChildIDRequired, "CHILD_ID_REQUIRED", 422},
		{ErrInvalidImage, "INVALID_IMAGE", 422},
		{ErrRateLimitExceeded, "RATE_LIMIT_EXCEEDED", 429},
		{ErrValidationFailed, "VALIDATION_FAILED", 422},
		{ErrInvalidPoseBucket, "INVALID_POSE_BUCKET", 422},
		{ErrSessionNotFound, "SESSION_NOT_FOUND", 404},
		{ErrSessionExpired, "SESSION_EXPIRED", 410},
		{ErrSessionNotActive, "SESSION_NOT_ACTIVE", 409},
		{ErrSessionIncomplete, "SESSION_INCOMPLETE", 409},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
			if tt.err.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %v, want %v", tt.err.StatusCode, tt.statusCode)
			}
		})
	}
}
