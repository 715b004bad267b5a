package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// StartEnrollmentBody is the request body for starting an enrollment session
type StartEnrollmentBody struct {
	ChildID string `json:"childId" example:"child-123"`
	Name    string `json:"name,omitempty" example:"Ana"`
}

// StartEnrollmentResponse represents a newly opened enrollment session
type StartEnrollmentResponse struct {
	Success   bool   `json:"success" example:"true"`
	SessionID string `json:"sessionId" example:"550e8400-e29b-41d4-a716-446655440000"`
	Message   string `json:"message" example:"Enrollment session started"`
}

// EnrollFrameResponse represents the verdict for one uploaded frame
type EnrollFrameResponse struct {
	Success   bool     `json:"success" example:"true"`
	Accepted  bool     `json:"accepted" example:"true"`
	Pose      string   `json:"pose" example:"left"`
	Progress  int      `json:"progress" example:"40"`
	Completed bool     `json:"completed" example:"false"`
	Quality   float64  `json:"quality,omitempty" example:"0.91"`
	Message   string   `json:"message" example:"Captured left pose"`
	Captured  []string `json:"captured" example:"front,left"`
}

// SessionBody is the request body for completing or cancelling a session
type SessionBody struct {
	SessionID string `json:"sessionId" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// AckResponse acknowledges a complete or cancel request
type AckResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Enrollment completed"`
}

// SessionResponse represents the current state of a session
type SessionResponse struct {
	Success   bool     `json:"success" example:"true"`
	SessionID string   `json:"sessionId" example:"550e8400-e29b-41d4-a716-446655440000"`
	ChildID   string   `json:"childId" example:"child-123"`
	Name      string   `json:"name,omitempty" example:"Ana"`
	Status    string   `json:"status" example:"active"`
	Captured  []string `json:"captured" example:"front,left"`
	Missing   []string `json:"missing" example:"right,up,down"`
	Progress  int      `json:"progress" example:"40"`
	ExpiresAt string   `json:"expiresAt" example:"2024-01-01T00:15:00Z"`
}

// ErrorDetail is the machine-readable part of an error response
type ErrorDetail struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Success bool        `json:"success" example:"false"`
	Message string      `json:"message" example:"Request validation failed"`
	Error   ErrorDetail `json:"error"`
}

func errorOf(code, message string) ErrorResponse {
	return ErrorResponse{Message: message, Error: ErrorDetail{Code: code, Message: message}}
}

var (
	errValidation  = response.New(errorOf("VALIDATION_FAILED", "Request validation failed"), "422", "Unprocessable Entity")
	errNotFound    = response.New(errorOf("SESSION_NOT_FOUND", "Enrollment session not found"), "404", "Not Found")
	errExpired     = response.New(errorOf("SESSION_EXPIRED", "Enrollment session has expired"), "410", "Gone")
	errNotActive   = response.New(errorOf("SESSION_NOT_ACTIVE", "Enrollment session is not active"), "409", "Conflict")
	errRateLimited = response.New(errorOf("RATE_LIMIT_EXCEEDED", "Rate limit exceeded, please try again later"), "429", "Too Many Requests")
	errInternal    = response.New(errorOf("INTERNAL_ERROR", "An unexpected error occurred"), "500", "Internal Server Error")
)

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Rekko Enrollment API",
		Version:     "v1.0.0",
		Description: "Guided five-pose face enrollment. Clients open a session, upload one frame per pose bucket and complete the session once every bucket is captured.",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/start-enrollment
		endpoint.New(
			endpoint.POST,
			"/start-enrollment",
			endpoint.WithTags("Enrollment"),
			endpoint.WithSummary("Start an enrollment session"),
			endpoint.WithDescription("Opens a session for the given child. The session expires if it is not completed within the configured TTL."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(StartEnrollmentBody{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StartEnrollmentResponse{}, "201", "Session started"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(errorOf("CHILD_ID_REQUIRED", "childId is required"), "422", "Unprocessable Entity"),
				errRateLimited,
				errInternal,
			}),
		),

		// POST /v1/enroll-frame
		endpoint.New(
			endpoint.POST,
			"/enroll-frame",
			endpoint.WithTags("Enrollment"),
			endpoint.WithSummary("Upload a frame for one pose bucket"),
			endpoint.WithDescription("Multipart form with fields sessionId, poseBucket (front, left, right, up, down), quality (0-1) and an image part (JPEG or PNG, max 5MB). The frame is verified server-side. Duplicate buckets and rejected frames return accepted=false. The fifth accepted bucket completes the session."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollFrameResponse{}, "200", "Frame processed"),
			}),
			endpoint.WithErrors([]response.Response{
				errValidation,
				response.New(errorOf("INVALID_POSE_BUCKET", "Pose bucket must be one of front, left, right, up, down"), "422", "Unprocessable Entity"),
				response.New(errorOf("INVALID_IMAGE", "Invalid image format or corrupted file"), "422", "Unprocessable Entity"),
				errNotFound,
				errNotActive,
				errExpired,
				errRateLimited,
				errInternal,
			}),
		),

		// POST /v1/complete
		endpoint.New(
			endpoint.POST,
			"/complete",
			endpoint.WithTags("Enrollment"),
			endpoint.WithSummary("Complete an enrollment session"),
			endpoint.WithDescription("Finalizes a session that has captured all five buckets. Completing an already completed session succeeds."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(SessionBody{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AckResponse{}, "200", "Session completed"),
			}),
			endpoint.WithErrors([]response.Response{
				errValidation,
				errNotFound,
				response.New(errorOf("SESSION_INCOMPLETE", "Enrollment session has not captured every pose"), "409", "Conflict"),
				errExpired,
				errInternal,
			}),
		),

		// POST /v1/cancel-enrollment
		endpoint.New(
			endpoint.POST,
			"/cancel-enrollment",
			endpoint.WithTags("Enrollment"),
			endpoint.WithSummary("Cancel an enrollment session"),
			endpoint.WithDescription("Abandons an active session. Cancelling an already cancelled session succeeds."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(SessionBody{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AckResponse{Success: true, Message: "Enrollment cancelled"}, "200", "Session cancelled"),
			}),
			endpoint.WithErrors([]response.Response{
				errValidation,
				errNotFound,
				errNotActive,
				errInternal,
			}),
		),

		// GET /v1/sessions/:id
		endpoint.New(
			endpoint.GET,
			"/sessions/{id}",
			endpoint.WithTags("Enrollment"),
			endpoint.WithSummary("Get an enrollment session"),
			endpoint.WithDescription("Returns the captured and missing buckets of a session"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Session retrieved"),
			}),
			endpoint.WithErrors([]response.Response{
				errValidation,
				errNotFound,
				errInternal,
			}),
		),

		// GET /v1/ws
		endpoint.New(
			endpoint.GET,
			"/ws",
			endpoint.WithTags("Realtime"),
			endpoint.WithSummary("Subscribe to session events"),
			endpoint.WithDescription("WebSocket stream of enrollment.frame_accepted, enrollment.frame_rejected, enrollment.completed, enrollment.cancelled and enrollment.expired events for one session"),
			endpoint.WithParams(
				parameter.StrParam("session_id", parameter.Query, parameter.WithDescription("Session ID to subscribe to")),
			),
			endpoint.WithErrors([]response.Response{
				response.New(errorOf("HTTP_ERROR", "session_id query parameter must be a UUID"), "400", "Bad Request"),
				response.New(errorOf("HTTP_ERROR", "Upgrade Required"), "426", "Upgrade Required"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
