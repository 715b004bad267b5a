package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/service"
)

const (
	maxImageSize = 5 * 1024 * 1024 // 5MB
)

var validImageTypes = map[string]bool{
	"image/jpeg":               true,
	"image/png":                true,
	"application/octet-stream": true,
}

// EnrollmentService interface for the service
type EnrollmentService interface {
	StartEnrollment(ctx context.Context, childID, name string) (*domain.EnrollmentSession, error)
	EnrollFrame(ctx context.Context, in service.FrameInput) (*service.FrameOutcome, error)
	Complete(ctx context.Context, id uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) error
	GetSession(ctx context.Context, id uuid.UUID) (*domain.EnrollmentSession, error)
}

type EnrollmentHandler struct {
	service  EnrollmentService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewEnrollmentHandler(svc EnrollmentService, logger *slog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		service:  svc,
		validate: validator.New(),
		logger:   logger,
	}
}

type StartEnrollmentRequest struct {
	ChildID string `json:"childId" validate:"required,max=128"`
	Name    string `json:"name" validate:"max=256"`
}

type StartEnrollmentResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type EnrollFrameForm struct {
	SessionID  string  `form:"sessionId" validate:"required,uuid"`
	PoseBucket string  `form:"poseBucket" validate:"required"`
	Quality    float64 `form:"quality" validate:"gte=0,lte=1"`
}

type EnrollFrameResponse struct {
	Success   bool                `json:"success"`
	Accepted  bool                `json:"accepted"`
	Pose      domain.PoseBucket   `json:"pose"`
	Progress  int                 `json:"progress"`
	Completed bool                `json:"completed"`
	Quality   *float64            `json:"quality,omitempty"`
	Message   string              `json:"message"`
	Captured  []domain.PoseBucket `json:"captured"`
}

type SessionRequest struct {
	SessionID string `json:"sessionId" validate:"required,uuid"`
}

type AckResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SessionResponse struct {
	Success   bool                `json:"success"`
	SessionID string              `json:"sessionId"`
	ChildID   string              `json:"childId"`
	Name      string              `json:"name,omitempty"`
	Status    string              `json:"status"`
	Captured  []domain.PoseBucket `json:"captured"`
	Missing   []domain.PoseBucket `json:"missing"`
	Progress  int                 `json:"progress"`
	ExpiresAt string              `json:"expiresAt"`
}

func (h *EnrollmentHandler) check(v interface{}) error {
	if err := h.validate.Struct(v); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}
	return nil
}

// StartEnrollment handles POST /v1/start-enrollment
func (h *EnrollmentHandler) StartEnrollment(c *fiber.Ctx) error {
	var req StartEnrollmentRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(fmt.Errorf("invalid request body: %w", err))
	}
	if strings.TrimSpace(req.ChildID) == "" {
		return domain.ErrChildIDRequired
	}
	if err := h.check(&req); err != nil {
		return err
	}

	session, err := h.service.StartEnrollment(c.Context(), req.ChildID, req.Name)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(StartEnrollmentResponse{
		Success:   true,
		SessionID: session.ID.String(),
		Message:   "Enrollment session started",
	})
}

// EnrollFrame handles POST /v1/enroll-frame (multipart)
func (h *EnrollmentHandler) EnrollFrame(c *fiber.Ctx) error {
	var form EnrollFrameForm
	if err := c.BodyParser(&form); err != nil {
		return domain.ErrValidationFailed.WithError(fmt.Errorf("invalid form: %w", err))
	}
	if err := h.check(&form); err != nil {
		return err
	}

	sessionID, err := uuid.Parse(form.SessionID)
	if err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}
	bucket, err := domain.ParsePoseBucket(form.PoseBucket)
	if err != nil {
		return err
	}

	imageBytes, err := extractAndValidateImage(c)
	if err != nil {
		return err
	}

	out, err := h.service.EnrollFrame(c.Context(), service.FrameInput{
		SessionID: sessionID,
		Bucket:    bucket,
		Quality:   form.Quality,
		Image:     imageBytes,
	})
	if err != nil {
		return err
	}

	captured := out.Captured
	if captured == nil {
		captured = []domain.PoseBucket{}
	}

	return c.JSON(EnrollFrameResponse{
		Success:   true,
		Accepted:  out.Accepted,
		Pose:      out.Pose,
		Progress:  out.Progress,
		Completed: out.Completed,
		Quality:   out.Quality,
		Message:   out.Message,
		Captured:  captured,
	})
}

// Complete handles POST /v1/complete
func (h *EnrollmentHandler) Complete(c *fiber.Ctx) error {
	id, err := h.sessionFromBody(c)
	if err != nil {
		return err
	}

	if err := h.service.Complete(c.Context(), id); err != nil {
		return err
	}

	return c.JSON(AckResponse{Success: true, Message: "Enrollment completed"})
}

// Cancel handles POST /v1/cancel-enrollment
func (h *EnrollmentHandler) Cancel(c *fiber.Ctx) error {
	id, err := h.sessionFromBody(c)
	if err != nil {
		return err
	}

	if err := h.service.Cancel(c.Context(), id); err != nil {
		return err
	}

	return c.JSON(AckResponse{Success: true, Message: "Enrollment cancelled"})
}

// GetSession handles GET /v1/sessions/:id
func (h *EnrollmentHandler) GetSession(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrValidationFailed.WithError(fmt.Errorf("invalid session id: %w", err))
	}

	session, err := h.service.GetSession(c.Context(), id)
	if err != nil {
		return err
	}

	progress := session.Progress()
	return c.JSON(SessionResponse{
		Success:   true,
		SessionID: session.ID.String(),
		ChildID:   session.ChildID,
		Name:      session.Name,
		Status:    string(session.Status),
		Captured:  progress.Buckets(),
		Missing:   progress.Missing(),
		Progress:  progress.Percent(),
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *EnrollmentHandler) sessionFromBody(c *fiber.Ctx) (uuid.UUID, error) {
	var req SessionRequest
	if err := c.BodyParser(&req); err != nil {
		return uuid.Nil, domain.ErrValidationFailed.WithError(fmt.Errorf("invalid request body: %w", err))
	}
	if err := h.check(&req); err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		return uuid.Nil, domain.ErrValidationFailed.WithError(fmt.Errorf("invalid session id: %w", err))
	}
	return id, nil
}

// extractAndValidateImage extracts and validates the uploaded frame
func extractAndValidateImage(c *fiber.Ctx) ([]byte, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	if file.Size == 0 || file.Size > maxImageSize {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("image size %d out of range", file.Size))
	}

	contentType := file.Header.Get("Content-Type")
	if !validImageTypes[contentType] {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("unsupported content type %q", contentType))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	imageBytes, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return imageBytes, nil
}
