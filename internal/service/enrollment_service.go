package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/audit"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/provider"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/repository"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/ws"
)

const DefaultSessionTTL = 15 * time.Minute

// EventPublisher receives progress events for a session. *ws.Hub
// implements it.
type EventPublisher interface {
	Publish(sessionID uuid.UUID, eventType ws.EventType, data interface{})
}

type nopPublisher struct{}

func (nopPublisher) Publish(uuid.UUID, ws.EventType, interface{}) {}

// FrameInput is one uploaded enrollment frame.
type FrameInput struct {
	SessionID uuid.UUID
	Bucket    domain.PoseBucket
	Quality   float64
	Image     []byte
}

// FrameOutcome is the authority's answer to an upload. Accepted is false for
// duplicates and for frames the verifier rejected; neither is an error.
type FrameOutcome struct {
	Accepted  bool                `json:"accepted"`
	Pose      domain.PoseBucket   `json:"pose"`
	Captured  []domain.PoseBucket `json:"captured"`
	Progress  int                 `json:"progress"`
	Completed bool                `json:"completed"`
	Quality   *float64            `json:"quality,omitempty"`
	Message   string              `json:"message"`
}

type EnrollmentService struct {
	repo      repository.EnrollmentSessionRepositoryInterface
	verifier  provider.FrameVerifier
	publisher EventPublisher
	audit     audit.Logger
	logger    *slog.Logger
	ttl       time.Duration
	now       func() time.Time
}

func NewEnrollmentService(
	repo repository.EnrollmentSessionRepositoryInterface,
	verifier provider.FrameVerifier,
	publisher EventPublisher,
	logger *slog.Logger,
) *EnrollmentService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrollmentService{
		repo:      repo,
		verifier:  verifier,
		publisher: publisher,
		audit:     &audit.NoOpLogger{},
		logger:    logger,
		ttl:       DefaultSessionTTL,
		now:       time.Now,
	}
}

func (s *EnrollmentService) WithSessionTTL(ttl time.Duration) *EnrollmentService {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

func (s *EnrollmentService) WithAuditLogger(l audit.Logger) *EnrollmentService {
	if l != nil {
		s.audit = l
	}
	return s
}

func (s *EnrollmentService) record(ctx context.Context, event audit.Event) {
	if err := s.audit.Log(ctx, event); err != nil {
		s.logger.Warn("failed to record audit event", "event_type", event.EventType, "error", err)
	}
}

// StartEnrollment opens a new session for childID.
func (s *EnrollmentService) StartEnrollment(ctx context.Context, childID, name string) (*domain.EnrollmentSession, error) {
	childID = strings.TrimSpace(childID)
	if childID == "" {
		return nil, domain.ErrChildIDRequired
	}

	session := &domain.EnrollmentSession{
		ChildID:         childID,
		Name:            strings.TrimSpace(name),
		Status:          domain.SessionActive,
		CapturedBuckets: []domain.PoseBucket{},
		ExpiresAt:       s.now().Add(s.ttl),
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("child %s: start enrollment: %w", childID, err)
	}

	s.logger.Info("enrollment started", "session_id", session.ID, "child_id", childID)
	s.record(ctx, audit.Event{
		EventType: audit.EventEnrollmentStarted,
		SessionID: session.ID,
		ChildID:   childID,
		Success:   true,
	})
	return session, nil
}

func (s *EnrollmentService) GetSession(ctx context.Context, id uuid.UUID) (*domain.EnrollmentSession, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.SessionActive && s.expired(session) {
		return s.expire(ctx, session)
	}
	return session, nil
}

// EnrollFrame verifies an uploaded frame and records its bucket. The fifth
// distinct bucket completes the session.
func (s *EnrollmentService) EnrollFrame(ctx context.Context, in FrameInput) (*FrameOutcome, error) {
	if !in.Bucket.Valid() {
		return nil, domain.ErrInvalidPoseBucket
	}
	if in.Quality < 0 || in.Quality > 1 {
		return nil, domain.ErrInvalidQuality
	}
	if len(in.Image) == 0 {
		return nil, domain.ErrInvalidImage.WithError(errors.New("empty image"))
	}

	session, err := s.activeSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	if session.HasBucket(in.Bucket) {
		return duplicateOutcome(session, in.Bucket), nil
	}

	verdict, err := s.verifier.VerifyFrame(ctx, in.Image, in.Bucket)
	if err != nil {
		return nil, fmt.Errorf("session %s: verify frame: %w", in.SessionID, err)
	}

	if !verdict.Accepted {
		out := &FrameOutcome{
			Pose:     in.Bucket,
			Captured: session.CapturedBuckets,
			Progress: session.ProgressPercent(),
			Quality:  qualityPtr(verdict.Quality),
			Message:  verdict.Reason,
		}
		s.publisher.Publish(session.ID, ws.EventFrameRejected, out)
		s.record(ctx, audit.Event{
			EventType: audit.EventFrameRejected,
			SessionID: session.ID,
			ChildID:   session.ChildID,
			Pose:      in.Bucket.String(),
			Reason:    verdict.Reason,
			Metadata:  map[string]string{"observed": verdict.Observed.String()},
		})
		s.logger.Debug("frame rejected",
			"session_id", session.ID,
			"bucket", in.Bucket,
			"observed", verdict.Observed,
			"reason", verdict.Reason,
		)
		return out, nil
	}

	captured, added, err := s.repo.AddCapturedBucket(ctx, session.ID, in.Bucket)
	if err != nil {
		return nil, fmt.Errorf("session %s: record bucket: %w", session.ID, err)
	}
	if !added {
		// a concurrent upload got there first, or the session left active
		current, err := s.repo.GetByID(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		if current.Status != domain.SessionActive && current.Status != domain.SessionCompleted {
			return nil, domain.ErrSessionNotActive
		}
		return duplicateOutcome(current, in.Bucket), nil
	}

	progress := domain.PoseProgress{}
	for _, b := range captured {
		progress.Add(b)
	}

	out := &FrameOutcome{
		Accepted:  true,
		Pose:      in.Bucket,
		Captured:  captured,
		Progress:  progress.Percent(),
		Completed: progress.Complete(),
		Quality:   qualityPtr(verdict.Quality),
		Message:   fmt.Sprintf("Captured %s pose", in.Bucket),
	}
	s.publisher.Publish(session.ID, ws.EventFrameAccepted, out)
	s.record(ctx, audit.Event{
		EventType: audit.EventFrameAccepted,
		SessionID: session.ID,
		ChildID:   session.ChildID,
		Pose:      in.Bucket.String(),
		Success:   true,
		Metadata:  map[string]string{"quality": strconv.FormatFloat(verdict.Quality, 'f', 3, 64)},
	})

	if out.Completed {
		if err := s.markCompleted(ctx, session.ID); err != nil {
			return nil, err
		}
		out.Message = "All poses captured"
	}

	return out, nil
}

// Complete finalises a session that has every bucket. It is idempotent.
func (s *EnrollmentService) Complete(ctx context.Context, id uuid.UUID) error {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}

	switch session.Status {
	case domain.SessionCompleted:
		return nil
	case domain.SessionExpired:
		return domain.ErrSessionExpired
	case domain.SessionActive:
	default:
		return domain.ErrSessionNotActive
	}

	progress := session.Progress()
	if !progress.Complete() {
		return domain.ErrSessionIncomplete.WithError(
			fmt.Errorf("captured %d of %d poses", progress.Len(), domain.RequiredBuckets),
		)
	}

	return s.markCompleted(ctx, id)
}

// Cancel abandons a session. Cancelling an already cancelled session is a
// no-op.
func (s *EnrollmentService) Cancel(ctx context.Context, id uuid.UUID) error {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	switch session.Status {
	case domain.SessionCancelled:
		return nil
	case domain.SessionActive:
	default:
		return domain.ErrSessionNotActive
	}

	if err := s.repo.UpdateStatus(ctx, id, domain.SessionCancelled); err != nil {
		if errors.Is(err, domain.ErrSessionNotActive) {
			return s.settledAs(ctx, id, domain.SessionCancelled)
		}
		return fmt.Errorf("session %s: cancel: %w", id, err)
	}

	s.publisher.Publish(id, ws.EventCancelled, map[string]interface{}{"captured": session.CapturedBuckets})
	s.record(ctx, audit.Event{
		EventType: audit.EventEnrollmentCancelled,
		SessionID: id,
		ChildID:   session.ChildID,
		Success:   true,
		Metadata:  map[string]string{"captured": strconv.Itoa(len(session.CapturedBuckets))},
	})
	s.logger.Info("enrollment cancelled", "session_id", id, "captured", len(session.CapturedBuckets))
	return nil
}

func (s *EnrollmentService) markCompleted(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.UpdateStatus(ctx, id, domain.SessionCompleted); err != nil {
		if errors.Is(err, domain.ErrSessionNotActive) {
			return s.settledAs(ctx, id, domain.SessionCompleted)
		}
		return fmt.Errorf("session %s: complete: %w", id, err)
	}

	s.publisher.Publish(id, ws.EventCompleted, nil)
	s.record(ctx, audit.Event{EventType: audit.EventEnrollmentCompleted, SessionID: id, Success: true})
	s.logger.Info("enrollment completed", "session_id", id)
	return nil
}

// settledAs resolves a lost status race: it succeeds if another request
// already moved the session to want.
func (s *EnrollmentService) settledAs(ctx context.Context, id uuid.UUID, want domain.SessionStatus) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == want {
		return nil
	}
	return domain.ErrSessionNotActive
}

func (s *EnrollmentService) activeSession(ctx context.Context, id uuid.UUID) (*domain.EnrollmentSession, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	switch session.Status {
	case domain.SessionActive:
		return session, nil
	case domain.SessionExpired:
		return nil, domain.ErrSessionExpired
	default:
		return nil, domain.ErrSessionNotActive
	}
}

func (s *EnrollmentService) expired(session *domain.EnrollmentSession) bool {
	return s.now().After(session.ExpiresAt)
}

func (s *EnrollmentService) expire(ctx context.Context, session *domain.EnrollmentSession) (*domain.EnrollmentSession, error) {
	err := s.repo.UpdateStatus(ctx, session.ID, domain.SessionExpired)
	if errors.Is(err, domain.ErrSessionNotActive) {
		// Another request settled the session first; report what it stored.
		return s.repo.GetByID(ctx, session.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("session %s: expire: %w", session.ID, err)
	}

	s.publisher.Publish(session.ID, ws.EventExpired, nil)
	s.record(ctx, audit.Event{EventType: audit.EventEnrollmentExpired, SessionID: session.ID, ChildID: session.ChildID})
	session.Status = domain.SessionExpired
	return session, nil
}

func duplicateOutcome(session *domain.EnrollmentSession, bucket domain.PoseBucket) *FrameOutcome {
	progress := session.Progress()
	return &FrameOutcome{
		Pose:      bucket,
		Captured:  session.CapturedBuckets,
		Progress:  progress.Percent(),
		Completed: progress.Complete(),
		Message:   fmt.Sprintf("%s pose already captured", bucket),
	}
}

func qualityPtr(q float64) *float64 {
	if q <= 0 {
		return nil
	}
	return &q
}
