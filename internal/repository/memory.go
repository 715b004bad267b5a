package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
)

// MemoryEnrollmentSessionRepository keeps sessions in process. It is used
// when no database is configured.
type MemoryEnrollmentSessionRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.EnrollmentSession
	now      func() time.Time
}

func NewMemoryEnrollmentSessionRepository() *MemoryEnrollmentSessionRepository {
	return &MemoryEnrollmentSessionRepository{
		sessions: make(map[uuid.UUID]*domain.EnrollmentSession),
		now:      time.Now,
	}
}

func (r *MemoryEnrollmentSessionRepository) Create(_ context.Context, session *domain.EnrollmentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.Status == "" {
		session.Status = domain.SessionActive
	}
	now := r.now()
	session.CreatedAt = now
	session.UpdatedAt = now

	r.sessions[session.ID] = cloneSession(session)
	return nil
}

func (r *MemoryEnrollmentSessionRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.EnrollmentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (r *MemoryEnrollmentSessionRepository) AddCapturedBucket(_ context.Context, id uuid.UUID, bucket domain.PoseBucket) ([]domain.PoseBucket, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.Status != domain.SessionActive || s.HasBucket(bucket) {
		return nil, false, nil
	}
	s.CapturedBuckets = append(s.CapturedBuckets, bucket)
	s.UpdatedAt = r.now()

	out := make([]domain.PoseBucket, len(s.CapturedBuckets))
	copy(out, s.CapturedBuckets)
	return out, true, nil
}

func (r *MemoryEnrollmentSessionRepository) UpdateStatus(_ context.Context, id uuid.UUID, status domain.SessionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.Status != domain.SessionActive {
		return domain.ErrSessionNotActive
	}
	s.Status = status
	s.UpdatedAt = r.now()
	return nil
}

func (r *MemoryEnrollmentSessionRepository) MarkExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var n int64
	for _, s := range r.sessions {
		if s.Status == domain.SessionActive && now.After(s.ExpiresAt) {
			s.Status = domain.SessionExpired
			s.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func cloneSession(s *domain.EnrollmentSession) *domain.EnrollmentSession {
	c := *s
	c.CapturedBuckets = append([]domain.PoseBucket(nil), s.CapturedBuckets...)
	return &c
}
