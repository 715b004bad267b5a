package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/audit"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/provider"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/repository"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/ws"
)

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.EnrollmentSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.EnrollmentSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EnrollmentSession), args.Error(1)
}

func (m *MockSessionRepository) AddCapturedBucket(ctx context.Context, id uuid.UUID, bucket domain.PoseBucket) ([]domain.PoseBucket, bool, error) {
	args := m.Called(ctx, id, bucket)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]domain.PoseBucket), args.Bool(1), args.Error(2)
}

func (m *MockSessionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SessionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockSessionRepository) MarkExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyFrame(ctx context.Context, image []byte, claimed domain.PoseBucket) (*provider.Verdict, error) {
	args := m.Called(ctx, image, claimed)
	switch v := args.Get(0).(type) {
	case nil:
		return nil, args.Error(1)
	case func(context.Context, []byte, domain.PoseBucket) *provider.Verdict:
		return v(ctx, image, claimed), args.Error(1)
	default:
		return v.(*provider.Verdict), args.Error(1)
	}
}

type recordedEvent struct {
	session uuid.UUID
	typ     ws.EventType
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(sessionID uuid.UUID, eventType ws.EventType, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{sessionID, eventType})
}

func (p *recordingPublisher) types() []ws.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ws.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.typ)
	}
	return out
}

type fixture struct {
	svc       *EnrollmentService
	repo      *repository.MemoryEnrollmentSessionRepository
	verifier  *MockVerifier
	publisher *recordingPublisher
}

func newFixture() *fixture {
	repo := repository.NewMemoryEnrollmentSessionRepository()
	verifier := &MockVerifier{}
	pub := &recordingPublisher{}
	return &fixture{
		svc:       NewEnrollmentService(repo, verifier, pub, nil),
		repo:      repo,
		verifier:  verifier,
		publisher: pub,
	}
}

func frame(id uuid.UUID, b domain.PoseBucket) FrameInput {
	return FrameInput{SessionID: id, Bucket: b, Quality: 0.9, Image: []byte("jpeg-bytes")}
}

func acceptAll(v *MockVerifier) {
	v.On("VerifyFrame", mock.Anything, mock.Anything, mock.Anything).
		Return(func(_ context.Context, _ []byte, b domain.PoseBucket) *provider.Verdict {
			return provider.Accept(b, 0.92)
		}, nil)
}

func TestEnrollmentService_StartEnrollment(t *testing.T) {
	tests := []struct {
		name    string
		childID string
		wantErr error
	}{
		{name: "valid child", childID: "child-1"},
		{name: "trims whitespace", childID: "  child-2 "},
		{name: "empty child", childID: "", wantErr: domain.ErrChildIDRequired},
		{name: "blank child", childID: "   ", wantErr: domain.ErrChildIDRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			session, err := f.svc.StartEnrollment(context.Background(), tt.childID, "Ana")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, session)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, session.ID)
			assert.Equal(t, domain.SessionActive, session.Status)
			assert.NotContains(t, session.ChildID, " ")
			assert.WithinDuration(t, time.Now().Add(DefaultSessionTTL), session.ExpiresAt, 5*time.Second)
		})
	}
}

func TestEnrollmentService_StartEnrollment_RepositoryError(t *testing.T) {
	repo := &MockSessionRepository{}
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))
	svc := NewEnrollmentService(repo, &MockVerifier{}, nil, nil)

	_, err := svc.StartEnrollment(context.Background(), "child-1", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "start enrollment")
	repo.AssertExpectations(t)
}

func TestEnrollmentService_EnrollFrame_CompletesAfterFiveBuckets(t *testing.T) {
	f := newFixture()
	acceptAll(f.verifier)
	ctx := context.Background()

	session, err := f.svc.StartEnrollment(ctx, "child-1", "")
	require.NoError(t, err)

	for i, b := range domain.AllBuckets {
		out, err := f.svc.EnrollFrame(ctx, frame(session.ID, b))
		require.NoError(t, err)
		assert.True(t, out.Accepted)
		assert.Equal(t, b, out.Pose)
		assert.Equal(t, (i+1)*20, out.Progress)
		assert.Len(t, out.Captured, i+1)
		assert.Equal(t, i == 4, out.Completed)
		require.NotNil(t, out.Quality)
		assert.InDelta(t, 0.92, *out.Quality, 1e-9)
	}

	got, err := f.svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, got.Status)

	assert.NoError(t, f.svc.Complete(ctx, session.ID), "complete is idempotent after auto-completion")

	evs := f.publisher.types()
	assert.Equal(t, ws.EventCompleted, evs[len(evs)-1])
}

func TestEnrollmentService_EnrollFrame_DuplicateBucket(t *testing.T) {
	f := newFixture()
	acceptAll(f.verifier)
	ctx := context.Background()

	session, err := f.svc.StartEnrollment(ctx, "child-1", "")
	require.NoError(t, err)

	_, err = f.svc.EnrollFrame(ctx, frame(session.ID, domain.PoseLeft))
	require.NoError(t, err)

	out, err := f.svc.EnrollFrame(ctx, frame(session.ID, domain.PoseLeft))
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, 20, out.Progress)
	assert.Contains(t, out.Message, "already captured")

	f.verifier.AssertNumberOfCalls(t, "VerifyFrame", 1)
}

func TestEnrollmentService_EnrollFrame_VerifierRejects(t *testing.T) {
	f := newFixture()
	f.verifier.On("VerifyFrame", mock.Anything, mock.Anything, domain.PoseUp).
		Return(provider.Reject(domain.PoseFront, 0.8, provider.ReasonPoseMismatch), nil)
	ctx := context.Background()

	session, err := f.svc.StartEnrollment(ctx, "child-1", "")
	require.NoError(t, err)

	out, err := f.svc.EnrollFrame(ctx, frame(session.ID, domain.PoseUp))

	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, provider.ReasonPoseMismatch, out.Message)
	assert.Zero(t, out.Progress)
	assert.Equal(t, []ws.EventType{ws.EventFrameRejected}, f.publisher.types())

	got, err := f.svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, got.CapturedBuckets)
}

func TestEnrollmentService_EnrollFrame_Validation(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		input   FrameInput
		wantErr error
	}{
		{name: "no bucket", input: FrameInput{SessionID: id, Bucket: domain.PoseNone, Quality: 0.9, Image: []byte{1}}, wantErr: domain.ErrInvalidPoseBucket},
		{name: "quality above one", input: FrameInput{SessionID: id, Bucket: domain.PoseUp, Quality: 1.2, Image: []byte{1}}, wantErr: domain.ErrInvalidQuality},
		{name: "negative quality", input: FrameInput{SessionID: id, Bucket: domain.PoseUp, Quality: -0.1, Image: []byte{1}}, wantErr: domain.ErrInvalidQuality},
		{name: "empty image", input: FrameInput{SessionID: id, Bucket: domain.PoseUp, Quality: 0.9}, wantErr: domain.ErrInvalidImage},
		{name: "unknown session", input: frame(id, domain.PoseUp), wantErr: domain.ErrSessionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			_, err := f.svc.EnrollFrame(context.Background(), tt.input)

			assert.ErrorIs(t, err, tt.wantErr)
			f.verifier.AssertNotCalled(t, "VerifyFrame", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestEnrollmentService_EnrollFrame_VerifierError(t *testing.T) {
	f := newFixture()
	f.verifier.On("VerifyFrame", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("rekognition unavailable"))
	ctx := context.Background()

	session, err := f.svc.StartEnrollment(ctx, "child-1", "")
	require.NoError(t, err)

	_, err = f.svc.EnrollFrame(ctx, frame(session.ID, domain.PoseFront))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify frame")
}

func TestEnrollmentService_EnrollFrame_LostRace(t *testing.T) {
	id := uuid.New()
	active := &domain.EnrollmentSession{ID: id, Status: domain.SessionActive, ExpiresAt: time.Now().Add(time.Minute)}
	after := &domain.EnrollmentSession{ID: id, Status: domain.SessionActive, ExpiresAt: time.Now().Add(time.Minute),
		CapturedBuckets: []domain.PoseBucket{domain.PoseDown}}

	repo := &MockSessionRepository{}
	repo.On("GetByID", mock.Anything, id).Return(active, nil).Once()
	repo.On("AddCapturedBucket", mock.Anything, id, domain.PoseDown).Return(nil, false, nil)
	repo.On("GetByID", mock.Anything, id).Return(after, nil).Once()
	verifier := &MockVerifier{}
	acceptAll(verifier)

	svc := NewEnrollmentService(repo, verifier, nil, nil)
	out, err := svc.EnrollFrame(context.Background(), frame(id, domain.PoseDown))

	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, 20, out.Progress)
	repo.AssertExpectations(t)
}

func TestEnrollmentService_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("incomplete session", func(t *testing.T) {
		f := newFixture()
		acceptAll(f.verifier)
		session, err := f.svc.StartEnrollment(ctx, "child-1", "")
		require.NoError(t, err)
		_, err = f.svc.EnrollFrame(ctx, frame(session.ID, domain.PoseFront))
		require.NoError(t, err)

		err = f.svc.Complete(ctx, session.ID)
		assert.ErrorIs(t, err, domain.ErrSessionIncomplete)
	})

	t.Run("cancelled session", func(t *testing.T) {
		f := newFixture()
		session, err := f.svc.StartEnrollment(ctx, "child-1", "")
		require.NoError(t, err)
		require.NoError(t, f.svc.Cancel(ctx, session.ID))

		assert.ErrorIs(t, f.svc.Complete(ctx, session.ID), domain.ErrSessionNotActive)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newFixture()
		assert.ErrorIs(t, f.svc.Complete(ctx, uuid.New()), domain.ErrSessionNotFound)
	})
}

func TestEnrollmentService_Cancel(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	session, err := f.svc.StartEnrollment(ctx, "child-1", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, session.ID))
	require.NoError(t, f.svc.Cancel(ctx, session.ID), "cancel must be idempotent")

	got, err := f.svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCancelled, got.Status)
	assert.Equal(t, []ws.EventType{ws.EventCancelled}, f.publisher.types())

	_, err = f.svc.EnrollFrame(ctx, frame(session.ID, domain.PoseFront))
	assert.ErrorIs(t, err, domain.ErrSessionNotActive)
}

func TestEnrollmentService_Expiry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.svc.WithSessionTTL(time.Minute)

	session, err := f.svc.StartEnrollment(ctx, "child-1", "")
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err = f.svc.EnrollFrame(ctx, frame(session.ID, domain.PoseFront))
	assert.ErrorIs(t, err, domain.ErrSessionExpired)

	got, err := f.svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionExpired, got.Status)

	assert.ErrorIs(t, f.svc.Complete(ctx, session.ID), domain.ErrSessionExpired)
	assert.ErrorIs(t, f.svc.Cancel(ctx, session.ID), domain.ErrSessionNotActive)
	assert.Equal(t, []ws.EventType{ws.EventExpired}, f.publisher.types())
}

func TestEnrollmentService_ExpiryLosesToSettledSession(t *testing.T) {
	id := uuid.New()
	stale := &domain.EnrollmentSession{ID: id, Status: domain.SessionActive, ExpiresAt: time.Now().Add(-time.Second)}
	settled := &domain.EnrollmentSession{ID: id, Status: domain.SessionCompleted, ExpiresAt: stale.ExpiresAt,
		CapturedBuckets: domain.AllBuckets[:]}

	repo := &MockSessionRepository{}
	repo.On("GetByID", mock.Anything, id).Return(stale, nil).Once()
	repo.On("UpdateStatus", mock.Anything, id, domain.SessionExpired).Return(domain.ErrSessionNotActive)
	repo.On("GetByID", mock.Anything, id).Return(settled, nil).Once()
	pub := &recordingPublisher{}

	svc := NewEnrollmentService(repo, &MockVerifier{}, pub, nil)
	got, err := svc.GetSession(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, got.Status)
	assert.Empty(t, pub.types())
	repo.AssertExpectations(t)
}

func TestEnrollmentService_ConcurrentUploadsCountOnce(t *testing.T) {
	f := newFixture()
	acceptAll(f.verifier)
	ctx := context.Background()

	session, err := f.svc.StartEnrollment(ctx, "child-1", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := f.svc.EnrollFrame(ctx, frame(session.ID, domain.PoseRight))
			if assert.NoError(t, err) && out.Accepted {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	got, err := f.svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.PoseBucket{domain.PoseRight}, got.CapturedBuckets)
}

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *recordingAudit) Log(_ context.Context, e audit.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
	return nil
}

func TestEnrollmentService_AuditTrail(t *testing.T) {
	f := newFixture()
	trail := &recordingAudit{}
	f.svc.WithAuditLogger(trail)
	f.verifier.On("VerifyFrame", mock.Anything, mock.Anything, domain.PoseDown).
		Return(provider.Reject(domain.PoseFront, 0.8, provider.ReasonPoseMismatch), nil)
	f.verifier.On("VerifyFrame", mock.Anything, mock.Anything, domain.PoseFront).
		Return(provider.Accept(domain.PoseFront, 0.9), nil)
	ctx := context.Background()

	session, err := f.svc.StartEnrollment(ctx, "child-1", "")
	require.NoError(t, err)
	_, err = f.svc.EnrollFrame(ctx, frame(session.ID, domain.PoseDown))
	require.NoError(t, err)
	_, err = f.svc.EnrollFrame(ctx, frame(session.ID, domain.PoseFront))
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(ctx, session.ID))

	var types []audit.EventType
	for _, e := range trail.events {
		types = append(types, e.EventType)
		assert.Equal(t, session.ID, e.SessionID)
		assert.Equal(t, "child-1", e.ChildID)
	}
	assert.Equal(t, []audit.EventType{
		audit.EventEnrollmentStarted,
		audit.EventFrameRejected,
		audit.EventFrameAccepted,
		audit.EventEnrollmentCancelled,
	}, types)

	rejected := trail.events[1]
	assert.False(t, rejected.Success)
	assert.Equal(t, "down", rejected.Pose)
	assert.Equal(t, provider.ReasonPoseMismatch, rejected.Reason)
	assert.Equal(t, "front", rejected.Metadata["observed"])
	assert.Equal(t, "0.900", trail.events[2].Metadata["quality"])
}
