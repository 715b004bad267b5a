package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
)

type EnrollmentSessionRepository struct {
	pool PgxPool
}

func NewEnrollmentSessionRepository(pool PgxPool) *EnrollmentSessionRepository {
	return &EnrollmentSessionRepository{pool: pool}
}

// Create inserts a new enrollment session
func (r *EnrollmentSessionRepository) Create(ctx context.Context, session *domain.EnrollmentSession) error {
	query := `
		INSERT INTO enrollment_sessions (id, child_id, name, status, captured_buckets, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.Status == "" {
		session.Status = domain.SessionActive
	}

	err := r.pool.QueryRow(ctx, query,
		session.ID,
		session.ChildID,
		session.Name,
		string(session.Status),
		bucketNames(session.CapturedBuckets),
		session.ExpiresAt,
	).Scan(&session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create enrollment session: %w", err)
	}

	return nil
}

// GetByID retrieves an enrollment session by ID
func (r *EnrollmentSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.EnrollmentSession, error) {
	query := `
		SELECT id, child_id, name, status, captured_buckets, expires_at, created_at, updated_at
		FROM enrollment_sessions
		WHERE id = $1
	`

	var (
		session domain.EnrollmentSession
		status  string
		names   []string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.ChildID,
		&session.Name,
		&status,
		&names,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get enrollment session by id: %w", err)
	}

	session.Status = domain.SessionStatus(status)
	if session.CapturedBuckets, err = parseBuckets(names); err != nil {
		return nil, fmt.Errorf("get enrollment session by id: %w", err)
	}

	return &session, nil
}

// AddCapturedBucket appends bucket in a single statement so concurrent
// uploads for the same session cannot record a bucket twice.
func (r *EnrollmentSessionRepository) AddCapturedBucket(ctx context.Context, id uuid.UUID, bucket domain.PoseBucket) ([]domain.PoseBucket, bool, error) {
	query := `
		UPDATE enrollment_sessions
		SET captured_buckets = array_append(captured_buckets, $2), updated_at = NOW()
		WHERE id = $1 AND status = 'active' AND NOT ($2 = ANY(captured_buckets))
		RETURNING captured_buckets
	`

	var names []string
	err := r.pool.QueryRow(ctx, query, id, bucket.String()).Scan(&names)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("add captured bucket: %w", err)
	}

	buckets, err := parseBuckets(names)
	if err != nil {
		return nil, false, fmt.Errorf("add captured bucket: %w", err)
	}
	return buckets, true, nil
}

// UpdateStatus transitions an active session
func (r *EnrollmentSessionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SessionStatus) error {
	query := `
		UPDATE enrollment_sessions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`

	result, err := r.pool.Exec(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("update enrollment session status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrSessionNotActive
	}

	return nil
}

// MarkExpired flags active sessions past their deadline.
// Returns the number of sessions expired.
func (r *EnrollmentSessionRepository) MarkExpired(ctx context.Context) (int64, error) {
	query := `
		UPDATE enrollment_sessions
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND expires_at < NOW()
	`

	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("mark expired enrollment sessions: %w", err)
	}

	return result.RowsAffected(), nil
}
