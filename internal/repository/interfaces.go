package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
)

// PgxPool is the subset of *pgxpool.Pool used by the repositories, so
// pgxmock can stand in for it.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EnrollmentSessionRepositoryInterface defines operations for enrollment session data access
type EnrollmentSessionRepositoryInterface interface {
	Create(ctx context.Context, session *domain.EnrollmentSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.EnrollmentSession, error)
	// AddCapturedBucket appends bucket to an active session. It reports false
	// when the bucket was already captured or the session is not active.
	AddCapturedBucket(ctx context.Context, id uuid.UUID, bucket domain.PoseBucket) ([]domain.PoseBucket, bool, error)
	// UpdateStatus moves an active session to status.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SessionStatus) error
	MarkExpired(ctx context.Context) (int64, error)
}
