package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/repository"
)

// sessionRepository implements repository.SessionRepository for PostgreSQL.
type sessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(db *DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// Create creates a new session.
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO sessions (user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`,
		session.UserID,
		session.TokenHash,
		session.ExpiresAt.UTC(),
		session.CreatedAt.UTC(),
	).Scan(&session.ID)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByTokenHash retrieves a session by the hash of its token.
func (r *sessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	session := &domain.Session{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, user_id, token_hash, expires_at, created_at FROM sessions WHERE token_hash = $1`,
		tokenHash,
	).Scan(&session.ID, &session.UserID, &session.TokenHash, &session.ExpiresAt, &session.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// DeleteByTokenHash deletes a session by the hash of its token.
func (r *sessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}

	return nil
}

// DeleteExpired removes all expired sessions and returns how many were deleted.
func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Pool.Exec(ctx,
		`DELETE FROM sessions WHERE expires_at <= $1`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return result.RowsAffected(), nil
}

// Ensure sessionRepository implements repository.SessionRepository.
var _ repository.SessionRepository = (*sessionRepository)(nil)
