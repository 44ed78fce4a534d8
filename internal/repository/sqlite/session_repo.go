package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/repository"
)

// sessionRepository implements repository.SessionRepository for SQLite.
type sessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(db *DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// Create creates a new session.
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`,
		session.UserID,
		session.TokenHash,
		session.ExpiresAt.UTC().Format(time.RFC3339),
		session.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	session.ID = id

	return nil
}

// GetByTokenHash retrieves a session by the hash of its token.
func (r *sessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, created_at FROM sessions WHERE token_hash = ?`,
		tokenHash,
	)

	session := &domain.Session{}
	var expiresAt, createdAt string
	err := row.Scan(&session.ID, &session.UserID, &session.TokenHash, &expiresAt, &createdAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	session.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return session, nil
}

// DeleteByTokenHash deletes a session by the hash of its token.
func (r *sessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrSessionNotFound
	}

	return nil
}

// DeleteExpired removes all expired sessions and returns how many were deleted.
func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`,
		now.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// Ensure sessionRepository implements repository.SessionRepository.
var _ repository.SessionRepository = (*sessionRepository)(nil)
