package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/pkg/crypto"
	"github.com/prn-tf/teamledger/internal/repository"
)

// SweepRecorder receives counts of expired sessions removed by the
// background sweeper. The metrics package provides an implementation.
type SweepRecorder interface {
	RecordSessionsSwept(n int64)
}

// SessionService handles login, logout and bearer-token resolution.
type SessionService struct {
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	teamRepo    repository.TeamRepository
	ttl         time.Duration
	recorder    SweepRecorder
	logger      zerolog.Logger
}

// NewSessionService creates a new SessionService. The recorder may be nil.
func NewSessionService(
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	teamRepo repository.TeamRepository,
	ttl time.Duration,
	recorder SweepRecorder,
	logger zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		teamRepo:    teamRepo,
		ttl:         ttl,
		recorder:    recorder,
		logger:      logger.With().Str("service", "session").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// LoginInput contains the credentials for a login attempt.
type LoginInput struct {
	Email    string
	Password string
}

// LoginOutput contains the issued token. The plaintext token is returned
// exactly once; only its hash is stored.
type LoginOutput struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// =============================================================================
// Service Methods
// =============================================================================

// Login verifies credentials and issues a new bearer token. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *SessionService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Str("email", email).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := crypto.GenerateToken()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	now := time.Now().UTC()
	session := &domain.Session{
		UserID:    user.ID,
		TokenHash: crypto.HashToken(token),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to create session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", user.ID).Time("expires_at", session.ExpiresAt).Msg("user logged in")

	return &LoginOutput{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	}, nil
}

// Logout revokes the session behind a bearer token. Revoking an unknown
// token is not an error.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	err := s.sessionRepo.DeleteByTokenHash(ctx, crypto.HashToken(token))
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		s.logger.Error().Err(err).Msg("failed to delete session")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return nil
}

// Resolve turns a bearer token into the Principal for one operation. The
// principal snapshot carries the user's role, status and team memberships
// as of this call; it is not refreshed mid-operation.
func (s *SessionService) Resolve(ctx context.Context, token string) (*domain.Principal, error) {
	session, err := s.sessionRepo.GetByTokenHash(ctx, crypto.HashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrUnauthorized
		}
		s.logger.Error().Err(err).Msg("failed to get session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if session.Expired(time.Now().UTC()) {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthorized
		}
		s.logger.Error().Err(err).Int64("user_id", session.UserID).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	teamIDs, err := s.teamRepo.MemberTeamIDs(ctx, user.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to get memberships")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &domain.Principal{
		UserID:  user.ID,
		Role:    user.Role,
		Status:  user.Status,
		TeamIDs: teamIDs,
	}, nil
}

// SweepExpired removes expired sessions. Intended to run periodically.
func (s *SessionService) SweepExpired(ctx context.Context) (int64, error) {
	deleted, err := s.sessionRepo.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to sweep sessions")
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if deleted > 0 {
		s.logger.Info().Int64("deleted", deleted).Msg("swept expired sessions")
		if s.recorder != nil {
			s.recorder.RecordSessionsSwept(deleted)
		}
	}

	return deleted, nil
}
