package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/pkg/crypto"
)

const sessionTestTTL = time.Hour

// seedUser registers a user directly in the mock repo with a known
// password and activates the account.
func seedUser(t *testing.T, userRepo *MockUserRepository, email, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := domain.NewUser("Test", "User", email, string(hash))
	user.Status = domain.StatusActive
	if err := userRepo.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func newSessionService(sessionRepo *MockSessionRepository, userRepo *MockUserRepository, teamRepo *MockTeamRepository) *SessionService {
	return NewSessionService(sessionRepo, userRepo, teamRepo, sessionTestTTL, nil, zerolog.Nop())
}

func TestSessionService_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		userRepo := NewMockUserRepository()
		sessionRepo := NewMockSessionRepository()
		user := seedUser(t, userRepo, "alice@example.com", "correct-horse")

		svc := newSessionService(sessionRepo, userRepo, NewMockTeamRepository())
		output, err := svc.Login(context.Background(), LoginInput{
			Email: "alice@example.com", Password: "correct-horse",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.Token == "" {
			t.Fatal("expected a token")
		}
		if output.User.ID != user.ID {
			t.Errorf("expected user %d, got %d", user.ID, output.User.ID)
		}

		// Only the hash is stored; the plaintext token never is.
		if _, exists := sessionRepo.sessions[output.Token]; exists {
			t.Error("plaintext token must not be a storage key")
		}
		if _, err := sessionRepo.GetByTokenHash(context.Background(), crypto.HashToken(output.Token)); err != nil {
			t.Errorf("expected session stored under token hash: %v", err)
		}
	})

	t.Run("email is normalized", func(t *testing.T) {
		userRepo := NewMockUserRepository()
		seedUser(t, userRepo, "alice@example.com", "correct-horse")

		svc := newSessionService(NewMockSessionRepository(), userRepo, NewMockTeamRepository())
		_, err := svc.Login(context.Background(), LoginInput{
			Email: "  Alice@Example.COM ", Password: "correct-horse",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		userRepo := NewMockUserRepository()
		seedUser(t, userRepo, "alice@example.com", "correct-horse")

		svc := newSessionService(NewMockSessionRepository(), userRepo, NewMockTeamRepository())
		_, err := svc.Login(context.Background(), LoginInput{
			Email: "alice@example.com", Password: "wrong",
		})
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email looks like wrong password", func(t *testing.T) {
		svc := newSessionService(NewMockSessionRepository(), NewMockUserRepository(), NewMockTeamRepository())
		_, err := svc.Login(context.Background(), LoginInput{
			Email: "nobody@example.com", Password: "whatever",
		})
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestSessionService_Resolve(t *testing.T) {
	t.Run("principal carries role, status and memberships", func(t *testing.T) {
		userRepo := NewMockUserRepository()
		sessionRepo := NewMockSessionRepository()
		teamRepo := NewMockTeamRepository()
		user := seedUser(t, userRepo, "alice@example.com", "correct-horse")
		team := seedTeam(t, teamRepo, user.ID, "Home")

		svc := newSessionService(sessionRepo, userRepo, teamRepo)
		login, err := svc.Login(context.Background(), LoginInput{
			Email: "alice@example.com", Password: "correct-horse",
		})
		if err != nil {
			t.Fatalf("failed to log in: %v", err)
		}

		principal, err := svc.Resolve(context.Background(), login.Token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if principal.UserID != user.ID {
			t.Errorf("expected user %d, got %d", user.ID, principal.UserID)
		}
		if principal.Role != domain.RoleUser || principal.Status != domain.StatusActive {
			t.Errorf("unexpected role/status: %s/%s", principal.Role, principal.Status)
		}
		if len(principal.TeamIDs) != 1 || principal.TeamIDs[0] != team.ID {
			t.Errorf("expected membership of team %d, got %v", team.ID, principal.TeamIDs)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		svc := newSessionService(NewMockSessionRepository(), NewMockUserRepository(), NewMockTeamRepository())
		_, err := svc.Resolve(context.Background(), "not-a-token")
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("expired session", func(t *testing.T) {
		userRepo := NewMockUserRepository()
		sessionRepo := NewMockSessionRepository()
		user := seedUser(t, userRepo, "alice@example.com", "correct-horse")

		token, err := crypto.GenerateToken()
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		sessionRepo.Create(context.Background(), &domain.Session{
			UserID:    user.ID,
			TokenHash: crypto.HashToken(token),
			ExpiresAt: time.Now().UTC().Add(-time.Minute),
		})

		svc := newSessionService(sessionRepo, userRepo, NewMockTeamRepository())
		_, err = svc.Resolve(context.Background(), token)
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestSessionService_Logout(t *testing.T) {
	userRepo := NewMockUserRepository()
	sessionRepo := NewMockSessionRepository()
	seedUser(t, userRepo, "alice@example.com", "correct-horse")

	svc := newSessionService(sessionRepo, userRepo, NewMockTeamRepository())
	login, err := svc.Login(context.Background(), LoginInput{
		Email: "alice@example.com", Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("failed to log in: %v", err)
	}

	if err := svc.Logout(context.Background(), login.Token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), login.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected revoked token to be unauthorized, got %v", err)
	}

	// Logging out again, or with a token that never existed, is a no-op.
	if err := svc.Logout(context.Background(), login.Token); err != nil {
		t.Errorf("repeated logout should not error: %v", err)
	}
	if err := svc.Logout(context.Background(), "never-issued"); err != nil {
		t.Errorf("unknown-token logout should not error: %v", err)
	}
}

func TestSessionService_SweepExpired(t *testing.T) {
	sessionRepo := NewMockSessionRepository()

	now := time.Now().UTC()
	sessionRepo.Create(context.Background(), &domain.Session{
		UserID: 1, TokenHash: "expired-1", ExpiresAt: now.Add(-time.Hour),
	})
	sessionRepo.Create(context.Background(), &domain.Session{
		UserID: 1, TokenHash: "expired-2", ExpiresAt: now.Add(-time.Minute),
	})
	sessionRepo.Create(context.Background(), &domain.Session{
		UserID: 1, TokenHash: "live", ExpiresAt: now.Add(time.Hour),
	})

	svc := newSessionService(sessionRepo, NewMockUserRepository(), NewMockTeamRepository())
	deleted, err := svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}
	if _, err := sessionRepo.GetByTokenHash(context.Background(), "live"); err != nil {
		t.Errorf("live session should survive the sweep: %v", err)
	}
}
