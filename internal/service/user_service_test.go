package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/teamledger/internal/authz"
	"github.com/prn-tf/teamledger/internal/domain"
)

func newUserService(userRepo *MockUserRepository) *UserService {
	return NewUserService(userRepo, authz.NewGate(nil, zerolog.Nop()), bcrypt.MinCost, zerolog.Nop())
}

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{
			name: "success",
			input: RegisterInput{
				FirstName: "Alice", LastName: "Smith",
				Email: "alice@example.com", Password: "correct-horse",
			},
		},
		{
			name: "short password",
			input: RegisterInput{
				FirstName: "Alice", LastName: "Smith",
				Email: "alice@example.com", Password: "short",
			},
			wantErr: ErrInvalidPassword,
		},
		{
			name: "missing first name",
			input: RegisterInput{
				LastName: "Smith",
				Email:    "alice@example.com", Password: "correct-horse",
			},
			wantErr: ErrInvalidName,
		},
		{
			name: "malformed email",
			input: RegisterInput{
				FirstName: "Alice", LastName: "Smith",
				Email: "not-an-email", Password: "correct-horse",
			},
			wantErr: ErrInvalidEmail,
		},
		{
			name: "email without domain dot",
			input: RegisterInput{
				FirstName: "Alice", LastName: "Smith",
				Email: "alice@localhost", Password: "correct-horse",
			},
			wantErr: ErrInvalidEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newUserService(NewMockUserRepository())
			output, err := svc.Register(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if output.User.Role != domain.RoleUser {
				t.Errorf("expected default role, got %s", output.User.Role)
			}
			if output.User.Status != domain.StatusInitial {
				t.Errorf("new accounts must start initial, got %s", output.User.Status)
			}
			if output.User.PasswordHash == tt.input.Password {
				t.Error("password must not be stored in plaintext")
			}
		})
	}
}

func TestUserService_Register_EmailTaken(t *testing.T) {
	svc := newUserService(NewMockUserRepository())

	input := RegisterInput{
		FirstName: "Alice", LastName: "Smith",
		Email: "alice@example.com", Password: "correct-horse",
	}
	if _, err := svc.Register(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same address with different case is still taken.
	input.Email = "ALICE@example.com"
	_, err := svc.Register(context.Background(), input)
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserService_GetUser(t *testing.T) {
	userRepo := NewMockUserRepository()
	user := seedUser(t, userRepo, "alice@example.com", "correct-horse")
	svc := newUserService(userRepo)

	t.Run("active user can read", func(t *testing.T) {
		output, err := svc.GetUser(context.Background(), GetUserInput{
			Principal: activePrincipal(user.ID, domain.RoleUser),
			UserID:    user.ID,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.User.Email != "alice@example.com" {
			t.Errorf("unexpected email: %s", output.User.Email)
		}
	})

	t.Run("initial account is rejected", func(t *testing.T) {
		_, err := svc.GetUser(context.Background(), GetUserInput{
			Principal: &domain.Principal{UserID: user.ID, Role: domain.RoleUser, Status: domain.StatusInitial},
			UserID:    user.ID,
		})
		if !errors.Is(err, domain.ErrAccountInactive) {
			t.Errorf("expected ErrAccountInactive, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.GetUser(context.Background(), GetUserInput{
			Principal: activePrincipal(user.ID, domain.RoleUser),
			UserID:    9999,
		})
		if !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestUserService_UpdateUser(t *testing.T) {
	strPtr := func(s string) *string { return &s }

	t.Run("admin merge keeps unspecified fields", func(t *testing.T) {
		userRepo := NewMockUserRepository()
		user := seedUser(t, userRepo, "alice@example.com", "correct-horse")
		svc := newUserService(userRepo)

		output, err := svc.UpdateUser(context.Background(), UpdateUserInput{
			Principal: activePrincipal(2, domain.RoleAdmin),
			UserID:    user.ID,
			Patch:     domain.UserPatch{FirstName: strPtr("Alicia")},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.User.FirstName != "Alicia" {
			t.Errorf("expected first name Alicia, got %s", output.User.FirstName)
		}
		if output.User.LastName != "User" || output.User.Email != "alice@example.com" {
			t.Errorf("unpatched fields should be retained: %+v", output.User)
		}
	})

	t.Run("admin can activate an account", func(t *testing.T) {
		userRepo := NewMockUserRepository()
		svc := newUserService(userRepo)

		registered, err := svc.Register(context.Background(), RegisterInput{
			FirstName: "Bob", LastName: "Jones",
			Email: "bob@example.com", Password: "correct-horse",
		})
		if err != nil {
			t.Fatalf("failed to register: %v", err)
		}

		active := domain.StatusActive
		output, err := svc.UpdateUser(context.Background(), UpdateUserInput{
			Principal: activePrincipal(1, domain.RoleAdmin),
			UserID:    registered.User.ID,
			Patch:     domain.UserPatch{Status: &active},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.User.Status != domain.StatusActive {
			t.Errorf("expected active status, got %s", output.User.Status)
		}
	})

	t.Run("regular user lacks user:write", func(t *testing.T) {
		userRepo := NewMockUserRepository()
		user := seedUser(t, userRepo, "alice@example.com", "correct-horse")
		svc := newUserService(userRepo)

		_, err := svc.UpdateUser(context.Background(), UpdateUserInput{
			Principal: activePrincipal(user.ID, domain.RoleUser),
			UserID:    user.ID,
			Patch:     domain.UserPatch{FirstName: strPtr("Alicia")},
		})
		if !errors.Is(err, domain.ErrMissingPermission) {
			t.Errorf("expected ErrMissingPermission, got %v", err)
		}
	})
}

func TestUserService_DeleteUser(t *testing.T) {
	userRepo := NewMockUserRepository()
	user := seedUser(t, userRepo, "alice@example.com", "correct-horse")
	svc := newUserService(userRepo)

	t.Run("regular user lacks user:write", func(t *testing.T) {
		err := svc.DeleteUser(context.Background(), DeleteUserInput{
			Principal: activePrincipal(user.ID, domain.RoleUser),
			UserID:    user.ID,
		})
		if !errors.Is(err, domain.ErrMissingPermission) {
			t.Errorf("expected ErrMissingPermission, got %v", err)
		}
	})

	t.Run("admin deletes", func(t *testing.T) {
		err := svc.DeleteUser(context.Background(), DeleteUserInput{
			Principal: activePrincipal(2, domain.RoleAdmin),
			UserID:    user.ID,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := userRepo.GetByID(context.Background(), user.ID); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("expected user to be gone, got %v", err)
		}
	})
}
