package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/teamledger/internal/authz"
	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/repository"
)

// UserService handles user management operations.
type UserService struct {
	userRepo   repository.UserRepository
	gate       *authz.Gate
	bcryptCost int
	logger     zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	userRepo repository.UserRepository,
	gate *authz.Gate,
	bcryptCost int,
	logger zerolog.Logger,
) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		userRepo:   userRepo,
		gate:       gate,
		bcryptCost: bcryptCost,
		logger:     logger.With().Str("service", "user").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// RegisterInput contains the data needed to register a user.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// RegisterOutput contains the result of registering a user.
type RegisterOutput struct {
	User *domain.User
}

// GetUserInput contains the data needed to get a user.
type GetUserInput struct {
	Principal *domain.Principal
	UserID    int64
}

// GetUserOutput contains the result of getting a user.
type GetUserOutput struct {
	User *domain.User
}

// ListUsersInput contains filter and pagination options for listing users.
type ListUsersInput struct {
	Principal  *domain.Principal
	Search     string
	OrderBy    string
	Descending bool
	Offset     int
	Limit      int
}

// ListUsersOutput contains the result of listing users.
type ListUsersOutput struct {
	Users []*domain.User
	Total int64
}

// UpdateUserInput contains a partial update for a user. Nil patch fields
// keep their prior values.
type UpdateUserInput struct {
	Principal *domain.Principal
	UserID    int64
	Patch     domain.UserPatch
}

// UpdateUserOutput contains the result of updating a user.
type UpdateUserOutput struct {
	User *domain.User
}

// DeleteUserInput contains the data needed to delete a user.
type DeleteUserInput struct {
	Principal *domain.Principal
	UserID    int64
}

// =============================================================================
// Service Methods
// =============================================================================

// Register creates a new user account. Registration is open: the account
// starts in the initial status with the default role and must be activated
// before it passes the authorization gate.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*RegisterOutput, error) {
	if err := validateRegistration(input); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("failed to check email")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, domain.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user := domain.NewUser(input.FirstName, input.LastName, email, string(hash))

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.ErrEmailTaken
		}
		s.logger.Error().Err(err).Str("email", email).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", user.ID).Str("email", email).Msg("user registered")

	return &RegisterOutput{User: user}, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, input GetUserInput) (*GetUserOutput, error) {
	if err := s.gate.Authorize(input.Principal, []authz.Permission{authz.ReadUser}, 0); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &GetUserOutput{User: user}, nil
}

// ListUsers returns users matching the filter, with the total match count.
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) (*ListUsersOutput, error) {
	if err := s.gate.Authorize(input.Principal, []authz.Permission{authz.ReadUser}, 0); err != nil {
		return nil, err
	}

	users, total, err := s.userRepo.List(ctx, repository.UserListOptions{
		Search:     input.Search,
		OrderBy:    input.OrderBy,
		Descending: input.Descending,
		Offset:     input.Offset,
		Limit:      input.Limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &ListUsersOutput{Users: users, Total: total}, nil
}

// UpdateUser applies a merge patch to a user: fields absent from the patch
// keep their stored values. Requires the user:write permission, which only
// admins hold.
func (s *UserService) UpdateUser(ctx context.Context, input UpdateUserInput) (*UpdateUserOutput, error) {
	if err := s.gate.Authorize(input.Principal, []authz.Permission{authz.WriteUser}, 0); err != nil {
		return nil, err
	}

	if input.Patch.Role != nil && !input.Patch.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInternalError, *input.Patch.Role)
	}

	current, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	updated := input.Patch.Apply(*current)

	if err := s.userRepo.Update(ctx, &updated); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.ErrEmailTaken
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("failed to update user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", updated.ID).Msg("user updated")

	return &UpdateUserOutput{User: &updated}, nil
}

// DeleteUser deletes a user. Requires the user:write permission.
func (s *UserService) DeleteUser(ctx context.Context, input DeleteUserInput) error {
	if err := s.gate.Authorize(input.Principal, []authz.Permission{authz.WriteUser}, 0); err != nil {
		return err
	}

	if err := s.userRepo.Delete(ctx, input.UserID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("failed to delete user")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", input.UserID).Msg("user deleted")

	return nil
}

// validateRegistration checks registration field constraints.
func validateRegistration(input RegisterInput) error {
	if len(input.Password) < 8 {
		return ErrInvalidPassword
	}
	if input.FirstName == "" || len(input.FirstName) > 255 ||
		input.LastName == "" || len(input.LastName) > 255 {
		return ErrInvalidName
	}
	email := strings.TrimSpace(input.Email)
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return ErrInvalidEmail
	}
	return nil
}
