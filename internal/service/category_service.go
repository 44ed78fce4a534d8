package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/authz"
	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/lock"
	"github.com/prn-tf/teamledger/internal/repository"
)

// Category creation lock parameters. The per-team lock serializes the
// duplicate-name check against the insert; the unique index on
// (team_id, name) is the backstop if the lock cannot be obtained.
const (
	categoryLockTTL        = 5 * time.Second
	categoryLockRetries    = 10
	categoryLockRetryDelay = 50 * time.Millisecond
)

// CategoryService handles category operations.
type CategoryService struct {
	categoryRepo repository.CategoryRepository
	teamRepo     repository.TeamRepository
	gate         *authz.Gate
	locker       lock.Locker
	logger       zerolog.Logger
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(
	categoryRepo repository.CategoryRepository,
	teamRepo repository.TeamRepository,
	gate *authz.Gate,
	locker lock.Locker,
	logger zerolog.Logger,
) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		teamRepo:     teamRepo,
		gate:         gate,
		locker:       locker,
		logger:       logger.With().Str("service", "category").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// ListCategoriesInput contains the data needed to list a team's categories.
type ListCategoriesInput struct {
	Principal *domain.Principal
	TeamID    int64

	// Type optionally restricts the listing to expense or income categories.
	Type *domain.CategoryType
}

// ListCategoriesOutput contains the result of listing categories.
type ListCategoriesOutput struct {
	Categories []*domain.Category
}

// CreateCategoryInput contains the data needed to create a category.
type CreateCategoryInput struct {
	Principal   *domain.Principal
	TeamID      int64
	Name        string
	Description string
	Type        domain.CategoryType
}

// CreateCategoryOutput contains the result of creating a category.
type CreateCategoryOutput struct {
	Category *domain.Category
}

// UpdateCategoryInput contains a partial update for a category. Nil patch
// fields keep their prior values.
type UpdateCategoryInput struct {
	Principal  *domain.Principal
	TeamID     int64
	CategoryID int64
	Patch      domain.CategoryPatch
}

// UpdateCategoryOutput contains the result of updating a category.
type UpdateCategoryOutput struct {
	Category *domain.Category
}

// DeleteCategoryInput contains the data needed to delete a category.
type DeleteCategoryInput struct {
	Principal  *domain.Principal
	TeamID     int64
	CategoryID int64
}

// =============================================================================
// Service Methods
// =============================================================================

// ListCategories returns the team's categories, optionally restricted to
// one type.
func (s *CategoryService) ListCategories(ctx context.Context, input ListCategoriesInput) (*ListCategoriesOutput, error) {
	if err := s.gate.Authorize(input.Principal, []authz.Permission{authz.ReadCategory}, input.TeamID); err != nil {
		return nil, err
	}

	if input.Type != nil && !input.Type.Valid() {
		return nil, domain.ErrInvalidCategoryType
	}

	categories, err := s.categoryRepo.ListByTeam(ctx, input.TeamID, input.Type)
	if err != nil {
		s.logger.Error().Err(err).Int64("team_id", input.TeamID).Msg("failed to list categories")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &ListCategoriesOutput{Categories: categories}, nil
}

// CreateCategory creates a new category in the team. Category names are
// unique per team across both types. The per-team lock closes the window
// between the duplicate check and the insert under concurrent requests.
func (s *CategoryService) CreateCategory(ctx context.Context, input CreateCategoryInput) (*CreateCategoryOutput, error) {
	if err := s.gate.Authorize(input.Principal, []authz.Permission{authz.WriteCategory}, input.TeamID); err != nil {
		return nil, err
	}

	// The gate already checked membership; re-checking here keeps the
	// write path correct even if a future caller passes teamID 0.
	if !input.Principal.MemberOf(input.TeamID) {
		return nil, domain.ErrNotTeamMember
	}

	if !input.Type.Valid() {
		return nil, domain.ErrInvalidCategoryType
	}
	if input.Name == "" || len(input.Name) > 255 {
		return nil, ErrInvalidName
	}

	lockKey := lock.Keys.CategoryCreate(input.TeamID)

	acquired, err := s.locker.AcquireWithRetry(ctx, lockKey, categoryLockTTL, categoryLockRetries, categoryLockRetryDelay)
	if err != nil {
		s.logger.Error().Err(err).Str("key", lockKey).Msg("failed to acquire lock")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if acquired {
		defer s.locker.Release(context.WithoutCancel(ctx), lockKey)
	}

	exists, err := s.categoryRepo.ExistsByName(ctx, input.TeamID, input.Name)
	if err != nil {
		s.logger.Error().Err(err).Str("name", input.Name).Msg("failed to check category name")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, domain.ErrDuplicateCategoryName
	}

	category := &domain.Category{
		Name:        input.Name,
		Description: input.Description,
		Type:        input.Type,
		TeamID:      input.TeamID,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, domain.ErrDuplicateCategoryName) {
			return nil, domain.ErrDuplicateCategoryName
		}
		s.logger.Error().Err(err).Str("name", input.Name).Msg("failed to create category")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("category_id", category.ID).
		Int64("team_id", input.TeamID).
		Str("type", string(category.Type)).
		Msg("category created")

	return &CreateCategoryOutput{Category: category}, nil
}

// UpdateCategory applies a merge patch to a category. Only the team creator
// may modify categories.
func (s *CategoryService) UpdateCategory(ctx context.Context, input UpdateCategoryInput) (*UpdateCategoryOutput, error) {
	current, err := s.authorizeMutation(ctx, input.Principal, input.TeamID, input.CategoryID)
	if err != nil {
		return nil, err
	}

	if input.Patch.Type != nil && !input.Patch.Type.Valid() {
		return nil, domain.ErrInvalidCategoryType
	}
	if input.Patch.Name != nil && (*input.Patch.Name == "" || len(*input.Patch.Name) > 255) {
		return nil, ErrInvalidName
	}

	updated := input.Patch.Apply(*current)

	if err := s.categoryRepo.Update(ctx, &updated); err != nil {
		if errors.Is(err, domain.ErrDuplicateCategoryName) {
			return nil, domain.ErrDuplicateCategoryName
		}
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return nil, domain.ErrCategoryNotFound
		}
		s.logger.Error().Err(err).Int64("category_id", input.CategoryID).Msg("failed to update category")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("category_id", updated.ID).Msg("category updated")

	return &UpdateCategoryOutput{Category: &updated}, nil
}

// DeleteCategory deletes a category. Only the team creator may delete, and
// a category still referenced by items cannot be removed.
func (s *CategoryService) DeleteCategory(ctx context.Context, input DeleteCategoryInput) error {
	if _, err := s.authorizeMutation(ctx, input.Principal, input.TeamID, input.CategoryID); err != nil {
		return err
	}

	if err := s.categoryRepo.Delete(ctx, input.CategoryID); err != nil {
		if errors.Is(err, domain.ErrCategoryInUse) {
			return domain.ErrCategoryInUse
		}
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return domain.ErrCategoryNotFound
		}
		s.logger.Error().Err(err).Int64("category_id", input.CategoryID).Msg("failed to delete category")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("category_id", input.CategoryID).Msg("category deleted")

	return nil
}

// authorizeMutation runs the full check chain for category update and
// delete: permission, membership, category-in-team, then team creator.
func (s *CategoryService) authorizeMutation(ctx context.Context, principal *domain.Principal, teamID, categoryID int64) (*domain.Category, error) {
	if err := s.gate.Authorize(principal, []authz.Permission{authz.WriteCategory}, teamID); err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return nil, domain.ErrCategoryNotFound
		}
		s.logger.Error().Err(err).Int64("category_id", categoryID).Msg("failed to get category")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	// A category id from another team is indistinguishable from a missing one.
	if category.TeamID != teamID {
		return nil, domain.ErrCategoryNotFound
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, domain.ErrTeamNotFound) {
			return nil, domain.ErrTeamNotFound
		}
		s.logger.Error().Err(err).Int64("team_id", teamID).Msg("failed to get team")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := s.gate.RequireTeamCreator(principal, team); err != nil {
		return nil, err
	}

	return category, nil
}
