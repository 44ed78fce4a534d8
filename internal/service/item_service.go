package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/authz"
	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/repository"
)

// ItemService handles item operations.
type ItemService struct {
	itemRepo     repository.ItemRepository
	categoryRepo repository.CategoryRepository
	gate         *authz.Gate
	logger       zerolog.Logger
}

// NewItemService creates a new ItemService.
func NewItemService(
	itemRepo repository.ItemRepository,
	categoryRepo repository.CategoryRepository,
	gate *authz.Gate,
	logger zerolog.Logger,
) *ItemService {
	return &ItemService{
		itemRepo:     itemRepo,
		categoryRepo: categoryRepo,
		gate:         gate,
		logger:       logger.With().Str("service", "item").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// CreateItemInput contains the data needed to create an item. Total is not
// accepted: it is always derived from Price and Quantity.
type CreateItemInput struct {
	Principal  *domain.Principal
	TeamID     int64
	CategoryID int64
	Date       time.Time
	Name       string
	Note       string
	Quantity   float64
	Price      float64
}

// CreateItemOutput contains the created item with its category resolved.
type CreateItemOutput struct {
	Item *domain.Item
}

// UpdateItemInput contains a partial update for an item. Nil patch fields
// keep their prior values; the total is re-derived either way.
type UpdateItemInput struct {
	Principal *domain.Principal
	TeamID    int64
	ItemID    int64
	Patch     domain.ItemPatch
}

// UpdateItemOutput contains the result of updating an item.
type UpdateItemOutput struct {
	Item *domain.Item
}

// DeleteItemInput contains the data needed to delete an item.
type DeleteItemInput struct {
	Principal *domain.Principal
	TeamID    int64
	ItemID    int64
}

// GetItemsInput contains filter, sort and pagination options for listing
// a team's items.
type GetItemsInput struct {
	Principal *domain.Principal
	TeamID    int64

	// From and To bound the item date inclusively. Applied only when both
	// are present; there is no default window.
	From *time.Time
	To   *time.Time

	// Search is a case-insensitive prefix matched against item names.
	Search string

	// OrderBy names the sort field: date, name, price, quantity or total.
	// Unknown fields fall back to date.
	OrderBy string

	// Descending sorts in descending order if true.
	Descending bool

	Offset int
	Limit  int
}

// GetItemsOutput contains the result of listing items.
type GetItemsOutput struct {
	Items []*domain.Item
}

// GetTotalsInput contains the data needed for a per-category rollup.
type GetTotalsInput struct {
	Principal   *domain.Principal
	TeamID      int64
	CategoryIDs []int64
}

// GetTotalsOutput contains the per-category totals. Categories with no
// matching items are absent.
type GetTotalsOutput struct {
	Totals []*domain.CategoryTotal
}

// =============================================================================
// Service Methods
// =============================================================================

// CreateItem creates a new item in the team. The referenced category must
// exist in the same team; the total is computed server-side.
func (s *ItemService) CreateItem(ctx context.Context, input CreateItemInput) (*CreateItemOutput, error) {
	if err := s.gate.Authorize(input.Principal, []authz.Permission{authz.WriteItem}, input.TeamID); err != nil {
		return nil, err
	}

	if input.Name == "" || len(input.Name) > 255 {
		return nil, ErrInvalidName
	}

	category, err := s.categoryInTeam(ctx, input.TeamID, input.CategoryID)
	if err != nil {
		return nil, err
	}

	item := &domain.Item{
		Date:       input.Date,
		Name:       input.Name,
		Note:       input.Note,
		Quantity:   input.Quantity,
		Price:      input.Price,
		CategoryID: input.CategoryID,
		TeamID:     input.TeamID,
		CreatorID:  input.Principal.UserID,
	}
	if err := item.ValidateAmounts(); err != nil {
		return nil, err
	}
	item.RecomputeTotal()

	if err := s.itemRepo.Create(ctx, item); err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return nil, domain.ErrCategoryNotFound
		}
		s.logger.Error().Err(err).Int64("team_id", input.TeamID).Msg("failed to create item")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	item.CategoryName = category.Name
	item.CategoryType = category.Type

	s.logger.Info().
		Int64("item_id", item.ID).
		Int64("team_id", input.TeamID).
		Float64("total", item.Total).
		Msg("item created")

	return &CreateItemOutput{Item: item}, nil
}

// UpdateItem applies a merge patch to an item: fields absent from the
// patch keep their stored values, and the total is re-derived from the
// merged price and quantity. A changed category is re-validated against
// the team.
func (s *ItemService) UpdateItem(ctx context.Context, input UpdateItemInput) (*UpdateItemOutput, error) {
	if err := s.gate.Authorize(input.Principal, []authz.Permission{authz.WriteItem}, input.TeamID); err != nil {
		return nil, err
	}

	current, err := s.itemInTeam(ctx, input.TeamID, input.ItemID)
	if err != nil {
		return nil, err
	}

	if input.Patch.Name != nil && (*input.Patch.Name == "" || len(*input.Patch.Name) > 255) {
		return nil, ErrInvalidName
	}

	updated := input.Patch.Apply(*current)
	if err := updated.ValidateAmounts(); err != nil {
		return nil, err
	}

	if updated.CategoryID != current.CategoryID {
		category, err := s.categoryInTeam(ctx, input.TeamID, updated.CategoryID)
		if err != nil {
			return nil, err
		}
		updated.CategoryName = category.Name
		updated.CategoryType = category.Type
	}

	if err := s.itemRepo.Update(ctx, &updated); err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return nil, domain.ErrCategoryNotFound
		}
		if errors.Is(err, domain.ErrItemNotFound) {
			return nil, domain.ErrItemNotFound
		}
		s.logger.Error().Err(err).Int64("item_id", input.ItemID).Msg("failed to update item")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("item_id", updated.ID).Float64("total", updated.Total).Msg("item updated")

	return &UpdateItemOutput{Item: &updated}, nil
}

// DeleteItem deletes an item. The delete is terminal; nothing else is
// touched.
func (s *ItemService) DeleteItem(ctx context.Context, input DeleteItemInput) error {
	if err := s.gate.Authorize(input.Principal, []authz.Permission{authz.WriteItem}, input.TeamID); err != nil {
		return err
	}

	if _, err := s.itemInTeam(ctx, input.TeamID, input.ItemID); err != nil {
		return err
	}

	if err := s.itemRepo.Delete(ctx, input.ItemID); err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return domain.ErrItemNotFound
		}
		s.logger.Error().Err(err).Int64("item_id", input.ItemID).Msg("failed to delete item")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("item_id", input.ItemID).Msg("item deleted")

	return nil
}

// GetItems returns the team's items matching the filter. The same filter
// over unchanged data always yields the same ordering: sorting ties are
// broken by id.
func (s *ItemService) GetItems(ctx context.Context, input GetItemsInput) (*GetItemsOutput, error) {
	if err := s.gate.Authorize(input.Principal, []authz.Permission{authz.ReadItem}, input.TeamID); err != nil {
		return nil, err
	}

	items, err := s.itemRepo.List(ctx, input.TeamID, repository.ItemFilter{
		From:       input.From,
		To:         input.To,
		Search:     input.Search,
		OrderBy:    input.OrderBy,
		Descending: input.Descending,
		Offset:     input.Offset,
		Limit:      input.Limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("team_id", input.TeamID).Msg("failed to list items")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &GetItemsOutput{Items: items}, nil
}

// GetTotalByCategory sums item totals per requested category. Categories
// with no items produce no entry rather than a zero row.
func (s *ItemService) GetTotalByCategory(ctx context.Context, input GetTotalsInput) (*GetTotalsOutput, error) {
	if err := s.gate.Authorize(input.Principal, []authz.Permission{authz.ReadItem}, input.TeamID); err != nil {
		return nil, err
	}

	totals, err := s.itemRepo.TotalsByCategory(ctx, input.TeamID, input.CategoryIDs)
	if err != nil {
		s.logger.Error().Err(err).Int64("team_id", input.TeamID).Msg("failed to sum totals")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &GetTotalsOutput{Totals: totals}, nil
}

// =============================================================================
// Helpers
// =============================================================================

// categoryInTeam loads a category and verifies it belongs to the team.
// A category from another team reads as not found.
func (s *ItemService) categoryInTeam(ctx context.Context, teamID, categoryID int64) (*domain.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return nil, domain.ErrCategoryNotFound
		}
		s.logger.Error().Err(err).Int64("category_id", categoryID).Msg("failed to get category")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if category.TeamID != teamID {
		return nil, domain.ErrCategoryNotFound
	}
	return category, nil
}

// itemInTeam loads an item and verifies it belongs to the team.
func (s *ItemService) itemInTeam(ctx context.Context, teamID, itemID int64) (*domain.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return nil, domain.ErrItemNotFound
		}
		s.logger.Error().Err(err).Int64("item_id", itemID).Msg("failed to get item")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if item.TeamID != teamID {
		return nil, domain.ErrItemNotFound
	}
	return item, nil
}
