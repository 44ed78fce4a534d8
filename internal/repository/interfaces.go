// Package repository defines data access interfaces for TeamLedger.
// These interfaces abstract database operations, allowing for different
// implementations (SQLite, PostgreSQL, in-memory mocks for tests) while
// keeping the service layer clean.
package repository

import (
	"context"
	"time"

	"github.com/prn-tf/teamledger/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update persists the given user state.
	Update(ctx context.Context, user *domain.User) error

	// Delete deletes a user by ID.
	Delete(ctx context.Context, id int64) error

	// List returns users matching the options, plus the total match count
	// before pagination.
	List(ctx context.Context, opts UserListOptions) ([]*domain.User, int64, error)

	// ExistsByEmail checks if a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// UserListOptions contains filter and pagination options for listing users.
type UserListOptions struct {
	// Search is a case-insensitive prefix matched against first name,
	// last name and email.
	Search string

	// OrderBy names the sort column; empty means storage order.
	OrderBy string

	// Descending sorts in descending order if true.
	Descending bool

	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int
}

// =============================================================================
// Team Repository
// =============================================================================

// TeamRepository defines the interface for team and membership data access.
// Membership lives in a single join relation; team creation inserts the team
// row and the creator's membership inside one transaction so the two can
// never diverge.
type TeamRepository interface {
	// Create creates a new team and enrolls the creator as its first
	// member, atomically.
	Create(ctx context.Context, team *domain.Team) error

	// GetByID retrieves a team by ID.
	GetByID(ctx context.Context, id int64) (*domain.Team, error)

	// GetBySlug retrieves a team by its slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Team, error)

	// Update persists the given team state. The slug column is never
	// rewritten.
	Update(ctx context.Context, team *domain.Team) error

	// ListByMember returns all teams the given user belongs to.
	ListByMember(ctx context.Context, userID int64) ([]*domain.Team, error)

	// MemberTeamIDs returns the ids of every team the user belongs to.
	// Used to build the Principal at authentication time.
	MemberTeamIDs(ctx context.Context, userID int64) ([]int64, error)

	// AddMember enrolls a user into a team.
	AddMember(ctx context.Context, teamID, userID int64) error

	// ExistsByNameForCreator checks whether the creator already has a
	// team with the given name.
	ExistsByNameForCreator(ctx context.Context, creatorID int64, name string) (bool, error)
}

// =============================================================================
// Category Repository
// =============================================================================

// CategoryRepository defines the interface for category data access.
type CategoryRepository interface {
	// Create creates a new category.
	Create(ctx context.Context, category *domain.Category) error

	// GetByID retrieves a category by ID.
	GetByID(ctx context.Context, id int64) (*domain.Category, error)

	// ListByTeam returns the team's categories, optionally restricted to
	// one type.
	ListByTeam(ctx context.Context, teamID int64, typeFilter *domain.CategoryType) ([]*domain.Category, error)

	// Update persists the given category state.
	Update(ctx context.Context, category *domain.Category) error

	// Delete deletes a category by ID. Deleting a category that still
	// has items fails with domain.ErrCategoryInUse.
	Delete(ctx context.Context, id int64) error

	// ExistsByName checks whether the team already has a category with
	// the given name, of either type.
	ExistsByName(ctx context.Context, teamID int64, name string) (bool, error)
}

// =============================================================================
// Item Repository
// =============================================================================

// ItemRepository defines the interface for item data access.
type ItemRepository interface {
	// Create creates a new item.
	Create(ctx context.Context, item *domain.Item) error

	// GetByID retrieves an item by ID, with its category name and type
	// resolved.
	GetByID(ctx context.Context, id int64) (*domain.Item, error)

	// Update persists the given item state.
	Update(ctx context.Context, item *domain.Item) error

	// Delete deletes an item by ID.
	Delete(ctx context.Context, id int64) error

	// List returns the team's items matching the filter, sorted and
	// paginated, each with its category name and type resolved.
	List(ctx context.Context, teamID int64, filter ItemFilter) ([]*domain.Item, error)

	// TotalsByCategory sums item totals per category for the given
	// category ids within a team, joined with category metadata.
	// Categories with no matching items are absent from the result.
	TotalsByCategory(ctx context.Context, teamID int64, categoryIDs []int64) ([]*domain.CategoryTotal, error)
}

// ItemFilter contains filter, sort and pagination options for listing items.
type ItemFilter struct {
	// From and To bound the item date inclusively. The bound is applied
	// only when both are set.
	From *time.Time
	To   *time.Time

	// Search is a case-insensitive prefix matched against the item name.
	Search string

	// OrderBy names the sort column (date, name, price, quantity or
	// total). Ties are broken by id so the ordering is stable.
	OrderBy string

	// Descending sorts in descending order if true.
	Descending bool

	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int
}

// =============================================================================
// Session Repository
// =============================================================================

// SessionRepository defines the interface for session token data access.
type SessionRepository interface {
	// Create creates a new session.
	Create(ctx context.Context, session *domain.Session) error

	// GetByTokenHash retrieves a session by the hash of its token.
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)

	// DeleteByTokenHash deletes a session by the hash of its token.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteExpired removes all expired sessions and returns how many
	// were deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
