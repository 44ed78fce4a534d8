package postgres

import (
	"context"
	"fmt"

	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/repository"
)

// categoryRepository implements repository.CategoryRepository for PostgreSQL.
type categoryRepository struct {
	db *DB
}

// NewCategoryRepository creates a new PostgreSQL category repository.
func NewCategoryRepository(db *DB) repository.CategoryRepository {
	return &categoryRepository{db: db}
}

const categoryColumns = `id, name, description, type, team_id`

// Create creates a new category.
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO categories (name, description, type, team_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`,
		category.Name,
		category.Description,
		string(category.Type),
		category.TeamID,
	).Scan(&category.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateCategoryName, category.Name)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// GetByID retrieves a category by ID.
func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	category, err := scanCategory(r.db.Pool.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category by ID: %w", err)
	}
	return category, nil
}

// ListByTeam returns the team's categories, optionally restricted to one type.
func (r *categoryRepository) ListByTeam(ctx context.Context, teamID int64, typeFilter *domain.CategoryType) ([]*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE team_id = $1`
	args := []any{teamID}

	if typeFilter != nil {
		query += ` AND type = $2`
		args = append(args, string(*typeFilter))
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// Update persists the given category state.
func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE categories SET name = $1, description = $2, type = $3 WHERE id = $4`,
		category.Name, category.Description, string(category.Type), category.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateCategoryName, category.Name)
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}

	return nil
}

// Delete deletes a category by ID. Items keep a plain foreign key to their
// category, so deleting a category that still has items trips the constraint
// and is reported as domain.ErrCategoryInUse.
func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrCategoryInUse
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}

	return nil
}

// ExistsByName checks whether the team already has a category with the
// given name, of either type.
func (r *categoryRepository) ExistsByName(ctx context.Context, teamID int64, name string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE team_id = $1 AND name = $2)`,
		teamID, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check category existence: %w", err)
	}
	return exists, nil
}

func scanCategory(s rowScanner) (*domain.Category, error) {
	category := &domain.Category{}
	var categoryType string

	err := s.Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&categoryType,
		&category.TeamID,
	)
	if err != nil {
		return nil, err
	}

	category.Type = domain.CategoryType(categoryType)
	return category, nil
}

// Ensure categoryRepository implements repository.CategoryRepository.
var _ repository.CategoryRepository = (*categoryRepository)(nil)
