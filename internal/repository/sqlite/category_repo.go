package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/repository"
)

// categoryRepository implements repository.CategoryRepository for SQLite.
type categoryRepository struct {
	db *DB
}

// NewCategoryRepository creates a new SQLite category repository.
func NewCategoryRepository(db *DB) repository.CategoryRepository {
	return &categoryRepository{db: db}
}

const categoryColumns = `id, name, description, type, team_id`

// Create creates a new category.
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (name, description, type, team_id)
		VALUES (?, ?, ?, ?)
	`,
		category.Name,
		category.Description,
		string(category.Type),
		category.TeamID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateCategoryName, category.Name)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	category.ID = id

	return nil
}

// GetByID retrieves a category by ID.
func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)

	category, err := scanCategory(row)
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
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE team_id = ?`
	args := []interface{}{teamID}

	if typeFilter != nil {
		query += ` AND type = ?`
		args = append(args, string(*typeFilter))
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	result, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ?, type = ? WHERE id = ?`,
		category.Name, category.Description, string(category.Type), category.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateCategoryName, category.Name)
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrCategoryNotFound
	}

	return nil
}

// Delete deletes a category by ID. The item count is checked inside the
// same transaction as the delete, so a category that still has items is
// reported as domain.ErrCategoryInUse; the items foreign key is the
// backstop.
func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var itemCount int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM items WHERE category_id = ?`, id,
		).Scan(&itemCount)
		if err != nil {
			return fmt.Errorf("failed to count category items: %w", err)
		}
		if itemCount > 0 {
			return domain.ErrCategoryInUse
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrCategoryInUse
			}
			return fmt.Errorf("failed to delete category: %w", err)
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			return domain.ErrCategoryNotFound
		}

		return nil
	})
}

// ExistsByName checks whether the team already has a category with the
// given name, of either type.
func (r *categoryRepository) ExistsByName(ctx context.Context, teamID int64, name string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE team_id = ? AND name = ?`,
		teamID, name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check category existence: %w", err)
	}
	return count > 0, nil
}

func scanCategory(s scanner) (*domain.Category, error) {
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
