package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/repository"
)

// itemRepository implements repository.ItemRepository for PostgreSQL.
type itemRepository struct {
	db *DB
}

// NewItemRepository creates a new PostgreSQL item repository.
func NewItemRepository(db *DB) repository.ItemRepository {
	return &itemRepository{db: db}
}

const itemColumns = `i.id, i.date, i.name, i.note, i.quantity, i.price, i.total,
	i.category_id, i.team_id, i.creator_id, c.name, c.type`

// Create creates a new item.
func (r *itemRepository) Create(ctx context.Context, item *domain.Item) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO items (date, name, note, quantity, price, total, category_id, team_id, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		item.Date.UTC(),
		item.Name,
		item.Note,
		item.Quantity,
		item.Price,
		item.Total,
		item.CategoryID,
		item.TeamID,
		item.CreatorID,
	).Scan(&item.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// GetByID retrieves an item by ID, with its category name and type resolved.
func (r *itemRepository) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items i
		JOIN categories c ON c.id = i.category_id
		WHERE i.id = $1
	`

	item, err := scanItem(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item by ID: %w", err)
	}
	return item, nil
}

// Update persists the given item state.
func (r *itemRepository) Update(ctx context.Context, item *domain.Item) error {
	result, err := r.db.Pool.Exec(ctx, `
		UPDATE items
		SET date = $1, name = $2, note = $3, quantity = $4, price = $5, total = $6, category_id = $7
		WHERE id = $8
	`,
		item.Date.UTC(),
		item.Name,
		item.Note,
		item.Quantity,
		item.Price,
		item.Total,
		item.CategoryID,
		item.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrCategoryNotFound
		}
		return fmt.Errorf("failed to update item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}

	return nil
}

// Delete deletes an item by ID.
func (r *itemRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}

	return nil
}

// List returns the team's items matching the filter, sorted and paginated.
// The date range narrows the result only when both bounds are present.
func (r *itemRepository) List(ctx context.Context, teamID int64, filter repository.ItemFilter) ([]*domain.Item, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT ` + itemColumns + `
		FROM items i
		JOIN categories c ON c.id = i.category_id
		WHERE i.team_id = $1
	`)
	args := []any{teamID}

	if filter.From != nil && filter.To != nil {
		sb.WriteString(fmt.Sprintf(` AND i.date >= $%d AND i.date <= $%d`, len(args)+1, len(args)+2))
		args = append(args, filter.From.UTC(), filter.To.UTC())
	}

	if filter.Search != "" {
		sb.WriteString(fmt.Sprintf(` AND i.name ILIKE $%d`, len(args)+1))
		args = append(args, escapeLike(filter.Search)+"%")
	}

	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}
	sb.WriteString(fmt.Sprintf(` ORDER BY %s %s, i.id ASC`, itemOrderColumn(filter.OrderBy), direction))

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	sb.WriteString(fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2))
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

// TotalsByCategory sums item totals per category for the given category ids
// within a team. Categories with no matching items are absent from the result.
func (r *itemRepository) TotalsByCategory(ctx context.Context, teamID int64, categoryIDs []int64) ([]*domain.CategoryTotal, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT c.id, c.name, c.type, SUM(i.total)
		FROM items i
		JOIN categories c ON c.id = i.category_id
		WHERE i.team_id = $1 AND i.category_id = ANY($2)
		GROUP BY c.id, c.name, c.type
		ORDER BY c.id ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, teamID, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to sum totals: %w", err)
	}
	defer rows.Close()

	var totals []*domain.CategoryTotal
	for rows.Next() {
		total := &domain.CategoryTotal{}
		var categoryType string
		if err := rows.Scan(&total.CategoryID, &total.Name, &categoryType, &total.Total); err != nil {
			return nil, fmt.Errorf("failed to scan total: %w", err)
		}
		total.Type = domain.CategoryType(categoryType)
		totals = append(totals, total)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating totals: %w", err)
	}

	return totals, nil
}

// itemOrderColumn whitelists sortable item columns.
func itemOrderColumn(field string) string {
	switch field {
	case "name", "price", "quantity", "total":
		return "i." + field
	default:
		return "i.date"
	}
}

func scanItem(s rowScanner) (*domain.Item, error) {
	item := &domain.Item{}
	var categoryType string

	err := s.Scan(
		&item.ID,
		&item.Date,
		&item.Name,
		&item.Note,
		&item.Quantity,
		&item.Price,
		&item.Total,
		&item.CategoryID,
		&item.TeamID,
		&item.CreatorID,
		&item.CategoryName,
		&categoryType,
	)
	if err != nil {
		return nil, err
	}

	item.CategoryType = domain.CategoryType(categoryType)
	return item, nil
}

// Ensure itemRepository implements repository.ItemRepository.
var _ repository.ItemRepository = (*itemRepository)(nil)
