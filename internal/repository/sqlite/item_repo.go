package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/repository"
)

// itemRepository implements repository.ItemRepository for SQLite.
type itemRepository struct {
	db *DB
}

// NewItemRepository creates a new SQLite item repository.
func NewItemRepository(db *DB) repository.ItemRepository {
	return &itemRepository{db: db}
}

const itemColumns = `i.id, i.date, i.name, i.note, i.quantity, i.price, i.total,
	i.category_id, i.team_id, i.creator_id, c.name, c.type`

// Create creates a new item.
func (r *itemRepository) Create(ctx context.Context, item *domain.Item) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO items (date, name, note, quantity, price, total, category_id, team_id, creator_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.Date.UTC().Format(time.RFC3339),
		item.Name,
		item.Note,
		item.Quantity,
		item.Price,
		item.Total,
		item.CategoryID,
		item.TeamID,
		item.CreatorID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	item.ID = id

	return nil
}

// GetByID retrieves an item by ID, with its category name and type resolved.
func (r *itemRepository) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items i
		JOIN categories c ON c.id = i.category_id
		WHERE i.id = ?
	`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
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
	result, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET date = ?, name = ?, note = ?, quantity = ?, price = ?, total = ?, category_id = ?
		WHERE id = ?
	`,
		item.Date.UTC().Format(time.RFC3339),
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

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrItemNotFound
	}

	return nil
}

// Delete deletes an item by ID.
func (r *itemRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
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
		WHERE i.team_id = ?
	`)
	args := []interface{}{teamID}

	if filter.From != nil && filter.To != nil {
		sb.WriteString(` AND i.date >= ? AND i.date <= ?`)
		args = append(args,
			filter.From.UTC().Format(time.RFC3339),
			filter.To.UTC().Format(time.RFC3339),
		)
	}

	if filter.Search != "" {
		sb.WriteString(` AND i.name LIKE ? ESCAPE '\' COLLATE NOCASE`)
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
	sb.WriteString(` LIMIT ? OFFSET ?`)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
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

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(categoryIDs)), ", ")
	query := fmt.Sprintf(`
		SELECT c.id, c.name, c.type, SUM(i.total)
		FROM items i
		JOIN categories c ON c.id = i.category_id
		WHERE i.team_id = ? AND i.category_id IN (%s)
		GROUP BY c.id, c.name, c.type
		ORDER BY c.id ASC
	`, placeholders)

	args := make([]interface{}, 0, len(categoryIDs)+1)
	args = append(args, teamID)
	for _, id := range categoryIDs {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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

func scanItem(s scanner) (*domain.Item, error) {
	item := &domain.Item{}
	var date, categoryType string

	err := s.Scan(
		&item.ID,
		&date,
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

	item.Date, _ = time.Parse(time.RFC3339, date)
	item.CategoryType = domain.CategoryType(categoryType)

	return item, nil
}

// Ensure itemRepository implements repository.ItemRepository.
var _ repository.ItemRepository = (*itemRepository)(nil)
