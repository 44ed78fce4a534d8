package postgres

import (
	"context"
	"fmt"

	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/repository"
)

// userRepository implements repository.UserRepository for PostgreSQL.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, first_name, last_name, email, role, status, password_hash, created_at, updated_at`

// Create creates a new user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (first_name, last_name, email, role, status, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		string(user.Role),
		string(user.Status),
		user.PasswordHash,
		user.CreatedAt.UTC(),
		user.UpdatedAt.UTC(),
	).Scan(&user.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrEmailTaken, user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, email))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// Update persists the given user state.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, email = $3, role = $4, status = $5, password_hash = $6, updated_at = $7
		WHERE id = $8
	`

	result, err := r.db.Pool.Exec(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		string(user.Role),
		string(user.Status),
		user.PasswordHash,
		user.UpdatedAt.UTC(),
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrEmailTaken, user.Email)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// Delete deletes a user by ID.
func (r *userRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// List returns users matching the options, plus the total match count.
func (r *userRepository) List(ctx context.Context, opts repository.UserListOptions) ([]*domain.User, int64, error) {
	where := ``
	args := []any{}

	if opts.Search != "" {
		pattern := escapeLike(opts.Search) + "%"
		where = ` WHERE (first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1)`
		args = append(args, pattern)
	}

	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	orderBy := userOrderColumn(opts.OrderBy)
	direction := "ASC"
	if opts.Descending {
		direction = "DESC"
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(
		`SELECT %s FROM users%s ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d`,
		userColumns, where, orderBy, direction, len(args)+1, len(args)+2,
	)
	args = append(args, limit, opts.Offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating users: %w", err)
	}

	return users, total, nil
}

// ExistsByEmail checks if a user with the given email exists.
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// userOrderColumn whitelists sortable user columns.
func userOrderColumn(field string) string {
	switch field {
	case "first_name", "last_name", "email", "created_at":
		return field
	default:
		return "id"
	}
}

// rowScanner abstracts pgx.Row and pgx.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var role, status string

	err := s.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&role,
		&status,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = domain.Role(role)
	user.Status = domain.UserStatus(status)

	return user, nil
}

// Ensure userRepository implements repository.UserRepository.
var _ repository.UserRepository = (*userRepository)(nil)
