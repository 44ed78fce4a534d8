package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/repository"
)

// teamRepository implements repository.TeamRepository for SQLite.
type teamRepository struct {
	db *DB
}

// NewTeamRepository creates a new SQLite team repository.
func NewTeamRepository(db *DB) repository.TeamRepository {
	return &teamRepository{db: db}
}

const teamColumns = `id, name, description, creator_id, slug, created_at`

// Create creates a new team and enrolls the creator as its first member
// in the same transaction, so the team and its membership can never
// diverge.
func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO teams (name, description, creator_id, slug, created_at)
			VALUES (?, ?, ?, ?, ?)
		`,
			team.Name,
			team.Description,
			team.CreatorID,
			team.Slug,
			team.CreatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateTeamName, team.Name)
			}
			return fmt.Errorf("failed to create team: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		team.ID = id

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO team_members (team_id, user_id) VALUES (?, ?)`,
			team.ID, team.CreatorID,
		); err != nil {
			return fmt.Errorf("failed to enroll creator: %w", err)
		}

		return nil
	})
}

// GetByID retrieves a team by ID.
func (r *teamRepository) GetByID(ctx context.Context, id int64) (*domain.Team, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = ?`, id)

	team, err := scanTeam(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team by ID: %w", err)
	}
	return team, nil
}

// GetBySlug retrieves a team by its slug.
func (r *teamRepository) GetBySlug(ctx context.Context, slug string) (*domain.Team, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE slug = ?`, slug)

	team, err := scanTeam(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team by slug: %w", err)
	}
	return team, nil
}

// Update persists the given team state. The slug column is never rewritten.
func (r *teamRepository) Update(ctx context.Context, team *domain.Team) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE teams SET name = ?, description = ? WHERE id = ?`,
		team.Name, team.Description, team.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateTeamName, team.Name)
		}
		return fmt.Errorf("failed to update team: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrTeamNotFound
	}

	return nil
}

// ListByMember returns all teams the given user belongs to.
func (r *teamRepository) ListByMember(ctx context.Context, userID int64) ([]*domain.Team, error) {
	query := `
		SELECT t.id, t.name, t.description, t.creator_id, t.slug, t.created_at
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = ?
		ORDER BY t.name ASC, t.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*domain.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}

	return teams, nil
}

// MemberTeamIDs returns the ids of every team the user belongs to.
func (r *teamRepository) MemberTeamIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT team_id FROM team_members WHERE user_id = ? ORDER BY team_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}

	return ids, nil
}

// AddMember enrolls a user into a team.
func (r *teamRepository) AddMember(ctx context.Context, teamID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO team_members (team_id, user_id) VALUES (?, ?)`,
		teamID, userID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrTeamNotFound
		}
		return fmt.Errorf("failed to add team member: %w", err)
	}
	return nil
}

// ExistsByNameForCreator checks whether the creator already has a team
// with the given name.
func (r *teamRepository) ExistsByNameForCreator(ctx context.Context, creatorID int64, name string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM teams WHERE creator_id = ? AND name = ?`,
		creatorID, name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check team existence: %w", err)
	}
	return count > 0, nil
}

func scanTeam(s scanner) (*domain.Team, error) {
	team := &domain.Team{}
	var createdAt string

	err := s.Scan(
		&team.ID,
		&team.Name,
		&team.Description,
		&team.CreatorID,
		&team.Slug,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	team.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return team, nil
}

// Ensure teamRepository implements repository.TeamRepository.
var _ repository.TeamRepository = (*teamRepository)(nil)
