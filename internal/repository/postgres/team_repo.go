package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/repository"
)

// teamRepository implements repository.TeamRepository for PostgreSQL.
type teamRepository struct {
	db *DB
}

// NewTeamRepository creates a new PostgreSQL team repository.
func NewTeamRepository(db *DB) repository.TeamRepository {
	return &teamRepository{db: db}
}

const teamColumns = `id, name, description, creator_id, slug, created_at`

// Create creates a new team and enrolls the creator as its first member
// in the same transaction, so the team and its membership can never
// diverge.
func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO teams (name, description, creator_id, slug, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`,
			team.Name,
			team.Description,
			team.CreatorID,
			team.Slug,
			team.CreatedAt.UTC(),
		).Scan(&team.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateTeamName, team.Name)
			}
			return fmt.Errorf("failed to create team: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO team_members (team_id, user_id) VALUES ($1, $2)`,
			team.ID, team.CreatorID,
		); err != nil {
			return fmt.Errorf("failed to enroll creator: %w", err)
		}

		return nil
	})
}

// GetByID retrieves a team by ID.
func (r *teamRepository) GetByID(ctx context.Context, id int64) (*domain.Team, error) {
	team, err := scanTeam(r.db.Pool.QueryRow(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = $1`, id))
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
	team, err := scanTeam(r.db.Pool.QueryRow(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE slug = $1`, slug))
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
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE teams SET name = $1, description = $2 WHERE id = $3`,
		team.Name, team.Description, team.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateTeamName, team.Name)
		}
		return fmt.Errorf("failed to update team: %w", err)
	}

	if result.RowsAffected() == 0 {
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
		WHERE m.user_id = $1
		ORDER BY t.name ASC, t.id ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
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
	rows, err := r.db.Pool.Query(ctx,
		`SELECT team_id FROM team_members WHERE user_id = $1 ORDER BY team_id ASC`,
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
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO team_members (team_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
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
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM teams WHERE creator_id = $1 AND name = $2)`,
		creatorID, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check team existence: %w", err)
	}
	return exists, nil
}

func scanTeam(s rowScanner) (*domain.Team, error) {
	team := &domain.Team{}

	err := s.Scan(
		&team.ID,
		&team.Name,
		&team.Description,
		&team.CreatorID,
		&team.Slug,
		&team.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return team, nil
}

// Ensure teamRepository implements repository.TeamRepository.
var _ repository.TeamRepository = (*teamRepository)(nil)
