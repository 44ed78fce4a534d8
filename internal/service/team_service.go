package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/authz"
	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/lock"
	"github.com/prn-tf/teamledger/internal/repository"
)

// Team creation lock parameters. The lock serializes the duplicate-name
// check against the insert; the unique index is the backstop.
const (
	teamLockTTL        = 5 * time.Second
	teamLockRetries    = 10
	teamLockRetryDelay = 50 * time.Millisecond

	teamCacheTTL = 5 * time.Minute
)

// TeamService handles team operations.
type TeamService struct {
	teamRepo repository.TeamRepository
	gate     *authz.Gate
	locker   lock.Locker
	cache    repository.Cache
	logger   zerolog.Logger
}

// NewTeamService creates a new TeamService. The cache may be nil.
func NewTeamService(
	teamRepo repository.TeamRepository,
	gate *authz.Gate,
	locker lock.Locker,
	cache repository.Cache,
	logger zerolog.Logger,
) *TeamService {
	return &TeamService{
		teamRepo: teamRepo,
		gate:     gate,
		locker:   locker,
		cache:    cache,
		logger:   logger.With().Str("service", "team").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// CreateTeamInput contains the data needed to create a team.
type CreateTeamInput struct {
	Principal   *domain.Principal
	Name        string
	Description string
}

// CreateTeamOutput contains the result of creating a team.
type CreateTeamOutput struct {
	Team *domain.Team
}

// GetTeamBySlugInput contains the data needed to look a team up by slug.
type GetTeamBySlugInput struct {
	Principal *domain.Principal
	Slug      string
}

// GetTeamBySlugOutput contains the result of looking a team up by slug.
type GetTeamBySlugOutput struct {
	Team *domain.Team
}

// ListMyTeamsInput contains the data needed to list the caller's teams.
type ListMyTeamsInput struct {
	Principal *domain.Principal
}

// ListMyTeamsOutput contains the caller's teams.
type ListMyTeamsOutput struct {
	Teams []*domain.Team
}

// UpdateTeamInput contains a partial update for a team. Nil patch fields
// keep their prior values; the slug is never touched.
type UpdateTeamInput struct {
	Principal *domain.Principal
	TeamID    int64
	Patch     domain.TeamPatch
}

// UpdateTeamOutput contains the result of updating a team.
type UpdateTeamOutput struct {
	Team *domain.Team
}

// =============================================================================
// Service Methods
// =============================================================================

// CreateTeam creates a new team owned by the principal. The creator becomes
// the team's first member in the same transaction. A creator cannot own two
// teams with the same name.
func (s *TeamService) CreateTeam(ctx context.Context, input CreateTeamInput) (*CreateTeamOutput, error) {
	if err := s.gate.Authorize(input.Principal, []authz.Permission{authz.WriteTeam}, 0); err != nil {
		return nil, err
	}

	if input.Name == "" || len(input.Name) > 255 {
		return nil, ErrInvalidName
	}

	creatorID := input.Principal.UserID
	lockKey := lock.Keys.TeamCreate(creatorID)

	acquired, err := s.locker.AcquireWithRetry(ctx, lockKey, teamLockTTL, teamLockRetries, teamLockRetryDelay)
	if err != nil {
		s.logger.Error().Err(err).Str("key", lockKey).Msg("failed to acquire lock")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if acquired {
		defer s.locker.Release(context.WithoutCancel(ctx), lockKey)
	}

	exists, err := s.teamRepo.ExistsByNameForCreator(ctx, creatorID, input.Name)
	if err != nil {
		s.logger.Error().Err(err).Str("name", input.Name).Msg("failed to check team name")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, domain.ErrDuplicateTeamName
	}

	team := domain.NewTeam(input.Name, input.Description, creatorID)

	if err := s.teamRepo.Create(ctx, team); err != nil {
		if errors.Is(err, domain.ErrDuplicateTeamName) {
			return nil, domain.ErrDuplicateTeamName
		}
		s.logger.Error().Err(err).Str("name", input.Name).Msg("failed to create team")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("team_id", team.ID).
		Int64("creator_id", creatorID).
		Str("slug", team.Slug).
		Msg("team created")

	return &CreateTeamOutput{Team: team}, nil
}

// GetTeamBySlug retrieves a team by slug. The caller must be a member of
// the team the slug resolves to.
func (s *TeamService) GetTeamBySlug(ctx context.Context, input GetTeamBySlugInput) (*GetTeamBySlugOutput, error) {
	if err := s.gate.Authorize(input.Principal, []authz.Permission{authz.ReadTeam}, 0); err != nil {
		return nil, err
	}

	team, err := s.lookupBySlug(ctx, input.Slug)
	if err != nil {
		if errors.Is(err, domain.ErrTeamNotFound) {
			return nil, domain.ErrTeamNotFound
		}
		s.logger.Error().Err(err).Str("slug", input.Slug).Msg("failed to get team")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if !input.Principal.MemberOf(team.ID) {
		return nil, domain.ErrNotTeamMember
	}

	return &GetTeamBySlugOutput{Team: team}, nil
}

// GetTeam retrieves a team by ID. The caller must be a member.
func (s *TeamService) GetTeam(ctx context.Context, principal *domain.Principal, teamID int64) (*domain.Team, error) {
	if err := s.gate.Authorize(principal, []authz.Permission{authz.ReadTeam}, teamID); err != nil {
		return nil, err
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, domain.ErrTeamNotFound) {
			return nil, domain.ErrTeamNotFound
		}
		s.logger.Error().Err(err).Int64("team_id", teamID).Msg("failed to get team")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return team, nil
}

// ListMyTeams returns every team the principal is a member of.
func (s *TeamService) ListMyTeams(ctx context.Context, input ListMyTeamsInput) (*ListMyTeamsOutput, error) {
	if err := s.gate.Authorize(input.Principal, []authz.Permission{authz.ReadTeam}, 0); err != nil {
		return nil, err
	}

	teams, err := s.teamRepo.ListByMember(ctx, input.Principal.UserID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", input.Principal.UserID).Msg("failed to list teams")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &ListMyTeamsOutput{Teams: teams}, nil
}

// UpdateTeam applies a merge patch to a team. Only the team creator may
// rename it, and renaming never recomputes the slug.
func (s *TeamService) UpdateTeam(ctx context.Context, input UpdateTeamInput) (*UpdateTeamOutput, error) {
	if err := s.gate.Authorize(input.Principal, []authz.Permission{authz.WriteTeam}, input.TeamID); err != nil {
		return nil, err
	}

	current, err := s.teamRepo.GetByID(ctx, input.TeamID)
	if err != nil {
		if errors.Is(err, domain.ErrTeamNotFound) {
			return nil, domain.ErrTeamNotFound
		}
		s.logger.Error().Err(err).Int64("team_id", input.TeamID).Msg("failed to get team")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := s.gate.RequireTeamCreator(input.Principal, current); err != nil {
		return nil, err
	}

	if input.Patch.Name != nil && (*input.Patch.Name == "" || len(*input.Patch.Name) > 255) {
		return nil, ErrInvalidName
	}

	updated := input.Patch.Apply(*current)

	if err := s.teamRepo.Update(ctx, &updated); err != nil {
		if errors.Is(err, domain.ErrDuplicateTeamName) {
			return nil, domain.ErrDuplicateTeamName
		}
		if errors.Is(err, domain.ErrTeamNotFound) {
			return nil, domain.ErrTeamNotFound
		}
		s.logger.Error().Err(err).Int64("team_id", input.TeamID).Msg("failed to update team")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.invalidateSlug(ctx, updated.Slug)

	s.logger.Info().Int64("team_id", updated.ID).Msg("team updated")

	return &UpdateTeamOutput{Team: &updated}, nil
}

// =============================================================================
// Cache helpers
// =============================================================================

func teamSlugCacheKey(slug string) string {
	return "team:slug:" + slug
}

// lookupBySlug consults the cache before the repository. Cache failures
// fall through to the database.
func (s *TeamService) lookupBySlug(ctx context.Context, slug string) (*domain.Team, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, teamSlugCacheKey(slug)); err == nil {
			team := &domain.Team{}
			if err := json.Unmarshal(data, team); err == nil {
				return team, nil
			}
		}
	}

	team, err := s.teamRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(team); err == nil {
			_ = s.cache.Set(ctx, teamSlugCacheKey(slug), data, teamCacheTTL)
		}
	}

	return team, nil
}

func (s *TeamService) invalidateSlug(ctx context.Context, slug string) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, teamSlugCacheKey(slug))
	}
}
