package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/authz"
	"github.com/prn-tf/teamledger/internal/cache/memory"
	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/lock"
)

func newTeamService(teamRepo *MockTeamRepository) *TeamService {
	return NewTeamService(
		teamRepo,
		authz.NewGate(nil, zerolog.Nop()),
		lock.NewNoOpLocker(),
		nil,
		zerolog.Nop(),
	)
}

func TestTeamService_CreateTeam(t *testing.T) {
	t.Run("creator becomes first member", func(t *testing.T) {
		teamRepo := NewMockTeamRepository()
		svc := newTeamService(teamRepo)

		output, err := svc.CreateTeam(context.Background(), CreateTeamInput{
			Principal:   activePrincipal(1, domain.RoleUser),
			Name:        "Family Budget",
			Description: "shared expenses",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.Team.Slug == "" {
			t.Error("expected slug to be set")
		}

		ids, err := teamRepo.MemberTeamIDs(context.Background(), 1)
		if err != nil {
			t.Fatalf("failed to list memberships: %v", err)
		}
		if len(ids) != 1 || ids[0] != output.Team.ID {
			t.Errorf("expected creator to be enrolled, got %v", ids)
		}
	})

	t.Run("duplicate name for same creator", func(t *testing.T) {
		teamRepo := NewMockTeamRepository()
		svc := newTeamService(teamRepo)
		principal := activePrincipal(1, domain.RoleUser)

		if _, err := svc.CreateTeam(context.Background(), CreateTeamInput{
			Principal: principal, Name: "Family Budget",
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err := svc.CreateTeam(context.Background(), CreateTeamInput{
			Principal: principal, Name: "Family Budget",
		})
		if !errors.Is(err, domain.ErrDuplicateTeamName) {
			t.Errorf("expected ErrDuplicateTeamName, got %v", err)
		}
	})

	t.Run("same name under different creators", func(t *testing.T) {
		teamRepo := NewMockTeamRepository()
		svc := newTeamService(teamRepo)

		for _, userID := range []int64{1, 2} {
			_, err := svc.CreateTeam(context.Background(), CreateTeamInput{
				Principal: activePrincipal(userID, domain.RoleUser),
				Name:      "Family Budget",
			})
			if err != nil {
				t.Fatalf("user %d: unexpected error: %v", userID, err)
			}
		}
	})

	t.Run("empty name", func(t *testing.T) {
		svc := newTeamService(NewMockTeamRepository())

		_, err := svc.CreateTeam(context.Background(), CreateTeamInput{
			Principal: activePrincipal(1, domain.RoleUser),
			Name:      "",
		})
		if !errors.Is(err, ErrInvalidName) {
			t.Errorf("expected ErrInvalidName, got %v", err)
		}
	})

	t.Run("no principal", func(t *testing.T) {
		svc := newTeamService(NewMockTeamRepository())

		_, err := svc.CreateTeam(context.Background(), CreateTeamInput{Name: "Family Budget"})
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestTeamService_UpdateTeam(t *testing.T) {
	strPtr := func(s string) *string { return &s }

	t.Run("rename keeps slug", func(t *testing.T) {
		teamRepo := NewMockTeamRepository()
		svc := newTeamService(teamRepo)
		principal := activePrincipal(1, domain.RoleUser)

		created, err := svc.CreateTeam(context.Background(), CreateTeamInput{
			Principal: principal, Name: "Family Budget", Description: "shared",
		})
		if err != nil {
			t.Fatalf("failed to seed team: %v", err)
		}
		principal.TeamIDs = []int64{created.Team.ID}

		output, err := svc.UpdateTeam(context.Background(), UpdateTeamInput{
			Principal: principal,
			TeamID:    created.Team.ID,
			Patch:     domain.TeamPatch{Name: strPtr("Household")},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.Team.Name != "Household" {
			t.Errorf("expected name Household, got %s", output.Team.Name)
		}
		if output.Team.Slug != created.Team.Slug {
			t.Errorf("slug must not change on rename: %s vs %s", output.Team.Slug, created.Team.Slug)
		}
		if output.Team.Description != "shared" {
			t.Errorf("description should be retained, got %q", output.Team.Description)
		}
	})

	t.Run("member but not creator", func(t *testing.T) {
		teamRepo := NewMockTeamRepository()
		svc := newTeamService(teamRepo)
		team := seedTeam(t, teamRepo, 1, "Family Budget", 2)

		_, err := svc.UpdateTeam(context.Background(), UpdateTeamInput{
			Principal: activePrincipal(2, domain.RoleUser, team.ID),
			TeamID:    team.ID,
			Patch:     domain.TeamPatch{Name: strPtr("Household")},
		})
		if !errors.Is(err, domain.ErrNotTeamCreator) {
			t.Errorf("expected ErrNotTeamCreator, got %v", err)
		}
	})

	t.Run("non-member", func(t *testing.T) {
		teamRepo := NewMockTeamRepository()
		svc := newTeamService(teamRepo)
		team := seedTeam(t, teamRepo, 1, "Family Budget")

		_, err := svc.UpdateTeam(context.Background(), UpdateTeamInput{
			Principal: activePrincipal(9, domain.RoleUser),
			TeamID:    team.ID,
			Patch:     domain.TeamPatch{Name: strPtr("Household")},
		})
		if !errors.Is(err, domain.ErrNotTeamMember) {
			t.Errorf("expected ErrNotTeamMember, got %v", err)
		}
	})
}

func TestTeamService_GetTeamBySlug(t *testing.T) {
	teamRepo := NewMockTeamRepository()
	svc := newTeamService(teamRepo)
	team := seedTeam(t, teamRepo, 1, "Family Budget")

	t.Run("member sees the team", func(t *testing.T) {
		output, err := svc.GetTeamBySlug(context.Background(), GetTeamBySlugInput{
			Principal: activePrincipal(1, domain.RoleUser, team.ID),
			Slug:      team.Slug,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.Team.ID != team.ID {
			t.Errorf("expected team %d, got %d", team.ID, output.Team.ID)
		}
	})

	t.Run("non-member is rejected even with a valid slug", func(t *testing.T) {
		_, err := svc.GetTeamBySlug(context.Background(), GetTeamBySlugInput{
			Principal: activePrincipal(9, domain.RoleUser),
			Slug:      team.Slug,
		})
		if !errors.Is(err, domain.ErrNotTeamMember) {
			t.Errorf("expected ErrNotTeamMember, got %v", err)
		}
	})

	t.Run("unknown slug", func(t *testing.T) {
		_, err := svc.GetTeamBySlug(context.Background(), GetTeamBySlugInput{
			Principal: activePrincipal(1, domain.RoleUser, team.ID),
			Slug:      "no-such-team",
		})
		if !errors.Is(err, domain.ErrTeamNotFound) {
			t.Errorf("expected ErrTeamNotFound, got %v", err)
		}
	})
}

func TestTeamService_GetTeamBySlug_Cache(t *testing.T) {
	teamRepo := NewMockTeamRepository()
	c := memory.NewCache()
	defer c.Stop()

	svc := NewTeamService(teamRepo, authz.NewGate(nil, zerolog.Nop()), lock.NewNoOpLocker(), c, zerolog.Nop())
	team := seedTeam(t, teamRepo, 1, "Family Budget")
	principal := activePrincipal(1, domain.RoleUser, team.ID)

	// First lookup populates the cache.
	if _, err := svc.GetTeamBySlug(context.Background(), GetTeamBySlugInput{Principal: principal, Slug: team.Slug}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Second lookup is served from cache even if the row disappears.
	delete(teamRepo.teams, team.ID)
	output, err := svc.GetTeamBySlug(context.Background(), GetTeamBySlugInput{Principal: principal, Slug: team.Slug})
	if err != nil {
		t.Fatalf("expected cached hit, got error: %v", err)
	}
	if output.Team.ID != team.ID {
		t.Errorf("expected team %d from cache, got %d", team.ID, output.Team.ID)
	}
}

func TestTeamService_ListMyTeams(t *testing.T) {
	teamRepo := NewMockTeamRepository()
	svc := newTeamService(teamRepo)

	mine := seedTeam(t, teamRepo, 1, "Family Budget")
	seedTeam(t, teamRepo, 2, "Other Budget")
	shared := seedTeam(t, teamRepo, 2, "Shared", 1)

	output, err := svc.ListMyTeams(context.Background(), ListMyTeamsInput{
		Principal: activePrincipal(1, domain.RoleUser, mine.ID, shared.ID),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Teams) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(output.Teams))
	}
	if output.Teams[0].ID != mine.ID || output.Teams[1].ID != shared.ID {
		t.Errorf("unexpected teams: %+v", output.Teams)
	}
}
