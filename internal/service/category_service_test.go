package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/authz"
	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/lock"
)

func newCategoryService(categoryRepo *MockCategoryRepository, teamRepo *MockTeamRepository) *CategoryService {
	return NewCategoryService(
		categoryRepo,
		teamRepo,
		authz.NewGate(nil, zerolog.Nop()),
		lock.NewNoOpLocker(),
		zerolog.Nop(),
	)
}

// seedTeam creates a team owned by creatorID and enrolls the extra members.
func seedTeam(t *testing.T, teamRepo *MockTeamRepository, creatorID int64, name string, memberIDs ...int64) *domain.Team {
	t.Helper()
	team := domain.NewTeam(name, "", creatorID)
	if err := teamRepo.Create(context.Background(), team); err != nil {
		t.Fatalf("failed to seed team: %v", err)
	}
	for _, id := range memberIDs {
		if err := teamRepo.AddMember(context.Background(), team.ID, id); err != nil {
			t.Fatalf("failed to seed member: %v", err)
		}
	}
	return team
}

func TestCategoryService_CreateCategory(t *testing.T) {
	tests := []struct {
		name    string
		input   func(teamID int64) CreateCategoryInput
		seed    func(repo *MockCategoryRepository, teamID int64)
		wantErr error
	}{
		{
			name: "success",
			input: func(teamID int64) CreateCategoryInput {
				return CreateCategoryInput{
					Principal: activePrincipal(1, domain.RoleUser, teamID),
					TeamID:    teamID,
					Name:      "Groceries",
					Type:      domain.CategoryExpense,
				}
			},
		},
		{
			name: "duplicate name same type",
			input: func(teamID int64) CreateCategoryInput {
				return CreateCategoryInput{
					Principal: activePrincipal(1, domain.RoleUser, teamID),
					TeamID:    teamID,
					Name:      "Groceries",
					Type:      domain.CategoryExpense,
				}
			},
			seed: func(repo *MockCategoryRepository, teamID int64) {
				repo.Create(context.Background(), &domain.Category{
					Name: "Groceries", Type: domain.CategoryExpense, TeamID: teamID,
				})
			},
			wantErr: domain.ErrDuplicateCategoryName,
		},
		{
			// Uniqueness spans both types: an income category cannot
			// reuse an expense category's name.
			name: "duplicate name across types",
			input: func(teamID int64) CreateCategoryInput {
				return CreateCategoryInput{
					Principal: activePrincipal(1, domain.RoleUser, teamID),
					TeamID:    teamID,
					Name:      "Consulting",
					Type:      domain.CategoryIncome,
				}
			},
			seed: func(repo *MockCategoryRepository, teamID int64) {
				repo.Create(context.Background(), &domain.Category{
					Name: "Consulting", Type: domain.CategoryExpense, TeamID: teamID,
				})
			},
			wantErr: domain.ErrDuplicateCategoryName,
		},
		{
			name: "invalid type",
			input: func(teamID int64) CreateCategoryInput {
				return CreateCategoryInput{
					Principal: activePrincipal(1, domain.RoleUser, teamID),
					TeamID:    teamID,
					Name:      "Misc",
					Type:      domain.CategoryType("transfer"),
				}
			},
			wantErr: domain.ErrInvalidCategoryType,
		},
		{
			name: "not a member",
			input: func(teamID int64) CreateCategoryInput {
				return CreateCategoryInput{
					Principal: activePrincipal(9, domain.RoleUser),
					TeamID:    teamID,
					Name:      "Groceries",
					Type:      domain.CategoryExpense,
				}
			},
			wantErr: domain.ErrNotTeamMember,
		},
		{
			name: "inactive account",
			input: func(teamID int64) CreateCategoryInput {
				return CreateCategoryInput{
					Principal: &domain.Principal{
						UserID: 1, Role: domain.RoleUser,
						Status: domain.StatusInitial, TeamIDs: []int64{teamID},
					},
					TeamID: teamID,
					Name:   "Groceries",
					Type:   domain.CategoryExpense,
				}
			},
			wantErr: domain.ErrAccountInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			categoryRepo := NewMockCategoryRepository()
			teamRepo := NewMockTeamRepository()
			team := seedTeam(t, teamRepo, 1, "Home")

			if tt.seed != nil {
				tt.seed(categoryRepo, team.ID)
			}

			svc := newCategoryService(categoryRepo, teamRepo)
			output, err := svc.CreateCategory(context.Background(), tt.input(team.ID))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if output.Category.ID == 0 {
				t.Error("expected category ID to be assigned")
			}
		})
	}
}

// Equal category names in different teams never collide.
func TestCategoryService_CreateCategory_CrossTeam(t *testing.T) {
	categoryRepo := NewMockCategoryRepository()
	teamRepo := NewMockTeamRepository()
	teamA := seedTeam(t, teamRepo, 1, "Alpha")
	teamB := seedTeam(t, teamRepo, 1, "Beta")

	svc := newCategoryService(categoryRepo, teamRepo)
	principal := activePrincipal(1, domain.RoleUser, teamA.ID, teamB.ID)

	for _, teamID := range []int64{teamA.ID, teamB.ID} {
		_, err := svc.CreateCategory(context.Background(), CreateCategoryInput{
			Principal: principal,
			TeamID:    teamID,
			Name:      "Rent",
			Type:      domain.CategoryExpense,
		})
		if err != nil {
			t.Fatalf("team %d: unexpected error: %v", teamID, err)
		}
	}
}

func TestCategoryService_UpdateCategory(t *testing.T) {
	strPtr := func(s string) *string { return &s }

	t.Run("merge keeps unspecified fields", func(t *testing.T) {
		categoryRepo := NewMockCategoryRepository()
		teamRepo := NewMockTeamRepository()
		team := seedTeam(t, teamRepo, 1, "Home")

		category := &domain.Category{
			Name: "Groceries", Description: "weekly shopping",
			Type: domain.CategoryExpense, TeamID: team.ID,
		}
		categoryRepo.Create(context.Background(), category)

		svc := newCategoryService(categoryRepo, teamRepo)
		output, err := svc.UpdateCategory(context.Background(), UpdateCategoryInput{
			Principal:  activePrincipal(1, domain.RoleUser, team.ID),
			TeamID:     team.ID,
			CategoryID: category.ID,
			Patch:      domain.CategoryPatch{Name: strPtr("Food")},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.Category.Name != "Food" {
			t.Errorf("expected name Food, got %s", output.Category.Name)
		}
		if output.Category.Description != "weekly shopping" {
			t.Errorf("description should be retained, got %q", output.Category.Description)
		}
		if output.Category.Type != domain.CategoryExpense {
			t.Errorf("type should be retained, got %s", output.Category.Type)
		}
	})

	t.Run("member but not creator", func(t *testing.T) {
		categoryRepo := NewMockCategoryRepository()
		teamRepo := NewMockTeamRepository()
		team := seedTeam(t, teamRepo, 1, "Home", 2)

		category := &domain.Category{Name: "Groceries", Type: domain.CategoryExpense, TeamID: team.ID}
		categoryRepo.Create(context.Background(), category)

		svc := newCategoryService(categoryRepo, teamRepo)
		_, err := svc.UpdateCategory(context.Background(), UpdateCategoryInput{
			Principal:  activePrincipal(2, domain.RoleUser, team.ID),
			TeamID:     team.ID,
			CategoryID: category.ID,
			Patch:      domain.CategoryPatch{Name: strPtr("Food")},
		})
		if !errors.Is(err, domain.ErrNotTeamCreator) {
			t.Errorf("expected ErrNotTeamCreator, got %v", err)
		}
	})

	t.Run("category from another team reads as missing", func(t *testing.T) {
		categoryRepo := NewMockCategoryRepository()
		teamRepo := NewMockTeamRepository()
		team := seedTeam(t, teamRepo, 1, "Home")
		other := seedTeam(t, teamRepo, 1, "Work")

		category := &domain.Category{Name: "Travel", Type: domain.CategoryExpense, TeamID: other.ID}
		categoryRepo.Create(context.Background(), category)

		svc := newCategoryService(categoryRepo, teamRepo)
		_, err := svc.UpdateCategory(context.Background(), UpdateCategoryInput{
			Principal:  activePrincipal(1, domain.RoleUser, team.ID, other.ID),
			TeamID:     team.ID,
			CategoryID: category.ID,
			Patch:      domain.CategoryPatch{Name: strPtr("Trips")},
		})
		if !errors.Is(err, domain.ErrCategoryNotFound) {
			t.Errorf("expected ErrCategoryNotFound, got %v", err)
		}
	})
}

func TestCategoryService_DeleteCategory(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		categoryRepo := NewMockCategoryRepository()
		teamRepo := NewMockTeamRepository()
		team := seedTeam(t, teamRepo, 1, "Home")

		category := &domain.Category{Name: "Groceries", Type: domain.CategoryExpense, TeamID: team.ID}
		categoryRepo.Create(context.Background(), category)

		svc := newCategoryService(categoryRepo, teamRepo)
		err := svc.DeleteCategory(context.Background(), DeleteCategoryInput{
			Principal:  activePrincipal(1, domain.RoleUser, team.ID),
			TeamID:     team.ID,
			CategoryID: category.ID,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("still referenced by items", func(t *testing.T) {
		categoryRepo := NewMockCategoryRepository()
		teamRepo := NewMockTeamRepository()
		team := seedTeam(t, teamRepo, 1, "Home")

		category := &domain.Category{Name: "Groceries", Type: domain.CategoryExpense, TeamID: team.ID}
		categoryRepo.Create(context.Background(), category)
		categoryRepo.itemCounts[category.ID] = 3

		svc := newCategoryService(categoryRepo, teamRepo)
		err := svc.DeleteCategory(context.Background(), DeleteCategoryInput{
			Principal:  activePrincipal(1, domain.RoleUser, team.ID),
			TeamID:     team.ID,
			CategoryID: category.ID,
		})
		if !errors.Is(err, domain.ErrCategoryInUse) {
			t.Errorf("expected ErrCategoryInUse, got %v", err)
		}
	})

	t.Run("non-member is rejected before ownership", func(t *testing.T) {
		categoryRepo := NewMockCategoryRepository()
		teamRepo := NewMockTeamRepository()
		team := seedTeam(t, teamRepo, 1, "Home")

		category := &domain.Category{Name: "Groceries", Type: domain.CategoryExpense, TeamID: team.ID}
		categoryRepo.Create(context.Background(), category)

		svc := newCategoryService(categoryRepo, teamRepo)
		err := svc.DeleteCategory(context.Background(), DeleteCategoryInput{
			Principal:  activePrincipal(9, domain.RoleUser),
			TeamID:     team.ID,
			CategoryID: category.ID,
		})
		if !errors.Is(err, domain.ErrNotTeamMember) {
			t.Errorf("expected ErrNotTeamMember, got %v", err)
		}
	})
}

func TestCategoryService_ListCategories_TypeFilter(t *testing.T) {
	categoryRepo := NewMockCategoryRepository()
	teamRepo := NewMockTeamRepository()
	team := seedTeam(t, teamRepo, 1, "Home")

	categoryRepo.Create(context.Background(), &domain.Category{Name: "Rent", Type: domain.CategoryExpense, TeamID: team.ID})
	categoryRepo.Create(context.Background(), &domain.Category{Name: "Salary", Type: domain.CategoryIncome, TeamID: team.ID})

	svc := newCategoryService(categoryRepo, teamRepo)
	income := domain.CategoryIncome

	output, err := svc.ListCategories(context.Background(), ListCategoriesInput{
		Principal: activePrincipal(1, domain.RoleUser, team.ID),
		TeamID:    team.ID,
		Type:      &income,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Categories) != 1 || output.Categories[0].Name != "Salary" {
		t.Errorf("expected only Salary, got %+v", output.Categories)
	}
}
