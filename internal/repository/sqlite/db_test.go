package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	ctx := context.Background()
	db, err := NewDB(ctx, Config{
		Path:        ":memory:",
		JournalMode: "MEMORY",
		BusyTimeout: 5000,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

// TestNewDB_AppliesPragmas pins the connection-string pragma syntax.
// modernc.org/sqlite only honors _pragma=name(value) parameters; the
// mattn-style _foreign_keys=ON form is silently ignored, leaving foreign
// keys off.
func TestNewDB_AppliesPragmas(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var fk int
	if err := db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}

	var busy int
	if err := db.QueryRowContext(ctx, `PRAGMA busy_timeout`).Scan(&busy); err != nil {
		t.Fatalf("PRAGMA busy_timeout: %v", err)
	}
	if busy != 5000 {
		t.Fatalf("busy_timeout = %d, want 5000", busy)
	}

	var mode string
	if err := db.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "memory") {
		t.Fatalf("journal_mode = %q, want memory", mode)
	}
}

func TestCategoryRepository_DeleteInUse(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	users := NewUserRepository(db)
	teams := NewTeamRepository(db)
	categories := NewCategoryRepository(db)
	items := NewItemRepository(db)

	creator := domain.NewUser("Grace", "Hopper", "grace@example.com", "hash")
	creator.Status = domain.StatusActive
	if err := users.Create(ctx, creator); err != nil {
		t.Fatalf("create user: %v", err)
	}

	team := domain.NewTeam("Household", "", creator.ID)
	if err := teams.Create(ctx, team); err != nil {
		t.Fatalf("create team: %v", err)
	}

	rent := &domain.Category{Name: "Rent", Type: domain.CategoryExpense, TeamID: team.ID}
	if err := categories.Create(ctx, rent); err != nil {
		t.Fatalf("create category: %v", err)
	}

	item := &domain.Item{
		Date:       time.Now().UTC(),
		Name:       "September rent",
		Quantity:   1,
		Price:      900,
		Total:      900,
		CategoryID: rent.ID,
		TeamID:     team.ID,
		CreatorID:  creator.ID,
	}
	if err := items.Create(ctx, item); err != nil {
		t.Fatalf("create item: %v", err)
	}

	if err := categories.Delete(ctx, rent.ID); !errors.Is(err, domain.ErrCategoryInUse) {
		t.Fatalf("Delete() error = %v, want ErrCategoryInUse", err)
	}

	// The refused delete must leave both rows in place.
	if _, err := categories.GetByID(ctx, rent.ID); err != nil {
		t.Fatalf("category missing after refused delete: %v", err)
	}
	if _, err := items.GetByID(ctx, item.ID); err != nil {
		t.Fatalf("item missing after refused delete: %v", err)
	}

	if err := items.Delete(ctx, item.ID); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	if err := categories.Delete(ctx, rent.ID); err != nil {
		t.Fatalf("Delete() after clearing items: %v", err)
	}
	if err := categories.Delete(ctx, rent.ID); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("Delete() on missing category error = %v, want ErrCategoryNotFound", err)
	}
}
