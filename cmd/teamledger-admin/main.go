// Package main is the entry point for the TeamLedger admin CLI.
// It manages user accounts directly against the database: freshly
// registered accounts start inactive and need an admin to activate them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/teamledger/internal/config"
	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/repository"
	"github.com/prn-tf/teamledger/internal/repository/postgres"
	"github.com/prn-tf/teamledger/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("TeamLedger Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "create":
		runOrDie(cmdCreate)

	case "activate":
		runOrDie(cmdSetStatus(domain.StatusActive))

	case "disable":
		runOrDie(cmdSetStatus(domain.StatusDisabled))

	case "promote":
		runOrDie(cmdSetRole(domain.RoleAdmin))

	case "demote":
		runOrDie(cmdSetRole(domain.RoleUser))

	case "list":
		runOrDie(cmdList)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runOrDie(fn func(ctx context.Context, repos *repository.Repositories, args []string) error) {
	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(os.Args[2:])

	cfg := config.MustLoad(*configPath)
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repos, closeDB, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeDB()

	if err := fn(ctx, repos, fs.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cmdCreate creates an already-active user, optionally an admin.
// Usage: teamledger-admin create <first> <last> <email> <password> [admin]
func cmdCreate(ctx context.Context, repos *repository.Repositories, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("usage: create <first-name> <last-name> <email> <password> [admin]")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(args[3]), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.NewUser(args[0], args[1], args[2], string(hash))
	user.Status = domain.StatusActive
	if len(args) > 4 && args[4] == "admin" {
		user.Role = domain.RoleAdmin
	}

	if err := repos.User.Create(ctx, user); err != nil {
		return err
	}

	fmt.Printf("Created user %d (%s) role=%s status=%s\n", user.ID, user.Email, user.Role, user.Status)
	return nil
}

func cmdSetStatus(status domain.UserStatus) func(ctx context.Context, repos *repository.Repositories, args []string) error {
	return func(ctx context.Context, repos *repository.Repositories, args []string) error {
		user, err := userByArg(ctx, repos, args)
		if err != nil {
			return err
		}
		user.Status = status
		user.UpdatedAt = time.Now().UTC()
		if err := repos.User.Update(ctx, user); err != nil {
			return err
		}
		fmt.Printf("User %d (%s) is now %s\n", user.ID, user.Email, user.Status)
		return nil
	}
}

func cmdSetRole(role domain.Role) func(ctx context.Context, repos *repository.Repositories, args []string) error {
	return func(ctx context.Context, repos *repository.Repositories, args []string) error {
		user, err := userByArg(ctx, repos, args)
		if err != nil {
			return err
		}
		user.Role = role
		user.UpdatedAt = time.Now().UTC()
		if err := repos.User.Update(ctx, user); err != nil {
			return err
		}
		fmt.Printf("User %d (%s) is now %s\n", user.ID, user.Email, user.Role)
		return nil
	}
}

func cmdList(ctx context.Context, repos *repository.Repositories, args []string) error {
	users, total, err := repos.User.List(ctx, repository.UserListOptions{Limit: 1000})
	if err != nil {
		return err
	}

	fmt.Printf("%-6s %-30s %-8s %-10s %s\n", "ID", "EMAIL", "ROLE", "STATUS", "NAME")
	for _, u := range users {
		fmt.Printf("%-6d %-30s %-8s %-10s %s %s\n", u.ID, u.Email, u.Role, u.Status, u.FirstName, u.LastName)
	}
	fmt.Printf("%d users total\n", total)
	return nil
}

// userByArg loads a user by numeric id or email address.
func userByArg(ctx context.Context, repos *repository.Repositories, args []string) (*domain.User, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("expected a user id or email")
	}
	if id, err := strconv.ParseInt(args[0], 10, 64); err == nil {
		return repos.User.GetByID(ctx, id)
	}
	return repos.User.GetByEmail(ctx, args[0])
}

func openDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repository.Repositories, func(), error) {
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:        cfg.Database.Path,
			JournalMode: cfg.Database.JournalMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return &repository.Repositories{
			User: sqlite.NewUserRepository(db),
		}, func() { _ = db.Close() }, nil

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return &repository.Repositories{
			User: postgres.NewUserRepository(db),
		}, func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

func printUsage() {
	fmt.Println(`TeamLedger Admin CLI

Usage:
  teamledger-admin <command> [-config path] [arguments]

The -config flag comes after the command name.

Commands:
  create      Create an active user: create <first> <last> <email> <password> [admin]
  activate    Activate an account: activate <id|email>
  disable     Disable an account: disable <id|email>
  promote     Grant the admin role: promote <id|email>
  demote      Revert to the user role: demote <id|email>
  list        List users
  version     Print version information
  help        Show this help message

Examples:
  teamledger-admin create Ada Lovelace ada@example.com s3cret admin
  teamledger-admin activate ada@example.com
  teamledger-admin list -config ./configs/config.yaml`)
}
