// Package main is the entry point for the TeamLedger database migration
// tool. It applies the embedded schema migrations for the configured
// backend and reports the current schema state.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/config"
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
		fmt.Printf("TeamLedger Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up":
		if err := migrateUp(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "ping":
		if err := ping(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("database reachable")

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(os.Args[2:])
	return config.MustLoad(*configPath)
}

func migrateUp() error {
	cfg := loadConfig()
	logger := zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:        cfg.Database.Path,
			JournalMode: cfg.Database.JournalMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		}, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	fmt.Println("migrations applied")
	return nil
}

func ping() error {
	cfg := loadConfig()
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:        cfg.Database.Path,
			JournalMode: cfg.Database.JournalMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		}, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping(ctx)

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping(ctx)

	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

func printUsage() {
	fmt.Println(`TeamLedger Migration Tool

Usage:
  teamledger-migrate <command> [-config path]

Commands:
  up          Apply all pending migrations for the configured backend
  ping        Check database connectivity
  version     Print version information
  help        Show this help message

Examples:
  teamledger-migrate up -config ./configs/config.yaml
  teamledger-migrate ping`)
}
