// Package main is the entry point for the TeamLedger server.
// TeamLedger is a multi-tenant expense and income tracker built around
// team-scoped authorization.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/teamledger/internal/auth"
	"github.com/prn-tf/teamledger/internal/authz"
	"github.com/prn-tf/teamledger/internal/cache/memory"
	rediscache "github.com/prn-tf/teamledger/internal/cache/redis"
	"github.com/prn-tf/teamledger/internal/config"
	"github.com/prn-tf/teamledger/internal/export"
	"github.com/prn-tf/teamledger/internal/handler"
	"github.com/prn-tf/teamledger/internal/lock"
	"github.com/prn-tf/teamledger/internal/metrics"
	"github.com/prn-tf/teamledger/internal/repository"
	"github.com/prn-tf/teamledger/internal/repository/postgres"
	"github.com/prn-tf/teamledger/internal/repository/sqlite"
	"github.com/prn-tf/teamledger/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// sweepInterval is how often expired sessions are removed.
const sweepInterval = 15 * time.Minute

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	logger := newLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting TeamLedger server")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	repos, dbHealth, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer dbHealth.Close()

	// Metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Lock and cache: Redis in multi-node deployments, in-memory otherwise.
	var (
		locker    lock.Locker
		slugCache repository.Cache
	)
	if cfg.Redis.Enabled {
		client, err := rediscache.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client)
		slugCache = rediscache.NewCache(client, logger)
	} else {
		locker = lock.NewMemoryLocker()
		memCache := memory.NewCache()
		defer memCache.Stop()
		slugCache = memCache
	}

	// Authorization gate
	var decisionRecorder authz.DecisionRecorder
	if m != nil {
		decisionRecorder = m
	}
	gate := authz.NewGate(decisionRecorder, logger)

	// Export store
	var exportStore export.Store
	if cfg.Export.Enabled {
		store, err := export.NewS3Store(ctx, cfg.Export, logger)
		if err != nil {
			return fmt.Errorf("failed to set up export store: %w", err)
		}
		exportStore = store
	}

	// Services
	var sweepRecorder service.SweepRecorder
	var exportRecorder service.ExportRecorder
	if m != nil {
		sweepRecorder = m
		exportRecorder = m
	}

	userService := service.NewUserService(repos.User, gate, cfg.Auth.BcryptCost, logger)
	sessionService := service.NewSessionService(repos.Session, repos.User, repos.Team, cfg.Auth.SessionTTL, sweepRecorder, logger)
	teamService := service.NewTeamService(repos.Team, gate, locker, slugCache, logger)
	categoryService := service.NewCategoryService(repos.Category, repos.Team, gate, locker, logger)
	itemService := service.NewItemService(repos.Item, repos.Category, gate, logger)
	exportService := service.NewExportService(repos.Item, repos.Team, gate, exportStore, cfg.Export.Prefix, exportRecorder, logger)

	// HTTP layer
	var requestRecorder handler.RequestRecorder
	if m != nil {
		requestRecorder = m
	}

	router := handler.NewRouter(handler.RouterConfig{
		AuthHandler:     handler.NewAuthHandler(sessionService, logger),
		UserHandler:     handler.NewUserHandler(userService, logger),
		TeamHandler:     handler.NewTeamHandler(teamService, logger),
		CategoryHandler: handler.NewCategoryHandler(categoryService, logger),
		ItemHandler:     handler.NewItemHandler(itemService, exportService, logger),
		AuthMiddleware:  auth.Middleware(sessionService, auth.DefaultConfig(), logger),
		Recorder:        requestRecorder,
		Health: func() error {
			healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return dbHealth.Health(healthCtx)
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Metrics server
	var metricsSrv *metrics.Server
	if m != nil {
		metricsSrv = metrics.NewServer(cfg.Metrics, m, logger)
		go func() {
			if err := metricsSrv.Start(); err != nil {
				errCh <- err
			}
		}()
	}

	// Session sweeper
	go sweepSessions(ctx, sessionService, logger)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown failed")
		}
	}

	return nil
}

// openDatabase connects to the configured backend, runs migrations and
// builds the repository set.
func openDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repository.Repositories, repository.DatabaseHealth, error) {
	factory := repository.NewFactory(cfg.Database, logger)

	switch factory.Driver() {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:        cfg.Database.Path,
			JournalMode: cfg.Database.JournalMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return &repository.Repositories{
			User:     sqlite.NewUserRepository(db),
			Team:     sqlite.NewTeamRepository(db),
			Category: sqlite.NewCategoryRepository(db),
			Item:     sqlite.NewItemRepository(db),
			Session:  sqlite.NewSessionRepository(db),
		}, db, nil

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return &repository.Repositories{
			User:     postgres.NewUserRepository(db),
			Team:     postgres.NewTeamRepository(db),
			Category: postgres.NewCategoryRepository(db),
			Item:     postgres.NewItemRepository(db),
			Session:  postgres.NewSessionRepository(db),
		}, db, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %s", factory.Driver())
	}
}

// sweepSessions periodically removes expired sessions.
func sweepSessions(ctx context.Context, sessions *service.SessionService, logger zerolog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sessions.SweepExpired(ctx); err != nil {
				logger.Error().Err(err).Msg("session sweep failed")
			}
		}
	}
}

// newLogger builds the process logger from logging config.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(level).With().Timestamp().Logger()
}
