package repository

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/config"
)

// Repositories holds all repository instances.
type Repositories struct {
	User     UserRepository
	Team     TeamRepository
	Category CategoryRepository
	Item     ItemRepository
	Session  SessionRepository
}

// DatabaseHealth is an interface for database health checks.
// This interface satisfies handler.DatabaseChecker for health endpoints.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}

// Factory inspects database configuration so the composition root can
// pick a backend without re-reading config fields.
type Factory struct {
	cfg    config.DatabaseConfig
	logger zerolog.Logger
}

// NewFactory creates a new repository factory.
func NewFactory(cfg config.DatabaseConfig, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// Driver returns the configured database driver.
func (f *Factory) Driver() string {
	return f.cfg.Driver
}

// IsEmbedded returns true if using embedded database.
func (f *Factory) IsEmbedded() bool {
	return f.cfg.IsEmbedded()
}
