// Package postgres implements the storage.Backend interface on PostgreSQL.
// The queue-based writer lives in the GORM backend; this package owns the
// connection lifecycle.
package postgres

import (
	"fmt"

	"github.com/arenalab/arena-recorder/internal/database"
	"github.com/arenalab/arena-recorder/internal/logging"
	gormstorage "github.com/arenalab/arena-recorder/internal/storage/gorm"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
// DB may be nil, in which case Init connects using the db config section.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
	DBLogger   zerolog.Logger
	Version    string
}

// Backend wraps the GORM backend with a Postgres connection it may own.
type Backend struct {
	*gormstorage.Backend
	deps    Dependencies
	manager *database.Manager
	connect func(*database.Manager) error
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		Backend: newGormBackend(deps),
		deps:    deps,
		connect: (*database.Manager).ConnectPostgres,
	}
}

func newGormBackend(deps Dependencies) *gormstorage.Backend {
	return gormstorage.New(gormstorage.Dependencies{
		DB:         deps.DB,
		LogManager: deps.LogManager,
		DBLogger:   deps.DBLogger,
		Version:    deps.Version,
	})
}

// Name identifies the backend in logs.
func (b *Backend) Name() string {
	return "postgres"
}

// Init connects if no DB was injected, then initializes the GORM backend.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		m := database.NewManager(b.deps.DBLogger)
		if err := b.connect(m); err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		b.manager = m
		b.deps.DB = m.DB
		b.Backend = newGormBackend(b.deps)
	}
	return b.Backend.Init()
}

// Close drains the writer and releases an owned connection.
func (b *Backend) Close() error {
	err := b.Backend.Close()
	if b.manager != nil {
		if cerr := b.manager.Close(); cerr != nil && err == nil {
			err = cerr
		}
		b.manager = nil
	}
	return err
}
