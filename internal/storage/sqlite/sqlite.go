// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database that is dumped to disk via VACUUM INTO.
// It wraps the GORM backend; the SQLite-specific concerns are creating the
// in-memory DB and writing the dump after every saved session and on close.
package sqlitestorage

import (
	"fmt"

	"github.com/arenalab/arena-recorder/internal/database"
	"github.com/arenalab/arena-recorder/internal/logging"
	gormstorage "github.com/arenalab/arena-recorder/internal/storage/gorm"
	"github.com/arenalab/arena-recorder/pkg/core"
	"github.com/rs/zerolog"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpPath string // file written by VACUUM INTO; empty disables dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	manager *database.Manager
	cfg     Config
	log     *logging.SlogManager
	dumps   int
}

// New creates a new SQLite storage backend over a private in-memory database.
func New(cfg Config, logManager *logging.SlogManager, dbLogger zerolog.Logger, version string) (*Backend, error) {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}

	m := database.NewManager(dbLogger)
	if err := m.ConnectSqlite(""); err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:         m.DB,
		LogManager: logManager,
		DBLogger:   dbLogger,
		Version:    version,
	})

	return &Backend{
		Backend: gormBackend,
		manager: m,
		cfg:     cfg,
		log:     logManager,
	}, nil
}

// Name identifies the backend in logs.
func (b *Backend) Name() string {
	return "sqlite"
}

// SaveSession stores the record, writes its rows immediately and refreshes the dump.
func (b *Backend) SaveSession(rec *core.SessionRecord) error {
	if err := b.Backend.SaveSession(rec); err != nil {
		return err
	}
	if err := b.Flush(); err != nil {
		return err
	}
	return b.dump()
}

// Close drains the GORM backend, writes a final dump and closes the database.
func (b *Backend) Close() error {
	if b.manager == nil {
		return nil
	}

	err := b.Backend.Close()
	if err == nil {
		err = b.dump()
	}
	if cerr := b.manager.Close(); cerr != nil && err == nil {
		err = cerr
	}
	b.manager = nil
	return err
}

// Dumps returns how many times the database was written to disk.
func (b *Backend) Dumps() int {
	return b.dumps
}

func (b *Backend) dump() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	if err := b.manager.DumpMemoryToDisk(b.cfg.DumpPath); err != nil {
		b.log.Logger().Error("Error dumping to disk", "path", b.cfg.DumpPath, "error", err)
		return err
	}
	b.dumps++
	return nil
}
