package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arenalab/arena-recorder/internal/config"
	"github.com/arenalab/arena-recorder/internal/influx"
	"github.com/arenalab/arena-recorder/internal/logging"
	"github.com/arenalab/arena-recorder/internal/storage"
	influxstorage "github.com/arenalab/arena-recorder/internal/storage/influx"
	"github.com/arenalab/arena-recorder/internal/storage/memory"
	pgstorage "github.com/arenalab/arena-recorder/internal/storage/postgres"
	sqlitestorage "github.com/arenalab/arena-recorder/internal/storage/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// storageDeps carries what the backend constructors need.
type storageDeps struct {
	LogManager *logging.SlogManager
	DBLogger   zerolog.Logger
	Version    string
	Start      time.Time
}

// sqliteDumpPath names the dump file for a recorder run started at start.
func sqliteDumpPath(dir string, start time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.db", AppName, start.Format("20060102_150405")))
}

// createStorageBackends builds one backend per entry of the comma separated
// storage.type, plus the influx backend when influx.enabled is set.
func createStorageBackends(ctx context.Context, cfg config.StorageConfig, deps storageDeps) ([]storage.Backend, error) {
	var backends []storage.Backend
	seen := map[string]bool{}

	for _, typ := range strings.Split(cfg.Type, ",") {
		typ = strings.ToLower(strings.TrimSpace(typ))
		if typ == "" || seen[typ] {
			continue
		}
		seen[typ] = true

		switch typ {
		case "memory":
			backends = append(backends, memory.New(cfg.Memory))

		case "sqlite":
			if err := os.MkdirAll(cfg.SQLite.DumpDir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite dump dir: %w", err)
			}
			b, err := sqlitestorage.New(sqlitestorage.Config{
				DumpPath: sqliteDumpPath(cfg.SQLite.DumpDir, deps.Start),
			}, deps.LogManager, deps.DBLogger, deps.Version)
			if err != nil {
				return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
			}
			backends = append(backends, b)

		case "postgres":
			backends = append(backends, pgstorage.New(pgstorage.Dependencies{
				LogManager: deps.LogManager,
				DBLogger:   deps.DBLogger,
				Version:    deps.Version,
			}))

		default:
			return nil, fmt.Errorf("unknown storage type: %s", typ)
		}
	}

	if cfg.Influx {
		backupPath := viper.GetString("influx.backupPath")
		if err := os.MkdirAll(filepath.Dir(backupPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create influx backup dir: %w", err)
		}
		backends = append(backends, influxstorage.New(ctx, influx.NewManager(deps.DBLogger, backupPath)))
	}

	return backends, nil
}

// initBackends initializes every backend and keeps the ones that came up.
// A backend that fails to initialize is logged and left out.
func initBackends(backends []storage.Backend) []storage.Backend {
	ready := make([]storage.Backend, 0, len(backends))
	for _, b := range backends {
		name := storage.NameOf(b)
		if err := b.Init(); err != nil {
			Logger.Error("Failed to initialize storage backend", "backend", name, "error", err)
			if cerr := b.Close(); cerr != nil {
				Logger.Warn("Failed to close storage backend", "backend", name, "error", cerr)
			}
			continue
		}
		Logger.Info("Storage backend initialized", "backend", name)
		ready = append(ready, b)
	}
	return ready
}

func closeBackends(backends []storage.Backend) {
	for _, b := range backends {
		if err := b.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "backend", storage.NameOf(b), "error", err)
		}
	}
}
