// Package memory implements the file export storage backend: each finalized
// record is encoded in memory and written as one JSON or msgpack file.
package memory

import (
	"fmt"
	"sync"

	"github.com/arenalab/arena-recorder/internal/config"
	"github.com/arenalab/arena-recorder/pkg/core"
)

// Supported export formats
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// Backend exports session records to files
type Backend struct {
	cfg config.MemoryConfig

	lastExportPath string
	lastMeta       core.UploadMetadata
	exported       int

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}
	return &Backend{
		cfg: cfg,
	}
}

// Name identifies the backend in logs
func (b *Backend) Name() string {
	return "memory"
}

// Init checks the configured format
func (b *Backend) Init() error {
	switch b.cfg.Format {
	case FormatJSON, FormatMsgpack:
		return nil
	default:
		return fmt.Errorf("unknown export format: %s", b.cfg.Format)
	}
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// SaveSession writes the record to the output directory
func (b *Backend) SaveSession(rec *core.SessionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	path, err := b.export(rec)
	if err != nil {
		return err
	}

	b.lastExportPath = path
	b.lastMeta = rec.Metadata()
	b.exported++
	return nil
}

// Exported returns how many records were written
func (b *Backend) Exported() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exported
}

// GetExportedFilePath returns the path of the last exported file
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns metadata about the last exported record
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastMeta
}
