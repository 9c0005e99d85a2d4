// Package influxstorage exposes the InfluxDB manager as a storage backend:
// frame samples and the session summary become time-series points.
package influxstorage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arenalab/arena-recorder/internal/influx"
	"github.com/arenalab/arena-recorder/pkg/core"
)

// Backend writes finalized records to InfluxDB or its backup file.
type Backend struct {
	manager *influx.Manager
	ctx     context.Context

	mu     sync.Mutex
	ready  bool
	points int
}

// New wraps an unconnected manager.
func New(ctx context.Context, manager *influx.Manager) *Backend {
	return &Backend{
		manager: manager,
		ctx:     ctx,
	}
}

// Name identifies the backend in logs.
func (b *Backend) Name() string {
	return "influx"
}

// Init connects the manager. An unreachable server still initializes
// with the backup file as the sink.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.manager.Connect(b.ctx); err != nil {
		return fmt.Errorf("failed to connect to influx: %w", err)
	}
	b.ready = true
	return nil
}

// SaveSession writes the record's points.
func (b *Backend) SaveSession(rec *core.SessionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		return errors.New("influx backend not initialized")
	}
	if err := b.manager.WriteRecord(rec); err != nil {
		return err
	}
	b.points += len(rec.Frames) + 1
	return nil
}

// Points returns how many points were written.
func (b *Backend) Points() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.points
}

// Close flushes and releases the manager.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ready = false
	return b.manager.Close()
}
