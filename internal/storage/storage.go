// Package storage defines the sinks finalized session records are written to.
package storage

//go:generate go tool mockgen -destination=./mocks/storage_mock.go -package=mocks . Backend,Uploadable

import (
	"fmt"

	"github.com/arenalab/arena-recorder/pkg/core"
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// SaveSession persists one finalized record. The record is frozen and
	// may be shared with other backends; implementations must not modify it.
	SaveSession(rec *core.SessionRecord) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the analysis server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// Named is an optional interface for backends that report a name in logs.
type Named interface {
	Name() string
}

// NameOf returns the backend's name, or its Go type when it has none.
func NameOf(b Backend) string {
	if n, ok := b.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", b)
}
