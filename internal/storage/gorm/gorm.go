// Package gormstorage implements the storage.Backend interface on any GORM
// dialect. Session rows are inserted synchronously; events and frame samples
// go through write queues that a background writer drains in batches.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arenalab/arena-recorder/internal/database"
	"github.com/arenalab/arena-recorder/internal/logging"
	"github.com/arenalab/arena-recorder/internal/model"
	"github.com/arenalab/arena-recorder/internal/model/convert"
	"github.com/arenalab/arena-recorder/internal/queue"
	"github.com/arenalab/arena-recorder/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	// DefaultFlushInterval is how often the writer drains the queues.
	DefaultFlushInterval = 2 * time.Second
	// DefaultBatchSize bounds the rows inserted per transaction.
	DefaultBatchSize = 5000
)

var (
	// ErrNoDB is returned by Init when no connection was injected.
	ErrNoDB = errors.New("no database connection")
	// ErrNotInitialized is returned when saving before Init.
	ErrNotInitialized = errors.New("backend not initialized")
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	DBLogger      zerolog.Logger
	Version       string
	FlushInterval time.Duration
	BatchSize     int
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	Events *queue.Queue[model.Event]
	Frames *queue.Queue[model.FrameSample]
}

func newQueues() *queues {
	return &queues{
		Events: queue.New[model.Event](),
		Frames: queue.New[model.FrameSample](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	stopChan chan struct{}
	done     chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultBatchSize
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{
		deps: deps,
	}
}

// Name identifies the backend in logs.
func (b *Backend) Name() string {
	if b.deps.DB == nil {
		return "gorm"
	}
	return "gorm:" + b.deps.DB.Name()
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

func (b *Backend) log() *slog.Logger {
	return b.deps.LogManager.Logger().With("backend", b.Name())
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDB
	}

	if err := database.Setup(b.deps.DB, b.deps.DBLogger, b.deps.Version); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.queues = newQueues()
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	b.startDBWriter()
	return nil
}

// Close stops the writer goroutine and drains whatever is still queued.
func (b *Backend) Close() error {
	if b.queues == nil {
		return nil
	}

	var err error
	b.closeOnce.Do(func() {
		close(b.stopChan)
		<-b.done
		err = b.Flush()
	})
	return err
}

// SaveSession inserts the session row and queues its events and frames.
func (b *Backend) SaveSession(rec *core.SessionRecord) error {
	if b.queues == nil {
		return ErrNotInitialized
	}

	events, err := convert.CoreToEvents(rec)
	if err != nil {
		return err
	}
	frames := convert.CoreToFrameSamples(rec)

	session, err := convert.CoreToSession(rec)
	if err != nil {
		return err
	}
	if err := b.deps.DB.Create(&session).Error; err != nil {
		return fmt.Errorf("failed to insert session %s: %w", rec.SessionID, err)
	}

	for i := range events {
		events[i].SessionID = session.ID
	}
	for i := range frames {
		frames[i].SessionID = session.ID
	}
	b.queues.Events.Push(events...)
	b.queues.Frames.Push(frames...)

	b.log().Debug("Session queued",
		"session_id", rec.SessionID,
		"row_id", session.ID,
		"events", len(events),
		"frames", len(frames))
	return nil
}

// Pending returns the number of queued rows not yet written.
func (b *Backend) Pending() int {
	if b.queues == nil {
		return 0
	}
	return b.queues.Events.Len() + b.queues.Frames.Len()
}

// Flush drains both queues now. Failed batches stay queued for the next attempt.
func (b *Backend) Flush() error {
	if b.queues == nil {
		return ErrNotInitialized
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	log := b.log()
	return errors.Join(
		writeQueue(b.deps.DB, b.queues.Events, "events", b.deps.BatchSize, log),
		writeQueue(b.deps.DB, b.queues.Frames, "frame samples", b.deps.BatchSize, log),
	)
}

// writeQueue writes all items from a queue to the database, one transaction per batch.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, batchSize int, log *slog.Logger) error {
	for !q.Empty() {
		items := q.Take(batchSize)

		tx := db.Begin()
		if err := tx.Create(&items).Error; err != nil {
			log.Error("Error writing batch", "table", name, "rows", len(items), "error", err)
			tx.Rollback()
			q.PushFront(items...)
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		if err := tx.Commit().Error; err != nil {
			q.PushFront(items...)
			return fmt.Errorf("failed to commit %s: %w", name, err)
		}
		log.Debug("Wrote batch", "table", name, "rows", len(items))
	}
	return nil
}

// startDBWriter starts the background goroutine that periodically drains queues into the DB.
func (b *Backend) startDBWriter() {
	go func() {
		defer close(b.done)
		ticker := time.NewTicker(b.deps.FlushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-b.stopChan:
				return
			case <-ticker.C:
				// errors are logged per batch and the rows retried next tick
				_ = b.Flush()
			}
		}
	}()
}

// LoadSession rebuilds a stored record by session id. Queued rows are
// flushed first so the record is complete.
func (b *Backend) LoadSession(sessionID string) (*core.SessionRecord, error) {
	if b.queues != nil {
		if err := b.Flush(); err != nil {
			return nil, err
		}
	}

	db := b.deps.DB
	var session model.Session
	if err := db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to find session %s: %w", sessionID, err)
	}

	var events []model.Event
	if err := db.Where("session_id = ?", session.ID).Order("seq").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	var frames []model.FrameSample
	if err := db.Where("session_id = ?", session.ID).Order("tick").Find(&frames).Error; err != nil {
		return nil, fmt.Errorf("failed to load frame samples: %w", err)
	}

	return convert.SessionToCore(session, events, frames)
}

// ListSessions returns stored session rows, oldest first. An empty label lists all.
func (b *Backend) ListSessions(label string) ([]model.Session, error) {
	q := b.deps.DB.Order("start_time")
	if label != "" {
		q = q.Where("label = ?", label)
	}
	var sessions []model.Session
	if err := q.Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}
