// Package handlers binds the command stream to the simulation: it owns the
// session lifecycle and hands every finalized record to the storage backends.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/arenalab/arena-recorder/internal/config"
	"github.com/arenalab/arena-recorder/internal/dispatcher"
	"github.com/arenalab/arena-recorder/internal/logging"
	"github.com/arenalab/arena-recorder/internal/parser"
	"github.com/arenalab/arena-recorder/internal/queue"
	"github.com/arenalab/arena-recorder/internal/session"
	"github.com/arenalab/arena-recorder/internal/sim"
	"github.com/arenalab/arena-recorder/internal/storage"
	"github.com/arenalab/arena-recorder/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/arenalab/arena-recorder/internal/handlers"

// Commands
const (
	CmdStart   = ":START:"
	CmdTick    = ":TICK:"
	CmdQuit    = ":QUIT:"
	CmdStatus  = ":STATUS:"
	CmdVersion = ":VERSION:"
	CmdSave    = ":SAVE:"
)

// Uploader posts exported files to the analysis server. *api.Client satisfies it.
type Uploader interface {
	Upload(filePath string, meta core.UploadMetadata) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	LogManager *logging.SlogManager
	Session    *session.Context
	SimConfig  config.SimConfig
	Parser     *parser.Parser
	Backends   []storage.Backend
	Uploader   Uploader // nil disables uploads
	Meter      metric.Meter
	Version    string
	SimOptions []sim.Option
}

// Service provides handler methods for the command stream
type Service struct {
	deps Dependencies

	// finalized records waiting for the :SAVE: worker
	pending    *queue.Queue[*core.SessionRecord]
	dispatcher *dispatcher.Dispatcher

	ticks     metric.Int64Counter
	events    metric.Int64Counter
	finalized metric.Int64Counter
	failures  metric.Int64Counter

	mu    sync.Mutex
	last  *core.SessionRecord
	saved int
}

// NewService creates a new handler service
func NewService(deps Dependencies) (*Service, error) {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.LogManager.Logger(), "")
	}
	if deps.Meter == nil {
		deps.Meter = otel.Meter(instrumentationName)
	}

	s := &Service{
		deps:    deps,
		pending: queue.New[*core.SessionRecord](),
	}

	var err error
	m := deps.Meter
	if s.ticks, err = m.Int64Counter("session.ticks", metric.WithDescription("Simulation ticks advanced")); err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}
	if s.events, err = m.Int64Counter("session.events", metric.WithDescription("Events recorded in finalized sessions")); err != nil {
		return nil, fmt.Errorf("creating events counter: %w", err)
	}
	if s.finalized, err = m.Int64Counter("session.finalized", metric.WithDescription("Sessions finalized")); err != nil {
		return nil, fmt.Errorf("creating finalized counter: %w", err)
	}
	if s.failures, err = m.Int64Counter("storage.save.errors", metric.WithDescription("Failed backend saves")); err != nil {
		return nil, fmt.Errorf("creating save error counter: %w", err)
	}
	return s, nil
}

func (s *Service) log() *slog.Logger {
	return s.deps.LogManager.Logger()
}

// RegisterHandlers registers the command handlers. Saving then runs on the
// dispatcher's :SAVE: worker instead of the command goroutine.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(CmdStart, func(e dispatcher.Event) (any, error) {
		return s.HandleStart(e.Args)
	}, dispatcher.Logged())
	d.Register(CmdTick, func(e dispatcher.Event) (any, error) {
		return s.HandleTick(e.Args)
	})
	d.Register(CmdQuit, func(e dispatcher.Event) (any, error) {
		return s.HandleQuit(e.Args)
	}, dispatcher.Logged())
	d.Register(CmdStatus, func(e dispatcher.Event) (any, error) {
		return s.HandleStatus(e.Args)
	})
	d.Register(CmdVersion, func(e dispatcher.Event) (any, error) {
		return s.deps.Version, nil
	})
	d.Register(CmdSave, func(e dispatcher.Event) (any, error) {
		rec, ok := s.pending.Pop()
		if !ok {
			return nil, nil
		}
		return nil, s.Save(rec)
	}, dispatcher.Buffered(64), dispatcher.Blocking())

	s.dispatcher = d
}

// HandleStart parses [label] and starts a session. A session that is still
// active is ended as a quit and saved first.
func (s *Service) HandleStart(args []string) (any, error) {
	req, err := s.deps.Parser.ParseStart(args)
	if err != nil {
		return nil, err
	}
	sess, err := s.Start(req.Label)
	if err != nil {
		return nil, err
	}
	return sess.ID(), nil
}

// Start starts a labeled session and makes it active.
func (s *Service) Start(label string) (*sim.Session, error) {
	if prev, err := s.deps.Session.Get(); err == nil {
		s.log().Warn("Session still active, ending it", "session_id", prev.ID())
		if err := s.finish(prev); err != nil {
			s.log().Error("Failed to finalize previous session", "error", err)
		}
	}

	opts := append([]sim.Option{
		sim.WithLabel(label),
		sim.WithLogger(s.log()),
	}, s.deps.SimOptions...)

	sess, err := sim.StartSession(s.deps.SimConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	s.deps.Session.Set(sess)
	return sess, nil
}

// HandleTick parses mx my ax ay fire reload [dt] and advances the active session.
func (s *Service) HandleTick(args []string) (any, error) {
	req, err := s.deps.Parser.ParseTick(args)
	if err != nil {
		return nil, err
	}
	ended, err := s.Step(req.Input, req.DT)
	if err != nil {
		return nil, err
	}
	if ended {
		return "ended", nil
	}
	return "ok", nil
}

// Step advances the active session by one tick. It reports whether the
// session ended, in which case it has been finalized and queued for saving.
func (s *Service) Step(in sim.Input, dt float64) (bool, error) {
	sess, err := s.deps.Session.Get()
	if err != nil {
		return false, err
	}

	tickErr := sess.Tick(in, dt)
	s.deps.Session.Sync()
	s.ticks.Add(context.Background(), 1)

	if tickErr != nil && !errors.Is(tickErr, sim.ErrInvariant) {
		return false, tickErr
	}
	if !sess.IsSessionEnded() {
		return false, nil
	}
	if err := s.finish(sess); err != nil {
		return true, err
	}
	return true, tickErr
}

// HandleQuit ends the active session and returns its id.
func (s *Service) HandleQuit(_ []string) (any, error) {
	sess, err := s.Quit()
	if err != nil {
		return nil, err
	}
	return sess.ID(), nil
}

// Quit ends, finalizes and queues the active session for saving.
func (s *Service) Quit() (*sim.Session, error) {
	sess, err := s.deps.Session.Get()
	if err != nil {
		return nil, err
	}
	if err := sess.End(); err != nil {
		s.deps.Session.Clear()
		return nil, err
	}
	return sess, s.finish(sess)
}

// HandleStatus returns the active session status as JSON.
func (s *Service) HandleStatus(_ []string) (any, error) {
	sess, err := s.deps.Session.Get()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(sess.Status())
	if err != nil {
		return nil, fmt.Errorf("failed to encode status: %w", err)
	}
	return string(b), nil
}

// finish finalizes sess exactly once, clears it from the context and hands
// the record to the backends.
func (s *Service) finish(sess *sim.Session) error {
	s.deps.Session.Clear()

	rec, err := sess.FinalizeSession()
	if err != nil {
		s.log().Error("Session could not be finalized", "session_id", sess.ID(), "error", err)
		return err
	}

	ctx := context.Background()
	s.finalized.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(rec.Outcome))))
	s.events.Add(ctx, int64(len(rec.Events)))

	s.mu.Lock()
	s.last = rec
	s.mu.Unlock()

	if s.dispatcher == nil {
		return s.Save(rec)
	}
	s.pending.Push(rec)
	_, err = s.dispatcher.Dispatch(dispatcher.Event{Command: CmdSave})
	return err
}

// Save writes rec to every backend. A failing backend is logged and does
// not stop the others. Uploadable backends are uploaded afterwards.
func (s *Service) Save(rec *core.SessionRecord) error {
	log := s.log().With("session_id", rec.SessionID)

	var errs []error
	for _, b := range s.deps.Backends {
		name := storage.NameOf(b)
		if err := b.SaveSession(rec); err != nil {
			s.failures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("backend", name)))
			log.Error("Failed to save session", "backend", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		log.Info("Session saved", "backend", name)

		if u, ok := b.(storage.Uploadable); ok && s.deps.Uploader != nil {
			if err := s.upload(u); err != nil {
				log.Error("Failed to upload session", "backend", name, "error", err)
				errs = append(errs, err)
			}
		}
	}

	s.mu.Lock()
	s.saved++
	s.mu.Unlock()
	return errors.Join(errs...)
}

func (s *Service) upload(u storage.Uploadable) error {
	path := u.GetExportedFilePath()
	if path == "" {
		return nil
	}
	if err := s.deps.Uploader.Upload(path, u.GetExportMetadata()); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	s.log().Info("Session uploaded", "path", path)
	return nil
}

// Shutdown quits an active session so its record is not lost.
func (s *Service) Shutdown() error {
	if _, err := s.deps.Session.Get(); err != nil {
		return nil
	}
	_, err := s.Quit()
	return err
}

// LastRecord returns the most recently finalized record, or nil.
func (s *Service) LastRecord() *core.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Pending returns how many finalized records wait for the :SAVE: worker.
func (s *Service) Pending() int {
	return s.pending.Len()
}

// Saved returns how many records went through Save.
func (s *Service) Saved() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}
