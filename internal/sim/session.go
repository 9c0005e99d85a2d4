// Package sim runs one arena session: a single-threaded, fixed-step loop that
// moves entities, resolves combat, advances waves and feeds telemetry.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/arenalab/arena-recorder/internal/combat"
	"github.com/arenalab/arena-recorder/internal/config"
	"github.com/arenalab/arena-recorder/internal/entity"
	"github.com/arenalab/arena-recorder/internal/geo"
	"github.com/arenalab/arena-recorder/internal/telemetry"
	"github.com/arenalab/arena-recorder/internal/wave"
	"github.com/arenalab/arena-recorder/pkg/core"
	"github.com/google/uuid"
)

var (
	// ErrSessionEnded is returned by Tick once the session has ended.
	ErrSessionEnded = errors.New("session has ended")
	// ErrInvariant marks an internal defect that aborted the session.
	ErrInvariant = errors.New("simulation invariant violated")
	// ErrInvalidStep rejects a dt that is not finite or exceeds the
	// configured max step. The session is left untouched.
	ErrInvalidStep = errors.New("invalid tick step")
)

// pathTolerance bounds the drift between the incremental distance total and
// the length re-derived from raw positions.
const pathTolerance = 1e-6

// Input is the per-tick player input snapshot.
type Input = entity.Input

// Option configures a Session at start.
type Option func(*Session)

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithLabel sets the playstyle label carried by the record.
func WithLabel(label string) Option {
	return func(s *Session) { s.label = label }
}

// WithLogger sets the logger. The session adds its id to every entry.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithClock replaces time.Now for the start and end timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is one play session. It is not safe for concurrent use.
type Session struct {
	cfg    config.SimConfig
	id     string
	label  string
	logger *slog.Logger
	now    func() time.Time
	ctx    context.Context

	world     *entity.World
	waves     *wave.Controller
	telemetry *telemetry.Pipeline

	start   time.Time
	tick    uint64
	elapsed float64

	endLogged bool
	abortErr  error
	record    *core.SessionRecord
}

// StartSession validates cfg and builds the arena, the first wave and an
// empty record. A config error means no session is created.
func StartSession(cfg config.SimConfig, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:    cfg,
		id:     uuid.NewString(),
		label:  "unlabeled",
		logger: slog.Default(),
		now:    time.Now,
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", s.id)

	s.start = s.now()
	s.world = entity.NewWorld(cfg)
	s.waves = wave.New(cfg, s.logger)
	s.telemetry = telemetry.New(cfg.Telemetry, s.id, s.label, s.start,
		cfg.Arena.TickRate, cfg.Waves.FinalWave, s.world.Player.Position)

	if err := s.waves.Start(s.ctx, s.world, s.stamp()); err != nil {
		return nil, fmt.Errorf("starting waves: %w", err)
	}

	s.logger.Info("Session started", "label", s.label, "final_wave", cfg.Waves.FinalWave)
	return s, nil
}

// Tick advances the session by one step. dt <= 0 uses the fixed step.
// Order: player, enemies, projectiles, collisions, waves, telemetry, compaction.
func (s *Session) Tick(in Input, dt float64) error {
	if s.abortErr != nil {
		return s.abortErr
	}
	if s.waves.Ended() {
		return ErrSessionEnded
	}
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt > s.cfg.Arena.MaxStep {
		return fmt.Errorf("%w: dt %v outside (0, %v]", ErrInvalidStep, dt, s.cfg.Arena.MaxStep)
	}
	if !in.Move.IsFinite() || !in.Aim.IsFinite() {
		return fmt.Errorf("%w: non-finite input", ErrInvalidStep)
	}
	if dt <= 0 {
		dt = s.cfg.FixedStep()
	}

	s.tick++
	s.elapsed += dt
	at := s.stamp()
	w := s.world

	s.telemetry.Record(entity.UpdatePlayer(w, in, s.cfg, dt, at)...)
	for _, e := range w.Enemies {
		entity.UpdateEnemy(w, e, s.cfg, dt, at)
	}
	for _, p := range w.Projectiles {
		entity.UpdateProjectile(w, p, s.cfg.Projectile, dt)
	}

	s.telemetry.Record(combat.Resolve(w, at)...)

	events, err := s.waves.Update(s.ctx, w, at)
	s.telemetry.Record(events...)
	if err != nil {
		return s.abort(err)
	}

	s.telemetry.Observe(w, at)
	w.Compact()

	if err := s.checkInvariants(); err != nil {
		return s.abort(err)
	}

	if s.waves.Ended() {
		s.recordEnd()
	}
	return nil
}

// IsSessionEnded reports whether the session reached its terminal state.
func (s *Session) IsSessionEnded() bool {
	return s.waves.Ended() || s.abortErr != nil
}

// End terminates the session on an external quit request.
func (s *Session) End() error {
	if s.IsSessionEnded() {
		return nil
	}
	if err := s.waves.Quit(s.ctx); err != nil {
		return s.abort(err)
	}
	s.recordEnd()
	return nil
}

// FinalizeSession ends the session if it is still live, computes the summary
// and returns the frozen record. Repeated calls return the same record. An
// aborted session has no record and returns the abort error.
func (s *Session) FinalizeSession() (*core.SessionRecord, error) {
	if s.abortErr != nil {
		return nil, s.abortErr
	}
	if s.record != nil {
		return s.record, nil
	}
	if err := s.End(); err != nil {
		return nil, err
	}

	s.record = s.telemetry.Finalize(telemetry.Final{
		Outcome:        s.waves.Outcome(),
		WavesCompleted: s.waves.Completed(),
		Ticks:          s.tick,
		Duration:       s.elapsed,
		EndTime:        s.now(),
	})

	if pathLen := geo.PathLength(s.telemetry.Path()); math.Abs(pathLen-s.record.Stats.DistanceTraveled) > pathTolerance*math.Max(1, pathLen) {
		s.logger.Warn("Distance traveled drifted from path length",
			"distance", s.record.Stats.DistanceTraveled, "path_length", pathLen)
	}

	s.logger.Info("Session finalized",
		"outcome", s.record.Outcome,
		"ticks", s.record.Ticks,
		"events", len(s.record.Events),
		"frames", len(s.record.Frames))
	return s.record, nil
}

func (s *Session) recordEnd() {
	if s.endLogged {
		return
	}
	s.endLogged = true

	ev := s.stamp().Event(core.EventSessionEnded)
	ev.End = &core.EndPayload{Outcome: s.waves.Outcome(), Wave: s.waves.Wave()}
	s.telemetry.Record(ev)
	s.logger.Info("Session ended", "outcome", s.waves.Outcome(), "tick", s.tick, "wave", s.waves.Wave())
}

func (s *Session) abort(err error) error {
	if !errors.Is(err, ErrInvariant) {
		err = fmt.Errorf("%w: %w", ErrInvariant, err)
	}
	s.abortErr = err
	s.logger.Error("Session aborted", "tick", s.tick, "error", err)
	return err
}

func (s *Session) stamp() entity.Stamp {
	return entity.Stamp{Tick: s.tick, Time: s.elapsed}
}
