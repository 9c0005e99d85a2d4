// Package wave drives session progression: it spawns enemy cohorts, detects
// cleared waves and decides when the session ends.
package wave

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arenalab/arena-recorder/internal/ai"
	"github.com/arenalab/arena-recorder/internal/config"
	"github.com/arenalab/arena-recorder/internal/entity"
	"github.com/arenalab/arena-recorder/pkg/core"
	"github.com/looplab/fsm"
)

// States
const (
	StateSpawning   = "spawning"
	StateInProgress = "in_progress"
	StateCleared    = "cleared"
	StateEnded      = "ended"
)

// Transitions
const (
	eventSpawned = "spawned"
	eventClear   = "clear"
	eventNext    = "next"
	eventFinish  = "finish"
	eventDefeat  = "defeat"
	eventQuit    = "quit"
)

var live = []string{StateSpawning, StateInProgress, StateCleared}

// Controller is the wave state machine of one session.
type Controller struct {
	cfg    config.SimConfig
	fsm    *fsm.FSM
	logger *slog.Logger

	wave      int
	waveSize  int
	waveStart float64
	spawned   int
	completed int
	outcome   core.Outcome
}

// New builds a controller in the spawning state. Nothing is spawned until Start.
func New(cfg config.SimConfig, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{cfg: cfg, logger: logger}
	c.fsm = fsm.NewFSM(
		StateSpawning,
		fsm.Events{
			{Name: eventSpawned, Src: []string{StateSpawning}, Dst: StateInProgress},
			{Name: eventClear, Src: []string{StateInProgress}, Dst: StateCleared},
			{Name: eventNext, Src: []string{StateCleared}, Dst: StateSpawning},
			{Name: eventFinish, Src: []string{StateCleared}, Dst: StateEnded},
			{Name: eventDefeat, Src: live, Dst: StateEnded},
			{Name: eventQuit, Src: live, Dst: StateEnded},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				c.logger.Debug("wave state changed", "from", e.Src, "to", e.Dst, "event", e.Event, "wave", c.wave)
			},
		},
	)
	return c
}

// Start spawns wave 1.
func (c *Controller) Start(ctx context.Context, w *entity.World, at entity.Stamp) error {
	if c.wave != 0 {
		return fmt.Errorf("wave controller already started")
	}
	return c.spawnWave(ctx, w, 1, at)
}

// Update advances the state machine after collisions have been resolved.
// Player death ends the session immediately, overriding any wave in progress.
func (c *Controller) Update(ctx context.Context, w *entity.World, at entity.Stamp) ([]core.Event, error) {
	if c.Ended() {
		return nil, nil
	}

	if !w.Player.Alive() {
		return nil, c.end(ctx, eventDefeat, core.OutcomeDefeat)
	}

	if c.fsm.Current() != StateInProgress || w.LiveEnemies() > 0 {
		return nil, nil
	}

	if err := c.fsm.Event(ctx, eventClear); err != nil {
		return nil, fmt.Errorf("clearing wave %d: %w", c.wave, err)
	}
	c.completed++

	ev := at.Event(core.EventWaveCompleted)
	ev.Wave = &core.WavePayload{
		Wave:           c.wave,
		ElapsedSeconds: at.Time - c.waveStart,
		Enemies:        c.waveSize,
	}
	events := []core.Event{ev}

	if c.wave >= c.cfg.Waves.FinalWave {
		return events, c.end(ctx, eventFinish, core.OutcomeVictory)
	}

	if err := c.fsm.Event(ctx, eventNext); err != nil {
		return events, fmt.Errorf("advancing past wave %d: %w", c.wave, err)
	}
	return events, c.spawnWave(ctx, w, c.wave+1, at)
}

// Quit ends the session on an external request. It is a no-op once ended.
func (c *Controller) Quit(ctx context.Context) error {
	if c.Ended() {
		return nil
	}
	return c.end(ctx, eventQuit, core.OutcomeQuit)
}

func (c *Controller) end(ctx context.Context, event string, outcome core.Outcome) error {
	c.outcome = outcome
	if err := c.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("ending session (%s): %w", event, err)
	}
	return nil
}

func (c *Controller) spawnWave(ctx context.Context, w *entity.World, n int, at entity.Stamp) error {
	c.wave = n
	c.waveStart = at.Time
	c.waveSize = c.cfg.Waves.WaveSize(n)

	points := c.cfg.Waves.SpawnPoints
	for i := 0; i < c.waveSize; i++ {
		arch := ai.Pursuer
		if every := c.cfg.Waves.SniperEvery; every > 0 && (i+1)%every == 0 {
			arch = ai.Sniper
		}
		sp := points[c.spawned%len(points)]
		c.spawned++
		w.SpawnEnemy(arch, arch.Params(c.cfg), sp.Vec(), n)
	}

	if err := c.fsm.Event(ctx, eventSpawned); err != nil {
		return fmt.Errorf("spawning wave %d: %w", n, err)
	}
	c.logger.Debug("wave spawned", "wave", n, "enemies", c.waveSize)
	return nil
}

// State returns the current state name.
func (c *Controller) State() string { return c.fsm.Current() }

// Ended reports whether the terminal state has been reached.
func (c *Controller) Ended() bool { return c.fsm.Is(StateEnded) }

// Wave returns the current wave number (1-based, 0 before Start).
func (c *Controller) Wave() int { return c.wave }

// WaveSize returns the size of the current wave's cohort.
func (c *Controller) WaveSize() int { return c.waveSize }

// Completed returns the number of cleared waves.
func (c *Controller) Completed() int { return c.completed }

// Outcome returns how the session ended, or OutcomeNone while live.
func (c *Controller) Outcome() core.Outcome { return c.outcome }
