package sim

import "github.com/arenalab/arena-recorder/pkg/core"

// Status is a point-in-time summary of a live session.
type Status struct {
	SessionID string       `json:"session_id"`
	Label     string       `json:"label"`
	Tick      uint64       `json:"tick"`
	Time      float64      `json:"time"`
	Wave      int          `json:"wave"`
	State     string       `json:"state"`
	Health    float64      `json:"health"`
	Ammo      int          `json:"ammo"`
	Enemies   int          `json:"enemies"`
	Position  core.Vec2    `json:"position"`
	Reloading bool         `json:"reloading"`
	Outcome   core.Outcome `json:"outcome,omitempty"`
	Stats     core.Stats   `json:"stats"`

	// NearestEnemy is the closest live enemy; nil when none is alive.
	NearestEnemy *core.Vec2 `json:"nearest_enemy,omitempty"`
}

// Status returns the current session status.
func (s *Session) Status() Status {
	p := s.world.Player
	st := Status{
		SessionID: s.id,
		Label:     s.label,
		Tick:      s.tick,
		Time:      s.elapsed,
		Wave:      s.waves.Wave(),
		State:     s.waves.State(),
		Health:    p.Health,
		Ammo:      p.Ammo,
		Enemies:   s.world.LiveEnemies(),
		Position:  p.Position,
		Reloading: p.Reloading,
		Outcome:   s.waves.Outcome(),
		Stats:     s.telemetry.Stats(),
	}
	if e, _, ok := s.world.NearestEnemy(p.Position); ok {
		pos := e.Position
		st.NearestEnemy = &pos
	}
	return st
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// CurrentTick returns the number of ticks advanced so far.
func (s *Session) CurrentTick() uint64 { return s.tick }

// Wave returns the current wave number.
func (s *Session) Wave() int { return s.waves.Wave() }
