// Package ai holds the stateless per-tick enemy decision logic.
package ai

import (
	"github.com/arenalab/arena-recorder/internal/config"
	"github.com/arenalab/arena-recorder/pkg/core"
)

// Archetype is a named enemy behavior category.
type Archetype string

const (
	Pursuer Archetype = "pursuer"
	Sniper  Archetype = "sniper"
)

// Params returns the archetype's parameters from cfg.
func (a Archetype) Params(cfg config.SimConfig) config.ArchetypeConfig {
	if a == Sniper {
		return cfg.Sniper
	}
	return cfg.Pursuer
}

// Decision is what an enemy wants to do this tick.
type Decision struct {
	Velocity core.Vec2
	Fire     bool
}

// Decide computes an enemy's desired velocity and fire intent from current
// positions only. The cooldown timer is the sole piece of enemy state it reads.
//
// Pursuers always close in. Snipers back off inside MinDistance, close in
// beyond MaxDistance and hold inside the band. Both fire when the target is
// within EngagementRange and the cooldown has elapsed.
func Decide(a Archetype, p config.ArchetypeConfig, self, target core.Vec2, cooldown float64) Decision {
	offset := target.Sub(self)
	dist := offset.Len()
	dir := offset.Normalize()

	var v core.Vec2
	switch a {
	case Sniper:
		switch {
		case dist < p.MinDistance:
			v = dir.Scale(-p.Speed)
		case dist > p.MaxDistance:
			v = dir.Scale(p.Speed)
		}
	default:
		v = dir.Scale(p.Speed)
	}

	return Decision{
		Velocity: v,
		Fire:     cooldown <= 0 && dist > 0 && dist <= p.EngagementRange,
	}
}
