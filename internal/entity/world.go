package entity

import (
	"math"

	"github.com/arenalab/arena-recorder/internal/ai"
	"github.com/arenalab/arena-recorder/internal/config"
	"github.com/arenalab/arena-recorder/pkg/core"
)

// World owns every entity of one session. Slices are kept in spawn order.
type World struct {
	Width       float64
	Height      float64
	Player      *Player
	Enemies     []*Enemy
	Projectiles []*Projectile
	Covers      []Cover

	nextID uint32
}

// NewWorld creates an arena with the player at its center and the configured cover.
func NewWorld(cfg config.SimConfig) *World {
	w := &World{
		Width:  cfg.Arena.Width,
		Height: cfg.Arena.Height,
	}
	w.Player = &Player{
		ID:        w.NextID(),
		Position:  core.V(cfg.Arena.Width/2, cfg.Arena.Height/2),
		Radius:    cfg.Player.Radius,
		Health:    cfg.Player.MaxHealth,
		MaxHealth: cfg.Player.MaxHealth,
		Ammo:      cfg.Player.MaxAmmo,
		MaxAmmo:   cfg.Player.MaxAmmo,
	}
	for _, c := range cfg.Covers {
		w.Covers = append(w.Covers, Cover{Position: core.V(c.X, c.Y), Radius: c.Radius})
	}
	return w
}

// NextID returns the next entity id. Ids grow in spawn order.
func (w *World) NextID() uint32 {
	w.nextID++
	return w.nextID
}

// SpawnEnemy adds an enemy of archetype a. It starts with a full cooldown so
// a fresh cohort does not open fire on its first tick.
func (w *World) SpawnEnemy(a ai.Archetype, params config.ArchetypeConfig, pos core.Vec2, wave int) *Enemy {
	e := &Enemy{
		ID:        w.NextID(),
		Archetype: a,
		Position:  w.clamp(pos, params.Radius),
		Radius:    params.Radius,
		Health:    params.MaxHealth,
		MaxHealth: params.MaxHealth,
		Cooldown:  params.ShotCooldown,
		Wave:      wave,
	}
	w.Enemies = append(w.Enemies, e)
	return e
}

// SpawnProjectile adds a projectile travelling with velocity vel.
func (w *World) SpawnProjectile(owner core.Owner, ownerID uint32, pos, vel core.Vec2, damage, radius, now float64) *Projectile {
	p := &Projectile{
		ID:        w.NextID(),
		Owner:     owner,
		OwnerID:   ownerID,
		Position:  pos,
		Velocity:  vel,
		Damage:    damage,
		Radius:    radius,
		SpawnTime: now,
	}
	w.Projectiles = append(w.Projectiles, p)
	return p
}

// LiveEnemies returns the number of enemies still alive.
func (w *World) LiveEnemies() int {
	n := 0
	for _, e := range w.Enemies {
		if e.Alive() {
			n++
		}
	}
	return n
}

// EnemiesWithin counts live enemies closer than r to pos.
func (w *World) EnemiesWithin(pos core.Vec2, r float64) int {
	n := 0
	for _, e := range w.Enemies {
		if e.Alive() && pos.Dist(e.Position) < r {
			n++
		}
	}
	return n
}

// NearestEnemy returns the closest live enemy to pos.
func (w *World) NearestEnemy(pos core.Vec2) (*Enemy, float64, bool) {
	var nearest *Enemy
	best := math.Inf(1)
	for _, e := range w.Enemies {
		if !e.Alive() {
			continue
		}
		if d := pos.Dist(e.Position); d < best {
			best, nearest = d, e
		}
	}
	return nearest, best, nearest != nil
}

// NearestCover returns the distance from pos to the edge of the closest
// cover, floored at zero.
func (w *World) NearestCover(pos core.Vec2) (float64, bool) {
	if len(w.Covers) == 0 {
		return 0, false
	}
	best := math.Inf(1)
	for _, c := range w.Covers {
		best = math.Min(best, math.Max(0, pos.Dist(c.Position)-c.Radius))
	}
	return best, true
}

// Move returns pos displaced by delta for a circle of radius r. Moves into
// cover slide along whichever axis is free; the result is clamped to the arena.
// A non-finite delta leaves pos unchanged.
func (w *World) Move(pos core.Vec2, r float64, delta core.Vec2) core.Vec2 {
	if delta.IsZero() || !delta.IsFinite() {
		return pos
	}
	candidates := []core.Vec2{delta, core.V(delta.X, 0), core.V(0, delta.Y)}
	for _, d := range candidates {
		if d.IsZero() {
			continue
		}
		next := w.clamp(pos.Add(d), r)
		if !w.blocked(pos, next, r) {
			return next
		}
	}
	return pos
}

// blocked reports whether moving from pos to next pushes a circle of radius r
// deeper into any cover. Moves out of an overlap are always allowed.
func (w *World) blocked(pos, next core.Vec2, r float64) bool {
	for _, c := range w.Covers {
		dn := next.Dist(c.Position)
		if dn < c.Radius+r && dn < pos.Dist(c.Position) {
			return true
		}
	}
	return false
}

func (w *World) clamp(pos core.Vec2, r float64) core.Vec2 {
	return core.Clamp(pos, core.V(r, r), core.V(w.Width-r, w.Height-r))
}

// InBounds reports whether pos lies inside the arena grown by margin.
func (w *World) InBounds(pos core.Vec2, margin float64) bool {
	return pos.X >= -margin && pos.X <= w.Width+margin &&
		pos.Y >= -margin && pos.Y <= w.Height+margin
}

// Compact removes dead enemies and expired projectiles, keeping spawn order.
// It is the only place entities leave the world and runs once at end of tick.
func (w *World) Compact() {
	w.Enemies = sweep(w.Enemies)
	w.Projectiles = sweep(w.Projectiles)
}

func sweep[T Body](items []T) []T {
	kept := items[:0]
	for _, it := range items {
		if it.Alive() {
			kept = append(kept, it)
		}
	}
	clear(items[len(kept):])
	return kept
}

// Bodies returns every entity in a fixed order: player, enemies, projectiles, cover.
func (w *World) Bodies() []Body {
	bodies := make([]Body, 0, 1+len(w.Enemies)+len(w.Projectiles)+len(w.Covers))
	bodies = append(bodies, w.Player)
	for _, e := range w.Enemies {
		bodies = append(bodies, e)
	}
	for _, p := range w.Projectiles {
		bodies = append(bodies, p)
	}
	for i := range w.Covers {
		bodies = append(bodies, &w.Covers[i])
	}
	return bodies
}
