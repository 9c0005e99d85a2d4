// Package entity models the actors of an arena and advances them each tick.
//
// Entities form a closed set of variants tagged by Kind. Every variant
// satisfies Body, and per-variant update logic lives in free functions
// (UpdatePlayer, UpdateEnemy, UpdateProjectile) instead of methods on a
// shared base type.
package entity

import (
	"math"

	"github.com/arenalab/arena-recorder/internal/ai"
	"github.com/arenalab/arena-recorder/pkg/core"
)

// Kind tags an entity variant.
type Kind uint8

const (
	KindPlayer Kind = iota + 1
	KindEnemy
	KindProjectile
	KindCover
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindEnemy:
		return "enemy"
	case KindProjectile:
		return "projectile"
	case KindCover:
		return "cover"
	default:
		return "unknown"
	}
}

// Body is the capability set shared by all variants.
type Body interface {
	Kind() Kind
	Pos() core.Vec2
	CollisionRadius() float64
	Alive() bool
}

// Stamp locates an event in simulation time.
type Stamp struct {
	Tick uint64
	Time float64
}

// Event returns an empty event of the given kind at s.
func (s Stamp) Event(kind core.EventKind) core.Event {
	return core.Event{Kind: kind, Tick: s.Tick, Time: s.Time}
}

// Input is the per-tick player input snapshot.
type Input struct {
	Move   core.Vec2
	Aim    core.Vec2
	Fire   bool
	Reload bool
}

// Player is the single human-controlled actor.
type Player struct {
	ID          uint32
	Position    core.Vec2
	Radius      float64
	Health      float64
	MaxHealth   float64
	Facing      float64
	Cooldown    float64
	Ammo        int
	MaxAmmo     int
	Reloading   bool
	ReloadTimer float64
	Move        core.Vec2
}

func (p *Player) Kind() Kind               { return KindPlayer }
func (p *Player) Pos() core.Vec2           { return p.Position }
func (p *Player) CollisionRadius() float64 { return p.Radius }
func (p *Player) Alive() bool              { return p.Health > 0 }

// TakeDamage subtracts amount clamped to the remaining health and returns
// the damage actually applied.
func (p *Player) TakeDamage(amount float64) float64 {
	applied := math.Min(math.Max(amount, 0), p.Health)
	p.Health -= applied
	return applied
}

// Enemy is an AI-controlled actor.
type Enemy struct {
	ID        uint32
	Archetype ai.Archetype
	Position  core.Vec2
	Radius    float64
	Health    float64
	MaxHealth float64
	Cooldown  float64
	Wave      int
}

func (e *Enemy) Kind() Kind               { return KindEnemy }
func (e *Enemy) Pos() core.Vec2           { return e.Position }
func (e *Enemy) CollisionRadius() float64 { return e.Radius }
func (e *Enemy) Alive() bool              { return e.Health > 0 }

// TakeDamage subtracts amount clamped to the remaining health and returns
// the damage actually applied.
func (e *Enemy) TakeDamage(amount float64) float64 {
	applied := math.Min(math.Max(amount, 0), e.Health)
	e.Health -= applied
	return applied
}

// Projectile is a moving circle owned by one side.
type Projectile struct {
	ID        uint32
	Owner     core.Owner
	OwnerID   uint32
	Position  core.Vec2
	Velocity  core.Vec2
	Damage    float64
	Radius    float64
	SpawnTime float64
	Age       float64
	Expired   bool
}

func (p *Projectile) Kind() Kind               { return KindProjectile }
func (p *Projectile) Pos() core.Vec2           { return p.Position }
func (p *Projectile) CollisionRadius() float64 { return p.Radius }
func (p *Projectile) Alive() bool              { return !p.Expired }

// Cover is a static circular obstacle.
type Cover struct {
	Position core.Vec2
	Radius   float64
}

func (c *Cover) Kind() Kind               { return KindCover }
func (c *Cover) Pos() core.Vec2           { return c.Position }
func (c *Cover) CollisionRadius() float64 { return c.Radius }
func (c *Cover) Alive() bool              { return true }

// Overlaps reports whether two bodies intersect.
func Overlaps(a, b Body) bool {
	return a.Pos().Dist(b.Pos()) < a.CollisionRadius()+b.CollisionRadius()
}
