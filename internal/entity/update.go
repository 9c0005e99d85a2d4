package entity

import (
	"math"

	"github.com/arenalab/arena-recorder/internal/ai"
	"github.com/arenalab/arena-recorder/internal/config"
	"github.com/arenalab/arena-recorder/pkg/core"
)

// UpdatePlayer advances the player by one tick and returns the player-side
// events it produced (shots and reloads). A dead player is left untouched.
func UpdatePlayer(w *World, in Input, cfg config.SimConfig, dt float64, at Stamp) []core.Event {
	p := w.Player
	if !p.Alive() {
		return nil
	}

	var events []core.Event

	p.Move = in.Move
	step := in.Move.Normalize().Scale(cfg.Player.Speed * dt)
	p.Position = w.Move(p.Position, p.Radius, step)

	if !in.Aim.IsZero() {
		p.Facing = in.Aim.Angle()
	}
	p.Cooldown = math.Max(0, p.Cooldown-dt)

	if p.Reloading {
		p.ReloadTimer -= dt
		if p.ReloadTimer <= 0 {
			p.Reloading = false
			p.ReloadTimer = 0
			p.Ammo = p.MaxAmmo
			ev := at.Event(core.EventReloadCompleted)
			ev.Reload = &core.ReloadPayload{Ammo: p.Ammo}
			events = append(events, ev)
		}
	} else if p.Ammo < p.MaxAmmo && (in.Reload || (in.Fire && p.Ammo == 0)) {
		p.Reloading = true
		p.ReloadTimer = cfg.Player.ReloadTime
		nearby := w.EnemiesWithin(p.Position, cfg.Telemetry.ReloadThreatRadius)
		ev := at.Event(core.EventReloadStarted)
		ev.Reload = &core.ReloadPayload{Ammo: p.Ammo, EnemiesNearby: &nearby}
		events = append(events, ev)
	}

	if in.Fire && p.Cooldown <= 0 && !p.Reloading && p.Ammo > 0 {
		vel := core.FromAngle(p.Facing).Scale(cfg.Projectile.PlayerSpeed)
		w.SpawnProjectile(core.OwnerPlayer, p.ID, p.Position, vel,
			cfg.Projectile.PlayerDamage, cfg.Projectile.Radius, at.Time)
		p.Ammo--
		p.Cooldown = cfg.Player.ShotCooldown

		ev := at.Event(core.EventShotFired)
		ev.Shot = &core.ShotPayload{
			Position:      p.Position,
			Angle:         p.Facing,
			AmmoRemaining: p.Ammo,
		}
		events = append(events, ev)
	}

	return events
}

// UpdateEnemy asks the decision logic what e wants, moves it and fires a
// projectile at the player when the decision says so. Enemies idle once the
// player is dead.
func UpdateEnemy(w *World, e *Enemy, cfg config.SimConfig, dt float64, at Stamp) {
	target := w.Player
	if !e.Alive() || !target.Alive() {
		return
	}

	params := e.Archetype.Params(cfg)
	e.Cooldown = math.Max(0, e.Cooldown-dt)

	d := ai.Decide(e.Archetype, params, e.Position, target.Position, e.Cooldown)
	e.Position = w.Move(e.Position, e.Radius, d.Velocity.Scale(dt))

	if d.Fire {
		dir := target.Position.Sub(e.Position).Normalize()
		if dir.IsZero() {
			return
		}
		w.SpawnProjectile(core.OwnerEnemy, e.ID, e.Position, dir.Scale(cfg.Projectile.EnemySpeed),
			cfg.Projectile.EnemyDamage, cfg.Projectile.Radius, at.Time)
		e.Cooldown = params.ShotCooldown
	}
}

// UpdateProjectile integrates p and expires it once it outlives its lifetime
// or leaves the arena by more than the bounds margin.
func UpdateProjectile(w *World, p *Projectile, cfg config.ProjectileConfig, dt float64) {
	if p.Expired {
		return
	}
	p.Position = p.Position.Add(p.Velocity.Scale(dt))
	p.Age += dt
	if p.Age > cfg.Lifetime || !w.InBounds(p.Position, cfg.BoundsMargin) {
		p.Expired = true
	}
}
