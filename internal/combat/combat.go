// Package combat resolves projectile hits once per tick, after movement.
package combat

import (
	"github.com/arenalab/arena-recorder/internal/entity"
	"github.com/arenalab/arena-recorder/pkg/core"
)

// Player health marks reported on damage_taken, checked highest first.
var thresholds = []struct {
	fraction float64
	label    string
}{
	{0.75, "75%"},
	{0.5, "50%"},
	{0.25, "25%"},
}

// criticalFraction is the health fraction below which critical_health fires.
const criticalFraction = 0.3

// damageable is satisfied by the Player and Enemy variants.
type damageable interface {
	entity.Body
	TakeDamage(amount float64) float64
}

// Resolve tests every live projectile in spawn order against the opposing
// side, then against cover. The first overlap found absorbs the projectile;
// there is no pass-through and no multi-hit. Entities killed here are skipped
// by later projectiles in the same pass.
func Resolve(w *entity.World, at entity.Stamp) []core.Event {
	var events []core.Event

	for _, p := range w.Projectiles {
		if p.Expired {
			continue
		}

		if target := firstTarget(w, p); target != nil {
			p.Expired = true
			events = append(events, hit(target, p, at)...)
			continue
		}

		for i := range w.Covers {
			if entity.Overlaps(p, &w.Covers[i]) {
				p.Expired = true
				break
			}
		}
	}

	return events
}

func firstTarget(w *entity.World, p *entity.Projectile) damageable {
	switch p.Owner {
	case core.OwnerEnemy:
		if w.Player.Alive() && entity.Overlaps(p, w.Player) {
			return w.Player
		}
	case core.OwnerPlayer:
		for _, e := range w.Enemies {
			if e.Alive() && entity.Overlaps(p, e) {
				return e
			}
		}
	}
	return nil
}

func hit(target damageable, p *entity.Projectile, at entity.Stamp) []core.Event {
	amount := target.TakeDamage(p.Damage)

	var victimID uint32
	var health float64
	var archetype string
	switch t := target.(type) {
	case *entity.Player:
		victimID, health = t.ID, t.Health
	case *entity.Enemy:
		victimID, health, archetype = t.ID, t.Health, string(t.Archetype)
	}

	payload := core.DamagePayload{
		VictimID:        victimID,
		AttackerID:      p.OwnerID,
		AttackerOwner:   p.Owner,
		Amount:          amount,
		Position:        target.Pos(),
		HealthRemaining: health,
	}

	var critical *core.CriticalPayload
	if pl, ok := target.(*entity.Player); ok && pl.MaxHealth > 0 {
		before := (pl.Health + amount) / pl.MaxHealth
		after := pl.Health / pl.MaxHealth
		payload.ThresholdCrossed = thresholdCrossed(before, after)
		payload.VictimReloading = pl.Reloading
		if before >= criticalFraction && after < criticalFraction {
			critical = &core.CriticalPayload{Health: pl.Health, Ammo: pl.Ammo, Position: pl.Position}
		}
	}

	taken := at.Event(core.EventDamageTaken)
	takenPayload := payload
	taken.Damage = &takenPayload

	dealt := at.Event(core.EventDamageDealt)
	dealtPayload := payload
	dealt.Damage = &dealtPayload

	events := []core.Event{taken, dealt}

	if critical != nil {
		ev := at.Event(core.EventCriticalHealth)
		ev.Critical = critical
		events = append(events, ev)
	}

	if !target.Alive() {
		kind := core.EventEnemyKilled
		if target.Kind() == entity.KindPlayer {
			kind = core.EventPlayerDied
		}
		kill := at.Event(kind)
		kill.Kill = &core.KillPayload{
			VictimID:   victimID,
			AttackerID: p.OwnerID,
			Archetype:  archetype,
			Position:   target.Pos(),
		}
		events = append(events, kill)
	}

	return events
}

// thresholdCrossed names the first mark, highest first, that a hit moved
// the health fraction onto or below. A hit spanning several marks reports
// only the highest.
func thresholdCrossed(before, after float64) string {
	for _, th := range thresholds {
		if before > th.fraction && after <= th.fraction {
			return th.label
		}
	}
	return ""
}
