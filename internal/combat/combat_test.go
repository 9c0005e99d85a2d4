package combat

import (
	"testing"

	"github.com/arenalab/arena-recorder/internal/ai"
	"github.com/arenalab/arena-recorder/internal/config"
	"github.com/arenalab/arena-recorder/internal/entity"
	"github.com/arenalab/arena-recorder/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = entity.Stamp{Tick: 7, Time: 7.0 / 60}

func newWorld(covers ...config.CoverConfig) (*entity.World, config.SimConfig) {
	cfg := config.DefaultSimConfig()
	cfg.Covers = covers
	return entity.NewWorld(cfg), cfg
}

func TestResolve_PlayerShotHitsEnemy(t *testing.T) {
	w, cfg := newWorld()
	e := w.SpawnEnemy(ai.Pursuer, cfg.Pursuer, core.V(300, 300), 1)
	p := w.SpawnProjectile(core.OwnerPlayer, w.Player.ID, core.V(305, 300), core.V(500, 0), 10, 3, 0)

	events := Resolve(w, at)

	require.Len(t, events, 2)
	assert.Equal(t, core.EventDamageTaken, events[0].Kind)
	assert.Equal(t, core.EventDamageDealt, events[1].Kind)
	for _, ev := range events {
		assert.Equal(t, at.Tick, ev.Tick)
		assert.Equal(t, e.ID, ev.Damage.VictimID)
		assert.Equal(t, w.Player.ID, ev.Damage.AttackerID)
		assert.Equal(t, 10.0, ev.Damage.Amount)
		assert.Equal(t, 20.0, ev.Damage.HealthRemaining)
	}
	assert.NotSame(t, events[0].Damage, events[1].Damage)
	assert.True(t, p.Expired)
	assert.Equal(t, 20.0, e.Health)
}

func TestResolve_FirstEnemyInSpawnOrderWins(t *testing.T) {
	w, cfg := newWorld()
	first := w.SpawnEnemy(ai.Pursuer, cfg.Pursuer, core.V(300, 300), 1)
	second := w.SpawnEnemy(ai.Pursuer, cfg.Pursuer, core.V(310, 300), 1)
	w.SpawnProjectile(core.OwnerPlayer, w.Player.ID, core.V(305, 300), core.V(0, 0), 10, 3, 0)

	events := Resolve(w, at)

	require.Len(t, events, 2)
	assert.Equal(t, first.ID, events[0].Damage.VictimID)
	assert.Equal(t, 20.0, first.Health)
	assert.Equal(t, 30.0, second.Health)
}

func TestResolve_KillSkipsLaterProjectiles(t *testing.T) {
	w, cfg := newWorld()
	e := w.SpawnEnemy(ai.Sniper, cfg.Sniper, core.V(300, 300), 1)
	e.Health = 10
	a := w.SpawnProjectile(core.OwnerPlayer, w.Player.ID, core.V(300, 302), core.V(0, 0), 10, 3, 0)
	b := w.SpawnProjectile(core.OwnerPlayer, w.Player.ID, core.V(300, 298), core.V(0, 0), 10, 3, 0)

	events := Resolve(w, at)

	require.Len(t, events, 3)
	assert.Equal(t, core.EventEnemyKilled, events[2].Kind)
	assert.Equal(t, "sniper", events[2].Kill.Archetype)
	assert.Equal(t, e.ID, events[2].Kill.VictimID)
	assert.True(t, a.Expired)
	assert.False(t, b.Expired, "dead enemy no longer absorbs projectiles")
}

func TestResolve_EnemyShotKillsPlayer(t *testing.T) {
	w, _ := newWorld()
	w.Player.Health = 5
	w.SpawnProjectile(core.OwnerEnemy, 9, w.Player.Position, core.V(0, 0), 15, 3, 0)

	events := Resolve(w, at)

	require.Len(t, events, 3)
	assert.Equal(t, 5.0, events[0].Damage.Amount, "damage is clamped to remaining health")
	assert.Equal(t, core.OwnerEnemy, events[0].Damage.AttackerOwner)
	assert.Equal(t, core.EventPlayerDied, events[2].Kind)
	assert.Equal(t, 0.0, w.Player.Health)
}

func TestResolve_PlayerHealthThresholds(t *testing.T) {
	tests := []struct {
		name      string
		health    float64
		damage    float64
		reloading bool
		want      string
		critical  bool
	}{
		{"above every mark", 100, 10, false, "", false},
		{"onto 75", 80, 5, false, "75%", false},
		{"past 50 while reloading", 55, 10, true, "50%", false},
		{"spanning marks reports highest", 80, 40, false, "75%", false},
		{"into critical", 35, 6, false, "", true},
		{"past 25 and critical", 30, 10, false, "25%", true},
		{"already critical", 20, 5, false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newWorld()
			w.Player.Health = tt.health
			w.Player.Ammo = 4
			w.Player.Reloading = tt.reloading
			w.SpawnProjectile(core.OwnerEnemy, 9, w.Player.Position, core.V(0, 0), tt.damage, 3, 0)

			events := Resolve(w, at)

			require.GreaterOrEqual(t, len(events), 2)
			for _, ev := range events[:2] {
				assert.Equal(t, tt.want, ev.Damage.ThresholdCrossed)
				assert.Equal(t, tt.reloading, ev.Damage.VictimReloading)
			}
			if !tt.critical {
				assert.Len(t, events, 2)
				return
			}
			require.Len(t, events, 3)
			assert.Equal(t, core.EventCriticalHealth, events[2].Kind)
			require.NotNil(t, events[2].Critical)
			assert.Equal(t, w.Player.Health, events[2].Critical.Health)
			assert.Equal(t, 4, events[2].Critical.Ammo)
			assert.Equal(t, w.Player.Position, events[2].Critical.Position)
		})
	}
}

func TestResolve_EnemyDamageCarriesNoThreshold(t *testing.T) {
	w, cfg := newWorld()
	w.SpawnEnemy(ai.Pursuer, cfg.Pursuer, core.V(300, 300), 1)
	w.SpawnProjectile(core.OwnerPlayer, w.Player.ID, core.V(300, 300), core.V(0, 0), 25, 3, 0)

	events := Resolve(w, at)

	require.Len(t, events, 2)
	assert.Empty(t, events[0].Damage.ThresholdCrossed)
	assert.False(t, events[0].Damage.VictimReloading)
}

func TestResolve_CriticalHealthBeforeDeath(t *testing.T) {
	w, _ := newWorld()
	w.Player.Health = 40
	w.SpawnProjectile(core.OwnerEnemy, 9, w.Player.Position, core.V(0, 0), 50, 3, 0)

	events := Resolve(w, at)

	require.Len(t, events, 4)
	assert.Equal(t, "25%", events[0].Damage.ThresholdCrossed)
	assert.Equal(t, core.EventCriticalHealth, events[2].Kind)
	assert.Equal(t, core.EventPlayerDied, events[3].Kind)
}

func TestResolve_NoFriendlyFire(t *testing.T) {
	w, cfg := newWorld()
	e := w.SpawnEnemy(ai.Pursuer, cfg.Pursuer, core.V(300, 300), 1)
	enemyShot := w.SpawnProjectile(core.OwnerEnemy, e.ID, core.V(300, 300), core.V(0, 0), 15, 3, 0)
	playerShot := w.SpawnProjectile(core.OwnerPlayer, w.Player.ID, w.Player.Position, core.V(0, 0), 10, 3, 0)

	assert.Empty(t, Resolve(w, at))
	assert.False(t, enemyShot.Expired)
	assert.False(t, playerShot.Expired)
	assert.Equal(t, 30.0, e.Health)
	assert.Equal(t, 100.0, w.Player.Health)
}

func TestResolve_CoverAbsorbsBothSides(t *testing.T) {
	w, _ := newWorld(config.CoverConfig{X: 200, Y: 200, Radius: 30})
	a := w.SpawnProjectile(core.OwnerPlayer, w.Player.ID, core.V(200, 175), core.V(0, 0), 10, 3, 0)
	b := w.SpawnProjectile(core.OwnerEnemy, 5, core.V(225, 200), core.V(0, 0), 15, 3, 0)
	c := w.SpawnProjectile(core.OwnerEnemy, 5, core.V(100, 100), core.V(0, 0), 15, 3, 0)

	assert.Empty(t, Resolve(w, at))
	assert.True(t, a.Expired)
	assert.True(t, b.Expired)
	assert.False(t, c.Expired)
}

func TestResolve_TargetBeforeCover(t *testing.T) {
	w, cfg := newWorld(config.CoverConfig{X: 300, Y: 330, Radius: 30})
	e := w.SpawnEnemy(ai.Pursuer, cfg.Pursuer, core.V(300, 300), 1)
	w.SpawnProjectile(core.OwnerPlayer, w.Player.ID, core.V(300, 305), core.V(0, 0), 10, 3, 0)

	events := Resolve(w, at)
	require.Len(t, events, 2)
	assert.Equal(t, 20.0, e.Health)
}

func TestResolve_Deterministic(t *testing.T) {
	build := func() *entity.World {
		w, cfg := newWorld(config.CoverConfig{X: 400, Y: 400, Radius: 20})
		for i := 0; i < 4; i++ {
			w.SpawnEnemy(ai.Pursuer, cfg.Pursuer, core.V(300+float64(i)*8, 300), 1)
		}
		for i := 0; i < 6; i++ {
			w.SpawnProjectile(core.OwnerPlayer, w.Player.ID, core.V(300+float64(i)*5, 300), core.V(0, 0), 10, 3, 0)
		}
		return w
	}

	assert.Equal(t, Resolve(build(), at), Resolve(build(), at))
}
