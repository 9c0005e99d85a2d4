package entity

import (
	"math"
	"testing"

	"github.com/arenalab/arena-recorder/internal/ai"
	"github.com/arenalab/arena-recorder/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 60.0

func TestUpdatePlayer_MovesAtConfiguredSpeed(t *testing.T) {
	w, cfg := emptyWorld()
	start := w.Player.Position

	// Diagonal input is normalized so speed does not exceed the configured value.
	UpdatePlayer(w, Input{Move: core.V(1, 1)}, cfg, 1, Stamp{Tick: 1, Time: 1})

	assert.InDelta(t, cfg.Player.Speed, w.Player.Position.Dist(start), 1e-9)
}

func TestUpdatePlayer_FireSpawnsProjectile(t *testing.T) {
	w, cfg := emptyWorld()

	events := UpdatePlayer(w, Input{Aim: core.V(0, -1), Fire: true}, cfg, dt, Stamp{Tick: 1, Time: dt})

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, core.EventShotFired, ev.Kind)
	require.NotNil(t, ev.Shot)
	assert.Equal(t, cfg.Player.MaxAmmo-1, ev.Shot.AmmoRemaining)
	assert.InDelta(t, -math.Pi/2, ev.Shot.Angle, 1e-12)

	require.Len(t, w.Projectiles, 1)
	p := w.Projectiles[0]
	assert.Equal(t, core.OwnerPlayer, p.Owner)
	assert.Equal(t, w.Player.ID, p.OwnerID)
	assert.InDelta(t, -cfg.Projectile.PlayerSpeed, p.Velocity.Y, 1e-9)
	assert.Equal(t, cfg.Player.ShotCooldown, w.Player.Cooldown)

	// Still cooling down on the next tick.
	events = UpdatePlayer(w, Input{Aim: core.V(0, -1), Fire: true}, cfg, dt, Stamp{Tick: 2, Time: 2 * dt})
	assert.Empty(t, events)
	assert.Len(t, w.Projectiles, 1)
}

func TestUpdatePlayer_ReloadCycle(t *testing.T) {
	w, cfg := emptyWorld()
	cfg.Player.ReloadTime = 0.5
	w.Player.Ammo = 3

	events := UpdatePlayer(w, Input{Reload: true}, cfg, dt, Stamp{Tick: 1})
	require.Len(t, events, 1)
	assert.Equal(t, core.EventReloadStarted, events[0].Kind)
	assert.Equal(t, 3, events[0].Reload.Ammo)
	require.NotNil(t, events[0].Reload.EnemiesNearby)
	assert.Zero(t, *events[0].Reload.EnemiesNearby)

	events = UpdatePlayer(w, Input{Fire: true}, cfg, 0.25, Stamp{Tick: 2})
	assert.Empty(t, events, "cannot fire while reloading")

	events = UpdatePlayer(w, Input{}, cfg, 0.3, Stamp{Tick: 3})
	require.Len(t, events, 1)
	assert.Equal(t, core.EventReloadCompleted, events[0].Kind)
	assert.Equal(t, cfg.Player.MaxAmmo, w.Player.Ammo)
	assert.False(t, w.Player.Reloading)
	assert.Nil(t, events[0].Reload.EnemiesNearby)
}

func TestUpdatePlayer_ReloadCountsNearbyEnemies(t *testing.T) {
	w, cfg := emptyWorld()
	w.Player.Ammo = 0
	at := w.Player.Position

	w.SpawnEnemy(ai.Pursuer, cfg.Pursuer, at.Add(core.V(100, 0)), 1)
	w.SpawnEnemy(ai.Pursuer, cfg.Pursuer, at.Add(core.V(0, 199)), 1)
	w.SpawnEnemy(ai.Sniper, cfg.Sniper, at.Add(core.V(-250, 0)), 1)
	dead := w.SpawnEnemy(ai.Pursuer, cfg.Pursuer, at.Add(core.V(0, -50)), 1)
	dead.Health = 0

	events := UpdatePlayer(w, Input{Fire: true}, cfg, dt, Stamp{Tick: 1})
	require.Len(t, events, 1)
	assert.Equal(t, core.EventReloadStarted, events[0].Kind)
	require.NotNil(t, events[0].Reload.EnemiesNearby)
	assert.Equal(t, 2, *events[0].Reload.EnemiesNearby)
}

func TestUpdatePlayer_FullMagazineIgnoresReload(t *testing.T) {
	w, cfg := emptyWorld()
	assert.Empty(t, UpdatePlayer(w, Input{Reload: true}, cfg, dt, Stamp{Tick: 1}))
	assert.False(t, w.Player.Reloading)
}

func TestUpdatePlayer_DeadPlayerIsInert(t *testing.T) {
	w, cfg := emptyWorld()
	w.Player.Health = 0
	pos := w.Player.Position

	assert.Nil(t, UpdatePlayer(w, Input{Move: core.V(1, 0), Fire: true}, cfg, dt, Stamp{Tick: 1}))
	assert.Equal(t, pos, w.Player.Position)
	assert.Empty(t, w.Projectiles)
}

func TestUpdateEnemy_FiresWhenReady(t *testing.T) {
	w, cfg := emptyWorld()
	e := w.SpawnEnemy(ai.Pursuer, cfg.Pursuer, w.Player.Position.Add(core.V(100, 0)), 1)

	UpdateEnemy(w, e, cfg, dt, Stamp{Tick: 1})
	assert.Empty(t, w.Projectiles, "spawned on cooldown")

	e.Cooldown = 0
	UpdateEnemy(w, e, cfg, dt, Stamp{Tick: 2})
	require.Len(t, w.Projectiles, 1)
	p := w.Projectiles[0]
	assert.Equal(t, core.OwnerEnemy, p.Owner)
	assert.Equal(t, e.ID, p.OwnerID)
	assert.Less(t, p.Velocity.X, 0.0)
	assert.Equal(t, cfg.Pursuer.ShotCooldown, e.Cooldown)
}

func TestUpdateEnemy_IdlesAfterPlayerDeath(t *testing.T) {
	w, cfg := emptyWorld()
	e := w.SpawnEnemy(ai.Pursuer, cfg.Pursuer, core.V(100, 100), 1)
	e.Cooldown = 0
	w.Player.Health = 0

	UpdateEnemy(w, e, cfg, dt, Stamp{Tick: 1})
	assert.Equal(t, core.V(100, 100), e.Position)
	assert.Empty(t, w.Projectiles)
}

func TestUpdateProjectile_Expiry(t *testing.T) {
	w, cfg := emptyWorld()

	aging := w.SpawnProjectile(core.OwnerPlayer, 1, core.V(500, 300), core.V(0, 0), 10, 3, 0)
	leaving := w.SpawnProjectile(core.OwnerPlayer, 1, core.V(1040, 300), core.V(600, 0), 10, 3, 0)

	UpdateProjectile(w, leaving, cfg.Projectile, dt)
	assert.True(t, leaving.Expired)

	for i := 0; i < 170; i++ {
		UpdateProjectile(w, aging, cfg.Projectile, dt)
	}
	assert.False(t, aging.Expired)
	for i := 0; i < 20; i++ {
		UpdateProjectile(w, aging, cfg.Projectile, dt)
	}
	assert.True(t, aging.Expired)
}
