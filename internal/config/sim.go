package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/arenalab/arena-recorder/pkg/core"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when a SimConfig cannot start a session.
var ErrInvalidConfig = errors.New("invalid simulation config")

// ArenaConfig describes the playfield and the fixed step. MaxStep is the
// largest caller-supplied dt a tick accepts, in seconds.
type ArenaConfig struct {
	Width    float64 `json:"width" mapstructure:"width"`
	Height   float64 `json:"height" mapstructure:"height"`
	TickRate int     `json:"tickRate" mapstructure:"tickRate"`
	MaxStep  float64 `json:"maxStep" mapstructure:"maxStep"`
}

// PlayerConfig holds player movement and weapon parameters. Times are seconds.
type PlayerConfig struct {
	Speed        float64 `json:"speed" mapstructure:"speed"`
	MaxHealth    float64 `json:"maxHealth" mapstructure:"maxHealth"`
	Radius       float64 `json:"radius" mapstructure:"radius"`
	ShotCooldown float64 `json:"shotCooldown" mapstructure:"shotCooldown"`
	MaxAmmo      int     `json:"maxAmmo" mapstructure:"maxAmmo"`
	ReloadTime   float64 `json:"reloadTime" mapstructure:"reloadTime"`
}

// ArchetypeConfig holds the parameters of one enemy archetype.
// MinDistance and MaxDistance bound the band a Sniper holds.
type ArchetypeConfig struct {
	Speed           float64 `json:"speed" mapstructure:"speed"`
	MaxHealth       float64 `json:"maxHealth" mapstructure:"maxHealth"`
	Radius          float64 `json:"radius" mapstructure:"radius"`
	EngagementRange float64 `json:"engagementRange" mapstructure:"engagementRange"`
	ShotCooldown    float64 `json:"shotCooldown" mapstructure:"shotCooldown"`
	MinDistance     float64 `json:"minDistance" mapstructure:"minDistance"`
	MaxDistance     float64 `json:"maxDistance" mapstructure:"maxDistance"`
}

// ProjectileConfig holds projectile parameters for both sides.
type ProjectileConfig struct {
	PlayerSpeed  float64 `json:"playerSpeed" mapstructure:"playerSpeed"`
	EnemySpeed   float64 `json:"enemySpeed" mapstructure:"enemySpeed"`
	PlayerDamage float64 `json:"playerDamage" mapstructure:"playerDamage"`
	EnemyDamage  float64 `json:"enemyDamage" mapstructure:"enemyDamage"`
	Radius       float64 `json:"radius" mapstructure:"radius"`
	Lifetime     float64 `json:"lifetime" mapstructure:"lifetime"`
	BoundsMargin float64 `json:"boundsMargin" mapstructure:"boundsMargin"`
}

// PointConfig is a position in arena space.
type PointConfig struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
}

// Vec returns the point as a core.Vec2.
func (p PointConfig) Vec() core.Vec2 {
	return core.V(p.X, p.Y)
}

// WaveConfig controls wave sizes and progression.
// Every SniperEvery-th spawned enemy is a Sniper; 0 disables snipers.
type WaveConfig struct {
	StartingEnemies int           `json:"startingEnemies" mapstructure:"startingEnemies"`
	Increment       int           `json:"increment" mapstructure:"increment"`
	MaxEnemies      int           `json:"maxEnemies" mapstructure:"maxEnemies"`
	FinalWave       int           `json:"finalWave" mapstructure:"finalWave"`
	SniperEvery     int           `json:"sniperEvery" mapstructure:"sniperEvery"`
	SpawnPoints     []PointConfig `json:"spawnPoints" mapstructure:"spawnPoints"`
}

// TelemetryConfig controls sampling and behavior classification.
//
// Cover is in use when a cover centre lies within UsingCoverDistance of the
// player and, seen from some live enemy, within CoverAngle radians of the
// player's bearing. Threat responses are sampled every ThreatInterval
// simulated seconds; a player slower than StillSpeed (px/s) is defensive.
type TelemetryConfig struct {
	SampleInterval     int     `json:"sampleInterval" mapstructure:"sampleInterval"`
	DirectionThreshold float64 `json:"directionThreshold" mapstructure:"directionThreshold"`
	Epsilon            float64 `json:"epsilon" mapstructure:"epsilon"`
	NearCoverDistance  float64 `json:"nearCoverDistance" mapstructure:"nearCoverDistance"`
	UsingCoverDistance float64 `json:"usingCoverDistance" mapstructure:"usingCoverDistance"`
	CoverAngle         float64 `json:"coverAngle" mapstructure:"coverAngle"`
	ThreatRadius       float64 `json:"threatRadius" mapstructure:"threatRadius"`
	ThreatInterval     float64 `json:"threatInterval" mapstructure:"threatInterval"`
	StillSpeed         float64 `json:"stillSpeed" mapstructure:"stillSpeed"`
	ReloadThreatRadius float64 `json:"reloadThreatRadius" mapstructure:"reloadThreatRadius"`
}

// CoverConfig is a static circular obstacle.
type CoverConfig struct {
	X      float64 `json:"x" mapstructure:"x"`
	Y      float64 `json:"y" mapstructure:"y"`
	Radius float64 `json:"radius" mapstructure:"radius"`
}

// SimConfig is everything a session needs. Nothing in the core is hardcoded.
type SimConfig struct {
	Arena      ArenaConfig      `json:"arena" mapstructure:"arena"`
	Player     PlayerConfig     `json:"player" mapstructure:"player"`
	Pursuer    ArchetypeConfig  `json:"pursuer" mapstructure:"pursuer"`
	Sniper     ArchetypeConfig  `json:"sniper" mapstructure:"sniper"`
	Projectile ProjectileConfig `json:"projectile" mapstructure:"projectile"`
	Waves      WaveConfig       `json:"waves" mapstructure:"waves"`
	Telemetry  TelemetryConfig  `json:"telemetry" mapstructure:"telemetry"`
	Covers     []CoverConfig    `json:"covers" mapstructure:"covers"`
}

// DefaultSimConfig returns the stock arena: 1024x768 at 60 ticks per second,
// ten waves growing from three to six enemies, six cover obstacles.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Arena: ArenaConfig{Width: 1024, Height: 768, TickRate: 60, MaxStep: 1},
		Player: PlayerConfig{
			Speed:        200,
			MaxHealth:    100,
			Radius:       15,
			ShotCooldown: 0.2,
			MaxAmmo:      30,
			ReloadTime:   1.5,
		},
		Pursuer: ArchetypeConfig{
			Speed:           80,
			MaxHealth:       30,
			Radius:          12,
			EngagementRange: 200,
			ShotCooldown:    1.5,
		},
		Sniper: ArchetypeConfig{
			Speed:           40,
			MaxHealth:       30,
			Radius:          12,
			EngagementRange: 450,
			ShotCooldown:    2.5,
			MinDistance:     150,
			MaxDistance:     300,
		},
		Projectile: ProjectileConfig{
			PlayerSpeed:  500,
			EnemySpeed:   300,
			PlayerDamage: 10,
			EnemyDamage:  15,
			Radius:       3,
			Lifetime:     3,
			BoundsMargin: 20,
		},
		Waves: WaveConfig{
			StartingEnemies: 3,
			Increment:       1,
			MaxEnemies:      6,
			FinalWave:       10,
			SniperEvery:     3,
			SpawnPoints: []PointConfig{
				{X: 50, Y: 50}, {X: 974, Y: 50}, {X: 974, Y: 718},
				{X: 50, Y: 718}, {X: 512, Y: 40}, {X: 512, Y: 728},
			},
		},
		Telemetry: TelemetryConfig{
			SampleInterval:     10,
			DirectionThreshold: 0.3,
			Epsilon:            1e-3,
			NearCoverDistance:  50,
			UsingCoverDistance: 100,
			CoverAngle:         0.785,
			ThreatRadius:       250,
			ThreatInterval:     2,
			StillSpeed:         30,
			ReloadThreatRadius: 200,
		},
		Covers: []CoverConfig{
			{X: 230, Y: 210, Radius: 30},
			{X: 810, Y: 190, Radius: 30},
			{X: 190, Y: 615, Radius: 35},
			{X: 720, Y: 570, Radius: 25},
			{X: 515, Y: 330, Radius: 30},
			{X: 335, Y: 462, Radius: 30},
		},
	}
}

// Sim overlays the "sim" section of the loaded config onto DefaultSimConfig.
// List values in the file replace the defaults rather than merging with them.
func Sim() (SimConfig, error) {
	cfg := DefaultSimConfig()
	if viper.IsSet("sim.covers") {
		cfg.Covers = nil
	}
	if viper.IsSet("sim.waves.spawnPoints") {
		cfg.Waves.SpawnPoints = nil
	}
	if err := viper.UnmarshalKey("sim", &cfg); err != nil {
		return SimConfig{}, fmt.Errorf("error decoding sim config: %w", err)
	}
	return cfg, nil
}

// WaveSize returns the number of enemies spawned for wave w (1-based).
func (c WaveConfig) WaveSize(w int) int {
	n := c.StartingEnemies + c.Increment*(w-1)
	return min(n, c.MaxEnemies)
}

// FixedStep returns the duration of one tick in seconds.
func (c SimConfig) FixedStep() float64 {
	return 1 / float64(c.Arena.TickRate)
}

// Validate reports every invalid parameter combination, wrapped in ErrInvalidConfig.
func (c SimConfig) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Arena.Width > 0 && c.Arena.Height > 0, "arena size must be positive, got %vx%v", c.Arena.Width, c.Arena.Height)
	check(c.Arena.TickRate > 0, "tick rate must be positive, got %d", c.Arena.TickRate)
	check(c.Arena.MaxStep > 0 && !math.IsInf(c.Arena.MaxStep, 0), "max step must be positive and finite, got %v", c.Arena.MaxStep)

	check(c.Player.Speed >= 0, "player speed must not be negative")
	check(c.Player.MaxHealth > 0, "player max health must be positive")
	check(c.Player.Radius > 0, "player radius must be positive")
	check(2*c.Player.Radius <= min(c.Arena.Width, c.Arena.Height), "player does not fit in the arena")
	check(c.Player.ShotCooldown >= 0, "player shot cooldown must not be negative")
	check(c.Player.MaxAmmo > 0, "player max ammo must be positive")
	check(c.Player.ReloadTime >= 0, "player reload time must not be negative")

	archetypes := []struct {
		name string
		cfg  ArchetypeConfig
	}{{"pursuer", c.Pursuer}, {"sniper", c.Sniper}}
	for _, at := range archetypes {
		name, a := at.name, at.cfg
		check(a.Speed >= 0, "%s speed must not be negative", name)
		check(a.MaxHealth > 0, "%s max health must be positive", name)
		check(a.Radius > 0, "%s radius must be positive", name)
		check(a.EngagementRange >= 0, "%s engagement range must not be negative", name)
		check(a.ShotCooldown >= 0, "%s shot cooldown must not be negative", name)
	}
	check(c.Sniper.MinDistance >= 0 && c.Sniper.MinDistance <= c.Sniper.MaxDistance,
		"sniper band must satisfy 0 <= min <= max, got [%v, %v]", c.Sniper.MinDistance, c.Sniper.MaxDistance)

	p := c.Projectile
	check(p.PlayerSpeed > 0 && p.EnemySpeed > 0, "projectile speeds must be positive")
	check(p.PlayerDamage >= 0 && p.EnemyDamage >= 0, "projectile damage must not be negative")
	check(p.Radius > 0, "projectile radius must be positive")
	check(p.Lifetime > 0, "projectile lifetime must be positive")
	check(p.BoundsMargin >= 0, "projectile bounds margin must not be negative")

	w := c.Waves
	check(w.StartingEnemies >= 1, "starting enemies must be at least 1, got %d", w.StartingEnemies)
	check(w.Increment >= 0, "wave increment must not be negative")
	check(w.MaxEnemies >= w.StartingEnemies, "max enemies (%d) below starting enemies (%d)", w.MaxEnemies, w.StartingEnemies)
	check(w.FinalWave >= 1, "final wave must be at least 1, got %d", w.FinalWave)
	check(w.SniperEvery >= 0, "sniperEvery must not be negative")
	check(len(w.SpawnPoints) > 0, "at least one spawn point is required")
	for i, sp := range w.SpawnPoints {
		check(sp.X >= 0 && sp.X <= c.Arena.Width && sp.Y >= 0 && sp.Y <= c.Arena.Height,
			"spawn point %d (%v, %v) outside arena", i, sp.X, sp.Y)
	}

	t := c.Telemetry
	check(t.SampleInterval >= 1, "sample interval must be at least 1 tick")
	check(t.DirectionThreshold >= 0 && t.DirectionThreshold < 1, "direction threshold must be in [0, 1)")
	check(t.Epsilon > 0, "epsilon must be positive")
	check(t.NearCoverDistance >= 0, "near cover distance must not be negative")
	check(t.UsingCoverDistance >= 0, "using cover distance must not be negative")
	check(t.CoverAngle >= 0 && t.CoverAngle <= math.Pi, "cover angle must be in [0, pi]")
	check(t.ThreatRadius >= 0 && t.ReloadThreatRadius >= 0, "threat radii must not be negative")
	check(t.ThreatInterval > 0, "threat interval must be positive")
	check(t.StillSpeed >= 0, "still speed must not be negative")

	for i, cv := range c.Covers {
		check(cv.Radius > 0, "cover %d radius must be positive", i)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
