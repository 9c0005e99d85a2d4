package sim

import (
	"testing"
	"time"

	"github.com/arenalab/arena-recorder/internal/config"
	"github.com/arenalab/arena-recorder/pkg/core"
	"github.com/stretchr/testify/require"
)

// testOption adjusts the config used by newTestSession.
type testOption func(*config.SimConfig)

// withEnemyAt places a single-enemy, single-wave cohort at pos.
func withEnemyAt(x, y float64, sniper bool) testOption {
	return func(c *config.SimConfig) {
		c.Waves.StartingEnemies = 1
		c.Waves.Increment = 0
		c.Waves.MaxEnemies = 1
		c.Waves.FinalWave = 1
		c.Waves.SpawnPoints = []config.PointConfig{{X: x, Y: y}}
		c.Waves.SniperEvery = 0
		if sniper {
			c.Waves.SniperEvery = 1
		}
	}
}

func withoutCover() testOption {
	return func(c *config.SimConfig) { c.Covers = nil }
}

func withConfig(fn func(*config.SimConfig)) testOption {
	return fn
}

var fixedStart = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedStart }

// newTestSession starts a session on the default arena with opts applied.
func newTestSession(t *testing.T, opts ...testOption) *Session {
	t.Helper()
	cfg := config.DefaultSimConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	s, err := StartSession(cfg, WithSessionID("test-session"), WithLabel("test"), WithClock(fixedClock))
	require.NoError(t, err)
	return s
}

// run advances s by n ticks with the same input.
func run(t *testing.T, s *Session, n int, in Input) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.Tick(in, 0))
	}
}

var still = Input{}

func aimRight(fire bool) Input {
	return Input{Aim: core.V(1, 0), Fire: fire}
}
