// Package botplayer drives sessions headlessly with scripted input policies.
// Each policy plays one recognizable style so recorded sessions carry a
// meaningful label.
package botplayer

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/arenalab/arena-recorder/internal/sim"
	"github.com/arenalab/arena-recorder/pkg/core"
)

// ErrUnknownPolicy is returned by New for an unregistered policy name.
var ErrUnknownPolicy = errors.New("unknown bot policy")

// Policy turns the current session status into the next tick's input.
type Policy interface {
	Name() string
	Next(st sim.Status) sim.Input
}

var registry = map[string]func(*rand.Rand) Policy{
	"aggressive": func(*rand.Rand) Policy { return &Aggressive{} },
	"defensive":  func(*rand.Rand) Policy { return &Defensive{SafeDistance: 250, ReloadBelow: 10} },
	"chaotic":    func(r *rand.Rand) Policy { return &Chaotic{rng: r, Hold: 20} },
}

// Names returns the registered policy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New returns the named policy. rng is only used by randomized policies.
func New(name string, rng *rand.Rand) (Policy, error) {
	mk, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownPolicy, name, Names())
	}
	return mk(rng), nil
}

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) // #nosec G404 -- bot inputs, not security
}

// toward returns the unit vector from the player to the nearest enemy.
func toward(st sim.Status) (core.Vec2, bool) {
	if st.NearestEnemy == nil {
		return core.Vec2{}, false
	}
	d := st.NearestEnemy.Sub(st.Position)
	if d.IsZero() {
		return core.Vec2{}, false
	}
	return d.Normalize(), true
}

// Aggressive closes in on the nearest enemy and fires continuously.
type Aggressive struct{}

// Name returns "aggressive".
func (*Aggressive) Name() string { return "aggressive" }

// Next moves and aims at the nearest enemy.
func (*Aggressive) Next(st sim.Status) sim.Input {
	dir, ok := toward(st)
	if !ok {
		return sim.Input{Reload: st.Ammo == 0}
	}
	return sim.Input{
		Move:   dir,
		Aim:    dir,
		Fire:   st.Ammo > 0,
		Reload: st.Ammo == 0 && !st.Reloading,
	}
}

// Defensive backs away inside SafeDistance, strafes outside it and reloads early.
type Defensive struct {
	SafeDistance float64
	ReloadBelow  int
}

// Name returns "defensive".
func (*Defensive) Name() string { return "defensive" }

// Next keeps distance from the nearest enemy while shooting at it.
func (d *Defensive) Next(st sim.Status) sim.Input {
	dir, ok := toward(st)
	if !ok {
		return sim.Input{Reload: st.Ammo < d.ReloadBelow && !st.Reloading}
	}

	in := sim.Input{Aim: dir}
	if st.NearestEnemy.Dist(st.Position) < d.SafeDistance {
		in.Move = dir.Scale(-1)
	} else {
		in.Move = core.V(-dir.Y, dir.X)
	}
	in.Fire = st.Ammo > 0
	in.Reload = st.Ammo < d.ReloadBelow && !st.Reloading && st.NearestEnemy.Dist(st.Position) >= d.SafeDistance
	return in
}

// Chaotic picks a new random heading every Hold ticks and sprays shots.
type Chaotic struct {
	Hold int

	rng     *rand.Rand
	heading core.Vec2
	left    int
}

// Name returns "chaotic".
func (*Chaotic) Name() string { return "chaotic" }

// Next keeps the current heading until it expires, with jittered aim.
func (c *Chaotic) Next(st sim.Status) sim.Input {
	if c.rng == nil {
		c.rng = NewRand(0)
	}
	if c.left <= 0 {
		c.heading = core.FromAngle(c.rng.Float64() * 2 * math.Pi)
		c.left = c.Hold
	}
	c.left--

	aim := core.FromAngle(c.rng.Float64() * 2 * math.Pi)
	if dir, ok := toward(st); ok {
		jitter := (c.rng.Float64() - 0.5) * math.Pi / 2
		aim = core.FromAngle(dir.Angle() + jitter)
	}

	return sim.Input{
		Move:   c.heading,
		Aim:    aim,
		Fire:   c.rng.IntN(2) == 0,
		Reload: !st.Reloading && st.Ammo < 30 && c.rng.IntN(40) == 0,
	}
}
