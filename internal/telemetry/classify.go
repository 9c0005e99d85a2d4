package telemetry

import "github.com/arenalab/arena-recorder/pkg/core"

// Classify labels one tick of movement relative to the nearest threat.
//
// delta is the player's movement since the previous tick and toEnemy the
// offset from the player to the nearest live enemy. If either is shorter
// than eps the tick is Neutral. Otherwise the cosine between them decides:
// above threshold is Pursuing, below -threshold is Retreating. The result
// depends only on directions, so scaling either vector does not change it.
func Classify(delta, toEnemy core.Vec2, threshold, eps float64) core.Direction {
	if delta.Len() < eps || toEnemy.Len() < eps {
		return core.DirectionNeutral
	}

	cos := delta.Normalize().Dot(toEnemy.Normalize())
	switch {
	case cos > threshold:
		return core.DirectionPursuing
	case cos < -threshold:
		return core.DirectionRetreating
	default:
		return core.DirectionNeutral
	}
}
