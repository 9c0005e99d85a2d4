package telemetry

import (
	"math"

	"github.com/arenalab/arena-recorder/internal/entity"
	"github.com/arenalab/arena-recorder/pkg/core"
)

// usingCover reports whether some cover centre within maxDist of the player
// sits, as seen from a live enemy, within maxAngle radians of the player.
func usingCover(w *entity.World, maxDist, maxAngle float64) bool {
	pos := w.Player.Position
	for i := range w.Covers {
		c := w.Covers[i].Position
		if pos.Dist(c) > maxDist {
			continue
		}
		for _, e := range w.Enemies {
			if !e.Alive() {
				continue
			}
			if bearingGap(pos.Sub(e.Position), c.Sub(e.Position)) < maxAngle {
				return true
			}
		}
	}
	return false
}

// bearingGap is the absolute angle between a and b, in [0, pi].
func bearingGap(a, b core.Vec2) float64 {
	d := math.Abs(a.Angle() - b.Angle())
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}
