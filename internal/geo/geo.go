package geo

import (
	"errors"
	"fmt"

	"github.com/arenalab/arena-recorder/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// PATHS
// Player paths are stored as XY LineStrings in arena pixel space. There is no
// projection: the arena is flat and SQLite has no spatial awareness, so the
// geometry travels as WKB and is decoded with the inherent parser.

// ErrNotLineString is returned when WKB decodes to something other than a LineString
var ErrNotLineString = errors.New("geometry is not a LineString")

// Path builds a LineString through points in order.
// Fewer than two points yield an empty LineString.
func Path(points []core.Vec2) geom.LineString {
	if len(points) < 2 {
		return geom.LineString{}
	}

	flatCoords := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flatCoords = append(flatCoords, p.X, p.Y)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq)
}

// PathLength returns the length of the path through points, including
// every backtrack.
func PathLength(points []core.Vec2) float64 {
	return Path(points).Length()
}

// FramePath returns the sampled player path of a record.
func FramePath(frames []core.FrameSample) []core.Vec2 {
	points := make([]core.Vec2, len(frames))
	for i, f := range frames {
		points[i] = f.PlayerPosition
	}
	return points
}

// PathWKB encodes the path through points as WKB. Paths with fewer than two
// points encode as nil.
func PathWKB(points []core.Vec2) []byte {
	if len(points) < 2 {
		return nil
	}
	return Path(points).AsBinary()
}

// ParsePathWKB decodes a WKB LineString back into points.
func ParsePathWKB(wkb []byte) ([]core.Vec2, error) {
	if len(wkb) == 0 {
		return nil, nil
	}

	g, err := geom.UnmarshalWKB(wkb)
	if err != nil {
		return nil, fmt.Errorf("failed to parse path WKB: %w", err)
	}

	ls, ok := g.AsLineString()
	if !ok {
		return nil, ErrNotLineString
	}

	seq := ls.Coordinates()
	points := make([]core.Vec2, seq.Length())
	for i := range points {
		xy := seq.GetXY(i)
		points[i] = core.V(xy.X, xy.Y)
	}
	return points, nil
}
