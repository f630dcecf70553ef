package nkdvprep

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
)

const (
	// DEFAULT_DIRECTION_TOLERANCE is tolerance (in coordinate units) for comparing geometry start and node coordinate
	DEFAULT_DIRECTION_TOLERANCE = 1e-5
)

// DirectionTest decides whether stored geometry of an edge runs from V to U and so has to be reversed
type DirectionTest interface {
	// Reversed is called with geometry of an edge and coordinates of its U and V nodes.
	// Second value is false when geometry matches none of its endpoints
	Reversed(geom orb.LineString, u, v orb.Point) (bool, bool)
}

// XTolerance compares X-coordinate of geometry ends with X-coordinate of U.
//
// Note: when both endpoints share X (vertical edge) geometry is never reversed
type XTolerance struct {
	Tolerance float64
}

// Reversed implements DirectionTest
func (test XTolerance) Reversed(geom orb.LineString, u, v orb.Point) (bool, bool) {
	first := geom[0]
	last := geom[len(geom)-1]
	if math.Abs(first.X()-u.X()) <= test.Tolerance {
		return false, true
	}
	if math.Abs(last.X()-u.X()) <= test.Tolerance {
		return true, true
	}
	return false, false
}

// EndpointDistance reverses geometry when its last point is strictly closer to U than its first point is
type EndpointDistance struct{}

// Reversed implements DirectionTest
func (test EndpointDistance) Reversed(geom orb.LineString, u, v orb.Point) (bool, bool) {
	first := planar.DistanceSquared(geom[0], u)
	last := planar.DistanceSquared(geom[len(geom)-1], u)
	return last < first, true
}

// CanonicalizeReport is summary of canonicalization pass
type CanonicalizeReport struct {
	Reversed   int
	Mismatched []EdgeKey
}

// Canonicalize reverses (in place) geometries of edges which do not start at their U node.
// Running it twice is a no-op for the second run
func Canonicalize(g *Graph, test DirectionTest) (CanonicalizeReport, error) {
	report := CanonicalizeReport{}
	if test == nil {
		test = XTolerance{Tolerance: DEFAULT_DIRECTION_TOLERANCE}
	}
	for _, edge := range g.edges {
		u, err := g.NodeCoordinate(edge.Key.U)
		if err != nil {
			return report, errors.Wrapf(err, "edge %s", edge.Key)
		}
		v, err := g.NodeCoordinate(edge.Key.V)
		if err != nil {
			return report, errors.Wrapf(err, "edge %s", edge.Key)
		}
		if len(edge.Geom) < 2 {
			return report, errors.Wrapf(ErrGeometryDegenerate, "edge %s has geometry with %d point(s)", edge.Key, len(edge.Geom))
		}
		reversed, matched := test.Reversed(edge.Geom, u, v)
		if !matched {
			report.Mismatched = append(report.Mismatched, edge.Key)
			continue
		}
		if reversed {
			edge.Geom.Reverse()
			report.Reversed++
		}
	}
	return report, nil
}
