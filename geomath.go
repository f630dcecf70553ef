package nkdvprep

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// projectOnSegment returns distance from p to the perpendicular projection of pt onto segment [p, q] and distance from pt to the projection itself.
// Projection is clamped to the segment, so the first value is in [0, |pq|].
//
// Note: Euclidean space. Zero-length segment gives zero offset
func projectOnSegment(p, q, pt orb.Point) (float64, float64) {
	dx := q[0] - p[0]
	dy := q[1] - p[1]
	segLength := math.Sqrt(dx*dx + dy*dy)
	if segLength == 0 {
		return 0, planar.Distance(p, pt)
	}
	dot := (pt[0]-p[0])*dx + (pt[1]-p[1])*dy
	offset := dot / segLength
	if offset < 0 {
		offset = 0
	} else if offset > segLength {
		offset = segLength
	}
	projected := pointOnSegmentByFraction(p, q, offset/segLength)
	return offset, planar.Distance(projected, pt)
}

// pointOnSegmentByFraction returns a point on given segment using fraction of its length
func pointOnSegmentByFraction(p, q orb.Point, fraction float64) orb.Point {
	return orb.Point{
		(1-fraction)*p[0] + (fraction * q[0]),
		(1-fraction)*p[1] + (fraction * q[1]),
	}
}

// sampleSegment returns points along segment [p, q] (both ends included) so that neighbours are not further than spacing from each other
func sampleSegment(p, q orb.Point, spacing float64) []orb.Point {
	segLength := planar.Distance(p, q)
	parts := 1
	if spacing > 0 && segLength > spacing {
		parts = int(math.Ceil(segLength / spacing))
	}
	samples := make([]orb.Point, 0, parts+1)
	samples = append(samples, p)
	for i := 1; i < parts; i++ {
		samples = append(samples, pointOnSegmentByFraction(p, q, float64(i)/float64(parts)))
	}
	samples = append(samples, q)
	return samples
}

// copyLine returns copy of given line
func copyLine(line orb.LineString) orb.LineString {
	output := make(orb.LineString, len(line))
	copy(output, line)
	return output
}
