package nkdvprep

import (
	"context"
	"runtime"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Projection is point observation snapped to its nearest edge
type Projection struct {
	// Index of the point in the input batch
	Index int
	// Key of the chosen edge. Offset is measured from Key.U
	Key EdgeKey
	// Position of the chosen edge in the list given to the locator
	EdgeIdx int
	// Distance along chord from U to the clamped perpendicular projection of the point
	Offset float64
	// Distance from the point to the chord
	Distance float64
}

// chordSample is point on an edge chord stored in quadtree
type chordSample struct {
	pt      orb.Point
	edgeIdx int
}

// Point implements orb.Pointer
func (sample chordSample) Point() orb.Point {
	return sample.pt
}

// Locator finds nearest edge chord for query points
type Locator struct {
	edges   []*Edge
	tree    *quadtree.Quadtree
	bound   orb.Bound
	spacing float64
}

// WithSampleSpacing sets maximum distance between neighbouring chord samples. Non-positive value means mean chord length
func WithSampleSpacing(spacing float64) func(*Locator) {
	return func(locator *Locator) {
		locator.spacing = spacing
	}
}

// NewLocator builds spatial index over chords of given edges
func NewLocator(edges []*Edge, options ...func(*Locator)) (*Locator, error) {
	locator := &Locator{
		edges: edges,
	}
	for _, option := range options {
		option(locator)
	}
	if len(edges) == 0 {
		return nil, ErrIndexEmpty
	}

	totalLength := 0.0
	bound := orb.Bound{Min: edges[0].chord[0], Max: edges[0].chord[0]}
	for _, edge := range edges {
		chordLength := edge.ChordLength()
		if chordLength == 0 {
			return nil, errors.Wrapf(ErrGeometryDegenerate, "edge %s has zero-length chord", edge.Key)
		}
		totalLength += chordLength
		bound = bound.Extend(edge.chord[0]).Extend(edge.chord[1])
	}
	if locator.spacing <= 0 {
		locator.spacing = totalLength / float64(len(edges))
	}

	locator.bound = bound.Pad(locator.spacing)
	locator.tree = quadtree.New(locator.bound)
	for i, edge := range edges {
		p, q := edge.Chord()
		for _, pt := range sampleSegment(p, q, locator.spacing) {
			err := locator.tree.Add(chordSample{pt: pt, edgeIdx: i})
			if err != nil {
				return nil, errors.Wrapf(err, "Can't index edge %s", edge.Key)
			}
		}
	}
	return locator, nil
}

// Bound returns extent of indexed chords padded by sample spacing
func (locator *Locator) Bound() orb.Bound {
	return locator.bound
}

// Locate returns projection of given point onto its nearest edge chord. Index of returned projection is zero
func (locator *Locator) Locate(pt orb.Point) (Projection, error) {
	if locator == nil || len(locator.edges) == 0 {
		return Projection{}, ErrIndexEmpty
	}
	nearest := locator.tree.Find(pt)
	if nearest == nil {
		return Projection{}, ErrIndexEmpty
	}
	best := nearest.(chordSample).edgeIdx
	bestDist := locator.chordDistance(best, pt)

	// Any chord closer than the candidate has a sample within half of spacing from its closest point
	radius := bestDist + locator.spacing/2
	window := orb.Bound{
		Min: orb.Point{pt.X() - radius, pt.Y() - radius},
		Max: orb.Point{pt.X() + radius, pt.Y() + radius},
	}
	candidates := locator.tree.InBound(nil, window)
	seen := make(map[int]struct{}, len(candidates))
	for _, candidate := range candidates {
		edgeIdx := candidate.(chordSample).edgeIdx
		if _, ok := seen[edgeIdx]; ok {
			continue
		}
		seen[edgeIdx] = struct{}{}
		dist := locator.chordDistance(edgeIdx, pt)
		if dist < bestDist || (dist == bestDist && edgeIdx < best) {
			best = edgeIdx
			bestDist = dist
		}
	}

	edge := locator.edges[best]
	p, q := edge.Chord()
	offset, dist := projectOnSegment(p, q, pt)
	return Projection{
		Key:      edge.Key,
		EdgeIdx:  best,
		Offset:   offset,
		Distance: dist,
	}, nil
}

func (locator *Locator) chordDistance(edgeIdx int, pt orb.Point) float64 {
	p, q := locator.edges[edgeIdx].Chord()
	return planar.DistanceFromSegment(p, q, pt)
}

// LocateAll projects every point of the batch. Output order matches input order.
//
// Points are sharded between workers (non-positive value means number of CPUs)
func (locator *Locator) LocateAll(ctx context.Context, pts []orb.Point, workers int) ([]Projection, error) {
	if locator == nil || len(locator.edges) == 0 {
		return nil, ErrIndexEmpty
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(pts) {
		workers = len(pts)
	}
	projections := make([]Projection, len(pts))
	if len(pts) == 0 {
		return projections, nil
	}

	chunkSize := (len(pts) + workers - 1) / workers
	eg, gtx := errgroup.WithContext(ctx)
	for start := 0; start < len(pts); start += chunkSize {
		start := start
		end := start + chunkSize
		if end > len(pts) {
			end = len(pts)
		}
		eg.Go(func() error {
			for i := start; i < end; i++ {
				if i%1024 == 0 {
					if err := gtx.Err(); err != nil {
						return err
					}
				}
				projection, err := locator.Locate(pts[i])
				if err != nil {
					return errors.Wrapf(err, "point %d", i)
				}
				projection.Index = i
				projections[i] = projection
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return projections, nil
}
