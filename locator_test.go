package nkdvprep

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateSimple(t *testing.T) {
	g := buildGraph(t, map[NodeID]orb.Point{
		0: {0, 0},
		1: {10, 0},
	}, []testEdge{
		{u: 0, v: 1, length: 10},
	})
	locator, err := NewLocator(g.Edges())
	require.NoError(t, err)

	projection, err := locator.Locate(orb.Point{3, 1})
	require.NoError(t, err)
	assert.Equal(t, EdgeKey{U: 0, V: 1}, projection.Key)
	assert.InDelta(t, 3.0, projection.Offset, 1e-12)
	assert.InDelta(t, 1.0, projection.Distance, 1e-12)

	projection, err = locator.Locate(orb.Point{7, -1})
	require.NoError(t, err)
	assert.InDelta(t, 7.0, projection.Offset, 1e-12)

	// Clamped to chord extent
	projection, err = locator.Locate(orb.Point{-4, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, projection.Offset)
	assert.InDelta(t, 5.0, projection.Distance, 1e-12)
	projection, err = locator.Locate(orb.Point{25, 0})
	require.NoError(t, err)
	assert.Equal(t, 10.0, projection.Offset)
}

func TestLocateUsesChordNotPolyline(t *testing.T) {
	g := buildGraph(t, map[NodeID]orb.Point{
		0: {0, 0},
		1: {10, 0},
		2: {0, 5},
		3: {10, 5},
	}, []testEdge{
		// Polyline runs far away from its chord
		{u: 0, v: 1, geom: orb.LineString{{0, 0}, {5, 100}, {10, 0}}},
		{u: 2, v: 3},
	})
	locator, err := NewLocator(g.Edges())
	require.NoError(t, err)
	projection, err := locator.Locate(orb.Point{5, 1})
	require.NoError(t, err)
	assert.Equal(t, EdgeKey{U: 0, V: 1}, projection.Key)
	assert.InDelta(t, 5.0, projection.Offset, 1e-12)
}

func TestLocateTieBreak(t *testing.T) {
	g := buildGraph(t, map[NodeID]orb.Point{
		0: {0, 0},
		1: {10, 0},
		2: {0, 2},
		3: {10, 2},
	}, []testEdge{
		{u: 2, v: 3},
		{u: 0, v: 1},
		{u: 1, v: 0},
	})
	locator, err := NewLocator(g.Edges())
	require.NoError(t, err)

	// Equally far from both chords: the first edge wins
	projection, err := locator.Locate(orb.Point{4, 1})
	require.NoError(t, err)
	assert.Equal(t, 0, projection.EdgeIdx)
	assert.Equal(t, EdgeKey{U: 2, V: 3}, projection.Key)

	// Parallel edges with identical chords: the first of them wins
	projection, err = locator.Locate(orb.Point{4, -1})
	require.NoError(t, err)
	assert.Equal(t, 1, projection.EdgeIdx)
	assert.Equal(t, EdgeKey{U: 0, V: 1}, projection.Key)
}

func TestLocatorErrors(t *testing.T) {
	_, err := NewLocator(nil)
	assert.ErrorIs(t, err, ErrIndexEmpty)

	var locator *Locator
	_, err = locator.Locate(orb.Point{0, 0})
	assert.ErrorIs(t, err, ErrIndexEmpty)
	_, err = locator.LocateAll(context.Background(), []orb.Point{{0, 0}}, 1)
	assert.ErrorIs(t, err, ErrIndexEmpty)

	g := buildGraph(t, map[NodeID]orb.Point{
		0: {0, 0},
		1: {0, 0},
	}, []testEdge{
		{u: 0, v: 1, geom: orb.LineString{{0, 0}, {1, 1}, {0, 0}}},
	})
	_, err = NewLocator(g.Edges())
	assert.ErrorIs(t, err, ErrGeometryDegenerate)
}

func randomGraph(t *testing.T, rnd *rand.Rand, nodesNum, edgesNum int) *Graph {
	t.Helper()
	g := NewGraph()
	for i := 0; i < nodesNum; i++ {
		require.NoError(t, g.AddNode(NodeID(i), orb.Point{rnd.Float64() * 1000, rnd.Float64() * 1000}))
	}
	for g.EdgesNum() < edgesNum {
		u := NodeID(rnd.Intn(nodesNum))
		v := NodeID(rnd.Intn(nodesNum))
		if u == v {
			continue
		}
		_, err := g.AddEdge(u, v, nil, 0)
		require.NoError(t, err)
	}
	return g
}

func bruteForceNearest(edges []*Edge, pt orb.Point) (int, float64) {
	best := -1
	bestDist := math.Inf(1)
	for i, edge := range edges {
		p, q := edge.Chord()
		dist := planar.DistanceFromSegment(p, q, pt)
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return best, bestDist
}

func TestLocateMatchesBruteForce(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	g := randomGraph(t, rnd, 200, 400)
	for _, spacing := range []float64{0, 5, 250} {
		locator, err := NewLocator(g.Edges(), WithSampleSpacing(spacing))
		require.NoError(t, err)
		for i := 0; i < 500; i++ {
			pt := orb.Point{rnd.Float64()*1200 - 100, rnd.Float64()*1200 - 100}
			projection, err := locator.Locate(pt)
			require.NoError(t, err)
			best, bestDist := bruteForceNearest(g.Edges(), pt)
			assert.Equal(t, best, projection.EdgeIdx, "spacing %f, point %v", spacing, pt)
			assert.InDelta(t, bestDist, projection.Distance, 1e-9)
			edge := g.Edges()[projection.EdgeIdx]
			assert.GreaterOrEqual(t, projection.Offset, 0.0)
			assert.LessOrEqual(t, projection.Offset, edge.ChordLength())
		}
	}
}

func TestLocateAllKeepsOrder(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	g := randomGraph(t, rnd, 100, 150)
	locator, err := NewLocator(g.Edges())
	require.NoError(t, err)

	pts := make([]orb.Point, 3000)
	for i := range pts {
		pts[i] = orb.Point{rnd.Float64() * 1000, rnd.Float64() * 1000}
	}
	sequential, err := locator.LocateAll(context.Background(), pts, 1)
	require.NoError(t, err)
	parallel, err := locator.LocateAll(context.Background(), pts, 8)
	require.NoError(t, err)
	require.Len(t, parallel, len(pts))
	assert.Equal(t, sequential, parallel)
	for i, projection := range parallel {
		assert.Equal(t, i, projection.Index)
		single, err := locator.Locate(pts[i])
		require.NoError(t, err)
		single.Index = i
		assert.Equal(t, single, projection)
	}

	empty, err := locator.LocateAll(context.Background(), nil, 4)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLocateAllCancelled(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	g := randomGraph(t, rnd, 10, 10)
	locator, err := NewLocator(g.Edges())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locator.LocateAll(ctx, []orb.Point{{1, 1}, {2, 2}}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
