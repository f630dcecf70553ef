package nkdvprep

import (
	"bytes"
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoNodesGraph(t *testing.T) *Graph {
	return buildGraph(t, map[NodeID]orb.Point{
		0: {0, 0},
		1: {10, 0},
	}, []testEdge{
		{u: 0, v: 1, geom: orb.LineString{{0, 0}, {10, 0}}, length: 10},
	})
}

func TestPipelineRun(t *testing.T) {
	result, err := NewPipeline().Run(context.Background(), twoNodesGraph(t), []orb.Point{{3, 1}, {7, -1}})
	require.NoError(t, err)
	require.Len(t, result.Projections, 2)
	assert.InDelta(t, 3.0, result.Projections[0].Offset, 1e-12)
	assert.InDelta(t, 7.0, result.Projections[1].Offset, 1e-12)

	buf := &bytes.Buffer{}
	require.NoError(t, WriteRecords(buf, result.NodesNum, result.EdgesNum, result.Records, SHORTEST_PRECISION))
	assert.Equal(t, "2 1\n0 1 2 3.0 7.0\n", buf.String())

	stats := result.Stats()
	assert.Equal(t, 2, stats.Points)
	assert.Equal(t, 1, stats.EdgesObserved)
	assert.Equal(t, 2, stats.MaxCount)
	assert.InDelta(t, 1.0, stats.MeanDistance, 1e-12)
	assert.InDelta(t, 1.0, stats.MaxDistance, 1e-12)
}

func TestPipelineRunNoPoints(t *testing.T) {
	result, err := NewPipeline().Run(context.Background(), twoNodesGraph(t), nil)
	require.NoError(t, err)
	fname := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, result.WriteFile(fname, SHORTEST_PRECISION))
	content, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Equal(t, "2 1\n0 1 0\n", string(content))
}

func TestPipelineRunEmpty(t *testing.T) {
	result, err := NewPipeline().Run(context.Background(), NewGraph(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Records)

	_, err = NewPipeline().Run(context.Background(), NewGraph(), []orb.Point{{1, 1}})
	assert.ErrorIs(t, err, ErrIndexEmpty)
}

func TestPipelineReversedGeometry(t *testing.T) {
	g := buildGraph(t, map[NodeID]orb.Point{
		0: {0, 0},
		1: {10, 0},
	}, []testEdge{
		{u: 1, v: 0, geom: orb.LineString{{0, 0}, {10, 0}}},
	})
	result, err := NewPipeline().Run(context.Background(), g, []orb.Point{{3, 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Canonical.Reversed)
	assert.Equal(t, orb.LineString{{10, 0}, {0, 0}}, g.Edges()[0].Geom)
	require.Len(t, result.Records, 1)
	// Offset is measured from node 1
	assert.Equal(t, EdgeKey{U: 1, V: 0}, result.Records[0].Key)
	assert.InDelta(t, 7.0, result.Records[0].Offsets[0], 1e-12)
}

func TestPipelineDeterministic(t *testing.T) {
	rnd := rand.New(rand.NewSource(2024))
	nodes := make(map[NodeID]orb.Point)
	for i := 0; i < 150; i++ {
		nodes[NodeID(i)] = orb.Point{rnd.Float64() * 500, rnd.Float64() * 500}
	}
	edges := make([]testEdge, 0, 300)
	for len(edges) < 300 {
		u := NodeID(rnd.Intn(150))
		v := NodeID(rnd.Intn(150))
		if u != v {
			edges = append(edges, testEdge{u: u, v: v})
		}
	}
	pts := make([]orb.Point, 2000)
	for i := range pts {
		pts[i] = orb.Point{rnd.Float64() * 500, rnd.Float64() * 500}
	}
	// Duplicated points produce ties
	pts = append(pts, pts[:100]...)

	outputs := make([]string, 0, 3)
	for _, workers := range []int{1, 4, 0} {
		g := buildGraph(t, nodes, edges)
		result, err := NewPipeline(WithWorkers(workers), WithDirectionTest(EndpointDistance{})).Run(context.Background(), g, pts)
		require.NoError(t, err)
		require.Len(t, result.Records, g.EdgesNum())

		total := 0
		for _, record := range result.Records {
			total += record.Count()
			for i := 1; i < len(record.Offsets); i++ {
				assert.LessOrEqual(t, record.Offsets[i-1], record.Offsets[i])
				if record.Offsets[i-1] == record.Offsets[i] {
					assert.Less(t, record.Points[i-1], record.Points[i])
				}
			}
		}
		assert.Equal(t, len(pts), total)

		buf := &bytes.Buffer{}
		require.NoError(t, WriteRecords(buf, result.NodesNum, result.EdgesNum, result.Records, SHORTEST_PRECISION))
		outputs = append(outputs, buf.String())
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[0], outputs[2])
}

func TestPipelineRunPointsOutsideNetwork(t *testing.T) {
	// Network in UTM-like coordinates, points projected from lon/lat to Web Mercator
	g := buildGraph(t, map[NodeID]orb.Point{
		1: {412000, 6180000},
		2: {413000, 6180000},
	}, []testEdge{
		{u: 1, v: 2},
	})
	pts := []orb.Point{
		CRS_WGS84.Projection()(orb.Point{37.6, 55.75}),
		CRS_WGS84.Projection()(orb.Point{37.61, 55.76}),
	}
	_, err := NewPipeline().Run(context.Background(), g, pts)
	assert.ErrorIs(t, err, ErrMalformedInput)

	// A single point inside the extent is enough
	pts = append(pts, orb.Point{412500, 6180010})
	result, err := NewPipeline().Run(context.Background(), g, pts)
	require.NoError(t, err)
	assert.Len(t, result.Projections, 3)
}
