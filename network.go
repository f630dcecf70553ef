package nkdvprep

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
)

// Graph is planar road network: nodes with coordinates and edges with polyline geometries.
//
// Multiple edges between the same pair of nodes are allowed and never merged.
type Graph struct {
	nodes map[NodeID]*Node
	edges []*Edge
}

// NewGraph returns empty graph
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[NodeID]*Node),
		edges: make([]*Edge, 0),
	}
}

// AddNode registers node with given identifier and coordinate
func (g *Graph) AddNode(id NodeID, pt orb.Point) error {
	if _, ok := g.nodes[id]; ok {
		return errors.Wrapf(ErrMalformedInput, "duplicate node %d", id)
	}
	if !isFinite(pt) {
		return errors.Wrapf(ErrMalformedInput, "node %d has non-finite coordinate", id)
	}
	g.nodes[id] = &Node{ID: id, Point: pt}
	return nil
}

// AddEdge registers edge between nodes u and v.
//
// Empty geom is replaced by the straight line between the nodes. Non-positive (or NaN) length is replaced by planar length of geometry.
// Copy of geometry is stored as is: use Canonicalize to fix its direction
func (g *Graph) AddEdge(u, v NodeID, geom orb.LineString, length float64) (*Edge, error) {
	source, ok := g.nodes[u]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "source node %d of edge (%d, %d)", u, u, v)
	}
	target, ok := g.nodes[v]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "target node %d of edge (%d, %d)", v, u, v)
	}
	if len(geom) == 0 {
		geom = orb.LineString{source.Point, target.Point}
	}
	if len(geom) < 2 {
		return nil, errors.Wrapf(ErrGeometryDegenerate, "edge (%d, %d) has geometry with %d point(s)", u, v, len(geom))
	}
	geom = copyLine(geom)
	if math.IsNaN(length) || length <= 0 {
		length = planar.Length(geom)
	}
	edge := &Edge{
		Key:    EdgeKey{U: u, V: v},
		Geom:   geom,
		Length: length,
		chord:  orb.LineString{source.Point, target.Point},
	}
	g.edges = append(g.edges, edge)
	return edge, nil
}

// NodeCoordinate returns coordinate of node
func (g *Graph) NodeCoordinate(id NodeID) (orb.Point, error) {
	node, ok := g.nodes[id]
	if !ok {
		return orb.Point{}, errors.Wrapf(ErrNotFound, "node %d", id)
	}
	return node.Point, nil
}

// Nodes returns all nodes sorted by identifier
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, *node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

// Edges returns all edges in insertion order. Edges are shared with graph
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// NodesNum returns number of nodes
func (g *Graph) NodesNum() int {
	return len(g.nodes)
}

// EdgesNum returns number of edges
func (g *Graph) EdgesNum() int {
	return len(g.edges)
}
