package nkdvprep

import (
	"fmt"

	"github.com/paulmach/orb"
)

// NodeID is identifier of node. Unique within a graph
type NodeID int64

// Node is vertex of road network in planar reference system
type Node struct {
	ID    NodeID
	Point orb.Point
}

func (node Node) String() string {
	return fmt.Sprintf("Node %d: X: %f | Y: %f", node.ID, node.Point.X(), node.Point.Y())
}
