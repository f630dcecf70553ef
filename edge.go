package nkdvprep

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// EdgeKey is pair of node identifiers. U is the canonical first endpoint
type EdgeKey struct {
	U NodeID
	V NodeID
}

func (key EdgeKey) String() string {
	return fmt.Sprintf("(%d, %d)", key.U, key.V)
}

// Reversed returns key with swapped endpoints
func (key EdgeKey) Reversed() EdgeKey {
	return EdgeKey{U: key.V, V: key.U}
}

// Unordered returns key with the smaller identifier first. Both orientations of a pair share it
func (key EdgeKey) Unordered() EdgeKey {
	if key.V < key.U {
		return key.Reversed()
	}
	return key
}

// Less reports whether key goes before other when U and V are compared as integers, U first
func (key EdgeKey) Less(other EdgeKey) bool {
	if key.U != other.U {
		return key.U < other.U
	}
	return key.V < other.V
}

// Edge is link between two nodes of road network
type Edge struct {
	Key    EdgeKey
	Geom   orb.LineString
	Length float64

	// Straight segment between coordinates of U and V
	chord orb.LineString
}

// Chord returns straight segment from U to V
func (edge *Edge) Chord() (orb.Point, orb.Point) {
	return edge.chord[0], edge.chord[1]
}

// ChordLength returns planar length of the chord
func (edge *Edge) ChordLength() float64 {
	return planar.Distance(edge.chord[0], edge.chord[1])
}
