package nkdvprep

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// OSMScanner is common interface of XML and PBF scanners
type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

type wayData struct {
	ID    osm.WayID
	Nodes []osm.NodeID
}

// ImportFromOSMFile builds graph from ways of OSM file (.osm/.xml or .pbf) matching configuration.
//
// Ways are split at nodes shared with other ways (or used twice by the same way). Coordinates are projected to Web Mercator.
// Closed parts of ways are split once more at their farthest vertex and become two edges
func ImportFromOSMFile(fname string, cfg *OsmConfiguration, logger zerolog.Logger) (*Graph, error) {
	if cfg == nil {
		cfg = DefaultOsmConfiguration()
	}
	file, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrapf(withKind(ErrIOFailure, err), "Can't open file '%s'", fname)
	}
	defer file.Close()

	/* Process ways */
	st := time.Now()
	ways := []wayData{}
	useCount := make(map[osm.NodeID]int)
	{
		scannerWays, err := newOSMScanner(file, fname)
		if err != nil {
			return nil, err
		}
		for scannerWays.Scan() {
			way, ok := scannerWays.Object().(*osm.Way)
			if !ok {
				continue
			}
			if !cfg.CheckTag(way.Tags.Find(cfg.EntityName)) {
				continue
			}
			if len(way.Nodes) < 2 {
				logger.Warn().Int64("way_id", int64(way.ID)).Int("nodes", len(way.Nodes)).Msg("way with less than 2 nodes met")
				continue
			}
			prepared := wayData{
				ID:    way.ID,
				Nodes: make([]osm.NodeID, 0, len(way.Nodes)),
			}
			for i, node := range way.Nodes {
				prepared.Nodes = append(prepared.Nodes, node.ID)
				if i == 0 || i == len(way.Nodes)-1 {
					useCount[node.ID] += 2
				} else {
					useCount[node.ID]++
				}
			}
			ways = append(ways, prepared)
		}
		err = scannerWays.Err()
		scannerWays.Close()
		if err != nil {
			return nil, errors.Wrap(withKind(ErrMalformedInput, err), "Scanner error on Ways")
		}
	}
	logger.Info().Dur("elapsed", time.Since(st)).Int("ways", len(ways)).Msg("ways scanned")

	// Seek file to start
	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(withKind(ErrIOFailure, err), "Can't repeat seeking")
	}

	/* Process nodes */
	st = time.Now()
	coordinates := make(map[osm.NodeID]orb.Point, len(useCount))
	{
		scannerNodes, err := newOSMScanner(file, fname)
		if err != nil {
			return nil, err
		}
		proj := CRS_WGS84.Projection()
		for scannerNodes.Scan() {
			node, ok := scannerNodes.Object().(*osm.Node)
			if !ok {
				continue
			}
			if _, ok := useCount[node.ID]; ok {
				coordinates[node.ID] = proj(orb.Point{node.Lon, node.Lat})
			}
		}
		err = scannerNodes.Err()
		scannerNodes.Close()
		if err != nil {
			return nil, errors.Wrap(withKind(ErrMalformedInput, err), "Scanner error on Nodes")
		}
	}
	logger.Info().Dur("elapsed", time.Since(st)).Int("nodes", len(coordinates)).Msg("nodes scanned")

	/* Prepare graph */
	st = time.Now()
	g := NewGraph()
	for _, way := range ways {
		segment := make([]osm.NodeID, 0, len(way.Nodes))
		for i, nodeID := range way.Nodes {
			if _, ok := coordinates[nodeID]; !ok {
				return nil, errors.Wrapf(ErrNotFound, "node %d of way %d", nodeID, way.ID)
			}
			segment = append(segment, nodeID)
			if i == 0 || useCount[nodeID] < 2 {
				continue
			}
			if err := addOSMSegment(g, way.ID, segment, coordinates, logger); err != nil {
				return nil, errors.Wrapf(err, "way %d", way.ID)
			}
			segment = []osm.NodeID{nodeID}
		}
	}
	logger.Info().Dur("elapsed", time.Since(st)).Int("nodes", g.NodesNum()).Int("edges", g.EdgesNum()).Msg("graph prepared")
	return g, nil
}

// addOSMSegment adds edge for the part of a way between two split nodes.
// Closed segment (loop road, teardrop cul-de-sac) is split at its interior vertex farthest from the junction
func addOSMSegment(g *Graph, wayID osm.WayID, segment []osm.NodeID, coordinates map[osm.NodeID]orb.Point, logger zerolog.Logger) error {
	source := segment[0]
	target := segment[len(segment)-1]
	if source != target {
		geometry := make(orb.LineString, 0, len(segment))
		for _, nodeID := range segment {
			geometry = append(geometry, coordinates[nodeID])
		}
		return addOSMEdge(g, source, target, geometry, coordinates)
	}
	split := -1
	farthest := 0.0
	for i := 1; i < len(segment)-1; i++ {
		dist := planar.DistanceSquared(coordinates[segment[i]], coordinates[source])
		if dist > farthest {
			split = i
			farthest = dist
		}
	}
	if split < 0 {
		logger.Warn().Int64("way_id", int64(wayID)).Int64("node_id", int64(source)).Msg("zero-length loop skipped")
		return nil
	}
	if err := addOSMSegment(g, wayID, segment[:split+1], coordinates, logger); err != nil {
		return err
	}
	return addOSMSegment(g, wayID, segment[split:], coordinates, logger)
}

func addOSMEdge(g *Graph, source, target osm.NodeID, geometry orb.LineString, coordinates map[osm.NodeID]orb.Point) error {
	for _, nodeID := range []osm.NodeID{source, target} {
		if _, err := g.NodeCoordinate(NodeID(nodeID)); err == nil {
			continue
		}
		if err := g.AddNode(NodeID(nodeID), coordinates[nodeID]); err != nil {
			return err
		}
	}
	_, err := g.AddEdge(NodeID(source), NodeID(target), geometry, planar.Length(geometry))
	return err
}

// newOSMScanner guesses file extension and prepares correct scanner
func newOSMScanner(r io.Reader, fname string) (OSMScanner, error) {
	ext := filepath.Ext(fname)
	switch ext {
	case ".osm", ".xml":
		return osmxml.New(context.Background(), r), nil
	case ".pbf":
		return osmpbf.New(context.Background(), r, 4), nil
	default:
		return nil, withKind(ErrMalformedInput, fmt.Errorf("File extension '%s' for file '%s' is not handled yet", ext, fname))
	}
}
