package nkdvprep

import (
	"math"
	"os"
	"strconv"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// ImportFromGeoJSON builds graph from FeatureCollection file.
//
// Point features with integer property 'id' (or 'osmid') become nodes.
// LineString features with integer properties 'u' and 'v' (and optional number 'length') become edges.
// Other features are ignored
func ImportFromGeoJSON(fname string, crs CRS) (*Graph, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, errors.Wrapf(withKind(ErrIOFailure, err), "Can't read file '%s'", fname)
	}
	collection, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrapf(withKind(ErrMalformedInput, err), "Can't parse file '%s'", fname)
	}
	g, err := graphFromFeatures(collection, crs)
	if err != nil {
		return nil, errors.Wrapf(err, "file '%s'", fname)
	}
	return g, nil
}

func graphFromFeatures(collection *geojson.FeatureCollection, crs CRS) (*Graph, error) {
	g := NewGraph()
	proj := crs.Projection()
	// Nodes first, so edges could reference nodes declared after them
	for i, feature := range collection.Features {
		if feature.Geometry == nil || !feature.Geometry.IsPoint() {
			continue
		}
		id, err := propertyInt(feature, "id", "osmid")
		if err != nil {
			return nil, errors.Wrapf(err, "feature %d", i)
		}
		if len(feature.Geometry.Point) < 2 {
			return nil, errors.Wrapf(ErrMalformedInput, "feature %d: point has %d coordinate(s)", i, len(feature.Geometry.Point))
		}
		pt := orb.Point{feature.Geometry.Point[0], feature.Geometry.Point[1]}
		if err := g.AddNode(NodeID(id), proj(pt)); err != nil {
			return nil, errors.Wrapf(err, "feature %d", i)
		}
	}
	for i, feature := range collection.Features {
		if feature.Geometry == nil || !feature.Geometry.IsLineString() {
			continue
		}
		u, err := propertyInt(feature, "u")
		if err != nil {
			return nil, errors.Wrapf(err, "feature %d", i)
		}
		v, err := propertyInt(feature, "v")
		if err != nil {
			return nil, errors.Wrapf(err, "feature %d", i)
		}
		length := 0.0
		if _, ok := feature.Properties["length"]; ok {
			length, err = propertyFloat(feature, "length")
			if err != nil {
				return nil, errors.Wrapf(err, "feature %d", i)
			}
		}
		geom := make(orb.LineString, 0, len(feature.Geometry.LineString))
		for _, coords := range feature.Geometry.LineString {
			if len(coords) < 2 {
				return nil, errors.Wrapf(ErrMalformedInput, "feature %d: vertex has %d coordinate(s)", i, len(coords))
			}
			geom = append(geom, proj(orb.Point{coords[0], coords[1]}))
		}
		if _, err := g.AddEdge(NodeID(u), NodeID(v), geom, length); err != nil {
			return nil, errors.Wrapf(err, "feature %d", i)
		}
	}
	return g, nil
}

// propertyInt returns integer value of the first found property
func propertyInt(feature *geojson.Feature, keys ...string) (int64, error) {
	for _, key := range keys {
		value, ok := feature.Properties[key]
		if !ok {
			continue
		}
		switch typed := value.(type) {
		case float64:
			if typed != math.Trunc(typed) {
				return 0, errors.Wrapf(ErrMalformedInput, "property '%s' is not integer: %v", key, typed)
			}
			return int64(typed), nil
		case int:
			return int64(typed), nil
		case int64:
			return typed, nil
		case string:
			parsed, err := strconv.ParseInt(typed, 10, 64)
			if err != nil {
				return 0, errors.Wrapf(ErrMalformedInput, "property '%s' is not integer: '%s'", key, typed)
			}
			return parsed, nil
		default:
			return 0, errors.Wrapf(ErrMalformedInput, "property '%s' has unexpected type %T", key, value)
		}
	}
	return 0, errors.Wrapf(ErrMalformedInput, "no property %v", keys)
}

func propertyFloat(feature *geojson.Feature, key string) (float64, error) {
	switch typed := feature.Properties[key].(type) {
	case float64:
		return typed, nil
	case int:
		return float64(typed), nil
	case string:
		parsed, err := strconv.ParseFloat(typed, 64)
		if err != nil {
			return 0, errors.Wrapf(ErrMalformedInput, "property '%s' is not number: '%s'", key, typed)
		}
		return parsed, nil
	case nil:
		return 0, nil
	default:
		return 0, errors.Wrapf(ErrMalformedInput, "property '%s' has unexpected type %T", key, typed)
	}
}
