package nkdvprep

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// CRS is coordinate reference system of incoming data
type CRS uint16

const (
	// CRS_PLANAR means data is already in projected planar reference system of the graph
	CRS_PLANAR = CRS(iota + 1)
	// CRS_WGS84 means data is in longitude/latitude (EPSG:4326) and needs to be projected to Web Mercator (EPSG:3857)
	CRS_WGS84
)

func (iotaIdx CRS) String() string {
	if iotaIdx < CRS_PLANAR || iotaIdx > CRS_WGS84 {
		return "unknown"
	}
	return [...]string{"planar", "wgs84"}[iotaIdx-1]
}

// ParseCRS returns CRS for given name. Unknown name gives CRS_PLANAR with error
func ParseCRS(str string) (CRS, error) {
	switch strings.ToLower(str) {
	case "planar", "":
		return CRS_PLANAR, nil
	case "wgs84", "epsg:4326", "4326":
		return CRS_WGS84, nil
	default:
		return CRS_PLANAR, fmt.Errorf("unknown CRS '%s'", str)
	}
}

// Projection returns function transforming points of given CRS into planar reference system
func (iotaIdx CRS) Projection() orb.Projection {
	if iotaIdx == CRS_WGS84 {
		return project.WGS84.ToMercator
	}
	return func(pt orb.Point) orb.Point {
		return pt
	}
}

// projectPoints transforms points into planar reference system in place
func projectPoints(pts []orb.Point, crs CRS) {
	if crs != CRS_WGS84 {
		return
	}
	proj := crs.Projection()
	for i := range pts {
		pts[i] = proj(pts[i])
	}
}

// lineToPlanar transforms line into planar reference system in place
func lineToPlanar(line orb.LineString, crs CRS) orb.LineString {
	projectPoints(line, crs)
	return line
}
