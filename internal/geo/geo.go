// Coordinate and position fix types shared by the parser, the geofence
// manager and the fix sources.
package geo

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports whether the coordinate lies within the valid lat/lon ranges.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Lat)
	}
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Lon)
	}
	return nil
}

// Point converts the coordinate to an orb point (lon, lat order).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// FromPoint converts an orb point back into a Coordinate.
func FromPoint(p orb.Point) Coordinate {
	return Coordinate{Lat: p.Lat(), Lon: p.Lon()}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Lat, c.Lon)
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Coordinate) float64 {
	return orbgeo.DistanceHaversine(a.Point(), b.Point())
}

// Circle approximates a circle of radiusM meters around center as a closed
// polygon with the given number of vertices.
func Circle(center Coordinate, radiusM float64, vertices int) orb.Polygon {
	if vertices < 3 {
		vertices = 3
	}
	ring := make(orb.Ring, 0, vertices+1)
	for i := 0; i < vertices; i++ {
		bearing := 360 * float64(i) / float64(vertices)
		ring = append(ring, orbgeo.PointAtBearingAndDistance(center.Point(), bearing, radiusM))
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// Fix is a single position report from a location source.
type Fix struct {
	Coordinate
	Timestamp time.Time `json:"ts"`
}
