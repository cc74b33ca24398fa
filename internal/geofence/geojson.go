package geofence

import (
	"github.com/paulmach/orb/geojson"

	"geotification/internal/geo"
)

// CircleVertices is the polygon resolution used for region outlines.
const CircleVertices = 64

// FeatureCollection renders each region as a center Point feature followed by
// a Polygon feature approximating its circle. Both carry the identifier,
// radius and inside flag as properties.
func FeatureCollection(states []RegionState) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range states {
		center := geojson.NewFeature(s.Center.Point())
		center.Properties["identifier"] = s.Identifier
		center.Properties["kind"] = "center"
		center.Properties["radius_m"] = s.RadiusM
		center.Properties["inside"] = s.Inside
		fc.Append(center)

		area := geojson.NewFeature(geo.Circle(s.Center, s.RadiusM, CircleVertices))
		area.Properties["identifier"] = s.Identifier
		area.Properties["kind"] = "region"
		area.Properties["radius_m"] = s.RadiusM
		area.Properties["inside"] = s.Inside
		fc.Append(area)
	}
	return fc
}
