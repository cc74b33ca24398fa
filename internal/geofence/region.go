package geofence

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"geotification/internal/geo"
)

// Defaults used when building regions from track points.
const (
	DefaultRadiusM = 500.0
	DefaultLabel   = "Location"
)

// Region is a circular geofence.
type Region struct {
	Identifier string         `json:"identifier"`
	Center     geo.Coordinate `json:"center"`
	RadiusM    float64        `json:"radius_m"`
}

// Contains reports whether c lies within the region (boundary inclusive).
func (r Region) Contains(c geo.Coordinate) bool {
	return geo.Distance(c, r.Center) <= r.RadiusM
}

// RegionState pairs a region with its current containment flag.
type RegionState struct {
	Region
	Inside bool `json:"inside"`
}

// Identifier builds the region name for a track point, e.g. "Location #26.4499".
// Integral latitudes keep one fractional digit ("Location #23.0").
func Identifier(label string, lat float64) string {
	var s string
	if lat != 0 && math.Abs(lat) < 1e-4 {
		// Small magnitudes switch to exponent form, e.g. 1e-05.
		s = strconv.FormatFloat(lat, 'e', -1, 64)
	} else {
		s = strconv.FormatFloat(lat, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
	}
	return fmt.Sprintf("%s #%s", label, s)
}

// EventType names an outbound notification.
type EventType string

const (
	EventRegionAdded     EventType = "region_added"
	EventEnter           EventType = "enter"
	EventExit            EventType = "exit"
	EventPositionChanged EventType = "position_changed"
)

// Event is emitted to the presentation layer. For region_added, Lat/Lon is
// the region center and RadiusM is set; for the other types Lat/Lon is the
// position fix that caused the event.
type Event struct {
	ID         string    `json:"id"`
	Session    string    `json:"session,omitempty"`
	Type       EventType `json:"type"`
	Identifier string    `json:"identifier,omitempty"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	RadiusM    float64   `json:"radius_m,omitempty"`
	Timestamp  time.Time `json:"ts"`
}

// Coordinate returns the event location.
func (e Event) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: e.Lat, Lon: e.Lon}
}
