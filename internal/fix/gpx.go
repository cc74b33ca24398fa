package fix

import (
	"context"
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"

	"geotification/internal/geo"
)

// GPXSource replays the track points of a recorded GPX trace as fixes.
type GPXSource struct {
	Path  string
	Speed float64
}

func NewGPXSource(path string, speed float64) *GPXSource {
	return &GPXSource{Path: path, Speed: speed}
}

func (s *GPXSource) Run(ctx context.Context, out chan<- geo.Fix) error {
	g, err := gpx.ParseFile(s.Path)
	if err != nil {
		return fmt.Errorf("read GPX trace: %w", err)
	}
	return replayGPX(ctx, g, out, s.Speed)
}

// TraceFixes flattens every track point of g into fixes, in file order.
func TraceFixes(g *gpx.GPX) []geo.Fix {
	var fixes []geo.Fix
	for _, trk := range g.Tracks {
		for _, seg := range trk.Segments {
			for _, p := range seg.Points {
				fixes = append(fixes, geo.Fix{
					Coordinate: geo.Coordinate{Lat: p.Latitude, Lon: p.Longitude},
					Timestamp:  p.Timestamp,
				})
			}
		}
	}
	return fixes
}

func replayGPX(ctx context.Context, g *gpx.GPX, out chan<- geo.Fix, speed float64) error {
	var prev geo.Fix
	for _, f := range TraceFixes(g) {
		if err := Pace(ctx, prev.Timestamp, f.Timestamp, speed); err != nil {
			return err
		}
		if err := send(ctx, out, f); err != nil {
			return err
		}
		prev = f
	}
	return nil
}
