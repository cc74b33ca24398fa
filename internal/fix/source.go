// Package fix provides the position-fix sources that drive the geofence
// manager: JSONL replay, GPX trace replay, a random-walk generator, a Kafka
// consumer and an MQTT subscriber.
package fix

import (
	"context"
	"time"

	"geotification/internal/geo"
)

// Source produces position fixes in arrival order. Run blocks until the
// source is exhausted, ctx is done, or a fatal error occurs. Run never
// closes out.
type Source interface {
	Run(ctx context.Context, out chan<- geo.Fix) error
}

// send hands f to out unless ctx is done first.
func send(ctx context.Context, out chan<- geo.Fix, f geo.Fix) error {
	select {
	case out <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pace sleeps for the gap between prev and cur scaled by speed. A speed <= 0
// or a zero prev disables pacing.
func Pace(ctx context.Context, prev, cur time.Time, speed float64) error {
	if prev.IsZero() || speed <= 0 {
		return nil
	}
	diff := cur.Sub(prev)
	if speed != 1 {
		diff = time.Duration(float64(diff) / speed)
	}
	if diff <= 0 {
		return nil
	}
	t := time.NewTimer(diff)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
