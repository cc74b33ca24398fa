package fix

import (
	"context"
	"math/rand"
	"time"

	orbgeo "github.com/paulmach/orb/geo"

	"geotification/internal/geo"
)

// arrivalM is how close the walker must get to a target before moving on.
const arrivalM = 25.0

// WalkSource generates fixes by moving a virtual device once per interval.
// With Targets set it tours them in order (looping), drifting off the direct
// bearing by up to Jitter degrees; without targets it performs a random walk.
type WalkSource struct {
	Start       geo.Coordinate
	Targets     []geo.Coordinate
	SpeedMinMPS float64
	SpeedMaxMPS float64
	Jitter      float64
	Interval    time.Duration
	Steps       int // 0 means unlimited
	Rand        *rand.Rand
	now         func() time.Time
}

// NewWalkSource returns a walker with the given start, speed range and seed.
func NewWalkSource(start geo.Coordinate, targets []geo.Coordinate, speedMin, speedMax float64, interval time.Duration, seed int64) *WalkSource {
	if speedMax < speedMin {
		speedMin, speedMax = speedMax, speedMin
	}
	return &WalkSource{
		Start:       start,
		Targets:     targets,
		SpeedMinMPS: speedMin,
		SpeedMaxMPS: speedMax,
		Jitter:      20,
		Interval:    interval,
		Rand:        rand.New(rand.NewSource(seed)),
		now:         time.Now,
	}
}

func (s *WalkSource) Run(ctx context.Context, out chan<- geo.Fix) error {
	if s.now == nil {
		s.now = time.Now
	}
	if s.Rand == nil {
		s.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	var tick <-chan time.Time
	if s.Interval > 0 {
		t := time.NewTicker(s.Interval)
		defer t.Stop()
		tick = t.C
	}

	pos := s.Start
	target := 0
	for step := 0; s.Steps == 0 || step < s.Steps; step++ {
		if err := send(ctx, out, geo.Fix{Coordinate: pos, Timestamp: s.now().UTC()}); err != nil {
			return err
		}
		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		pos, target = s.next(pos, target)
	}
	return nil
}

// next moves pos by one interval's worth of travel.
func (s *WalkSource) next(pos geo.Coordinate, target int) (geo.Coordinate, int) {
	speed := s.SpeedMinMPS + s.Rand.Float64()*(s.SpeedMaxMPS-s.SpeedMinMPS)
	secs := s.Interval.Seconds()
	if secs <= 0 {
		secs = 1
	}
	dist := speed * secs

	var bearing float64
	if len(s.Targets) == 0 {
		bearing = s.Rand.Float64() * 360
	} else {
		dest := s.Targets[target%len(s.Targets)]
		remaining := geo.Distance(pos, dest)
		if remaining <= dist || remaining <= arrivalM {
			return dest, (target + 1) % len(s.Targets)
		}
		bearing = orbgeo.Bearing(pos.Point(), dest.Point()) + (s.Rand.Float64()*2-1)*s.Jitter
	}
	p := orbgeo.PointAtBearingAndDistance(pos.Point(), bearing, dist)
	next := geo.FromPoint(p)
	if next.Validate() != nil {
		// stay put near the poles and antimeridian
		return pos, target
	}
	return next, target
}
