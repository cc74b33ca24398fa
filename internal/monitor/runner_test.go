package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"geotification/internal/geo"
	"geotification/internal/geofence"
	"geotification/internal/logging"
)

var ajmer = []geo.Coordinate{
	{Lat: 26.4499, Lon: 74.6399},
	{Lat: 26.4691, Lon: 74.6390},
}

func newTestRunner(t *testing.T, w EventWriter) *Runner {
	t.Helper()
	mgr := geofence.NewManager(geofence.NewRegistry(true), geofence.WithLogger(logging.Discard()))
	r := NewRunner(mgr, w, WithSession("test-session"))
	if err := r.Start(context.Background(), ajmer); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return r
}

func fixAt(c geo.Coordinate, sec int64) geo.Fix {
	return geo.Fix{Coordinate: c, Timestamp: time.Unix(sec, 0).UTC()}
}

func TestRunnerStartWritesRegions(t *testing.T) {
	cw := &collectWriter{}
	r := newTestRunner(t, cw)
	if len(cw.events) != 2 {
		t.Fatalf("expected 2 region_added events, got %d", len(cw.events))
	}
	for _, e := range cw.events {
		if e.Type != geofence.EventRegionAdded || e.Session != "test-session" {
			t.Fatalf("unexpected event %+v", e)
		}
	}
	if got := r.Snapshot().Stats.Regions; got != 2 {
		t.Fatalf("stats regions = %d", got)
	}
}

func TestRunnerProcessOrdersPositionFirst(t *testing.T) {
	cw := &collectWriter{}
	r := newTestRunner(t, cw)
	cw.events = nil

	events := r.Process(context.Background(), fixAt(ajmer[0], 10))
	if len(events) != 2 {
		t.Fatalf("expected position_changed and enter, got %+v", events)
	}
	if events[0].Type != geofence.EventPositionChanged || events[1].Type != geofence.EventEnter {
		t.Fatalf("unexpected order %s, %s", events[0].Type, events[1].Type)
	}
	if events[1].Identifier != "Location #26.4499" {
		t.Fatalf("identifier = %q", events[1].Identifier)
	}
	if len(cw.events) != 2 {
		t.Fatalf("writer received %d events", len(cw.events))
	}

	events = r.Process(context.Background(), fixAt(ajmer[1], 20))
	if len(events) != 3 {
		t.Fatalf("expected position, exit, enter; got %+v", events)
	}
	if events[1].Type != geofence.EventExit || events[2].Type != geofence.EventEnter {
		t.Fatalf("transitions should follow registration order: %s, %s", events[1].Type, events[2].Type)
	}
}

func TestRunnerInvalidFixProducesNothing(t *testing.T) {
	cw := &collectWriter{}
	r := newTestRunner(t, cw)
	cw.events = nil

	events := r.Process(context.Background(), fixAt(geo.Coordinate{Lat: 123, Lon: 0}, 1))
	if len(events) != 0 || len(cw.events) != 0 {
		t.Fatalf("invalid fix should produce no events, got %+v", events)
	}
	snap := r.Snapshot()
	if snap.Position != nil {
		t.Fatalf("invalid fix should not update position")
	}
	if snap.Stats.Rejected != 1 {
		t.Fatalf("rejected = %d", snap.Stats.Rejected)
	}
}

func TestRunnerWriterErrorsAreCounted(t *testing.T) {
	mgr := geofence.NewManager(geofence.NewRegistry(true), geofence.WithLogger(logging.Discard()))
	r := NewRunner(mgr, failWriter{err: errors.New("offline")})
	ctx := logging.NewContext(context.Background(), logging.Discard())
	if err := r.Start(ctx, ajmer); err != nil {
		t.Fatalf("Start should not fail on writer errors: %v", err)
	}
	r.Process(ctx, fixAt(ajmer[0], 1))
	if got := r.Snapshot().WriteErrs; got != 2 {
		t.Fatalf("write errors = %d", got)
	}
	if st := mgr.States(); len(st) == 0 || !st[0].Inside {
		t.Fatalf("state must advance even when writers fail")
	}
}

func TestRunnerStartPropagatesManagerErrors(t *testing.T) {
	mgr := geofence.NewManager(geofence.NewRegistry(false), geofence.WithLogger(logging.Discard()))
	r := NewRunner(mgr, nil)
	if err := r.Start(context.Background(), ajmer); !errors.Is(err, geofence.ErrMonitoringUnavailable) {
		t.Fatalf("expected ErrMonitoringUnavailable, got %v", err)
	}
}

func TestRunnerRunConsumesUntilClosed(t *testing.T) {
	cw := &collectWriter{}
	r := newTestRunner(t, cw)
	fixes := make(chan geo.Fix, 3)
	fixes <- fixAt(ajmer[0], 1)
	fixes <- fixAt(ajmer[0], 2)
	fixes <- fixAt(geo.Coordinate{Lat: 0, Lon: 0}, 3)
	close(fixes)

	if err := r.Run(context.Background(), fixes); err != nil {
		t.Fatalf("Run: %v", err)
	}
	snap := r.Snapshot()
	if snap.Stats.Fixes != 3 || snap.Stats.Enters != 1 || snap.Stats.Exits != 1 {
		t.Fatalf("unexpected stats %+v", snap.Stats)
	}
	if snap.Position == nil || snap.Position.Lat != 0 {
		t.Fatalf("position not tracked: %+v", snap.Position)
	}
	// two region_added, one enter, one exit
	if len(snap.Recent) != 4 {
		t.Fatalf("recent = %d", len(snap.Recent))
	}
}

func TestRunnerRunStopsOnCancel(t *testing.T) {
	r := newTestRunner(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx, make(chan geo.Fix)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunnerHistoryBounded(t *testing.T) {
	mgr := geofence.NewManager(geofence.NewRegistry(true), geofence.WithLogger(logging.Discard()))
	r := NewRunner(mgr, nil, WithHistory(3))
	if err := r.Start(context.Background(), ajmer); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 5; i++ {
		r.Process(context.Background(), fixAt(ajmer[i%2], int64(i)))
	}
	snap := r.Snapshot()
	if len(snap.Recent) != 3 {
		t.Fatalf("expected 3 recent events, got %d", len(snap.Recent))
	}
	if snap.Recent[2].Type != geofence.EventEnter {
		t.Fatalf("latest event should be last: %+v", snap.Recent[2])
	}
}

func TestRunnerStampsMissingTimestamp(t *testing.T) {
	mgr := geofence.NewManager(geofence.NewRegistry(true), geofence.WithLogger(logging.Discard()))
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRunner(mgr, nil, WithRunnerClock(func() time.Time { return now }))
	if err := r.Start(context.Background(), ajmer); err != nil {
		t.Fatalf("Start: %v", err)
	}
	events := r.Process(context.Background(), geo.Fix{Coordinate: ajmer[0]})
	for _, e := range events {
		if !e.Timestamp.Equal(now) {
			t.Fatalf("timestamp = %v, want %v", e.Timestamp, now)
		}
	}
	if !r.Snapshot().StartedAt.Equal(now) {
		t.Fatalf("started at not stamped")
	}
}
