// Package monitor drives a geofence manager from a stream of position fixes
// and fans the resulting events out to writers.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"geotification/internal/geo"
	"geotification/internal/geofence"
	"geotification/internal/logging"
)

const defaultHistory = 100

// Snapshot is a read-only view of the monitoring state for presentation.
type Snapshot struct {
	Session   string                 `json:"session"`
	StartedAt time.Time              `json:"started_at"`
	Regions   []geofence.RegionState `json:"regions"`
	Position  *geo.Fix               `json:"position,omitempty"`
	Recent    []geofence.Event       `json:"recent"`
	Stats     geofence.Stats         `json:"stats"`
	WriteErrs int                    `json:"write_errors"`
}

// Runner is the single consumer of position fixes for one manager.
type Runner struct {
	manager   *geofence.Manager
	writer    EventWriter
	session   string
	history   int
	now       func() time.Time
	mu        sync.Mutex
	startedAt time.Time
	last      *geo.Fix
	recent    []geofence.Event
	writeErrs int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSession sets the session ID stamped on every event.
func WithSession(id string) RunnerOption {
	return func(r *Runner) { r.session = id }
}

// WithHistory sets how many recent events Snapshot keeps.
func WithHistory(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.history = n
		}
	}
}

func WithRunnerClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner. writer may be nil.
func NewRunner(manager *geofence.Manager, writer EventWriter, opts ...RunnerOption) *Runner {
	r := &Runner{
		manager: manager,
		writer:  writer,
		session: uuid.NewString(),
		history: defaultHistory,
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Session returns the session ID.
func (r *Runner) Session() string { return r.session }

// Start registers one region per coordinate and writes the region_added events.
func (r *Runner) Start(ctx context.Context, coords []geo.Coordinate) error {
	events, err := r.manager.Initialize(coords)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.startedAt = r.now().UTC()
	r.mu.Unlock()
	r.emit(logging.FromContext(ctx), events)
	return nil
}

// Run consumes fixes in arrival order until the channel is closed or ctx is done.
func (r *Runner) Run(ctx context.Context, fixes <-chan geo.Fix) error {
	log := logging.FromContext(ctx)
	log.Info("monitoring started", "session", r.session, "regions", len(r.manager.Regions()))
	for {
		select {
		case f, ok := <-fixes:
			if !ok {
				log.Info("fix stream ended", "session", r.session)
				return nil
			}
			r.process(log, f)
		case <-ctx.Done():
			log.Info("monitoring stopped", "session", r.session)
			return ctx.Err()
		}
	}
}

// Process evaluates a single fix and returns every event it produced,
// position_changed first.
func (r *Runner) Process(ctx context.Context, f geo.Fix) []geofence.Event {
	return r.process(logging.FromContext(ctx), f)
}

func (r *Runner) process(log *slog.Logger, f geo.Fix) []geofence.Event {
	if f.Timestamp.IsZero() {
		f.Timestamp = r.now().UTC()
	}
	var events []geofence.Event
	if f.Validate() == nil {
		r.mu.Lock()
		last := f
		r.last = &last
		r.mu.Unlock()
		events = append(events, geofence.Event{
			ID:        uuid.NewString(),
			Type:      geofence.EventPositionChanged,
			Lat:       f.Lat,
			Lon:       f.Lon,
			Timestamp: f.Timestamp.UTC(),
		})
	}
	events = append(events, r.manager.OnPositionFix(f)...)
	r.emit(log, events)
	return events
}

func (r *Runner) emit(log *slog.Logger, events []geofence.Event) {
	if len(events) == 0 {
		return
	}
	for i := range events {
		events[i].Session = r.session
	}

	r.mu.Lock()
	for _, e := range events {
		if e.Type == geofence.EventPositionChanged {
			continue
		}
		r.recent = append(r.recent, e)
	}
	if over := len(r.recent) - r.history; over > 0 {
		r.recent = append([]geofence.Event(nil), r.recent[over:]...)
	}
	r.mu.Unlock()

	for _, e := range events {
		switch e.Type {
		case geofence.EventEnter, geofence.EventExit:
			log.Info("geofence "+string(e.Type), "identifier", e.Identifier, "lat", e.Lat, "lon", e.Lon)
		}
	}

	if r.writer == nil {
		return
	}
	if err := writeAll(r.writer, events); err != nil {
		r.mu.Lock()
		r.writeErrs++
		r.mu.Unlock()
		log.Error("event write failed", "error", err, "events", len(events))
	}
}

// Snapshot returns copies of the current state.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Snapshot{
		Session:   r.session,
		StartedAt: r.startedAt,
		Regions:   r.manager.States(),
		Recent:    append([]geofence.Event(nil), r.recent...),
		Stats:     r.manager.Stats(),
		WriteErrs: r.writeErrs,
	}
	if r.last != nil {
		last := *r.last
		s.Position = &last
	}
	return s
}
