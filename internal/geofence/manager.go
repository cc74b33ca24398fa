// Package geofence owns the set of monitored regions and turns position
// fixes into enter/exit transitions.
package geofence

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"geotification/internal/geo"
)

// Stats counts what the manager has processed.
type Stats struct {
	Regions  int `json:"regions"`
	Fixes    int `json:"fixes"`
	Rejected int `json:"rejected"`
	Enters   int `json:"enters"`
	Exits    int `json:"exits"`
}

// Manager owns the monitoring set. All methods are safe for concurrent use;
// position fixes are evaluated one at a time.
type Manager struct {
	mu          sync.Mutex
	monitor     Monitor
	radiusM     float64
	label       string
	log         *slog.Logger
	now         func() time.Time
	newID       func() string
	initialized bool
	regions     []Region
	inside      []bool
	stats       Stats
}

// Option configures a Manager.
type Option func(*Manager)

// WithRadius overrides the region radius in meters.
func WithRadius(m float64) Option {
	return func(mg *Manager) {
		if m > 0 {
			mg.radiusM = m
		}
	}
}

// WithLabel overrides the identifier label ("Location").
func WithLabel(label string) Option {
	return func(mg *Manager) {
		if label != "" {
			mg.label = label
		}
	}
}

// WithLogger sets the logger used for rejected fixes and transitions.
func WithLogger(l *slog.Logger) Option {
	return func(mg *Manager) {
		if l != nil {
			mg.log = l
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(mg *Manager) { mg.now = now }
}

// WithIDGenerator overrides how event IDs are generated.
func WithIDGenerator(f func() string) Option {
	return func(mg *Manager) { mg.newID = f }
}

// NewManager creates a Manager registering regions with monitor.
func NewManager(monitor Monitor, opts ...Option) *Manager {
	m := &Manager{
		monitor: monitor,
		radiusM: DefaultRadiusM,
		label:   DefaultLabel,
		log:     slog.Default(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Initialize builds one region per coordinate and registers all of them with
// the monitor. On any error nothing stays registered. The returned events are
// one region_added per region, in registration order.
func (m *Manager) Initialize(coords []geo.Coordinate) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil, ErrAlreadyInitialized
	}
	if m.monitor == nil || !m.monitor.Available() {
		m.log.Warn("region monitoring unavailable, geofencing disabled", "points", len(coords))
		return nil, ErrMonitoringUnavailable
	}

	regions := make([]Region, 0, len(coords))
	seen := make(map[string]int, len(coords))
	for i, c := range coords {
		if err := c.Validate(); err != nil {
			return nil, &InvalidCoordinateError{Index: i, Coordinate: c, Err: err}
		}
		id := Identifier(m.label, c.Lat)
		if j, dup := seen[id]; dup {
			return nil, &DuplicateIdentifierError{
				Identifier:  id,
				FirstIndex:  j,
				First:       coords[j],
				SecondIndex: i,
				Second:      c,
			}
		}
		seen[id] = i
		regions = append(regions, Region{Identifier: id, Center: c, RadiusM: m.radiusM})
	}

	for i, r := range regions {
		if err := m.monitor.StartMonitoring(r); err != nil {
			for _, prev := range regions[:i] {
				m.monitor.StopMonitoring(prev.Identifier)
			}
			return nil, fmt.Errorf("register region %q: %w", r.Identifier, err)
		}
	}

	m.regions = regions
	m.inside = make([]bool, len(regions))
	m.initialized = true
	m.stats.Regions = len(regions)

	ts := m.now().UTC()
	events := make([]Event, 0, len(regions))
	for _, r := range regions {
		events = append(events, Event{
			ID:         m.newID(),
			Type:       EventRegionAdded,
			Identifier: r.Identifier,
			Lat:        r.Center.Lat,
			Lon:        r.Center.Lon,
			RadiusM:    r.RadiusM,
			Timestamp:  ts,
		})
	}
	m.log.Info("geofences registered", "regions", len(regions), "radius_m", m.radiusM)
	return events, nil
}

// OnPositionFix evaluates fix against every region and returns the enter/exit
// transitions it caused, in registration order. Invalid fixes are logged and
// dropped without touching state.
func (m *Manager) OnPositionFix(fix geo.Fix) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := fix.Validate(); err != nil {
		m.stats.Rejected++
		m.log.Warn("rejecting position fix", "lat", fix.Lat, "lon", fix.Lon, "error", err)
		return nil
	}
	m.stats.Fixes++

	ts := fix.Timestamp
	if ts.IsZero() {
		ts = m.now()
	}
	var events []Event
	for i, r := range m.regions {
		inside := r.Contains(fix.Coordinate)
		if inside == m.inside[i] {
			continue
		}
		m.inside[i] = inside
		typ := EventExit
		if inside {
			typ = EventEnter
			m.stats.Enters++
		} else {
			m.stats.Exits++
		}
		m.log.Debug("geofence transition", "type", typ, "identifier", r.Identifier)
		events = append(events, Event{
			ID:         m.newID(),
			Type:       typ,
			Identifier: r.Identifier,
			Lat:        fix.Lat,
			Lon:        fix.Lon,
			Timestamp:  ts.UTC(),
		})
	}
	return events
}

// Regions returns a copy of the monitoring set in registration order.
func (m *Manager) Regions() []Region {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Region, len(m.regions))
	copy(out, m.regions)
	return out
}

// States returns every region with its current containment flag.
func (m *Manager) States() []RegionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RegionState, len(m.regions))
	for i, r := range m.regions {
		out[i] = RegionState{Region: r, Inside: m.inside[i]}
	}
	return out
}

// Stats returns the fix and transition counters so far.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
