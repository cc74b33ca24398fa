package geofence

import (
	"fmt"
	"sync"
)

// Monitor is the location-monitoring facility regions are registered with.
type Monitor interface {
	// Available reports whether circular region monitoring is supported.
	Available() bool
	StartMonitoring(Region) error
	StopMonitoring(identifier string)
}

// Registry is an in-process Monitor that records the watched regions.
type Registry struct {
	mu        sync.Mutex
	available bool
	regions   []Region
}

// NewRegistry returns a Registry; available=false simulates a runtime
// without region monitoring.
func NewRegistry(available bool) *Registry {
	return &Registry{available: available}
}

func (r *Registry) Available() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.available
}

func (r *Registry) StartMonitoring(reg Region) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.available {
		return ErrMonitoringUnavailable
	}
	for _, existing := range r.regions {
		if existing.Identifier == reg.Identifier {
			return fmt.Errorf("%w: %s", ErrAlreadyMonitored, reg.Identifier)
		}
	}
	r.regions = append(r.regions, reg)
	return nil
}

func (r *Registry) StopMonitoring(identifier string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.regions {
		if existing.Identifier == identifier {
			r.regions = append(r.regions[:i], r.regions[i+1:]...)
			return
		}
	}
}

// Monitored returns a copy of the registered regions.
func (r *Registry) Monitored() []Region {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Region, len(r.regions))
	copy(out, r.regions)
	return out
}
