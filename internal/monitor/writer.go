package monitor

import "geotification/internal/geofence"

// EventWriter receives geofence events for presentation or export.
type EventWriter interface {
	WriteEvent(geofence.Event) error
}

// Optional: writers may support batch mode.
type batchEventWriter interface {
	WriteEvents([]geofence.Event) error
}

// writeAll sends events to w, in one batch when w supports it.
func writeAll(w EventWriter, events []geofence.Event) error {
	if len(events) == 0 {
		return nil
	}
	if bw, ok := w.(batchEventWriter); ok {
		return bw.WriteEvents(events)
	}
	for _, e := range events {
		if err := w.WriteEvent(e); err != nil {
			return err
		}
	}
	return nil
}
