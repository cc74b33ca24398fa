package monitor

import (
	"errors"

	"geotification/internal/geofence"
)

// MultiWriter fans events out to multiple writers.
type MultiWriter struct {
	writers []EventWriter
}

// NewMultiWriter creates a new MultiWriter; nil writers are skipped.
func NewMultiWriter(ws ...EventWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ws {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// WriteEvent sends an event to all writers. Every writer is tried even when
// an earlier one fails; the errors are joined.
func (mw *MultiWriter) WriteEvent(e geofence.Event) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.WriteEvent(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteEvents sends multiple events to all writers, using batch if supported.
func (mw *MultiWriter) WriteEvents(events []geofence.Event) error {
	var errs []error
	for _, w := range mw.writers {
		if err := writeAll(w, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every writer that holds resources.
func (mw *MultiWriter) Close() error {
	var errs []error
	for _, w := range mw.writers {
		if c, ok := w.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Len reports how many writers receive events.
func (mw *MultiWriter) Len() int { return len(mw.writers) }
