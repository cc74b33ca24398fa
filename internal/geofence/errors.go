package geofence

import (
	"errors"
	"fmt"

	"geotification/internal/geo"
)

var (
	// ErrMonitoringUnavailable means region monitoring is disabled; no region was registered.
	ErrMonitoringUnavailable = errors.New("region monitoring unavailable: geofencing disabled")
	// ErrDuplicateIdentifier matches every *DuplicateIdentifierError.
	ErrDuplicateIdentifier = errors.New("duplicate region identifier")
	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("geofence manager already initialized")
	// ErrAlreadyMonitored is returned by a Registry asked to watch the same identifier twice.
	ErrAlreadyMonitored = errors.New("region already monitored")
)

// DuplicateIdentifierError names the two track points whose regions collide.
type DuplicateIdentifierError struct {
	Identifier  string
	FirstIndex  int
	First       geo.Coordinate
	SecondIndex int
	Second      geo.Coordinate
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("duplicate region identifier %q: point %d %v collides with point %d %v",
		e.Identifier, e.SecondIndex, e.Second, e.FirstIndex, e.First)
}

func (e *DuplicateIdentifierError) Is(target error) bool {
	return target == ErrDuplicateIdentifier
}

// InvalidCoordinateError reports a track point outside the valid lat/lon ranges.
type InvalidCoordinateError struct {
	Index      int
	Coordinate geo.Coordinate
	Err        error
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("point %d: %v", e.Index, e.Err)
}

func (e *InvalidCoordinateError) Unwrap() error { return e.Err }
