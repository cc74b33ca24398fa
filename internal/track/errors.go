package track

import (
	"errors"
	"fmt"
)

// ErrFileNotFound is returned when the track file cannot be located.
var ErrFileNotFound = errors.New("track file not found")

// ErrInvalidNumericAttribute matches every *InvalidNumericAttributeError.
var ErrInvalidNumericAttribute = errors.New("invalid numeric attribute")

// FormatError reports content that is not well-formed GPX markup.
type FormatError struct {
	Line int
	Err  error
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed track file (line %d): %v", e.Line, e.Err)
	}
	return fmt.Sprintf("malformed track file: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// InvalidNumericAttributeError reports a waypoint whose lat or lon attribute
// is missing, not a decimal number, or outside its valid range.
type InvalidNumericAttributeError struct {
	Element string // wpt, rtept or trkpt
	Attr    string // lat or lon
	Value   string
	Index   int // zero-based waypoint ordinal in document order
	Line    int
	Err     error
}

func (e *InvalidNumericAttributeError) Error() string {
	return fmt.Sprintf("waypoint %d (<%s> line %d): invalid %s %q: %v",
		e.Index, e.Element, e.Line, e.Attr, e.Value, e.Err)
}

func (e *InvalidNumericAttributeError) Unwrap() error { return e.Err }

func (e *InvalidNumericAttributeError) Is(target error) bool {
	return target == ErrInvalidNumericAttribute
}
