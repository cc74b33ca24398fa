// Package track extracts waypoint coordinates from GPX track files.
package track

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"geotification/internal/geo"
)

// Extension is the fixed extension of track files in a resource bundle.
const Extension = ".gpx"

const rootElement = "gpx"

var waypointElements = map[string]bool{
	"wpt":   true,
	"rtept": true,
	"trkpt": true,
}

// Resolve locates the track file called name inside bundleDir.
// The extension is appended unless name already carries it.
func Resolve(bundleDir, name string) (string, error) {
	if !strings.EqualFold(filepath.Ext(name), Extension) {
		name += Extension
	}
	path := filepath.Join(bundleDir, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	return path, nil
}

// ParseFile reads the file at path and returns its waypoint coordinates.
func ParseFile(path string) ([]geo.Coordinate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("read track file: %w", err)
	}
	return ParseCoordinates(bytes.NewReader(data))
}

// ParseCoordinates returns the coordinates of every wpt, rtept and trkpt
// element in document order, however deeply they are nested. The first
// invalid waypoint aborts the parse; no partial result is returned.
func ParseCoordinates(r io.Reader) ([]geo.Coordinate, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	coords := []geo.Coordinate{}
	sawRoot, closedRoot := false, false
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		line, _ := dec.InputPos()
		if err != nil {
			return nil, &FormatError{Line: line, Err: err}
		}
		var start xml.StartElement
		switch t := tok.(type) {
		case xml.StartElement:
			if closedRoot {
				return nil, &FormatError{Line: line, Err: fmt.Errorf("element <%s> after the <%s> root", t.Name.Local, rootElement)}
			}
			depth++
			start = t
		case xml.EndElement:
			depth--
			if depth == 0 {
				closedRoot = true
			}
			continue
		case xml.CharData:
			if depth == 0 && strings.TrimSpace(strings.TrimPrefix(string(t), "\ufeff")) != "" {
				return nil, &FormatError{Line: line, Err: fmt.Errorf("text outside the <%s> root", rootElement)}
			}
			continue
		default:
			continue
		}
		if !sawRoot {
			if start.Name.Local != rootElement {
				return nil, &FormatError{Line: line, Err: fmt.Errorf("root element is <%s>, want <%s>", start.Name.Local, rootElement)}
			}
			sawRoot = true
			continue
		}
		if !waypointElements[start.Name.Local] {
			continue
		}
		c, err := waypoint(start, len(coords), line)
		if err != nil {
			return nil, err
		}
		coords = append(coords, c)
	}
	if !sawRoot {
		return nil, &FormatError{Err: fmt.Errorf("no <%s> root element", rootElement)}
	}
	return coords, nil
}

func waypoint(el xml.StartElement, idx, line int) (geo.Coordinate, error) {
	lat, err := numericAttr(el, "lat", -90, 90, idx, line)
	if err != nil {
		return geo.Coordinate{}, err
	}
	lon, err := numericAttr(el, "lon", -180, 180, idx, line)
	if err != nil {
		return geo.Coordinate{}, err
	}
	return geo.Coordinate{Lat: lat, Lon: lon}, nil
}

func numericAttr(el xml.StartElement, name string, min, max float64, idx, line int) (float64, error) {
	fail := func(value string, err error) (float64, error) {
		return 0, &InvalidNumericAttributeError{
			Element: el.Name.Local,
			Attr:    name,
			Value:   value,
			Index:   idx,
			Line:    line,
			Err:     err,
		}
	}
	raw, ok := attr(el, name)
	if !ok {
		return fail("", errors.New("attribute missing"))
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fail(raw, err)
	}
	// ParseFloat accepts NaN and Inf; both fail the range check.
	if !(v >= min && v <= max) {
		return fail(raw, fmt.Errorf("out of range [%g, %g]", min, max))
	}
	return v, nil
}

func attr(el xml.StartElement, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == name && a.Name.Space == "" {
			return a.Value, true
		}
	}
	return "", false
}
