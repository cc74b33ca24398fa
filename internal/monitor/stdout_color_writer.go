package monitor

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"geotification/internal/geofence"
)

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorBlue   = "\x1b[34m"
	colorCyan   = "\x1b[36m"
	colorGray   = "\x1b[90m"
)

// ColorStdoutWriter prints events using ANSI colors. Regions announced
// before the first transition are printed as one table.
type ColorStdoutWriter struct {
	out     io.Writer
	mu      sync.Mutex
	pending []geofence.Event
	printed bool
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter() *ColorStdoutWriter {
	return &ColorStdoutWriter{out: os.Stdout}
}

func (w *ColorStdoutWriter) printRegions() {
	w.printed = true
	if len(w.pending) == 0 {
		return
	}
	fmt.Fprintln(w.out, "Monitored regions:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Identifier\tLat\tLon\tRadius (m)\n")
	for _, e := range w.pending {
		fmt.Fprintf(tw, "%s%s%s\t%.6f\t%.6f\t%.0f\n", colorBlue, e.Identifier, colorReset, e.Lat, e.Lon, e.RadiusM)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
	w.pending = nil
}

// WriteEvent prints a colorized event line.
func (w *ColorStdoutWriter) WriteEvent(e geofence.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if e.Type == geofence.EventRegionAdded && !w.printed {
		w.pending = append(w.pending, e)
		return nil
	}
	if !w.printed {
		w.printRegions()
	}

	ts := e.Timestamp.Format(time.RFC3339)
	switch e.Type {
	case geofence.EventEnter:
		fmt.Fprintf(w.out, "%s[%s]%s %sENTER%s %s %s(%.5f, %.5f)%s\n",
			colorGray, ts, colorReset, colorGreen, colorReset, e.Identifier, colorGray, e.Lat, e.Lon, colorReset)
	case geofence.EventExit:
		fmt.Fprintf(w.out, "%s[%s]%s %sEXIT %s %s %s(%.5f, %.5f)%s\n",
			colorGray, ts, colorReset, colorRed, colorReset, e.Identifier, colorGray, e.Lat, e.Lon, colorReset)
	case geofence.EventPositionChanged:
		fmt.Fprintf(w.out, "%s[%s] position lat=%.5f lon=%.5f%s\n", colorGray, ts, e.Lat, e.Lon, colorReset)
	case geofence.EventRegionAdded:
		fmt.Fprintf(w.out, "%s[%s]%s %sREGION%s %s%s%s r=%.0fm\n",
			colorGray, ts, colorReset, colorCyan, colorReset, colorBlue, e.Identifier, colorReset, e.RadiusM)
	default:
		fmt.Fprintf(w.out, "%s[%s]%s %s%s%s %s\n", colorGray, ts, colorReset, colorYellow, e.Type, colorReset, e.Identifier)
	}
	return nil
}

// WriteEvents prints multiple events.
func (w *ColorStdoutWriter) WriteEvents(events []geofence.Event) error {
	for _, e := range events {
		if err := w.WriteEvent(e); err != nil {
			return err
		}
	}
	return nil
}

// Flush prints buffered region announcements that no transition has
// triggered yet.
func (w *ColorStdoutWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.printed {
		w.printRegions()
	}
}

// Close flushes pending output.
func (w *ColorStdoutWriter) Close() error {
	w.Flush()
	return nil
}
