package monitor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"geotification/internal/fix"
	"geotification/internal/geofence"
)

// ReplayLog feeds the JSONL event log in r to writer, keeping the recorded
// gaps between events divided by speed. Blank lines are skipped. It returns
// the number of events written before the first error.
func ReplayLog(ctx context.Context, r io.Reader, writer EventWriter, speed float64) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var last geofence.Event
	n, line := 0, 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var e geofence.Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		if n > 0 {
			if err := fix.Pace(ctx, last.Timestamp, e.Timestamp, speed); err != nil {
				return n, err
			}
		} else if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := writer.WriteEvent(e); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		last = e
		n++
	}
	return n, sc.Err()
}

// ReplayLogFile replays the event log stored at path.
func ReplayLogFile(ctx context.Context, path string, writer EventWriter, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReplayLog(ctx, f, writer, speed)
}
