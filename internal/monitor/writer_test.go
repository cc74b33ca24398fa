package monitor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/segmentio/kafka-go"

	"geotification/internal/geofence"
)

type collectWriter struct{ events []geofence.Event }

func (c *collectWriter) WriteEvent(e geofence.Event) error {
	c.events = append(c.events, e)
	return nil
}

type failWriter struct{ err error }

func (f failWriter) WriteEvent(geofence.Event) error { return f.err }

type closeWriter struct {
	collectWriter
	closed bool
}

func (c *closeWriter) Close() error {
	c.closed = true
	return nil
}

func sampleEvents() []geofence.Event {
	ts := time.Unix(0, 0).UTC()
	return []geofence.Event{
		{ID: "1", Session: "s", Type: geofence.EventRegionAdded, Identifier: "Location #26.5", Lat: 26.5, Lon: 74.6, RadiusM: 500, Timestamp: ts},
		{ID: "2", Session: "s", Type: geofence.EventPositionChanged, Lat: 26.5, Lon: 74.6, Timestamp: ts.Add(time.Second)},
		{ID: "3", Session: "s", Type: geofence.EventEnter, Identifier: "Location #26.5", Lat: 26.5, Lon: 74.6, RadiusM: 500, Timestamp: ts.Add(time.Second)},
	}
}

func TestMultiWriterFanOut(t *testing.T) {
	a, b := &collectWriter{}, &closeWriter{}
	mw := NewMultiWriter(a, nil, b)
	if mw.Len() != 2 {
		t.Fatalf("nil writer should be skipped, got %d writers", mw.Len())
	}
	if err := mw.WriteEvents(sampleEvents()); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if len(a.events) != 3 || len(b.events) != 3 {
		t.Fatalf("expected every writer to receive 3 events, got %d and %d", len(a.events), len(b.events))
	}
	if err := mw.Close(); err != nil || !b.closed {
		t.Fatalf("Close: err=%v closed=%v", err, b.closed)
	}
}

func TestMultiWriterKeepsGoingOnError(t *testing.T) {
	boom := errors.New("boom")
	c := &collectWriter{}
	mw := NewMultiWriter(failWriter{err: boom}, c)
	err := mw.WriteEvent(sampleEvents()[0])
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(c.events) != 1 {
		t.Fatalf("second writer should still receive the event")
	}
}

func TestJSONStdoutWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &JSONStdoutWriter{out: &buf}
	if err := w.WriteEvents(sampleEvents()); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	var e geofence.Event
	if err := json.Unmarshal([]byte(lines[2]), &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Type != geofence.EventEnter || e.Identifier != "Location #26.5" {
		t.Fatalf("unexpected event %+v", e)
	}
	if !strings.Contains(lines[0], `"type":"region_added"`) {
		t.Fatalf("missing type field: %s", lines[0])
	}
}

func TestColorWriterPrintsRegionsBeforeTransitions(t *testing.T) {
	var buf bytes.Buffer
	w := &ColorStdoutWriter{out: &buf}
	evs := sampleEvents()
	if err := w.WriteEvent(evs[0]); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("region announcements should be buffered")
	}
	if err := w.WriteEvents(evs[1:]); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	out := buf.String()
	region := strings.Index(out, "Location #26.5")
	enter := strings.Index(out, "ENTER")
	if region < 0 || enter < 0 || region > enter {
		t.Fatalf("expected region table before ENTER:\n%s", out)
	}
}

func TestColorWriterFlushOnClose(t *testing.T) {
	var buf bytes.Buffer
	w := &ColorStdoutWriter{out: &buf}
	_ = w.WriteEvent(sampleEvents()[0])
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !strings.Contains(buf.String(), "Location #26.5") {
		t.Fatalf("pending regions not flushed: %q", buf.String())
	}
}

func TestFileWriterSplitsPositions(t *testing.T) {
	dir := t.TempDir()
	eventPath := filepath.Join(dir, "events.jsonl")
	posPath := filepath.Join(dir, "positions.jsonl")
	fw, err := NewFileWriter(eventPath, posPath)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	if err := fw.WriteEvents(sampleEvents()); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := countLines(t, eventPath); n != 2 {
		t.Fatalf("expected 2 event lines, got %d", n)
	}
	if n := countLines(t, posPath); n != 1 {
		t.Fatalf("expected 1 position line, got %d", n)
	}
}

func TestFileWriterDropsPositionsWithoutPath(t *testing.T) {
	eventPath := filepath.Join(t.TempDir(), "events.jsonl")
	fw, err := NewFileWriter(eventPath, "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	_ = fw.WriteEvents(sampleEvents())
	_ = fw.Close()
	if n := countLines(t, eventPath); n != 2 {
		t.Fatalf("expected 2 event lines, got %d", n)
	}
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	return n
}

func TestReplayLog(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range sampleEvents() {
		if err := enc.Encode(e); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	cw := &collectWriter{}
	n, err := ReplayLog(context.Background(), &buf, cw, 0)
	if err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if n != 3 || len(cw.events) != 3 {
		t.Fatalf("expected 3 events, got n=%d collected=%d", n, len(cw.events))
	}
	if cw.events[2].Type != geofence.EventEnter {
		t.Fatalf("order not preserved: %+v", cw.events)
	}
}

func TestReplayLogBadLine(t *testing.T) {
	cw := &collectWriter{}
	n, err := ReplayLog(context.Background(), strings.NewReader("{\"id\":\"1\"}\n\nnot json\n"), cw, 0)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if n != 1 {
		t.Fatalf("expected 1 event before the error, got %d", n)
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("error should name the bad line: %v", err)
	}
}

func TestReplayLogCanceled(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.Encode(geofence.Event{ID: "1", Type: geofence.EventEnter, Timestamp: base})
	enc.Encode(geofence.Event{ID: "2", Type: geofence.EventExit, Timestamp: base.Add(time.Hour)})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	cw := &collectWriter{}
	n, err := ReplayLog(ctx, &buf, cw, 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected replay to stop on context, got %v", err)
	}
	if n != 1 || len(cw.events) != 1 {
		t.Fatalf("expected only the first event, got n=%d", n)
	}
}

func TestReplayLogFileMissing(t *testing.T) {
	if _, err := ReplayLogFile(context.Background(), filepath.Join(t.TempDir(), "nope.jsonl"), &collectWriter{}, 0); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

type mockGreptimeClient struct {
	table *table.Table
	err   error
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	if len(tables) > 0 {
		m.table = tables[0]
	}
	return &gpb.GreptimeResponse{}, m.err
}

func TestGreptimeWriterEvents(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, table: "geofence_events"}
	if err := w.WriteEvents(sampleEvents()); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if m.table == nil {
		t.Fatalf("expected table to be captured")
	}
	rows := m.table.GetRows()
	if len(rows.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows.Rows))
	}
	if rows.Schema[1].SemanticType != gpb.SemanticType_TAG {
		t.Fatalf("identifier should be a tag column")
	}
	if got := rows.Rows[2].Values[1].GetStringValue(); got != "Location #26.5" {
		t.Fatalf("identifier = %q", got)
	}
	if got := rows.Rows[2].Values[3].GetStringValue(); got != "enter" {
		t.Fatalf("event_type = %q", got)
	}
	if got := rows.Rows[0].Values[6].GetF64Value(); got != 500 {
		t.Fatalf("radius_m = %v", got)
	}
}

func TestGreptimeWriterError(t *testing.T) {
	w := &GreptimeDBWriter{client: &mockGreptimeClient{err: errors.New("down")}, table: "geofence_events"}
	if err := w.WriteEvent(sampleEvents()[0]); err == nil {
		t.Fatalf("expected client error to surface")
	}
}

func TestSplitEndpoint(t *testing.T) {
	cases := []struct {
		in   string
		host string
		port int
		err  bool
	}{
		{"greptime:4101", "greptime", 4101, false},
		{"localhost", "localhost", defaultGreptimePort, false},
		{"", "", 0, true},
		{"host:abc", "", 0, true},
	}
	for _, c := range cases {
		host, port, err := splitEndpoint(c.in)
		if (err != nil) != c.err {
			t.Fatalf("splitEndpoint(%q) err = %v", c.in, err)
		}
		if !c.err && (host != c.host || port != c.port) {
			t.Fatalf("splitEndpoint(%q) = %s:%d", c.in, host, port)
		}
	}
}

type fakeMessageWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeMessageWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeMessageWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaWriterKeys(t *testing.T) {
	fw := &fakeMessageWriter{}
	w := &KafkaWriter{writer: fw, timeout: time.Second}
	if err := w.WriteEvents(sampleEvents()); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if len(fw.msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(fw.msgs))
	}
	if string(fw.msgs[0].Key) != "Location #26.5" {
		t.Fatalf("region event key = %q", fw.msgs[0].Key)
	}
	if string(fw.msgs[1].Key) != "s" {
		t.Fatalf("position event should be keyed by session, got %q", fw.msgs[1].Key)
	}
	if h := fw.msgs[2].Headers[0]; h.Key != "event_type" || string(h.Value) != "enter" {
		t.Fatalf("unexpected header %+v", h)
	}
	_ = w.Close()
	if !fw.closed {
		t.Fatalf("Close not forwarded")
	}
}
