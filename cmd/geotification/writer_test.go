package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"geotification/internal/config"
	"geotification/internal/fix"
	"geotification/internal/geo"
	"geotification/internal/geofence"
)

func TestResolveFormat(t *testing.T) {
	cases := []struct {
		format string
		tty    bool
		want   string
	}{
		{config.FormatAuto, true, config.FormatColor},
		{config.FormatAuto, false, config.FormatJSON},
		{config.FormatTUI, false, config.FormatTUI},
		{config.FormatJSON, true, config.FormatJSON},
	}
	for _, c := range cases {
		if got := resolveFormat(c.format, c.tty); got != c.want {
			t.Errorf("resolveFormat(%q, %v) = %q, want %q", c.format, c.tty, got, c.want)
		}
	}
}

func TestNewWritersJSON(t *testing.T) {
	mw, cleanup, err := newWriters(config.Default(), config.FormatJSON, "s")
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer cleanup()
	if mw.Len() != 1 {
		t.Fatalf("expected 1 writer, got %d", mw.Len())
	}
}

func TestNewWritersLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Output.LogFile = filepath.Join(t.TempDir(), "events.jsonl")
	mw, cleanup, err := newWriters(cfg, "none", "s")
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	if mw.Len() != 1 {
		t.Fatalf("expected only the file writer, got %d", mw.Len())
	}
	if err := mw.WriteEvent(geofence.Event{ID: "1", Type: geofence.EventEnter, Identifier: "Location #1.5"}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	cleanup()
	data, err := os.ReadFile(cfg.Output.LogFile)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !bytes.Contains(data, []byte("Location #1.5")) {
		t.Fatalf("event missing from log: %s", data)
	}
}

func TestNewWritersKafka(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Kafka.Brokers = []string{"localhost:9092"}
	mw, cleanup, err := newWriters(cfg, config.FormatJSON, "s")
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer cleanup()
	if mw.Len() != 2 {
		t.Fatalf("expected stdout and kafka writers, got %d", mw.Len())
	}
}

func TestNewWritersUnknownFormat(t *testing.T) {
	if _, _, err := newWriters(config.Default(), "hologram", "s"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestNewSource(t *testing.T) {
	coords := []geo.Coordinate{{Lat: 26.4499, Lon: 74.6399}}
	cfg := config.Default()

	src, err := newSource(cfg, coords)
	if err != nil {
		t.Fatalf("walk source: %v", err)
	}
	if _, ok := src.(*fix.WalkSource); !ok {
		t.Fatalf("expected *fix.WalkSource, got %T", src)
	}
	if _, err := newSource(cfg, nil); err == nil {
		t.Fatalf("walk without waypoints should fail")
	}

	cfg.Fixes.Source = config.SourceReplay
	if _, err := newSource(cfg, coords); err == nil {
		t.Fatalf("replay without path should fail")
	}
	cfg.Fixes.Path = "fixes.jsonl"
	if src, err := newSource(cfg, coords); err != nil {
		t.Fatalf("replay source: %v", err)
	} else if _, ok := src.(*fix.ReplaySource); !ok {
		t.Fatalf("expected *fix.ReplaySource, got %T", src)
	}

	cfg.Fixes.Source = config.SourceKafka
	if _, err := newSource(cfg, coords); err == nil {
		t.Fatalf("kafka without brokers should fail")
	}

	cfg.Fixes.Source = config.SourceMQTT
	if _, err := newSource(cfg, coords); err == nil {
		t.Fatalf("mqtt without broker should fail")
	}

	cfg.Fixes.Source = "pigeon"
	if _, err := newSource(cfg, coords); err == nil {
		t.Fatalf("expected unknown source error")
	}
}

func TestPrintRegions(t *testing.T) {
	cfg := config.Default()
	cfg.Track.BundleDir = filepath.Join("..", "..", "resources")

	var buf bytes.Buffer
	if err := printRegions(&buf, cfg, false); err != nil {
		t.Fatalf("printRegions: %v", err)
	}
	var regions []geofence.Region
	if err := json.Unmarshal(buf.Bytes(), &regions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(regions) != 5 {
		t.Fatalf("expected 5 regions, got %d", len(regions))
	}
	if regions[0].RadiusM != 500 {
		t.Fatalf("radius = %v", regions[0].RadiusM)
	}

	buf.Reset()
	if err := printRegions(&buf, cfg, true); err != nil {
		t.Fatalf("printRegions geojson: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"FeatureCollection"`)) {
		t.Fatalf("expected GeoJSON output")
	}

	cfg.Track.Name = "Missing"
	if err := printRegions(&buf, cfg, false); err == nil {
		t.Fatalf("expected error for missing track")
	}
}
