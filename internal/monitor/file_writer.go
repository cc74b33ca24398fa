package monitor

import (
	"encoding/json"
	"os"

	"geotification/internal/geofence"
)

// FileWriter writes events to JSONL files. position_changed events go to a
// separate file when positionPath is set and are dropped otherwise.
type FileWriter struct {
	eventFile *os.File
	posFile   *os.File
	eventEnc  *json.Encoder
	posEnc    *json.Encoder
}

// NewFileWriter creates a FileWriter. positionPath may be empty to skip position logs.
func NewFileWriter(eventPath, positionPath string) (*FileWriter, error) {
	ef, err := os.Create(eventPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{eventFile: ef, eventEnc: json.NewEncoder(ef)}
	if positionPath != "" {
		pf, err := os.Create(positionPath)
		if err != nil {
			ef.Close()
			return nil, err
		}
		fw.posFile = pf
		fw.posEnc = json.NewEncoder(pf)
	}
	return fw, nil
}

// WriteEvent logs a single event.
func (f *FileWriter) WriteEvent(e geofence.Event) error {
	if e.Type == geofence.EventPositionChanged {
		if f.posEnc == nil {
			return nil
		}
		return f.posEnc.Encode(e)
	}
	return f.eventEnc.Encode(e)
}

// WriteEvents logs multiple events.
func (f *FileWriter) WriteEvents(events []geofence.Event) error {
	for _, e := range events {
		if err := f.WriteEvent(e); err != nil {
			return err
		}
	}
	return nil
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.eventFile != nil {
		if e := f.eventFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.posFile != nil {
		if e := f.posFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
