package fix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"geotification/internal/geo"
)

// ReplaySource replays fixes from a JSONL file of {"lat","lon","ts"} rows.
type ReplaySource struct {
	Path  string
	Speed float64
}

// NewReplaySource creates a ReplaySource. A speed >0 scales the recorded gaps
// between fixes; speed <= 0 replays as fast as the consumer accepts them.
func NewReplaySource(path string, speed float64) *ReplaySource {
	return &ReplaySource{Path: path, Speed: speed}
}

func (s *ReplaySource) Run(ctx context.Context, out chan<- geo.Fix) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayFixes(ctx, f, out, s.Speed)
}

// ReplayFixes decodes fixes from r and sends them to out.
func ReplayFixes(ctx context.Context, r io.Reader, out chan<- geo.Fix, speed float64) error {
	dec := json.NewDecoder(r)
	var prev geo.Fix
	for n := 0; ; n++ {
		var f geo.Fix
		if err := dec.Decode(&f); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("decode fix %d: %w", n, err)
		}
		if err := Pace(ctx, prev.Timestamp, f.Timestamp, speed); err != nil {
			return err
		}
		if err := send(ctx, out, f); err != nil {
			return err
		}
		prev = f
	}
}
