package output

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"cascade-sim/internal/analysis"
)

// ReplayLog replays results recorded as JSONL from r to writer. A speed > 0
// paces playback by the gap between consecutive start times divided by
// speed. If speed <= 0, no delay is inserted.
func ReplayLog(ctx context.Context, r io.Reader, writer ResultWriter, speed float64) (int, error) {
	dec := json.NewDecoder(r)
	var (
		prev time.Time
		n    int
	)
	for {
		var res analysis.AggregateResult
		if err := dec.Decode(&res); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err
		}
		if !prev.IsZero() && speed > 0 {
			diff := time.Duration(float64(res.StartTime.Sub(prev)) / speed)
			if diff > 0 {
				t := time.NewTimer(diff)
				select {
				case <-ctx.Done():
					t.Stop()
					return n, ctx.Err()
				case <-t.C:
				}
			}
		}
		if err := writer.WriteResult(&res); err != nil {
			return n, err
		}
		n++
		prev = res.StartTime
	}
}

// ReplayLogFile opens a file and replays its results.
func ReplayLogFile(ctx context.Context, path string, writer ResultWriter, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReplayLog(ctx, f, writer, speed)
}
