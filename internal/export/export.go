// Package export serializes a finished run to flat artifacts: line-delimited
// JSON record streams, a metrics document, and the section-delimited text
// rendering consumed by the presentation layer.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"careline/internal/sim"
)

// Artifact file names inside the output directory.
const (
	MessagesFile  = "messages.jsonl"
	DecisionsFile = "decisions.jsonl"
	TestsFile     = "tests.jsonl"
	MetricsFile   = "metrics.json"
)

// WriteDir writes all four artifacts into dir, creating it if needed.
// Generation is already complete by the time this runs, so any failure here
// is purely a sink problem.
func WriteDir(dir string, res *sim.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: create %s: %w", dir, err)
	}
	if err := writeJSONL(filepath.Join(dir, MessagesFile), toAnySlice(res.Messages)); err != nil {
		return err
	}
	if err := writeJSONL(filepath.Join(dir, DecisionsFile), toAnySlice(res.Decisions)); err != nil {
		return err
	}
	if err := writeJSONL(filepath.Join(dir, TestsFile), toAnySlice(res.Tests)); err != nil {
		return err
	}
	return writeMetrics(filepath.Join(dir, MetricsFile), res.Metrics)
}

func toAnySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i := range in {
		out[i] = in[i]
	}
	return out
}

// writeJSONL writes one JSON object per line, in sequence order.
func writeJSONL(path string, records []any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			f.Close()
			return fmt.Errorf("export: encode record in %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("export: flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: close %s: %w", path, err)
	}
	return nil
}

func writeMetrics(path string, m sim.Metrics) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("export: encode metrics: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}
