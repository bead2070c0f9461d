package export_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"careline/internal/config"
	"careline/internal/domain"
	"careline/internal/export"
	"careline/internal/sim"
)

func generate(t *testing.T) *sim.Result {
	t.Helper()
	cfg := config.Simulation{
		StartDate:               "2024-01-01",
		Months:                  2,
		Seed:                    42,
		DiagnosticPanelMonths:   []int{1},
		AdherenceProbability:    0.8,
		MaxMemberThreadsPerWeek: 4,
		TravelWeekEveryNWeeks:   4,
		ExerciseUpdateDays:      14,
	}
	s, err := sim.New(cfg)
	if err != nil {
		t.Fatalf("new simulator: %v", err)
	}
	res, err := s.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return res
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		n++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan %s: %v", path, err)
	}
	return n
}

func TestWriteDir(t *testing.T) {
	res := generate(t)
	dir := filepath.Join(t.TempDir(), "generated")
	if err := export.WriteDir(dir, res); err != nil {
		t.Fatalf("write dir: %v", err)
	}

	if n := countLines(t, filepath.Join(dir, export.MessagesFile)); n != len(res.Messages) {
		t.Errorf("messages.jsonl has %d lines, want %d", n, len(res.Messages))
	}
	if n := countLines(t, filepath.Join(dir, export.DecisionsFile)); n != len(res.Decisions) {
		t.Errorf("decisions.jsonl has %d lines, want %d", n, len(res.Decisions))
	}
	if n := countLines(t, filepath.Join(dir, export.TestsFile)); n != len(res.Tests) {
		t.Errorf("tests.jsonl has %d lines, want %d", n, len(res.Tests))
	}

	data, err := os.ReadFile(filepath.Join(dir, export.MetricsFile))
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	var m sim.Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if m.MessageCount != res.Metrics.MessageCount || m.TestCount != res.Metrics.TestCount {
		t.Errorf("metrics round-trip mismatch: %+v vs %+v", m, res.Metrics)
	}
}

func TestWriteDirFirstMessageRoundTrips(t *testing.T) {
	res := generate(t)
	dir := t.TempDir()
	if err := export.WriteDir(dir, res); err != nil {
		t.Fatalf("write dir: %v", err)
	}
	f, err := os.Open(filepath.Join(dir, export.MessagesFile))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("empty messages.jsonl")
	}
	var m domain.Message
	if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
		t.Fatalf("decode first line: %v", err)
	}
	if m.ID != res.Messages[0].ID || m.Text != res.Messages[0].Text {
		t.Fatalf("first line %+v does not match %+v", m, res.Messages[0])
	}
}

func TestWriteDirUnwritableSink(t *testing.T) {
	res := generate(t)
	path := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A regular file where the directory should go must fail.
	if err := export.WriteDir(filepath.Join(path, "out"), res); err == nil {
		t.Fatal("expected export error")
	}
}

func TestRenderSections(t *testing.T) {
	res := generate(t)
	text := export.Render(res)

	for _, section := range []string{
		"## Conversation",
		"## Timeline Summary",
		"## Decisions & Why",
		"## Internal Metrics",
		"## Persona Analysis",
	} {
		if !strings.Contains(text, section+"\n") {
			t.Errorf("missing section %q", section)
		}
	}
	if got := strings.Count(text, "## "); got != 5 {
		t.Errorf("expected 5 section markers, got %d", got)
	}
}

func TestRenderMetricsAreKeyValueLines(t *testing.T) {
	res := generate(t)
	text := export.Render(res)

	start := strings.Index(text, "## Internal Metrics")
	end := strings.Index(text, "## Persona Analysis")
	if start < 0 || end < 0 || end <= start {
		t.Fatal("metrics section not found")
	}
	section := text[start:end]
	lines := strings.Split(strings.TrimSpace(section), "\n")[1:]
	if len(lines) == 0 {
		t.Fatal("metrics section empty")
	}
	for _, line := range lines {
		if line == "" {
			continue
		}
		if !strings.Contains(line, ": ") {
			t.Errorf("metrics line %q is not key: value", line)
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	a := export.Render(generate(t))
	b := export.Render(generate(t))
	if a != b {
		t.Fatal("render output differs between identical runs")
	}
}
