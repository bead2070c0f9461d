package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"careline/internal/config"
)

func TestDefaultTemplateIsValid(t *testing.T) {
	cfg, err := config.FromYAML([]byte(config.GenerateDefault()))
	if err != nil {
		t.Fatalf("default template invalid: %v", err)
	}
	if cfg.Simulation.Months < 1 {
		t.Fatalf("default months = %d", cfg.Simulation.Months)
	}
}

func TestDefaultMatchesTemplate(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Simulation.Seed != 42 {
		t.Fatalf("default seed = %d", cfg.Simulation.Seed)
	}
}

func TestValidateRejections(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{Simulation: config.Simulation{
			StartDate:               "2024-01-01",
			Months:                  8,
			Seed:                    42,
			DiagnosticPanelMonths:   []int{1, 3, 6},
			AdherenceProbability:    0.8,
			MaxMemberThreadsPerWeek: 5,
			TravelWeekEveryNWeeks:   4,
			ExerciseUpdateDays:      14,
		}}
	}
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"missing start date", func(c *config.Config) { c.Simulation.StartDate = "" }, "start_date is required"},
		{"bad start date", func(c *config.Config) { c.Simulation.StartDate = "Jan 1 2024" }, "start_date"},
		{"zero months", func(c *config.Config) { c.Simulation.Months = 0 }, "months must be >= 1"},
		{"no panel months", func(c *config.Config) { c.Simulation.DiagnosticPanelMonths = nil }, "diagnostic_panel_months is required"},
		{"bad panel month", func(c *config.Config) { c.Simulation.DiagnosticPanelMonths = []int{0} }, "invalid month"},
		{"negative adherence", func(c *config.Config) { c.Simulation.AdherenceProbability = -0.1 }, "adherence_probability"},
		{"adherence above one", func(c *config.Config) { c.Simulation.AdherenceProbability = 1.5 }, "adherence_probability"},
		{"thread cap too low", func(c *config.Config) { c.Simulation.MaxMemberThreadsPerWeek = 1 }, "max_member_threads_per_week"},
		{"travel cadence zero", func(c *config.Config) { c.Simulation.TravelWeekEveryNWeeks = 0 }, "travel_week_every_n_weeks"},
		{"exercise cadence zero", func(c *config.Config) { c.Simulation.ExerciseUpdateDays = 0 }, "exercise_update_days"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestFromJSON(t *testing.T) {
	doc := `{
		"simulation": {
			"start_date": "2024-01-01",
			"months": 1,
			"seed": 42,
			"diagnostic_panel_months": [1],
			"adherence_probability": 0.8,
			"max_member_threads_per_week": 3,
			"travel_week_every_n_weeks": 4,
			"exercise_update_days": 14
		}
	}`
	cfg, err := config.FromJSON([]byte(doc))
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if cfg.Simulation.MaxMemberThreadsPerWeek != 3 {
		t.Fatalf("max threads = %d", cfg.Simulation.MaxMemberThreadsPerWeek)
	}
}

func TestFromFileDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "careline.yml")
	if err := os.WriteFile(yamlPath, []byte(config.GenerateDefault()), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.FromFile(yamlPath); err != nil {
		t.Fatalf("yaml file: %v", err)
	}

	jsonPath := filepath.Join(dir, "careline.json")
	doc := `{"simulation":{"start_date":"2024-01-01","months":1,"seed":1,"diagnostic_panel_months":[1],"adherence_probability":0.5,"max_member_threads_per_week":2,"travel_week_every_n_weeks":2,"exercise_update_days":7}}`
	if err := os.WriteFile(jsonPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.FromFile(jsonPath); err != nil {
		t.Fatalf("json file: %v", err)
	}
}

func TestLoadMissingConfig(t *testing.T) {
	_, err := config.Load(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "cl init") {
		t.Fatalf("expected missing-config hint, got %v", err)
	}
}
