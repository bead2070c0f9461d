package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models careline.yml (or an equivalent JSON document).
type Config struct {
	Simulation Simulation `yaml:"simulation" json:"simulation"`
}

// Simulation holds every knob of the deterministic generator. All fields are
// required; Validate rejects anything missing or out of range before a run
// starts.
type Simulation struct {
	StartDate               string  `yaml:"start_date" json:"start_date"`
	Months                  int     `yaml:"months" json:"months"`
	Seed                    int64   `yaml:"seed" json:"seed"`
	DiagnosticPanelMonths   []int   `yaml:"diagnostic_panel_months" json:"diagnostic_panel_months"`
	AdherenceProbability    float64 `yaml:"adherence_probability" json:"adherence_probability"`
	MaxMemberThreadsPerWeek int     `yaml:"max_member_threads_per_week" json:"max_member_threads_per_week"`
	TravelWeekEveryNWeeks   int     `yaml:"travel_week_every_n_weeks" json:"travel_week_every_n_weeks"`
	ExerciseUpdateDays      int     `yaml:"exercise_update_days" json:"exercise_update_days"`
}

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with cl init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Start parses the configured start date.
func (s Simulation) Start() (time.Time, error) {
	t, err := time.Parse("2006-01-02", s.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("config.simulation.start_date: %w", err)
	}
	return t, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	s := c.Simulation
	if s.StartDate == "" {
		return fmt.Errorf("config.simulation.start_date is required")
	}
	if _, err := s.Start(); err != nil {
		return err
	}
	if s.Months < 1 {
		return fmt.Errorf("config.simulation.months must be >= 1")
	}
	if len(s.DiagnosticPanelMonths) == 0 {
		return fmt.Errorf("config.simulation.diagnostic_panel_months is required")
	}
	for _, m := range s.DiagnosticPanelMonths {
		if m < 1 {
			return fmt.Errorf("config.simulation.diagnostic_panel_months contains invalid month %d", m)
		}
	}
	if s.AdherenceProbability < 0 || s.AdherenceProbability > 1 {
		return fmt.Errorf("config.simulation.adherence_probability must be within [0,1]")
	}
	if s.MaxMemberThreadsPerWeek < 2 {
		return fmt.Errorf("config.simulation.max_member_threads_per_week must be >= 2")
	}
	if s.TravelWeekEveryNWeeks < 1 {
		return fmt.Errorf("config.simulation.travel_week_every_n_weeks must be >= 1")
	}
	if s.ExerciseUpdateDays < 1 {
		return fmt.Errorf("config.simulation.exercise_update_days must be >= 1")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "careline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromJSON parses and validates config from raw JSON bytes.
func FromJSON(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config json: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads config from the given path, dispatching on extension.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FromJSON(data)
	}
	return FromYAML(data)
}

const defaultTemplate = `simulation:
  # First simulated day, YYYY-MM-DD. Timestamps render in fixed UTC+8.
  start_date: "2024-01-01"

  # Horizon in 30-day months.
  months: 8

  # Base seed. Same config + same seed => byte-identical output.
  seed: 42

  # Months (1-indexed from start) that get a diagnostic panel on day 10.
  diagnostic_panel_months: [1, 3, 6]

  # Probability an exercise block is adhered to on a non-travel week.
  adherence_probability: 0.8

  # Weekly member-thread quota is drawn from [2, this].
  max_member_threads_per_week: 5

  # Every Nth week is a travel week.
  travel_week_every_n_weeks: 4

  # Days between exercise plan updates.
  exercise_update_days: 14
`
