// Package config loads protocol scenario files: engine parameters plus an
// ordered list of protocol stages.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDT         = 0.0003
	DefaultTauKT      = 0.1
	DefaultRCut       = 2.5
	DefaultSeed       = 42
	DefaultTrajPeriod = 10_000
	DefaultLogPeriod  = 1_000
	DefaultCheckpoint = "restart.ckpt"
)

// Config is one scenario: how to run the engine and which stages to run.
type Config struct {
	Name          string  `yaml:"name"`
	DT            float64 `yaml:"dt"`
	TauKT         float64 `yaml:"tau_kt"`
	TauP          float64 `yaml:"tau_p"`
	RCut          float64 `yaml:"r_cut"`
	Seed          int64   `yaml:"seed"`
	AutoScale     bool    `yaml:"auto_scale"`
	RefValues     *Refs   `yaml:"ref_values"`
	WallAxis      string  `yaml:"wall_axis"`
	WallTimeLimit float64 `yaml:"wall_time_limit"` // seconds, 0 = unlimited
	Checkpoint    string  `yaml:"checkpoint"`

	TargetBox []float64 `yaml:"target_box"`

	Potentials string  `yaml:"potentials"` // table potential directory (coarse-grained runs)
	Silence    Silence `yaml:"silence"`

	Trajectory Output `yaml:"trajectory"`
	Log        Output `yaml:"log"`

	Stages []Stage `yaml:"stages"`
}

// Refs are explicit reduced-unit reference scales.
type Refs struct {
	Distance float64 `yaml:"distance"`
	Mass     float64 `yaml:"mass"`
	Energy   float64 `yaml:"energy"`
}

// Silence lists interaction types internal to rigid bodies.
type Silence struct {
	Bonds     []string `yaml:"bonds"`
	Angles    []string `yaml:"angles"`
	Dihedrals []string `yaml:"dihedrals"`
}

// Output is a periodic writer target.
type Output struct {
	Path   string `yaml:"path"`
	Period uint64 `yaml:"period"`
}

// Stage is one protocol invocation.
type Stage struct {
	Kind string `yaml:"kind"`

	Steps     uint64  `yaml:"steps"`
	KT        float64 `yaml:"kt"`
	KTInit    float64 `yaml:"kt_init"`
	KTFinal   float64 `yaml:"kt_final"`
	Period    uint64  `yaml:"period"`
	Pressure  float64 `yaml:"pressure"`
	TreeNList bool    `yaml:"tree_nlist"`

	StepSequence []uint64        `yaml:"step_sequence"`
	Schedule     []ScheduleEntry `yaml:"schedule"`

	Strain       float64 `yaml:"strain"`
	ExpandPeriod uint64  `yaml:"expand_period"`
	Axis         string  `yaml:"axis"`
	FixRatio     float64 `yaml:"fix_ratio"`
}

// ScheduleEntry is one explicit anneal stage.
type ScheduleEntry struct {
	KT    float64 `yaml:"kt"`
	Steps uint64  `yaml:"steps"`
}

var stageKinds = map[string]bool{
	"shrink":    true,
	"quench":    true,
	"temp_ramp": true,
	"anneal":    true,
	"tensile":   true,
}

// Default returns a scenario with the documented defaults and no stages.
func Default() *Config {
	return &Config{
		DT:         DefaultDT,
		TauKT:      DefaultTauKT,
		RCut:       DefaultRCut,
		Seed:       DefaultSeed,
		AutoScale:  true,
		Checkpoint: DefaultCheckpoint,
		Trajectory: Output{Period: DefaultTrajPeriod},
		Log:        Output{Period: DefaultLogPeriod},
	}
}

// Load reads and validates a scenario file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the scenario to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks stage kinds, axes, and the reference setup.
func (c *Config) Validate() error {
	if len(c.TargetBox) != 0 && len(c.TargetBox) != 3 {
		return fmt.Errorf("target_box needs 3 lengths, got %d", len(c.TargetBox))
	}
	if c.WallAxis != "" && !validAxis(c.WallAxis) {
		return fmt.Errorf("wall_axis must be x, y or z, got %q", c.WallAxis)
	}
	if !c.AutoScale && c.RefValues == nil {
		return fmt.Errorf("ref_values required when auto_scale is off")
	}
	for i, st := range c.Stages {
		if !stageKinds[st.Kind] {
			return fmt.Errorf("stage %d: unknown kind %q", i, st.Kind)
		}
		if st.Kind == "tensile" && st.Axis != "" && !validAxis(st.Axis) {
			return fmt.Errorf("stage %d: axis must be x, y or z, got %q", i, st.Axis)
		}
	}
	return nil
}

func validAxis(s string) bool {
	return s == "x" || s == "y" || s == "z"
}
