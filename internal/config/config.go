package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thyrook/trainsched/internal/optimizer"
	"github.com/thyrook/trainsched/internal/schedule"
)

// Schedule policy names accepted in ScheduleConfig.Policy.
const (
	PolicyTriStage    = "tristage"
	PolicyStepDecay   = "step_decay"
	PolicyExponential = "exponential"
	PolicyCosine      = "cosine"
)

// Config represents the application configuration
type Config struct {
	Schedule ScheduleConfig `json:"schedule"`
	Training TrainingConfig `json:"training"`
	Logging  LoggingConfig  `json:"logging"`
}

// ScheduleConfig contains the learning-rate schedule settings
type ScheduleConfig struct {
	Policy string `json:"policy"` // "tristage", "step_decay", "exponential", "cosine"

	PeakRate       float64     `json:"peak_rate"`
	InitRate       float64     `json:"init_rate"`
	InitRateScale  *float64    `json:"init_rate_scale,omitempty"`
	FinalRate      float64     `json:"final_rate"`
	FinalRateScale *float64    `json:"final_rate_scale,omitempty"`
	WarmupSteps    int         `json:"warmup_steps"`
	HoldSteps      int         `json:"hold_steps"`
	DecaySteps     int         `json:"decay_steps"`
	PhaseRatio     *[3]float64 `json:"phase_ratio,omitempty"`
	TotalSteps     int         `json:"total_steps"`

	// Step-decay / exponential settings
	DecayRate float64 `json:"decay_rate"`
}

// TrainingConfig contains training loop settings
type TrainingConfig struct {
	Steps           int     `json:"steps"`
	BatchSize       int     `json:"batch_size"`
	GradientClipMax float64 `json:"gradient_clip_max"`
	LogEvery        int     `json:"log_every"`
	RateLogPath     string  `json:"rate_log_path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Schedule: ScheduleConfig{
			Policy:      "tristage",
			PeakRate:    0.001,
			InitRate:    0,
			FinalRate:   0.00001,
			WarmupSteps: 500,
			HoldSteps:   2000,
			DecaySteps:  2500,
			DecayRate:   0.95,
		},
		Training: TrainingConfig{
			Steps:           5000,
			BatchSize:       64,
			GradientClipMax: 5.0,
			LogEvery:        100,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault loads the configuration, falling back to defaults if the
// file does not exist or cannot be parsed
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks configuration values that the schedule constructor does
// not cover
func (c *Config) Validate() error {
	if c.Schedule.PeakRate <= 0 {
		return fmt.Errorf("schedule: peak_rate must be positive, got %v", c.Schedule.PeakRate)
	}
	if c.Training.Steps <= 0 {
		return fmt.Errorf("training: steps must be positive, got %d", c.Training.Steps)
	}
	if c.Training.BatchSize <= 0 {
		return fmt.Errorf("training: batch_size must be positive, got %d", c.Training.BatchSize)
	}
	if c.Training.LogEvery < 0 {
		return fmt.Errorf("training: log_every must not be negative, got %d", c.Training.LogEvery)
	}
	return nil
}

// EnsureDirectories creates the directories referenced by the configuration
func (c *Config) EnsureDirectories() error {
	if c.Training.RateLogPath == "" {
		return nil
	}
	dir := filepath.Dir(c.Training.RateLogPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create rate log directory: %w", err)
	}
	return nil
}

// Build constructs the configured schedule policy bound to an optimizer.
// An empty policy defaults to tri-stage; the decay policies take their
// factor from DecayRate.
func (s *ScheduleConfig) Build(binding *optimizer.Binding) (schedule.Scheduler, error) {
	switch s.Policy {
	case "", PolicyTriStage:
		return schedule.NewTriStage(binding, s.TriStage())
	case PolicyStepDecay:
		return schedule.NewStepDecay(binding, s.PeakRate, s.DecayRate, s.DecaySteps)
	case PolicyExponential:
		return schedule.NewExponential(binding, s.PeakRate, s.DecayRate), nil
	case PolicyCosine:
		return schedule.NewCosineAnnealing(binding, s.PeakRate, s.FinalRate, s.WarmupSteps, s.TotalSteps), nil
	default:
		return nil, fmt.Errorf("unknown schedule policy %q", s.Policy)
	}
}

// TriStage converts the schedule section into a tri-stage schedule config
func (s *ScheduleConfig) TriStage() schedule.TriStageConfig {
	return schedule.TriStageConfig{
		PeakRate:       s.PeakRate,
		InitRate:       s.InitRate,
		InitRateScale:  s.InitRateScale,
		FinalRate:      s.FinalRate,
		FinalRateScale: s.FinalRateScale,
		WarmupSteps:    s.WarmupSteps,
		HoldSteps:      s.HoldSteps,
		DecaySteps:     s.DecaySteps,
		PhaseRatio:     s.PhaseRatio,
		TotalSteps:     s.TotalSteps,
	}
}
