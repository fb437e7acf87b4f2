package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StepperConfig holds the wiring of the ULN2003 driver board (IN1-IN4, BCM numbering).
type StepperConfig struct {
	IN1Pin      int `yaml:"in1_pin"`
	IN2Pin      int `yaml:"in2_pin"`
	IN3Pin      int `yaml:"in3_pin"`
	IN4Pin      int `yaml:"in4_pin"`
	StepDelayMs int `yaml:"step_delay_ms"` // delay per half-step; models realistic motion time
}

// StepsConfig is the step-count vocabulary exposed by the API.
type StepsConfig struct {
	Small     int `yaml:"small"`      // steps for size "small"
	Large     int `yaml:"large"`      // steps for size "large"
	MaxCustom int `yaml:"max_custom"` // clamp ceiling for size "custom"
}

// StorageConfig describes where calibrated positions are persisted.
type StorageConfig struct {
	Path string `yaml:"path"` // YAML file holding lock_pos/unlock_pos
}

// SchedulerConfig controls the background return-to-center loop.
type SchedulerConfig struct {
	PeriodMs int `yaml:"period_ms"` // time between pending-return checks
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Stepper   StepperConfig   `yaml:"stepper"`
	Steps     StepsConfig     `yaml:"steps"`
	Storage   StorageConfig   `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	pins := []int{cfg.Stepper.IN1Pin, cfg.Stepper.IN2Pin, cfg.Stepper.IN3Pin, cfg.Stepper.IN4Pin}
	for i, p := range pins {
		if p <= 0 {
			return nil, fmt.Errorf("stepper.in%d_pin is required and must be > 0", i+1)
		}
	}
	seen := map[int]int{}
	for i, p := range pins {
		if prev, dup := seen[p]; dup {
			return nil, fmt.Errorf("stepper pins in%d and in%d both use GPIO %d", prev+1, i+1, p)
		}
		seen[p] = i
	}
	if cfg.Stepper.StepDelayMs < 0 {
		return nil, fmt.Errorf("stepper.step_delay_ms must be >= 0, got %d", cfg.Stepper.StepDelayMs)
	}
	if cfg.Stepper.StepDelayMs == 0 {
		cfg.Stepper.StepDelayMs = 5 // reasonable default for a 28BYJ-48
	}
	if cfg.Steps.Small <= 0 {
		cfg.Steps.Small = 10
	}
	if cfg.Steps.Large <= 0 {
		cfg.Steps.Large = 50
	}
	if cfg.Steps.MaxCustom <= 0 {
		cfg.Steps.MaxCustom = 2048
	}
	if cfg.Steps.Large < cfg.Steps.Small {
		return nil, fmt.Errorf("steps.large (%d) must be >= steps.small (%d)", cfg.Steps.Large, cfg.Steps.Small)
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "autolock_positions.yaml"
	}
	if cfg.Scheduler.PeriodMs < 0 {
		return nil, fmt.Errorf("scheduler.period_ms must be >= 0, got %d", cfg.Scheduler.PeriodMs)
	}
	if cfg.Scheduler.PeriodMs == 0 {
		cfg.Scheduler.PeriodMs = 100
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}

	return &cfg, nil
}

// StepDelay returns the duration between two motor half-steps.
func (c *Config) StepDelay() time.Duration {
	return time.Duration(c.Stepper.StepDelayMs) * time.Millisecond
}

// ReturnPeriod returns the interval between background return-to-center checks.
func (c *Config) ReturnPeriod() time.Duration {
	return time.Duration(c.Scheduler.PeriodMs) * time.Millisecond
}
