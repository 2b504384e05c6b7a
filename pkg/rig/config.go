package rig

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gwillem/dxlservo/pkg/profile"
	"github.com/gwillem/dxlservo/pkg/servo"
)

const DefaultConfigFile = "dxlservo.yaml"

// Config holds the rig configuration
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	Settle    SettleConfig    `yaml:"settle,omitempty"`
	Servos    []ServoConfig   `yaml:"servos"`
}

// TransportConfig selects the register transport
type TransportConfig struct {
	Backend  string `yaml:"backend"`
	Port     string `yaml:"port,omitempty"`
	Baud     int    `yaml:"baud,omitempty"`
	Protocol string `yaml:"protocol,omitempty"`
}

// SettleConfig mirrors servo.SettleOptions
type SettleConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval,omitempty"`
	ProgressEvery int           `yaml:"progress_every,omitempty"`
	Timeout       time.Duration `yaml:"timeout,omitempty"`
}

// Options converts the settle section for servo.Config.
func (c SettleConfig) Options() servo.SettleOptions {
	return servo.SettleOptions{
		PollInterval:  c.PollInterval,
		ProgressEvery: c.ProgressEvery,
		Timeout:       c.Timeout,
	}
}

// ServoConfig holds configuration for a single servo
type ServoConfig struct {
	Name         string         `yaml:"name"`
	ID           uint8          `yaml:"id"`
	Family       profile.Family `yaml:"family"`
	Mode         string         `yaml:"mode,omitempty"`
	HomingOffset *int32         `yaml:"homing_offset,omitempty"`
	Limits       LimitsConfig   `yaml:"limits,omitempty"`
	Motion       MotionConfig   `yaml:"motion,omitempty"`
}

// LimitsConfig holds physical limits. Zero values are left untouched.
type LimitsConfig struct {
	CurrentAmps      float64  `yaml:"current_amps,omitempty"`
	VelocityRPM      float64  `yaml:"velocity_rpm,omitempty"`
	AccelerationRPM2 float64  `yaml:"acceleration_rpm2,omitempty"`
	MinAngle         *float64 `yaml:"min_angle,omitempty"`
	MaxAngle         *float64 `yaml:"max_angle,omitempty"`
}

// MotionConfig holds the trajectory profile.
type MotionConfig struct {
	VelocityRPM      float64 `yaml:"velocity_rpm,omitempty"`
	AccelerationRPM2 float64 `yaml:"acceleration_rpm2,omitempty"`
}

// Validate checks names, ids and families.
func (c *Config) Validate() error {
	if len(c.Servos) == 0 {
		return errors.New("config: no servos configured")
	}
	if _, err := c.Protocol(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	names := make(map[string]bool)
	ids := make(map[uint8]bool)
	for i, s := range c.Servos {
		switch {
		case s.Name == "":
			return fmt.Errorf("config: servo %d has no name", i)
		case names[s.Name]:
			return fmt.Errorf("config: duplicate servo name %q", s.Name)
		case s.ID == 0 || s.ID > 252:
			return fmt.Errorf("config: servo %q: id %d outside 1..252", s.Name, s.ID)
		case ids[s.ID]:
			return fmt.Errorf("config: servo %q: duplicate id %d", s.Name, s.ID)
		}
		if _, err := profile.For(s.Family); err != nil {
			return fmt.Errorf("config: servo %q: %w", s.Name, err)
		}
		if s.Mode != "" {
			m, err := profile.ParseMode(s.Mode)
			if err != nil {
				return fmt.Errorf("config: servo %q: %w", s.Name, err)
			}
			if !profile.MustFor(s.Family).SupportsMode(m) {
				return fmt.Errorf("config: servo %q: %s servos have no %s mode", s.Name, s.Family, m)
			}
		}
		if lo, hi := s.Limits.MinAngle, s.Limits.MaxAngle; lo != nil && hi != nil && *lo >= *hi {
			return fmt.Errorf("config: servo %q: min_angle %g not below max_angle %g", s.Name, *lo, *hi)
		}
		names[s.Name] = true
		ids[s.ID] = true
	}
	return nil
}

// Servo returns the configuration of the named servo.
func (c *Config) Servo(name string) (ServoConfig, bool) {
	for _, s := range c.Servos {
		if s.Name == name {
			return s, true
		}
	}
	return ServoConfig{}, false
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads and validates configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
