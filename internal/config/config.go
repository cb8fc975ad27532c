package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultWindow        = 60
	DefaultMaxDt         = 1.0 / 20.0
	DefaultStopTimeoutMs = 1000
	DefaultParticles     = 1000
	DefaultTypes         = 6
	DefaultRMax          = 0.1
	DefaultBeta          = 0.3
	DefaultForce         = 1.0
	DefaultFrictionHL    = 0.04
)

type Config struct {
	Loop  LoopConfig  `yaml:"loop" json:"loop"`
	World WorldConfig `yaml:"world" json:"world"`
}

type LoopConfig struct {
	Window        int     `yaml:"window" json:"window"`
	MaxDt         float64 `yaml:"max_dt" json:"max_dt"`
	StopTimeoutMs int     `yaml:"stop_timeout_ms" json:"stop_timeout_ms"`
	Paused        bool    `yaml:"paused" json:"paused"`
}

type WorldConfig struct {
	Particles        int     `yaml:"particles" json:"particles"`
	Types            int     `yaml:"types" json:"types"`
	Seed             int64   `yaml:"seed" json:"seed"`
	RMax             float64 `yaml:"rmax" json:"rmax"`
	Beta             float64 `yaml:"beta" json:"beta"`
	Force            float64 `yaml:"force" json:"force"`
	FrictionHalfLife float64 `yaml:"friction_half_life" json:"friction_half_life"`
	Wrap             bool    `yaml:"wrap" json:"wrap"`
	Workers          int     `yaml:"workers" json:"workers"`
	Matrix           string  `yaml:"matrix" json:"matrix"`
	Positions        string  `yaml:"positions" json:"positions"`
	TypeSetter       string  `yaml:"type_setter" json:"type_setter"`
}

func DefaultConfig() *Config {
	return &Config{
		Loop: LoopConfig{
			Window:        DefaultWindow,
			MaxDt:         DefaultMaxDt,
			StopTimeoutMs: DefaultStopTimeoutMs,
		},
		World: WorldConfig{
			Particles:        DefaultParticles,
			Types:            DefaultTypes,
			Seed:             1,
			RMax:             DefaultRMax,
			Beta:             DefaultBeta,
			Force:            DefaultForce,
			FrictionHalfLife: DefaultFrictionHL,
			Wrap:             true,
			Matrix:           "random",
			Positions:        "uniform",
			TypeSetter:       "random",
		},
	}
}

// Load reads a YAML file on top of the defaults, so a file only needs the
// fields it changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects values the loop or the world cannot run with. A negative
// max_dt is valid and disables the cap.
func (c *Config) Validate() error {
	if c.Loop.Window < 1 {
		return fmt.Errorf("loop.window must be at least 1, got %d", c.Loop.Window)
	}
	if c.Loop.StopTimeoutMs < 0 {
		return fmt.Errorf("loop.stop_timeout_ms must not be negative, got %d", c.Loop.StopTimeoutMs)
	}
	w := c.World
	if w.Particles < 0 {
		return fmt.Errorf("world.particles must not be negative, got %d", w.Particles)
	}
	if w.Types < 1 {
		return fmt.Errorf("world.types must be at least 1, got %d", w.Types)
	}
	if w.RMax <= 0 {
		return fmt.Errorf("world.rmax must be positive, got %f", w.RMax)
	}
	if w.Beta <= 0 || w.Beta >= 1 {
		return fmt.Errorf("world.beta must be in (0, 1), got %f", w.Beta)
	}
	if w.Workers < 0 {
		return fmt.Errorf("world.workers must not be negative, got %d", w.Workers)
	}
	if w.FrictionHalfLife <= 0 {
		return fmt.Errorf("world.friction_half_life must be positive, got %f", w.FrictionHalfLife)
	}
	return nil
}

// StopTimeout converts the configured milliseconds. Zero waits forever.
func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.Loop.StopTimeoutMs) * time.Millisecond
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
