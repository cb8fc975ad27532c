package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Loop.Window != 60 {
		t.Errorf("expected window 60, got %d", cfg.Loop.Window)
	}
	if cfg.Loop.MaxDt != 0.05 {
		t.Errorf("expected max dt 0.05, got %f", cfg.Loop.MaxDt)
	}
	if cfg.Loop.Paused {
		t.Error("loop should not start paused")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"negative max dt disables cap", func(c *Config) { c.Loop.MaxDt = -1 }, false},
		{"zero stop timeout", func(c *Config) { c.Loop.StopTimeoutMs = 0 }, false},
		{"zero window", func(c *Config) { c.Loop.Window = 0 }, true},
		{"negative timeout", func(c *Config) { c.Loop.StopTimeoutMs = -5 }, true},
		{"negative particles", func(c *Config) { c.World.Particles = -1 }, true},
		{"no types", func(c *Config) { c.World.Types = 0 }, true},
		{"zero rmax", func(c *Config) { c.World.RMax = 0 }, true},
		{"beta one", func(c *Config) { c.World.Beta = 1 }, true},
		{"no friction", func(c *Config) { c.World.FrictionHalfLife = 0 }, true},
		{"negative workers", func(c *Config) { c.World.Workers = -2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plife.yaml")
	cfg := DefaultConfig()
	cfg.World.Types = 4
	cfg.World.Matrix = "chains"
	cfg.Loop.MaxDt = -1

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if *got != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "world:\n  particles: 42\nloop:\n  stop_timeout_ms: 250\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.World.Particles != 42 {
		t.Errorf("expected 42 particles, got %d", cfg.World.Particles)
	}
	if cfg.World.Types != DefaultTypes {
		t.Errorf("expected default types, got %d", cfg.World.Types)
	}
	if cfg.StopTimeout() != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.StopTimeout())
	}
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("loop:\n  window: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected validation error")
	}

	garbage := filepath.Join(dir, "garbage.yaml")
	if err := os.WriteFile(garbage, []byte("loop: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(garbage); err == nil {
		t.Error("expected parse error")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("chains")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.World.Matrix != "chains" {
		t.Errorf("expected chains matrix, got %s", cfg.World.Matrix)
	}

	cfg.World.Matrix = "zero"
	if Presets["chains"].World.Matrix != "chains" {
		t.Error("GetPreset must return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsAreValid(t *testing.T) {
	for _, name := range ListPresets() {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("presets not sorted: %v", names)
		}
	}
}
