package config

import "sort"

func preset(mutate func(c *Config)) *Config {
	c := DefaultConfig()
	mutate(c)
	return c
}

var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"small": preset(func(c *Config) {
		c.World.Particles = 200
		c.World.Types = 3
	}),
	"chains": preset(func(c *Config) {
		c.World.Matrix = "chains"
		c.World.Types = 5
		c.World.Positions = "ring"
	}),
	"symmetric": preset(func(c *Config) {
		c.World.Matrix = "symmetric"
		c.World.Positions = "centered"
	}),
	"bounded": preset(func(c *Config) {
		c.World.Wrap = false
		c.World.Positions = "centered"
		c.World.Particles = 600
	}),
	"uncapped": preset(func(c *Config) {
		c.Loop.MaxDt = -1
		c.Loop.Window = 120
	}),
	"frozen": preset(func(c *Config) {
		c.World.Matrix = "zero"
		c.Loop.Paused = true
	}),
}

// GetPreset returns a copy of the named preset, or nil if there is none.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
