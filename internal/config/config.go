// Package config holds the viewer settings, loadable from a yaml file and
// served through clamped accessors.
package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings is the full tunable surface of the viewer.
type Settings struct {
	WindowWidth  int     `yaml:"window_width"`
	WindowHeight int     `yaml:"window_height"`
	ZNear        float32 `yaml:"z_near"`
	ZFar         float32 `yaml:"z_far"`
	FOVDegrees   float32 `yaml:"fov_degrees"`
	PointSize    float32 `yaml:"point_size"`

	// Streaming engine.
	Workers    int     `yaml:"workers"`
	SlotFactor float64 `yaml:"slot_factor"`
	Priority   string  `yaml:"priority"` // "camera" or "frustum"

	// Orbit benchmark mode.
	OrbitDegPerSec float32 `yaml:"orbit_deg_per_sec"`

	// Paths.
	FontPath  string `yaml:"font_path"`
	ExportDir string `yaml:"export_dir"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		WindowWidth:    800,
		WindowHeight:   600,
		ZNear:          1.0,
		ZFar:           100.0,
		FOVDegrees:     45.0,
		PointSize:      3.0,
		Workers:        5,
		SlotFactor:     0.1,
		Priority:       "camera",
		OrbitDegPerSec: 10.0,
		FontPath:       "assets/fonts/DejaVuSansMono.ttf",
		ExportDir:      "frames",
	}
}

// Load reads settings from a yaml file, filling gaps with defaults. A
// missing file is not an error.
func Load(path string) (Settings, error) {
	s := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Defaults(), fmt.Errorf("parse config %s: %w", path, err)
	}
	return s, nil
}

var (
	mu      sync.RWMutex
	current = Defaults()
)

// Set installs s as the active settings.
func Set(s Settings) {
	mu.Lock()
	current = s
	mu.Unlock()
}

// Get returns the active settings.
func Get() Settings {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Workers returns the worker count, at least 1.
func Workers() int {
	s := Get()
	if s.Workers < 1 {
		return 1
	}
	return s.Workers
}

// SlotFactor returns the slot sizing fraction clamped to (0, 1].
func SlotFactor() float64 {
	s := Get()
	if s.SlotFactor <= 0 {
		return 0.1
	}
	if s.SlotFactor > 1 {
		return 1
	}
	return s.SlotFactor
}

// PriorityByFrustum reports whether visible blocks sort by frustum-center
// distance instead of camera distance.
func PriorityByFrustum() bool {
	return Get().Priority == "frustum"
}
