// types.go
package config

import "github.com/xtding233/wheel-backend/internal/wheel"

// Raw config loaded from YAML; mirrors the wheel file schema.
type RawConfig struct {
	Version string     `yaml:"version"`
	Spin    SpinCfg    `yaml:"spin"`
	Slices  []SliceCfg `yaml:"slices,omitempty"`
	Notes   string     `yaml:"notes,omitempty"`
}

type SpinCfg struct {
	MinRevolutions  *int     `yaml:"min_revolutions"`
	MaxRevolutions  *int     `yaml:"max_revolutions"` // exclusive
	AngularSpeed    *float64 `yaml:"angular_speed"`   // degrees/sec
	IndicatorOffset *float64 `yaml:"indicator_offset"`
}

type SliceCfg struct {
	Payload string   `yaml:"payload"`
	Label   string   `yaml:"label,omitempty"`
	Icon    string   `yaml:"icon,omitempty"`
	Weight  *float64 `yaml:"weight"`
}

// Wheel is the normalized config consumed by internal/wheel.
type Wheel struct {
	Name    string
	Version string // effective config version for tracing
	Slices  []wheel.Slice
	Spin    wheel.SpinConfig
}
