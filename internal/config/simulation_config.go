// File: internal/config/simulation_config.go
// This file defines SimulationConfig, the user-tunable parameters of the point
// field: grid density, displacement amplitudes, spring constants and the
// pointer field. Every field except Resolution applies on the next frame;
// a Resolution change rebuilds the grid.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// DefaultImageURL is the source used when none is configured.
const DefaultImageURL = "https://images.unsplash.com/photo-1580137189272-c9379f8864fd?q=80&w=2000&auto=format&fit=crop"

const (
	// DefaultHoverAmplitude applies when HoverAmplitude is absent.
	DefaultHoverAmplitude = 150.0
	// DefaultRainbowIntensity applies when RainbowIntensity is absent. The
	// shipped defaults set 85 explicitly.
	DefaultRainbowIntensity = 80.0
)

// SimulationConfig holds the point-field parameters.
type SimulationConfig struct {
	// Resolution is the grid column count.
	Resolution int `mapstructure:"resolution" yaml:"resolution"`
	// Amplitude scales the resting vertical displacement by brightness.
	Amplitude float64 `mapstructure:"amplitude" yaml:"amplitude"`
	// HoverAmplitude replaces Amplitude directly under the pointer. Optional.
	HoverAmplitude *float64 `mapstructure:"hover_amplitude" yaml:"hover_amplitude,omitempty"`
	// Friction is the per-tick velocity decay factor, 0-1.
	Friction float64 `mapstructure:"friction" yaml:"friction"`
	// Elasticity is the fraction of positional error corrected per tick, 0-1.
	Elasticity float64 `mapstructure:"elasticity" yaml:"elasticity"`
	// MouseRadius is the pointer field radius in pixels.
	MouseRadius float64 `mapstructure:"mouse_radius" yaml:"mouse_radius"`
	// MouseStrength is the repulsion magnitude. Negative values attract.
	MouseStrength float64 `mapstructure:"mouse_strength" yaml:"mouse_strength"`
	// RainbowIntensity is the 0-100 saturation of the spectral stroke. Optional.
	RainbowIntensity *float64 `mapstructure:"rainbow_intensity" yaml:"rainbow_intensity,omitempty"`
	LineColor        string   `mapstructure:"line_color" yaml:"line_color"`
	BackgroundColor  string   `mapstructure:"background_color" yaml:"background_color"`
}

// EffectiveHoverAmplitude returns HoverAmplitude or its default.
func (s SimulationConfig) EffectiveHoverAmplitude() float64 {
	if s.HoverAmplitude == nil {
		return DefaultHoverAmplitude
	}
	return *s.HoverAmplitude
}

// EffectiveRainbowIntensity returns RainbowIntensity or its default.
func (s SimulationConfig) EffectiveRainbowIntensity() float64 {
	if s.RainbowIntensity == nil {
		return DefaultRainbowIntensity
	}
	return *s.RainbowIntensity
}

// Resolved returns a copy with every optional field filled in.
func (s SimulationConfig) Resolved() SimulationConfig {
	hover := s.EffectiveHoverAmplitude()
	rainbow := s.EffectiveRainbowIntensity()
	s.HoverAmplitude = &hover
	s.RainbowIntensity = &rainbow
	return s
}

// Validate only rejects a grid that cannot be built. Degenerate physics
// settings are accepted and produce degenerate visuals.
func (s SimulationConfig) Validate() error {
	if s.Resolution < 1 {
		return fmt.Errorf("simulation.resolution must be at least 1 (got %d)", s.Resolution)
	}
	return nil
}

// DefaultSimulation returns the shipped simulation defaults.
func DefaultSimulation() SimulationConfig {
	return NewDefaultConfig().SimulationCfg
}

// Float returns a pointer to v, for populating optional fields.
func Float(v float64) *float64 { return &v }

func setSimulationDefaults(v *viper.Viper) {
	v.SetDefault("simulation.resolution", 220)
	v.SetDefault("simulation.amplitude", 15.0)
	v.SetDefault("simulation.hover_amplitude", DefaultHoverAmplitude)
	v.SetDefault("simulation.friction", 0.94)
	v.SetDefault("simulation.elasticity", 0.1)
	v.SetDefault("simulation.mouse_radius", 180.0)
	v.SetDefault("simulation.mouse_strength", 25.0)
	v.SetDefault("simulation.rainbow_intensity", 85.0)
	v.SetDefault("simulation.line_color", "rgba(240, 240, 240, 0.95)")
	v.SetDefault("simulation.background_color", "#050505")
}
