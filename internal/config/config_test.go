// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "console", cfg.Logger().Format)
	assert.Equal(t, 1280, cfg.Viewport().Width)
	assert.Equal(t, 60, cfg.Driver().FPS)
	assert.Equal(t, 30*time.Second, cfg.Driver().RebuildTimeout)
	assert.Equal(t, "gemini-2.5-flash", cfg.Critic().Model)
	assert.Equal(t, DefaultImageURL, cfg.Source().Image)
	assert.Empty(t, cfg.Database().URL)
	assert.Equal(t, 30*time.Second, cfg.Network().Timeout)

	sim := cfg.Simulation()
	assert.Equal(t, 220, sim.Resolution)
	assert.Equal(t, 15.0, sim.Amplitude)
	assert.Equal(t, 0.94, sim.Friction)
	assert.Equal(t, 0.1, sim.Elasticity)
	assert.Equal(t, 180.0, sim.MouseRadius)
	assert.Equal(t, 25.0, sim.MouseStrength)
	require.NotNil(t, sim.HoverAmplitude)
	assert.Equal(t, 150.0, *sim.HoverAmplitude)
	require.NotNil(t, sim.RainbowIntensity)
	assert.Equal(t, 85.0, *sim.RainbowIntensity)
	assert.Equal(t, "rgba(240, 240, 240, 0.95)", sim.LineColor)
	assert.Equal(t, "#050505", sim.BackgroundColor)

	assert.NoError(t, cfg.Validate())
}

func TestSimulationConfig_OptionalFields(t *testing.T) {
	partial := SimulationConfig{Resolution: 50, Amplitude: 10}
	assert.Equal(t, 150.0, partial.EffectiveHoverAmplitude())
	assert.Equal(t, 80.0, partial.EffectiveRainbowIntensity())

	resolved := partial.Resolved()
	require.NotNil(t, resolved.HoverAmplitude)
	require.NotNil(t, resolved.RainbowIntensity)
	assert.Equal(t, 150.0, *resolved.HoverAmplitude)
	assert.Equal(t, 80.0, *resolved.RainbowIntensity)
	assert.Nil(t, partial.HoverAmplitude, "Resolved must not mutate the receiver")

	explicit := SimulationConfig{HoverAmplitude: Float(15), RainbowIntensity: Float(0)}
	assert.Equal(t, 15.0, explicit.EffectiveHoverAmplitude())
	assert.Equal(t, 0.0, explicit.EffectiveRainbowIntensity(), "an explicit zero is not replaced")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		assert.NoError(t, cfg.Validate(), "A valid config should not produce a validation error")

		badViewport := *cfg
		badViewport.ViewportCfg.Width = 0
		err := badViewport.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "viewport.width and viewport.height must be positive integers")

		badFPS := *cfg
		badFPS.DriverCfg.FPS = -1
		err = badFPS.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "driver.fps must be a positive integer")

		badPointer := *cfg
		badPointer.DriverCfg.Pointer = "teleport"
		err = badPointer.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "driver.pointer")

		badQuality := *cfg
		badQuality.RecordCfg.JPEGQuality = 101
		assert.Error(t, badQuality.Validate())
	})

	t.Run("Logger Validation", func(t *testing.T) {
		l := LoggerConfig{Format: "json"}
		assert.NoError(t, l.Validate())
		l.Format = "xml"
		err := l.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "logger.format must be 'console' or 'json'")
	})

	t.Run("Simulation Validation", func(t *testing.T) {
		sim := DefaultSimulation()
		assert.NoError(t, sim.Validate())

		sim.Resolution = 1
		assert.NoError(t, sim.Validate(), "a single column is a valid grid")

		sim.Resolution = 0
		err := sim.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "simulation.resolution must be at least 1")

		// Out-of-range physics is allowed through untouched.
		wild := DefaultSimulation()
		wild.Elasticity = 3
		wild.Friction = 1.5
		wild.MouseRadius = -10
		assert.NoError(t, wild.Validate())
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
simulation:
  resolution: 96
  mouse_strength: -40
viewport:
  width: 800
  height: 600
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, 96, cfg.Simulation().Resolution)
		assert.Equal(t, -40.0, cfg.Simulation().MouseStrength, "negative strength attracts and is valid")
		assert.Equal(t, 800, cfg.Viewport().Width)
		// Check a default value was also loaded
		assert.Equal(t, 0.94, cfg.Simulation().Friction)
		assert.Equal(t, "info", cfg.Logger().Level)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("simulation.resolution", 0) // Intentionally invalid

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "simulation.resolution must be at least 1")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)

		yamlConfig := []byte(`
database:
  url: "postgres://configfile/db"
`)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

		t.Setenv("FLUX_CRITIC_API_KEY", "key-from-env")
		t.Setenv("FLUX_DATABASE_URL", "postgres://envvar/db")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "key-from-env", cfg.Critic().APIKey)
		assert.Equal(t, "postgres://envvar/db", cfg.Database().URL, "env must override the config file")
	})

	t.Run("Generic API key fallback", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		t.Setenv("FLUX_CRITIC_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("API_KEY", "generic-key")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "generic-key", cfg.Critic().APIKey)
	})
}

// -- Struct and Mapping Tests --

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  log_file: /var/log/flux.log
simulation:
  hover_amplitude: 15
  rainbow_intensity: 0
  line_color: "#ffffff"
driver:
  rebuild_timeout: 5s
  pointer: wander
record:
  duration: 1m
`
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlInput)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "debug", cfg.Logger().Level)
	assert.Equal(t, "/var/log/flux.log", cfg.Logger().LogFile)
	assert.Equal(t, 15.0, cfg.Simulation().EffectiveHoverAmplitude())
	assert.Equal(t, 0.0, cfg.Simulation().EffectiveRainbowIntensity())
	assert.Equal(t, "#ffffff", cfg.Simulation().LineColor)
	assert.Equal(t, 5*time.Second, cfg.Driver().RebuildTimeout)
	assert.Equal(t, "wander", cfg.Driver().Pointer)
	assert.Equal(t, time.Minute, cfg.Record().Duration)
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()
	var iface Interface = cfg

	sim := iface.Simulation()
	sim.Resolution = 64
	iface.SetSimulation(sim)
	iface.SetSourceImage("/tmp/x.png")
	iface.SetViewport(320, 200)

	assert.Equal(t, 64, cfg.Simulation().Resolution)
	assert.Equal(t, "/tmp/x.png", cfg.Source().Image)
	assert.Equal(t, ViewportConfig{Width: 320, Height: 200}, cfg.Viewport())
}
