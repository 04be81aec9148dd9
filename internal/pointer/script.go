// internal/pointer/script.go
package pointer

import (
	"fmt"
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/charmbracelet/harmonica"

	"github.com/xkilldash9x/flux-cli/internal/field"
)

// Mode names a scripted pointer path.
type Mode string

const (
	ModeNone   Mode = "none"
	ModeOrbit  Mode = "orbit"
	ModeSweep  Mode = "sweep"
	ModeWander Mode = "wander"
)

// ParseMode maps a config value onto a Mode. The empty string is ModeNone.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeNone:
		return ModeNone, nil
	case ModeOrbit, ModeSweep, ModeWander:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown pointer mode %q", s)
}

// Spring tuning for waypoint travel.
const (
	springFrequency = 4.0
	springDamping   = 0.6

	// Waypoint angular speed for orbit, in radians per second.
	orbitSpeed = 0.8
	// Seconds for one left-to-right sweep.
	sweepPeriod = 6.0

	// Perlin settings for wander drift.
	perlinAlpha     = 2.0
	perlinBeta      = 2.0
	perlinN         = 3
	perlinFrequency = 0.35
)

// ScriptConfig shapes a Script.
type ScriptConfig struct {
	Mode          Mode
	Width, Height float64
	FPS           int
	Seed          int64
}

// Script is a synthetic pointer for headless runs. Each Position call
// advances the path by one frame: a waypoint moves along the chosen path and
// the reported position chases it on a critically-damped-ish spring.
type Script struct {
	cfg    ScriptConfig
	spring harmonica.Spring
	dt     float64
	frame  int

	pos, vel       field.Vec2
	noiseX, noiseY *perlin.Perlin
}

// NewScript builds a scripted pointer. FPS defaults to 60.
func NewScript(cfg ScriptConfig) *Script {
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}
	s := &Script{
		cfg:    cfg,
		spring: harmonica.NewSpring(harmonica.FPS(cfg.FPS), springFrequency, springDamping),
		dt:     1 / float64(cfg.FPS),
		noiseX: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinN, cfg.Seed),
		noiseY: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinN, cfg.Seed+1), // Offset seed for Y noise
	}
	s.pos = s.waypoint(0)
	return s
}

// Position advances one frame and returns the new pointer position.
func (s *Script) Position() field.Vec2 {
	if s.cfg.Mode == ModeNone || s.cfg.Mode == "" {
		return Gone
	}
	s.frame++
	target := s.waypoint(float64(s.frame) * s.dt)
	s.pos.X, s.vel.X = s.spring.Update(s.pos.X, s.vel.X, target.X)
	s.pos.Y, s.vel.Y = s.spring.Update(s.pos.Y, s.vel.Y, target.Y)
	return s.pos
}

// waypoint is the unsmoothed path position at elapsed seconds.
func (s *Script) waypoint(elapsed float64) field.Vec2 {
	w, h := s.cfg.Width, s.cfg.Height
	centre := field.Vec2{X: w / 2, Y: h / 2}

	switch s.cfg.Mode {
	case ModeOrbit:
		r := math.Min(w, h) * 0.3
		a := elapsed * orbitSpeed
		return field.Vec2{X: centre.X + math.Cos(a)*r, Y: centre.Y + math.Sin(a)*r}
	case ModeSweep:
		// Triangle wave across the full width with a gentle vertical sway.
		phase := math.Mod(elapsed/sweepPeriod, 2)
		if phase > 1 {
			phase = 2 - phase
		}
		return field.Vec2{
			X: phase * w,
			Y: centre.Y + math.Sin(elapsed*1.3)*h*0.15,
		}
	case ModeWander:
		tn := elapsed * perlinFrequency
		return field.Vec2{
			X: centre.X + s.noiseX.Noise1D(tn)*w*0.8,
			Y: centre.Y + s.noiseY.Noise1D(tn)*h*0.8,
		}
	}
	return Gone
}
