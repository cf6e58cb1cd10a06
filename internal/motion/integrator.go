// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package motion integrates world-frame acceleration into velocity and
// displacement with forward Euler steps.
//
// Double-integrating an accelerometer accumulates unbounded drift. The result
// is a best-effort estimate relative to the last Reset, not a position fix.
package motion

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultDeadband is the acceleration magnitude (m/s²) below which a
// component is treated as zero.
const DefaultDeadband = 0.1

// EarthRadius is the mean Earth radius in meters used by ModeGeographic.
const EarthRadius = 6371000.0

// maxScaleLatitude bounds the latitude used to scale easting into degrees of
// longitude, keeping the scale finite at and past the poles.
const maxScaleLatitude = 89.9999

// Mode selects how velocity is accumulated into the displacement output.
type Mode int

const (
	// ModeDisplacement accumulates meters along world x, y, z.
	ModeDisplacement Mode = iota
	// ModeGeographic accumulates x as degrees of latitude, y as degrees of
	// longitude at the current latitude, and z as meters of altitude.
	ModeGeographic
)

func (m Mode) String() string {
	switch m {
	case ModeDisplacement:
		return "displacement"
	case ModeGeographic:
		return "geographic"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a configuration string to a Mode. Empty means
// ModeDisplacement.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "displacement":
		return ModeDisplacement, nil
	case "geographic":
		return ModeGeographic, nil
	default:
		return 0, fmt.Errorf("motion: unknown integration mode %q", s)
	}
}

// Config configures an Integrator.
type Config struct {
	Mode     Mode
	Deadband float64 // m/s²; must be >= 0
	// OriginLatitude is the latitude (degrees) of the session origin, used by
	// ModeGeographic to scale longitude.
	OriginLatitude float64
}

// Integrator owns the velocity and displacement accumulators.
type Integrator struct {
	mode     Mode
	deadband float64

	mu           sync.RWMutex
	originLat    float64
	velocity     r3.Vec
	displacement r3.Vec
}

// New returns an integrator for cfg.
func New(cfg Config) (*Integrator, error) {
	if cfg.Deadband < 0 || math.IsNaN(cfg.Deadband) {
		return nil, fmt.Errorf("motion: deadband must be >= 0, got %v", cfg.Deadband)
	}
	if cfg.Mode != ModeDisplacement && cfg.Mode != ModeGeographic {
		return nil, fmt.Errorf("motion: unknown integration mode %v", cfg.Mode)
	}
	return &Integrator{
		mode:      cfg.Mode,
		deadband:  cfg.Deadband,
		originLat: cfg.OriginLatitude,
	}, nil
}

// Deadband zeroes every component of v whose magnitude is below threshold.
func Deadband(v r3.Vec, threshold float64) r3.Vec {
	return r3.Vec{
		X: deadband(v.X, threshold),
		Y: deadband(v.Y, threshold),
		Z: deadband(v.Z, threshold),
	}
}

func deadband(x, threshold float64) float64 {
	if math.Abs(x) < threshold {
		return 0
	}
	return x
}

// Integrate applies one forward Euler step of length dt seconds. Samples
// with a non-positive or non-finite dt leave the state untouched.
func (in *Integrator) Integrate(a r3.Vec, dt float64) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return
	}
	a = Deadband(a, in.deadband)

	in.mu.Lock()
	defer in.mu.Unlock()

	in.velocity = r3.Add(in.velocity, r3.Scale(dt, a))
	step := r3.Scale(dt, in.velocity)

	switch in.mode {
	case ModeGeographic:
		const toDeg = 180 / math.Pi
		in.displacement.X += step.X / EarthRadius * toDeg
		lat := Radians(math.Max(-maxScaleLatitude, math.Min(maxScaleLatitude, in.originLat+in.displacement.X)))
		in.displacement.Y += step.Y / (EarthRadius * math.Cos(lat)) * toDeg
		in.displacement.Z += step.Z
	default:
		in.displacement = r3.Add(in.displacement, step)
	}
}

// Reset zeroes velocity and displacement together.
func (in *Integrator) Reset() {
	in.mu.Lock()
	in.velocity = r3.Vec{}
	in.displacement = r3.Vec{}
	in.mu.Unlock()
}

// Velocity returns the accumulated velocity in m/s.
func (in *Integrator) Velocity() r3.Vec {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.velocity
}

// Displacement returns the accumulated displacement in the units of the
// configured Mode.
func (in *Integrator) Displacement() r3.Vec {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.displacement
}

// State returns velocity and displacement read under one lock.
func (in *Integrator) State() (velocity, displacement r3.Vec) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.velocity, in.displacement
}

// SetOrigin sets the origin latitude used by ModeGeographic.
func (in *Integrator) SetOrigin(latDeg float64) {
	in.mu.Lock()
	in.originLat = latDeg
	in.mu.Unlock()
}

// Origin returns the origin latitude in degrees.
func (in *Integrator) Origin() float64 {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.originLat
}

// Mode returns the integration mode.
func (in *Integrator) Mode() Mode { return in.mode }

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }
