// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

import (
	"errors"
	"fmt"
	"math"

	"github.com/relabs-tech/inertial_tracker/internal/calibration"
	"github.com/relabs-tech/inertial_tracker/internal/filter"
	"github.com/relabs-tech/inertial_tracker/internal/motion"
)

// ErrInvalidConfig is wrapped by every configuration error returned from New.
var ErrInvalidConfig = errors.New("estimator: invalid configuration")

// Config holds the tunable constants of the estimator.
type Config struct {
	// CalibrationSamples is the bias window size for both signal kinds.
	CalibrationSamples int
	// Deadband is the acceleration magnitude (m/s²) treated as zero.
	Deadband float64
	// Filter configures the three acceleration axis filters.
	Filter filter.Params
	// Mode selects direct displacement or geographic-delta output.
	Mode motion.Mode
	// OriginLatitude seeds ModeGeographic.
	OriginLatitude float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		CalibrationSamples: calibration.DefaultSamples,
		Deadband:           motion.DefaultDeadband,
		Filter:             filter.DefaultParams(),
		Mode:               motion.ModeDisplacement,
	}
}

// Validate reports configuration errors wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	if c.CalibrationSamples <= 0 {
		return fmt.Errorf("%w: calibration samples must be > 0, got %d", ErrInvalidConfig, c.CalibrationSamples)
	}
	if c.Deadband < 0 || math.IsNaN(c.Deadband) {
		return fmt.Errorf("%w: deadband must be >= 0, got %v", ErrInvalidConfig, c.Deadband)
	}
	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Mode != motion.ModeDisplacement && c.Mode != motion.ModeGeographic {
		return fmt.Errorf("%w: unknown integration mode %v", ErrInvalidConfig, c.Mode)
	}
	if c.OriginLatitude < -90 || c.OriginLatitude > 90 {
		return fmt.Errorf("%w: origin latitude must be within [-90, 90], got %v", ErrInvalidConfig, c.OriginLatitude)
	}
	return nil
}
