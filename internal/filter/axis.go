// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package filter provides a scalar Kalman filter used to smooth one
// acceleration axis at a time.
package filter

import (
	"fmt"
	"math"
)

// Params configures an Axis. Zero values are replaced by DefaultParams.
type Params struct {
	// ProcessNoise is added to the error covariance on every predict step.
	ProcessNoise float64
	// MeasurementNoise is the variance assumed for each measurement.
	MeasurementNoise float64
	// InitialCovariance seeds the error covariance on the first measurement.
	// Zero means MeasurementNoise.
	InitialCovariance float64
}

// DefaultParams matches the classic one-dimensional filter with unit process
// and measurement noise.
func DefaultParams() Params {
	return Params{ProcessNoise: 1, MeasurementNoise: 1}
}

// Validate checks that the noise coefficients are usable.
func (p Params) Validate() error {
	if !(p.ProcessNoise > 0) {
		return fmt.Errorf("filter: process noise must be > 0, got %v", p.ProcessNoise)
	}
	if !(p.MeasurementNoise > 0) {
		return fmt.Errorf("filter: measurement noise must be > 0, got %v", p.MeasurementNoise)
	}
	if p.InitialCovariance < 0 || math.IsNaN(p.InitialCovariance) {
		return fmt.Errorf("filter: initial covariance must be >= 0, got %v", p.InitialCovariance)
	}
	return nil
}

// Axis is a scalar recursive estimator with a constant-state model
// (A=1, B=0, C=1). Each physical axis owns its own Axis.
type Axis struct {
	r  float64 // process noise
	q  float64 // measurement noise
	p0 float64 // initial covariance

	x      float64
	cov    float64
	primed bool
}

// NewAxis returns a filter for p. Zero-valued fields take their defaults.
func NewAxis(p Params) (*Axis, error) {
	d := DefaultParams()
	if p.ProcessNoise == 0 {
		p.ProcessNoise = d.ProcessNoise
	}
	if p.MeasurementNoise == 0 {
		p.MeasurementNoise = d.MeasurementNoise
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p0 := p.InitialCovariance
	if p0 == 0 {
		p0 = p.MeasurementNoise
	}
	return &Axis{r: p.ProcessNoise, q: p.MeasurementNoise, p0: p0}, nil
}

// Filter feeds one measurement and returns the updated estimate.
// The first measurement seeds the state directly.
func (a *Axis) Filter(z float64) float64 {
	if !a.primed {
		a.x = z
		a.cov = a.p0
		a.primed = true
		return a.x
	}

	// Predict.
	pred := a.x
	predCov := a.cov + a.r

	// Update.
	k := predCov / (predCov + a.q)
	a.x = pred + k*(z-pred)
	a.cov = predCov - k*predCov
	return a.x
}

// Estimate returns the current state estimate.
func (a *Axis) Estimate() float64 { return a.x }

// Covariance returns the current error covariance.
func (a *Axis) Covariance() float64 { return a.cov }

// Reset discards the state; the next measurement seeds it again.
func (a *Axis) Reset() {
	a.x = 0
	a.cov = 0
	a.primed = false
}
