// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration estimates constant sensor offsets by averaging a fixed
// window of samples taken while the device is at rest.
package calibration

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultSamples is the calibration window used when none is configured.
const DefaultSamples = 100

// Bias accumulates a running mean of three-channel samples. For orientation
// signals the channels are X=alpha, Y=beta, Z=gamma.
//
// Once the window is exhausted the mean is frozen and further samples are
// ignored until Start is called again. A restarted calibrator keeps serving
// the previously frozen estimate until the new window completes.
type Bias struct {
	samples int

	sum   r3.Vec
	count int

	estimate r3.Vec
	frozen   bool
}

// NewBias returns a calibrator that completes after samples samples.
// Non-positive values fall back to DefaultSamples.
func NewBias(samples int) *Bias {
	if samples <= 0 {
		samples = DefaultSamples
	}
	return &Bias{samples: samples}
}

// Start resets the running sum and sample counter.
func (b *Bias) Start() {
	b.sum = r3.Vec{}
	b.count = 0
}

// Accumulate adds one sample. It is a no-op once the window is complete.
// It reports whether this sample completed the window.
func (b *Bias) Accumulate(v r3.Vec) bool {
	if b.IsComplete() {
		return false
	}
	b.sum = r3.Add(b.sum, v)
	b.count++
	if b.count < b.samples {
		return false
	}
	b.estimate = r3.Scale(1/float64(b.count), b.sum)
	b.frozen = true
	return true
}

// IsComplete reports whether the current window has been filled.
func (b *Bias) IsComplete() bool {
	return b.count >= b.samples
}

// Estimate returns the most recently frozen mean. ok is false if no window
// has ever completed.
func (b *Bias) Estimate() (v r3.Vec, ok bool) {
	return b.estimate, b.frozen
}

// Count returns the number of samples in the current window.
func (b *Bias) Count() int { return b.count }

// Samples returns the window size.
func (b *Bias) Samples() int { return b.samples }

// Preset installs a previously computed estimate and marks the window
// complete, as if a calibration had just finished with that mean.
func (b *Bias) Preset(v r3.Vec) {
	b.estimate = v
	b.frozen = true
	b.sum = r3.Scale(float64(b.samples), v)
	b.count = b.samples
}
