// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Stillness thresholds on the mean per-axis standard deviation of a capture,
// in the capture's units (m/s² for acceleration, degrees for orientation).
const (
	StillStdGood = 0.05
	StillStdBad  = 0.5

	confFloor = 0.05
)

// Summary describes a captured calibration window.
type Summary struct {
	Samples    int     `json:"samples"`
	Mean       r3.Vec  `json:"mean"`
	StdDev     r3.Vec  `json:"stddev"`
	Confidence float64 `json:"confidence"`
}

// Summarize computes per-axis mean and standard deviation of values and a
// stillness confidence in [confFloor, 1].
func Summarize(values []r3.Vec) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i, v := range values {
		xs[i], ys[i], zs[i] = v.X, v.Y, v.Z
	}

	var s Summary
	s.Samples = n
	s.Mean.X, s.StdDev.X = meanStd(xs)
	s.Mean.Y, s.StdDev.Y = meanStd(ys)
	s.Mean.Z, s.StdDev.Z = meanStd(zs)
	s.Confidence = StillnessConfidence(s.StdDev)
	return s
}

func meanStd(x []float64) (mean, std float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	return stat.MeanStdDev(x, nil)
}

// StillnessConfidence maps the average standard deviation across axes to a
// confidence: 1 at or below StillStdGood, confFloor at or above StillStdBad,
// linear in between.
func StillnessConfidence(std r3.Vec) float64 {
	s := (std.X + std.Y + std.Z) / 3
	switch {
	case s <= StillStdGood:
		return 1.0
	case s >= StillStdBad:
		return confFloor
	default:
		t := (s - StillStdGood) / (StillStdBad - StillStdGood)
		return clamp01(1.0 - 0.95*t)
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
