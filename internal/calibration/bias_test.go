// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

func TestBiasEstimateIsArithmeticMean(t *testing.T) {
	t.Parallel()

	for _, window := range []int{1, 7, 100} {
		b := NewBias(window)
		b.Start()

		xs := make([]float64, 0, window)
		ys := make([]float64, 0, window)
		zs := make([]float64, 0, window)
		// Feed more samples than the window; only the first window counts.
		for i := 0; i < window+25; i++ {
			v := r3.Vec{X: math.Sin(float64(i)), Y: 0.1 * float64(i), Z: -9.81 + 0.01*float64(i%3)}
			if i < window {
				xs = append(xs, v.X)
				ys = append(ys, v.Y)
				zs = append(zs, v.Z)
			}
			b.Accumulate(v)
		}

		require.True(t, b.IsComplete())
		assert.Equal(t, window, b.Count())
		got, ok := b.Estimate()
		require.True(t, ok)
		assert.InDelta(t, stat.Mean(xs, nil), got.X, 1e-12)
		assert.InDelta(t, stat.Mean(ys, nil), got.Y, 1e-12)
		assert.InDelta(t, stat.Mean(zs, nil), got.Z, 1e-12)
	}
}

func TestBiasAccumulateReportsCompletion(t *testing.T) {
	t.Parallel()

	b := NewBias(3)
	b.Start()
	assert.False(t, b.Accumulate(r3.Vec{X: 1}))
	assert.False(t, b.Accumulate(r3.Vec{X: 2}))
	assert.True(t, b.Accumulate(r3.Vec{X: 3}))
	assert.False(t, b.Accumulate(r3.Vec{X: 100}), "samples after completion are ignored")

	got, ok := b.Estimate()
	require.True(t, ok)
	assert.InDelta(t, 2.0, got.X, 1e-12)
}

func TestBiasRestartKeepsFrozenEstimateUntilComplete(t *testing.T) {
	t.Parallel()

	b := NewBias(2)
	b.Start()
	b.Accumulate(r3.Vec{Y: 4})
	b.Accumulate(r3.Vec{Y: 6})

	b.Start()
	assert.False(t, b.IsComplete())
	assert.Zero(t, b.Count())
	got, ok := b.Estimate()
	require.True(t, ok)
	assert.InDelta(t, 5.0, got.Y, 1e-12)

	b.Accumulate(r3.Vec{Y: 1})
	b.Accumulate(r3.Vec{Y: 1})
	got, _ = b.Estimate()
	assert.InDelta(t, 1.0, got.Y, 1e-12)
}

func TestBiasBeforeCalibration(t *testing.T) {
	t.Parallel()

	b := NewBias(0)
	assert.Equal(t, DefaultSamples, b.Samples())
	got, ok := b.Estimate()
	assert.False(t, ok)
	assert.Equal(t, r3.Vec{}, got)
}

func TestBiasPreset(t *testing.T) {
	t.Parallel()

	b := NewBias(10)
	b.Preset(r3.Vec{X: 0.2, Y: -0.1, Z: 0.05})
	assert.True(t, b.IsComplete())
	got, ok := b.Estimate()
	require.True(t, ok)
	assert.Equal(t, r3.Vec{X: 0.2, Y: -0.1, Z: 0.05}, got)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	t.Run("still capture", func(t *testing.T) {
		t.Parallel()
		values := []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: 1, Y: 2, Z: 3}, {X: 1, Y: 2, Z: 3}}
		s := Summarize(values)
		assert.Equal(t, 3, s.Samples)
		assert.Equal(t, r3.Vec{X: 1, Y: 2, Z: 3}, s.Mean)
		assert.Equal(t, r3.Vec{}, s.StdDev)
		assert.Equal(t, 1.0, s.Confidence)
	})

	t.Run("noisy capture", func(t *testing.T) {
		t.Parallel()
		values := []r3.Vec{{X: -2}, {X: 2}, {X: -2}, {X: 2}}
		s := Summarize(values)
		assert.InDelta(t, 0, s.Mean.X, 1e-12)
		assert.Greater(t, s.StdDev.X, 2.0)
		assert.Equal(t, confFloor, s.Confidence)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, Summary{}, Summarize(nil))
	})
}

func TestStillnessConfidenceInterpolates(t *testing.T) {
	t.Parallel()

	mid := (StillStdGood + StillStdBad) / 2
	c := StillnessConfidence(r3.Vec{X: mid, Y: mid, Z: mid})
	assert.InDelta(t, 1.0-0.95*0.5, c, 1e-9)
}
