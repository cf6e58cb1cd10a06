// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package filter

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noisy(seed int64, n int, truth float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = truth + rng.NormFloat64()*0.5
	}
	return out
}

func TestAxisIsDeterministic(t *testing.T) {
	t.Parallel()

	params := Params{ProcessNoise: 0.01, MeasurementNoise: 3, InitialCovariance: 2}
	in := noisy(42, 500, 1.25)

	a, err := NewAxis(params)
	require.NoError(t, err)
	b, err := NewAxis(params)
	require.NoError(t, err)

	for i, z := range in {
		require.Equal(t, a.Filter(z), b.Filter(z), "sample %d", i)
	}
	assert.Equal(t, a.Covariance(), b.Covariance())
}

func TestAxisFirstMeasurementSeedsState(t *testing.T) {
	t.Parallel()

	a, err := NewAxis(Params{})
	require.NoError(t, err)
	assert.Equal(t, 4.0, a.Filter(4))
	assert.Equal(t, 1.0, a.Covariance(), "initial covariance defaults to measurement noise")
}

func TestAxisUnitNoiseSequence(t *testing.T) {
	t.Parallel()

	a, err := NewAxis(DefaultParams())
	require.NoError(t, err)

	// x0=0, P0=1. Second: P̂=2, K=2/3, x=2/3*3=2, P=2/3.
	assert.Equal(t, 0.0, a.Filter(0))
	assert.InDelta(t, 2.0, a.Filter(3), 1e-12)
	assert.InDelta(t, 2.0/3.0, a.Covariance(), 1e-12)
}

func TestAxisConstantInputIsFixedPoint(t *testing.T) {
	t.Parallel()

	a, err := NewAxis(DefaultParams())
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		assert.Equal(t, 1.0, a.Filter(1))
	}
}

func TestAxisConvergesTowardsTruth(t *testing.T) {
	t.Parallel()

	a, err := NewAxis(Params{ProcessNoise: 1e-6, MeasurementNoise: 0.25})
	require.NoError(t, err)

	in := noisy(7, 2000, -0.8)
	var last float64
	for _, z := range in {
		last = a.Filter(z)
	}
	assert.InDelta(t, -0.8, last, 0.1)

	var rawErr float64
	for _, z := range in[len(in)-50:] {
		rawErr += math.Abs(z + 0.8)
	}
	assert.Less(t, math.Abs(last+0.8), rawErr/50, "estimate beats the average raw error")
}

func TestAxisReset(t *testing.T) {
	t.Parallel()

	a, err := NewAxis(DefaultParams())
	require.NoError(t, err)
	a.Filter(10)
	a.Filter(12)
	a.Reset()
	assert.Equal(t, -3.0, a.Filter(-3))
}

func TestParamsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params Params
	}{
		{"negative process noise", Params{ProcessNoise: -1, MeasurementNoise: 1}},
		{"negative measurement noise", Params{ProcessNoise: 1, MeasurementNoise: -1}},
		{"nan measurement noise", Params{ProcessNoise: 1, MeasurementNoise: math.NaN()}},
		{"negative initial covariance", Params{ProcessNoise: 1, MeasurementNoise: 1, InitialCovariance: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAxis(tt.params)
			assert.Error(t, err)
		})
	}
}
