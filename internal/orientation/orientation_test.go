// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestTransformZeroAnglesIsIdentity(t *testing.T) {
	t.Parallel()

	for _, v := range []r3.Vec{
		{X: 1},
		{X: -3.5, Y: 2.25, Z: 9.81},
		{X: 1e-3, Y: -1e-3, Z: 0},
	} {
		got := Transform(v, Angles{})
		if diff := cmp.Diff(v, got, approx); diff != "" {
			t.Errorf("Transform(%v, 0) mismatch (-want +got):\n%s", v, diff)
		}
	}
}

func TestTransformPreservesNorm(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		a := Angles{
			Alpha: rng.Float64() * 360,
			Beta:  rng.Float64()*360 - 180,
			Gamma: rng.Float64()*180 - 90,
		}
		v := r3.Vec{X: rng.NormFloat64() * 5, Y: rng.NormFloat64() * 5, Z: rng.NormFloat64() * 5}
		got := Transform(v, a)
		assert.InDelta(t, r3.Norm(v), r3.Norm(got), 1e-9, "angles %+v", a)
	}
}

func TestRotationMatrixIsOrthonormal(t *testing.T) {
	t.Parallel()

	a := Angles{Alpha: 123, Beta: -47, Gamma: 31}
	r := mat.NewDense(3, 3, nil)
	m := RotationMatrix(a)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r.Set(i, j, m.At(i, j))
		}
	}

	var rrt mat.Dense
	rrt.Mul(r, r.T())
	assert.True(t, mat.EqualApprox(&rrt, mat.NewDiagDense(3, []float64{1, 1, 1}), 1e-12))
	assert.InDelta(t, 1.0, mat.Det(r), 1e-12)
}

func TestTransformQuarterTurns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		angles Angles
		in     r3.Vec
		want   r3.Vec
	}{
		{
			name:   "gamma 90 takes device x to world -y",
			angles: Angles{Gamma: 90},
			in:     r3.Vec{X: 1},
			want:   r3.Vec{Y: -1},
		},
		{
			name:   "alpha 90 takes device y to world -z",
			angles: Angles{Alpha: 90},
			in:     r3.Vec{Y: 1},
			want:   r3.Vec{Z: -1},
		},
		{
			name:   "alpha 90 leaves device x in place",
			angles: Angles{Alpha: 90},
			in:     r3.Vec{X: 1},
			want:   r3.Vec{X: 1},
		},
		{
			name:   "beta 90 takes device x to world z",
			angles: Angles{Beta: 90},
			in:     r3.Vec{X: 1},
			want:   r3.Vec{Z: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transform(tt.in, tt.angles)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnglesFromAccel(t *testing.T) {
	t.Parallel()

	level := AnglesFromAccel(0, 0, 9.81)
	assert.Equal(t, Angles{}, level)

	// Device rolled so gravity sits on +y: beta 90.
	side := AnglesFromAccel(0, 9.81, 0)
	assert.InDelta(t, 90, side.Beta, 1e-9)

	// Nose down so gravity sits on -x: gamma 90.
	nose := AnglesFromAccel(-9.81, 0, 0)
	assert.InDelta(t, 90, nose.Gamma, 1e-9)
}

func TestAnglesVecRoundTrip(t *testing.T) {
	t.Parallel()

	a := Angles{Alpha: 10, Beta: -20, Gamma: 30}
	assert.Equal(t, a, FromVec(a.Vec()))
	assert.Equal(t, Angles{Alpha: 9, Beta: -21, Gamma: 29}, a.Sub(Angles{Alpha: 1, Beta: 1, Gamma: 1}))
	assert.InDelta(t, math.Pi/2, Radians(90), 1e-15)
}
