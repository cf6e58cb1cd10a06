// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Angles is the device orientation in degrees, as reported by the sensor
// source:
//
//	alpha: rotation around world Z, [0, 360)
//	beta:  rotation around world X, [-180, 180]
//	gamma: rotation around world Y, [-90, 90]
type Angles struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Vec packs the angles into a vector (X=alpha, Y=beta, Z=gamma).
func (a Angles) Vec() r3.Vec {
	return r3.Vec{X: a.Alpha, Y: a.Beta, Z: a.Gamma}
}

// FromVec is the inverse of Angles.Vec.
func FromVec(v r3.Vec) Angles {
	return Angles{Alpha: v.X, Beta: v.Y, Gamma: v.Z}
}

// Sub returns a - b per angle.
func (a Angles) Sub(b Angles) Angles {
	return FromVec(r3.Sub(a.Vec(), b.Vec()))
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// RotationMatrix builds the alpha-beta-gamma (ZXY) rotation that takes a
// device-frame vector into the world frame.
func RotationMatrix(a Angles) *r3.Mat {
	sa, ca := math.Sincos(Radians(a.Alpha))
	sb, cb := math.Sincos(Radians(a.Beta))
	sg, cg := math.Sincos(Radians(a.Gamma))

	return r3.NewMat([]float64{
		cb * cg, ca*sg + sa*sb*cg, sa*sg - ca*sb*cg,
		-cb * sg, ca*cg - sa*sb*sg, sa*cg + ca*sb*sg,
		sb, -sa * cb, ca * cb,
	})
}

// Transform rotates a device-frame acceleration into the world frame using
// the given orientation. The rotation is orthonormal, so |Transform(v)| = |v|.
func Transform(v r3.Vec, a Angles) r3.Vec {
	return RotationMatrix(a).MulVec(v)
}

// AnglesFromAccel estimates tilt from a gravity-dominated accelerometer
// reading. Only beta and gamma are observable this way; alpha is left at 0
// until a heading source is fused.
//
//	beta  = atan2(ay, az)
//	gamma = atan2(-ax, sqrt(ay² + az²))
func AnglesFromAccel(ax, ay, az float64) Angles {
	betaRad := math.Atan2(ay, az)
	gammaRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Angles{
		Alpha: 0,
		Beta:  betaRad * 180.0 / math.Pi,
		Gamma: gammaRad * 180.0 / math.Pi,
	}
}
