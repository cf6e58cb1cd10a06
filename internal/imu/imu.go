// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package imu holds the sample types exchanged between sensor sources and
// the position estimator, both in their wire form (JSON over MQTT) and in the
// decoded form the estimator consumes.
package imu

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// IMURaw represents a single raw accelerometer + gyro sample in sensor counts.
type IMURaw struct {
	Source string `json:"source"` // IMU name, e.g. "left"

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`
}

// MotionEvent is a linear acceleration sample as reported by the sensor
// source. Any field may be absent (null) on the wire.
type MotionEvent struct {
	X          *float64 `json:"x"`
	Y          *float64 `json:"y"`
	Z          *float64 `json:"z"`
	IntervalMs *float64 `json:"interval_ms"`
}

// OrientationEvent is a device orientation sample in degrees. Any field may
// be absent (null) on the wire.
type OrientationEvent struct {
	Alpha *float64 `json:"alpha"`
	Beta  *float64 `json:"beta"`
	Gamma *float64 `json:"gamma"`
}

// Acceleration is a decoded device-frame acceleration sample.
type Acceleration struct {
	Vec       r3.Vec  // m/s²
	DeltaTime float64 // seconds since the previous sample
}

// Orientation is a decoded orientation sample in degrees.
type Orientation struct {
	Alpha float64
	Beta  float64
	Gamma float64
}

// Acceleration decodes the event. Missing values become 0.
func (e MotionEvent) Acceleration() Acceleration {
	return Acceleration{
		Vec: r3.Vec{
			X: orZero(e.X),
			Y: orZero(e.Y),
			Z: orZero(e.Z),
		},
		DeltaTime: orZero(e.IntervalMs) / 1000.0,
	}
}

// Orientation decodes the event. Missing values become 0.
func (e OrientationEvent) Orientation() Orientation {
	return Orientation{
		Alpha: orZero(e.Alpha),
		Beta:  orZero(e.Beta),
		Gamma: orZero(e.Gamma),
	}
}

// NewMotionEvent builds a fully populated MotionEvent.
func NewMotionEvent(x, y, z, intervalMs float64) MotionEvent {
	return MotionEvent{X: &x, Y: &y, Z: &z, IntervalMs: &intervalMs}
}

// NewOrientationEvent builds a fully populated OrientationEvent.
func NewOrientationEvent(alpha, beta, gamma float64) OrientationEvent {
	return OrientationEvent{Alpha: &alpha, Beta: &beta, Gamma: &gamma}
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
