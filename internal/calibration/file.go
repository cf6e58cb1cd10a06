// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// FileVersion is the current calibration file format.
const FileVersion = 1

// Result is the calibration file written by cmd/calibration. Biases are in
// the units the estimator consumes: m/s² for acceleration and degrees
// (alpha, beta, gamma as X, Y, Z) for orientation.
type Result struct {
	Version   int       `json:"version"`
	IMU       string    `json:"imu"`
	Timestamp time.Time `json:"timestamp"`

	Accel Summary `json:"accel"`
	Gyro  Summary `json:"gyro"`
}

// AccelBias returns the mean acceleration of the stationary capture. Gravity
// at the capture attitude stays in the bias, matching the estimator's own
// calibration window, so a device at rest in that attitude reads zero.
func (r Result) AccelBias() r3.Vec { return r.Accel.Mean }

// GyroBias returns the orientation angle bias.
func (r Result) GyroBias() r3.Vec { return r.Gyro.Mean }

// Confidence is the lower of the two capture confidences.
func (r Result) Confidence() float64 {
	return min(r.Accel.Confidence, r.Gyro.Confidence)
}

// Save writes r to path as indented JSON.
func Save(path string, r Result) error {
	if r.Version == 0 {
		r.Version = FileVersion
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal calibration: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write calibration file: %w", err)
	}
	return nil
}

// Load reads a calibration file written by Save.
func Load(path string) (Result, error) {
	var r Result
	b, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("read calibration file: %w", err)
	}
	if err := json.Unmarshal(b, &r); err != nil {
		return r, fmt.Errorf("parse calibration file %s: %w", path, err)
	}
	if r.Version != FileVersion {
		return r, fmt.Errorf("calibration file %s: unsupported version %d", path, r.Version)
	}
	return r, nil
}
