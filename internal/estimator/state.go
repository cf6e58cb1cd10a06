// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

import (
	"fmt"
	"strings"
)

// State is the tracking state of an Estimator.
type State int

const (
	Uncalibrated State = iota
	Calibrating
	Tracking
	Stopped
)

func (s State) String() string {
	switch s {
	case Uncalibrated:
		return "uncalibrated"
	case Calibrating:
		return "calibrating"
	case Tracking:
		return "tracking"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{Uncalibrated, Calibrating, Tracking, Stopped} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("estimator: unknown state %q", b)
}

// Kind selects the signal a calibration applies to.
type Kind int

const (
	// Accelerometer calibrates the linear acceleration bias.
	Accelerometer Kind = iota
	// Gyroscope calibrates the orientation angle bias.
	Gyroscope
)

func (k Kind) String() string {
	switch k {
	case Accelerometer:
		return "accelerometer"
	case Gyroscope:
		return "gyroscope"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind accepts "accelerometer"/"accel" and "gyroscope"/"gyro".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accelerometer", "accel":
		return Accelerometer, nil
	case "gyroscope", "gyro":
		return Gyroscope, nil
	default:
		return 0, fmt.Errorf("estimator: unknown calibration kind %q", s)
	}
}
