// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/inertial_tracker/internal/imu"
)

// Sample is one tick of a sensor source: a motion event and the orientation
// observed at the same time.
type Sample struct {
	Time        time.Time
	Motion      imu.MotionEvent
	Orientation imu.OrientationEvent
}

// Source is anything that can provide samples over time.
type Source interface {
	Next() (Sample, error)
}

type mockSource struct {
	start    time.Time
	interval time.Duration
	n        int
}

// NewMockSource creates a mock sensor source that generates smooth changing
// values, one sample per interval of simulated time.
func NewMockSource(interval time.Duration) Source {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &mockSource{start: time.Now(), interval: interval}
}

func (m *mockSource) Next() (Sample, error) {
	m.n++
	at := m.start.Add(time.Duration(m.n) * m.interval)
	elapsed := float64(m.n) * m.interval.Seconds()
	intervalMs := float64(m.interval) / float64(time.Millisecond)

	return Sample{
		Time: at,
		Motion: imu.NewMotionEvent(
			0.5*math.Sin(elapsed),
			0.3*math.Cos(elapsed*0.5),
			0.05*math.Sin(elapsed*3),
			intervalMs,
		),
		Orientation: imu.NewOrientationEvent(
			math.Mod(elapsed*30, 360),
			15*math.Cos(elapsed*0.7),
			20*math.Sin(elapsed),
		),
	}, nil
}
