// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_tracker/internal/imu"
	"github.com/relabs-tech/inertial_tracker/internal/orientation"
)

// StandardGravity converts g to m/s².
const StandardGravity = 9.80665

// accelLSBPerG is the MPU9250 accelerometer sensitivity per range setting
// (0=±2g, 1=±4g, 2=±8g, 3=±16g).
var accelLSBPerG = [4]float64{16384, 8192, 4096, 2048}

// IMUConfig selects the SPI wiring and range of one MPU9250.
type IMUConfig struct {
	Name       string // for logging, e.g. "left"
	SPIDevice  string // e.g. /dev/spidev6.0
	CSPin      string // GPIO name of the chip select
	AccelRange byte   // 0-3
}

type imuSource struct {
	name  string
	imu   *mpu9250.MPU9250
	scale float64 // counts -> m/s²
	last  time.Time
}

// NewIMUSource initializes an MPU9250 over SPI and returns a Source that
// emits acceleration in m/s² and accelerometer-derived tilt as orientation.
func NewIMUSource(cfg IMUConfig) (Source, error) {
	if cfg.AccelRange > 3 {
		return nil, fmt.Errorf("%s IMU: accel range must be 0-3, got %d", cfg.Name, cfg.AccelRange)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: periph host init: %w", cfg.Name, err)
	}

	cs := gpioreg.ByName(cfg.CSPin)
	if cs == nil {
		return nil, fmt.Errorf("%s IMU: CS pin %q not found", cfg.Name, cfg.CSPin)
	}

	tr, err := mpu9250.NewSpiTransport(cfg.SPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: SPI transport (%s): %w", cfg.Name, cfg.SPIDevice, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: device creation: %w", cfg.Name, err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: initialization: %w", cfg.Name, err)
	}

	if err := dev.SetAccelRange(cfg.AccelRange); err != nil {
		return nil, fmt.Errorf("%s IMU: set accel range: %w", cfg.Name, err)
	}
	log.Printf("%s IMU: accelerometer range set to %d (±%dg)", cfg.Name, cfg.AccelRange, []int{2, 4, 8, 16}[cfg.AccelRange])

	// Factory offset calibration; the estimator still runs its own bias
	// window on top of this.
	if err := dev.Calibrate(); err != nil {
		log.Printf("Warning: %s IMU calibration failed: %v", cfg.Name, err)
	} else {
		log.Printf("%s IMU calibration complete", cfg.Name)
	}

	return &imuSource{
		name:  cfg.Name,
		imu:   dev,
		scale: StandardGravity / accelLSBPerG[cfg.AccelRange],
	}, nil
}

// ReadRaw reads accelerometer and gyroscope counts.
func (s *imuSource) ReadRaw() (imu.IMURaw, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU accel X: %w", s.name, err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU accel Y: %w", s.name, err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU accel Z: %w", s.name, err)
	}

	gx, err := s.imu.GetRotationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU gyro X: %w", s.name, err)
	}
	gy, err := s.imu.GetRotationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU gyro Y: %w", s.name, err)
	}
	gz, err := s.imu.GetRotationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU gyro Z: %w", s.name, err)
	}

	return imu.IMURaw{
		Source: s.name,
		Ax:     ax,
		Ay:     ay,
		Az:     az,
		Gx:     gx,
		Gy:     gy,
		Gz:     gz,
	}, nil
}

// Next reads one raw sample and converts it into sample events. The motion
// interval is the wall time since the previous read.
func (s *imuSource) Next() (Sample, error) {
	raw, err := s.ReadRaw()
	if err != nil {
		return Sample{}, err
	}
	now := time.Now()
	var intervalMs float64
	if !s.last.IsZero() {
		intervalMs = float64(now.Sub(s.last)) / float64(time.Millisecond)
	}
	s.last = now
	return FromRaw(raw, s.scale, intervalMs, now), nil
}

// FromRaw converts raw counts into sample events using scale (m/s² per count).
func FromRaw(raw imu.IMURaw, scale, intervalMs float64, at time.Time) Sample {
	ax := float64(raw.Ax) * scale
	ay := float64(raw.Ay) * scale
	az := float64(raw.Az) * scale

	angles := orientation.AnglesFromAccel(ax, ay, az)
	return Sample{
		Time:        at,
		Motion:      imu.NewMotionEvent(ax, ay, az, intervalMs),
		Orientation: imu.NewOrientationEvent(angles.Alpha, angles.Beta, angles.Gamma),
	}
}

// AccelScale returns the m/s² per count for an accelerometer range setting.
func AccelScale(accelRange byte) float64 {
	if accelRange > 3 {
		accelRange = 0
	}
	return StandardGravity / accelLSBPerG[accelRange]
}
