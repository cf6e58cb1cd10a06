// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/inertial_tracker/internal/calibration"
	"github.com/relabs-tech/inertial_tracker/internal/config"
	"github.com/relabs-tech/inertial_tracker/internal/orientation"
	"github.com/relabs-tech/inertial_tracker/internal/sensors"
)

// lowConfidence triggers a warning after a capture.
const lowConfidence = 0.5

// captureStill reads one sample per tick from src until ticks is closed or n
// samples have been read.
func captureStill(src sensors.Source, n int, ticks <-chan time.Time) (accel, angles []r3.Vec, err error) {
	accel = make([]r3.Vec, 0, n)
	angles = make([]r3.Vec, 0, n)
	for len(accel) < n {
		if _, ok := <-ticks; !ok {
			break
		}
		s, err := src.Next()
		if err != nil {
			return nil, nil, err
		}
		accel = append(accel, s.Motion.Acceleration().Vec)
		o := s.Orientation.Orientation()
		angles = append(angles, orientation.Angles{Alpha: o.Alpha, Beta: o.Beta, Gamma: o.Gamma}.Vec())
	}
	return accel, angles, nil
}

// buildResult summarizes a stationary capture. The tracker subtracts the
// accelerometer mean as is, so the device must track in the capture attitude.
func buildResult(imuName string, accel, angles []r3.Vec, at time.Time) calibration.Result {
	return calibration.Result{
		Version:   calibration.FileVersion,
		IMU:       imuName,
		Timestamp: at,
		Accel:     calibration.Summarize(accel),
		Gyro:      calibration.Summarize(angles),
	}
}

func printResult(w io.Writer, res calibration.Result) {
	ab := res.AccelBias()
	gb := res.GyroBias()
	fmt.Fprintf(w, "Accel bias (m/s²): X=%.4f Y=%.4f Z=%.4f | std=(%.4f, %.4f, %.4f) confidence=%.2f\n",
		ab.X, ab.Y, ab.Z, res.Accel.StdDev.X, res.Accel.StdDev.Y, res.Accel.StdDev.Z, res.Accel.Confidence)
	fmt.Fprintf(w, "Angle bias (deg):  alpha=%.3f beta=%.3f gamma=%.3f | std=(%.3f, %.3f, %.3f) confidence=%.2f\n",
		gb.X, gb.Y, gb.Z, res.Gyro.StdDev.X, res.Gyro.StdDev.Y, res.Gyro.StdDev.Z, res.Gyro.Confidence)
	if res.Confidence() < lowConfidence {
		fmt.Fprintln(w, "Warning: the device moved during the capture; consider running calibration again.")
	}
}

// RunCalibration guides a stationary capture from the IMU and writes the
// calibration file the tracker loads at startup.
func RunCalibration() error {
	cfg := config.Get()
	in := bufio.NewReader(os.Stdin)

	fmt.Println("=== Guided Calibration (Accel + Orientation bias) ===")
	fmt.Printf("This workflow will prompt you in the console and store results in %s\n\n", cfg.Calibration.File)

	src, err := sensors.NewIMUSource(sensors.IMUConfig{
		Name:       cfg.IMU.Name,
		SPIDevice:  cfg.IMU.SPIDevice,
		CSPin:      cfg.IMU.CSPin,
		AccelRange: cfg.IMU.AccelRange,
	})
	if err != nil {
		return err
	}

	fmt.Println("Place the device on a level, stable surface with the Z axis pointing up.")
	fmt.Println("Do not touch it during the capture.")
	waitEnter(in, "Press ENTER to start capture...")

	n := int(cfg.Calibration.Duration / cfg.IMU.SampleInterval)
	ticker := time.NewTicker(cfg.IMU.SampleInterval)
	defer ticker.Stop()

	fmt.Printf("Capturing %d samples over %s...\n", n, cfg.Calibration.Duration)
	accel, angles, err := captureStill(src, n, ticker.C)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	res := buildResult(cfg.IMU.Name, accel, angles, time.Now())
	printResult(os.Stdout, res)

	if err := calibration.Save(cfg.Calibration.File, res); err != nil {
		return err
	}
	fmt.Printf("\nWrote: %s\n", cfg.Calibration.File)
	return nil
}

func waitEnter(in *bufio.Reader, prompt string) {
	fmt.Print(prompt)
	_, _ = in.ReadString('\n')
}
