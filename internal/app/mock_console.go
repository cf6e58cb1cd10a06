// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/relabs-tech/inertial_tracker/internal/config"
	"github.com/relabs-tech/inertial_tracker/internal/estimator"
	"github.com/relabs-tech/inertial_tracker/internal/sensors"
)

// RunMockConsole runs the estimator in-process on the mock source and prints
// every output. It needs no broker and uses the default configuration when
// none was loaded.
func RunMockConsole() error {
	cfg := config.Get()
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}

	ecfg, err := EstimatorConfig(cfg.Estimator)
	if err != nil {
		return err
	}
	est, err := estimator.New(ecfg)
	if err != nil {
		return fmt.Errorf("estimator: %w", err)
	}

	src := sensors.NewMockSource(cfg.IMU.SampleInterval)
	ticker := time.NewTicker(cfg.IMU.SampleInterval)
	defer ticker.Stop()

	return runConsole(context.Background(), est, src, ticker.C, os.Stdout)
}

// runConsole drives est from src once per tick, starting with a gyroscope
// calibration and tracking, until ticks is closed.
func runConsole(ctx context.Context, est *estimator.Estimator, src sensors.Source, ticks <-chan time.Time, w io.Writer) error {
	est.Subscribe(func(_ context.Context, out estimator.Output) error {
		_, err := fmt.Fprintf(w,
			"X=%9.3f  Y=%9.3f  Z=%9.3f  ALPHA=%6.1f  BETA=%6.1f  GAMMA=%6.1f\n",
			out.X, out.Y, out.Z,
			out.Orientation.Alpha, out.Orientation.Beta, out.Orientation.Gamma,
		)
		return err
	})

	est.StartCalibration(estimator.Gyroscope)
	est.StartTracking()

	for range ticks {
		s, err := src.Next()
		if err != nil {
			return err
		}
		est.HandleOrientationEvent(s.Orientation)
		est.HandleMotionEvent(ctx, s.Motion)
	}
	return nil
}
