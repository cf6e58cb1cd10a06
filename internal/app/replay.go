// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/relabs-tech/inertial_tracker/internal/config"
	"github.com/relabs-tech/inertial_tracker/internal/estimator"
	"github.com/relabs-tech/inertial_tracker/internal/imu"
	"github.com/relabs-tech/inertial_tracker/internal/sensors"
)

// Record types of a JSON-lines recording.
const (
	RecordMotion      = "motion"
	RecordOrientation = "orientation"
	RecordControl     = "control"
)

// Record is one line of a recording. Exactly one of the payload fields is set,
// matching Type.
type Record struct {
	Type        string
	Motion      imu.MotionEvent
	Orientation imu.OrientationEvent
	Control     Command
}

type recordHeader struct {
	Type string `json:"type"`
}

// MarshalJSON flattens the payload next to the type field.
func (r Record) MarshalJSON() ([]byte, error) {
	switch r.Type {
	case RecordMotion:
		return json.Marshal(struct {
			Type string `json:"type"`
			imu.MotionEvent
		}{r.Type, r.Motion})
	case RecordOrientation:
		return json.Marshal(struct {
			Type string `json:"type"`
			imu.OrientationEvent
		}{r.Type, r.Orientation})
	case RecordControl:
		return json.Marshal(struct {
			Type string `json:"type"`
			Command
		}{r.Type, r.Control})
	default:
		return nil, fmt.Errorf("unknown record type %q", r.Type)
	}
}

// UnmarshalJSON decodes a flattened record.
func (r *Record) UnmarshalJSON(b []byte) error {
	var h recordHeader
	if err := json.Unmarshal(b, &h); err != nil {
		return err
	}
	*r = Record{Type: h.Type}
	switch h.Type {
	case RecordMotion:
		return json.Unmarshal(b, &r.Motion)
	case RecordOrientation:
		return json.Unmarshal(b, &r.Orientation)
	case RecordControl:
		if err := json.Unmarshal(b, &r.Control); err != nil {
			return err
		}
		return r.Control.Validate()
	default:
		return fmt.Errorf("unknown record type %q", h.Type)
	}
}

// ReadRecords reads a JSON-lines recording. Blank lines are skipped.
func ReadRecords(r io.Reader) ([]Record, error) {
	var records []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return records, nil
}

// WriteRecords writes records as JSON lines.
func WriteRecords(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	return nil
}

// GenerateRecording draws n samples from src as orientation/motion record
// pairs, preceded by a start command.
func GenerateRecording(src sensors.Source, n int) ([]Record, error) {
	records := make([]Record, 0, 2*n+1)
	records = append(records, Record{Type: RecordControl, Control: Command{Action: ActionStart}})
	for range n {
		s, err := src.Next()
		if err != nil {
			return nil, err
		}
		records = append(records,
			Record{Type: RecordOrientation, Orientation: s.Orientation},
			Record{Type: RecordMotion, Motion: s.Motion},
		)
	}
	return records, nil
}

// ReplayResult summarizes a replay.
type ReplayResult struct {
	Motion      int
	Orientation int
	Outputs     []estimator.Output
	// PathLength is the summed distance between consecutive outputs.
	PathLength float64
	Final      estimator.Status
}

// Replay feeds records to est in order. When the recording carries no control
// records tracking starts before the first sample.
func Replay(ctx context.Context, est *estimator.Estimator, records []Record) (ReplayResult, error) {
	var res ReplayResult

	hasControl := false
	for _, rec := range records {
		if rec.Type == RecordControl {
			hasControl = true
			break
		}
	}
	if !hasControl {
		est.StartTracking()
	}

	unsubscribe := est.Subscribe(func(_ context.Context, out estimator.Output) error {
		if n := len(res.Outputs); n > 0 {
			prev := res.Outputs[n-1]
			res.PathLength += r3.Norm(r3.Sub(outputVec(out), outputVec(prev)))
		}
		res.Outputs = append(res.Outputs, out)
		return nil
	})
	defer unsubscribe()

	for i, rec := range records {
		switch rec.Type {
		case RecordMotion:
			res.Motion++
			est.HandleMotionEvent(ctx, rec.Motion)
		case RecordOrientation:
			res.Orientation++
			est.HandleOrientationEvent(rec.Orientation)
		case RecordControl:
			if err := rec.Control.Apply(ctx, est); err != nil {
				return res, fmt.Errorf("record %d: %w", i+1, err)
			}
		}
	}
	res.Final = est.Status()
	return res, nil
}

func outputVec(o estimator.Output) r3.Vec { return r3.Vec{X: o.X, Y: o.Y, Z: o.Z} }

// PlotTrajectory saves the X/Y path of outputs and Z over samples as a PNG
// (or any format gonum/plot infers from the extension).
func PlotTrajectory(outputs []estimator.Output, path string) error {
	xy := make(plotter.XYs, 0, len(outputs))
	z := make(plotter.XYs, 0, len(outputs))
	for i, o := range outputs {
		xy = append(xy, plotter.XY{X: o.X, Y: o.Y})
		z = append(z, plotter.XY{X: float64(i), Y: o.Z})
	}

	p := plot.New()
	p.Title.Text = "Dead-reckoning trajectory"
	p.X.Label.Text = "x / sample"
	p.Y.Label.Text = "y / z"

	pathLine, err := plotter.NewLine(xy)
	if err != nil {
		return fmt.Errorf("trajectory line: %w", err)
	}
	pathLine.Width = vg.Points(1)
	pathLine.Color = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	p.Add(pathLine)
	p.Legend.Add("x/y", pathLine)

	zLine, err := plotter.NewLine(z)
	if err != nil {
		return fmt.Errorf("altitude line: %w", err)
	}
	zLine.Width = vg.Points(1)
	zLine.Color = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	p.Add(zLine)
	p.Legend.Add("z", zLine)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	p.Add(plotter.NewGrid())

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}

// RunReplay replays a recording through a fresh estimator, prints a summary
// and optionally writes a plot.
func RunReplay(input, plotPath string) error {
	cfg := config.Get()
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	ecfg, err := EstimatorConfig(cfg.Estimator)
	if err != nil {
		return err
	}
	est, err := estimator.New(ecfg)
	if err != nil {
		return fmt.Errorf("estimator: %w", err)
	}
	if _, err := presetCalibration(est, cfg.Calibration.File); err != nil {
		log.Printf("replay: ignoring calibration file: %v", err)
	}

	res, err := Replay(context.Background(), est, records)
	if err != nil {
		return err
	}

	out := res.Final.Output
	fmt.Printf("records: %d motion, %d orientation, %d outputs\n", res.Motion, res.Orientation, len(res.Outputs))
	fmt.Printf("final state: %s (accel_cal=%t gyro_cal=%t)\n", res.Final.State, res.Final.AccelCalibrated, res.Final.GyroCalibrated)
	fmt.Printf("final position: X=%.3f Y=%.3f Z=%.3f  path length=%.3f\n", out.X, out.Y, out.Z, res.PathLength)

	if plotPath == "" || len(res.Outputs) == 0 {
		return nil
	}
	if err := PlotTrajectory(res.Outputs, plotPath); err != nil {
		return err
	}
	log.Printf("replay: plot written to %s", plotPath)
	return nil
}

// RunGenerateRecording writes n mock samples to path as a recording.
func RunGenerateRecording(path string, n int) error {
	cfg := config.Get()
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	records, err := GenerateRecording(sensors.NewMockSource(cfg.IMU.SampleInterval), n)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	if err := WriteRecords(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
