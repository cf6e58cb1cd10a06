// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/inertial_tracker/internal/estimator"
	"github.com/relabs-tech/inertial_tracker/internal/imu"
	"github.com/relabs-tech/inertial_tracker/internal/sensors"
)

func TestRecordJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(Record{Type: RecordMotion, Motion: imu.NewMotionEvent(1, 2, 3, 10)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"motion","x":1,"y":2,"z":3,"interval_ms":10}`, string(b))

	b, err = json.Marshal(Record{Type: RecordControl, Control: Command{Action: ActionCalibrate, Kind: "gyro"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"control","action":"calibrate","kind":"gyro"}`, string(b))

	_, err = json.Marshal(Record{Type: "noise"})
	assert.Error(t, err)
}

func TestReadRecords(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		`{"type":"control","action":"start"}`,
		`{"type":"orientation","alpha":90}`,
		``,
		`{"type":"motion","x":1,"y":null,"interval_ms":100}`,
	}, "\n")

	records, err := ReadRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, ActionStart, records[0].Control.Action)
	assert.Equal(t, 90.0, records[1].Orientation.Orientation().Alpha)
	assert.Equal(t, 0.0, records[1].Orientation.Orientation().Beta)

	a := records[2].Motion.Acceleration()
	assert.Equal(t, 1.0, a.Vec.X)
	assert.Equal(t, 0.0, a.Vec.Y)
	assert.Equal(t, 0.1, a.DeltaTime)
}

func TestReadRecordsReportsLine(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		"{\"type\":\"motion\",\"x\":1}\n{\"type\":\"teleport\"}\n",
		"{\"type\":\"motion\",\"x\":1}\n{\"type\":\"control\",\"action\":\"jump\"}\n",
		"{\"type\":\"motion\",\"x\":1}\n{broken\n",
	} {
		_, err := ReadRecords(strings.NewReader(input))
		assert.ErrorContains(t, err, "line 2")
	}
}

func TestReplayConstantAcceleration(t *testing.T) {
	t.Parallel()

	est, err := estimator.New(estimator.DefaultConfig())
	require.NoError(t, err)

	var records []Record
	for range 10 {
		records = append(records, Record{Type: RecordMotion, Motion: imu.NewMotionEvent(1, 0, 0, 100)})
	}

	res, err := Replay(context.Background(), est, records)
	require.NoError(t, err)

	assert.Equal(t, 10, res.Motion)
	require.Len(t, res.Outputs, 10)
	assert.InDelta(t, 0.55, res.Final.Output.X, 1e-12)
	assert.InDelta(t, 1.0, res.Final.Velocity.X, 1e-12)
	assert.InDelta(t, 0.55-0.01, res.PathLength, 1e-12)
	assert.Equal(t, estimator.Tracking, res.Final.State)
}

func TestReplayFollowsControlRecords(t *testing.T) {
	t.Parallel()

	cfg := estimator.DefaultConfig()
	cfg.CalibrationSamples = 2
	est, err := estimator.New(cfg)
	require.NoError(t, err)

	records := []Record{
		{Type: RecordControl, Control: Command{Action: ActionCalibrate, Kind: "accelerometer"}},
		{Type: RecordControl, Control: Command{Action: ActionStart}},
		{Type: RecordMotion, Motion: imu.NewMotionEvent(0.5, 0, 9.8, 100)},
		{Type: RecordMotion, Motion: imu.NewMotionEvent(0.5, 0, 9.8, 100)},
		{Type: RecordMotion, Motion: imu.NewMotionEvent(0.5, 0, 9.8, 100)},
		{Type: RecordControl, Control: Command{Action: ActionStop}},
		{Type: RecordMotion, Motion: imu.NewMotionEvent(5, 0, 9.8, 100)},
	}

	res, err := Replay(context.Background(), est, records)
	require.NoError(t, err)

	require.Len(t, res.Outputs, 1)
	assert.Equal(t, estimator.Output{}, res.Outputs[0])
	assert.Equal(t, estimator.Stopped, res.Final.State)
	assert.True(t, res.Final.AccelCalibrated)
}

func TestGenerateAndReplayRecording(t *testing.T) {
	t.Parallel()

	records, err := GenerateRecording(sensors.NewMockSource(50*time.Millisecond), 40)
	require.NoError(t, err)
	require.Len(t, records, 81)

	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, records))
	read, err := ReadRecords(&buf)
	require.NoError(t, err)
	assert.Equal(t, records, read)

	est, err := estimator.New(estimator.DefaultConfig())
	require.NoError(t, err)
	res, err := Replay(context.Background(), est, read)
	require.NoError(t, err)
	assert.Equal(t, 40, res.Motion)
	assert.Equal(t, 40, res.Orientation)
	assert.Len(t, res.Outputs, 40)

	plotPath := filepath.Join(t.TempDir(), "trajectory.png")
	require.NoError(t, PlotTrajectory(res.Outputs, plotPath))
	info, err := os.Stat(plotPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
