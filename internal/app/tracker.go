// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/relabs-tech/inertial_tracker/internal/calibration"
	"github.com/relabs-tech/inertial_tracker/internal/config"
	"github.com/relabs-tech/inertial_tracker/internal/estimator"
	"github.com/relabs-tech/inertial_tracker/internal/filter"
	"github.com/relabs-tech/inertial_tracker/internal/gps"
	"github.com/relabs-tech/inertial_tracker/internal/imu"
	"github.com/relabs-tech/inertial_tracker/internal/motion"
)

// Envelope is published on the position topic for every estimator output.
type Envelope struct {
	Session         string           `json:"session"`
	Seq             uint64           `json:"seq"`
	Time            time.Time        `json:"time"`
	Position        estimator.Output `json:"position"`
	State           estimator.State  `json:"state"`
	AccelCalibrated bool             `json:"accel_calibrated"`
	GyroCalibrated  bool             `json:"gyro_calibrated"`
}

// TrackerStatus is published (retained) on the status topic.
type TrackerStatus struct {
	Session string    `json:"session"`
	Time    time.Time `json:"time"`
	estimator.Status
}

type publishFunc func(topic string, retained bool, v any) error

// Tracker connects an Estimator to its message topics. Its Handle methods
// must be called from a single goroutine.
type Tracker struct {
	est     *estimator.Estimator
	topics  config.MQTTConfig
	publish publishFunc
	now     func() time.Time

	originFromGPS bool
	originSet     bool

	mu      sync.Mutex
	session uuid.UUID
	seq     uint64
}

// NewTracker subscribes a position publisher to est.
func NewTracker(est *estimator.Estimator, topics config.MQTTConfig, originFromGPS bool, publish publishFunc) *Tracker {
	t := &Tracker{
		est:           est,
		topics:        topics,
		publish:       publish,
		now:           time.Now,
		originFromGPS: originFromGPS,
		session:       uuid.New(),
	}
	est.Subscribe(t.publishPosition)
	return t
}

// Session returns the current session id.
func (t *Tracker) Session() uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

func (t *Tracker) publishPosition(_ context.Context, out estimator.Output) error {
	st := t.est.Status()

	t.mu.Lock()
	t.seq++
	env := Envelope{
		Session:         t.session.String(),
		Seq:             t.seq,
		Time:            t.now(),
		Position:        out,
		State:           st.State,
		AccelCalibrated: st.AccelCalibrated,
		GyroCalibrated:  st.GyroCalibrated,
	}
	t.mu.Unlock()

	return t.publish(t.topics.TopicPosition, false, env)
}

// HandleMotion feeds one motion event payload to the estimator.
func (t *Tracker) HandleMotion(ctx context.Context, payload []byte) error {
	var ev imu.MotionEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("motion event: %w", err)
	}
	t.est.HandleMotionEvent(ctx, ev)
	return nil
}

// HandleOrientation feeds one orientation event payload to the estimator.
func (t *Tracker) HandleOrientation(payload []byte) error {
	var ev imu.OrientationEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("orientation event: %w", err)
	}
	t.est.HandleOrientationEvent(ev)
	return nil
}

// HandleControl applies a control command and publishes the new status. A
// reset starts a new session before the zeroed output is published.
func (t *Tracker) HandleControl(ctx context.Context, payload []byte) error {
	cmd, err := DecodeCommand(payload)
	if err != nil {
		return err
	}
	if cmd.Action == ActionReset {
		t.mu.Lock()
		t.session = uuid.New()
		t.seq = 0
		t.mu.Unlock()
	}
	if err := cmd.Apply(ctx, t.est); err != nil {
		return err
	}
	log.Printf("tracker: applied %q command, state=%s", cmd.Action, t.est.State())
	return t.PublishStatus()
}

// HandleGPS seeds the geographic origin from the first valid fix.
func (t *Tracker) HandleGPS(payload []byte) error {
	if !t.originFromGPS || t.originSet {
		return nil
	}
	var f gps.Fix
	if err := json.Unmarshal(payload, &f); err != nil {
		return fmt.Errorf("gps fix: %w", err)
	}
	if !f.Valid() {
		return nil
	}
	t.est.SetOrigin(f.Latitude)
	t.originSet = true
	log.Printf("tracker: origin latitude set from GPS: %.6f", f.Latitude)
	return nil
}

// PublishStatus publishes the estimator status, retained.
func (t *Tracker) PublishStatus() error {
	return t.publish(t.topics.TopicStatus, true, TrackerStatus{
		Session: t.Session().String(),
		Time:    t.now(),
		Status:  t.est.Status(),
	})
}

// EstimatorConfig converts the file configuration to an estimator.Config.
func EstimatorConfig(c config.EstimatorConfig) (estimator.Config, error) {
	mode, err := motion.ParseMode(c.Mode)
	if err != nil {
		return estimator.Config{}, err
	}
	deadband := estimator.DefaultConfig().Deadband
	if c.Deadband != nil {
		deadband = *c.Deadband
	}
	return estimator.Config{
		CalibrationSamples: c.CalibrationSamples,
		Deadband:           deadband,
		Filter: filter.Params{
			ProcessNoise:      c.ProcessNoise,
			MeasurementNoise:  c.MeasurementNoise,
			InitialCovariance: c.InitialCovariance,
		},
		Mode:           mode,
		OriginLatitude: c.OriginLatitude,
	}, nil
}

// presetCalibration loads a calibration file into est. A missing file is not
// an error; it reports whether biases were installed.
func presetCalibration(est *estimator.Estimator, path string) (bool, error) {
	res, err := calibration.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	est.PresetBias(estimator.Accelerometer, res.AccelBias())
	est.PresetBias(estimator.Gyroscope, res.GyroBias())
	log.Printf("tracker: loaded calibration from %s (imu=%s, %s, confidence=%.2f)",
		path, res.IMU, res.Timestamp.Format(time.RFC3339), res.Confidence())
	return true, nil
}

// RunTracker subscribes to the sample topics, runs the estimator and
// publishes positions until interrupted.
func RunTracker() error {
	cfg := config.Get()

	ecfg, err := EstimatorConfig(cfg.Estimator)
	if err != nil {
		return err
	}
	est, err := estimator.New(ecfg)
	if err != nil {
		return fmt.Errorf("estimator: %w", err)
	}

	preset, err := presetCalibration(est, cfg.Calibration.File)
	if err != nil {
		log.Printf("tracker: ignoring calibration file: %v", err)
	}

	client, err := connectMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientIDTracker)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	tr := NewTracker(est, cfg.MQTT, cfg.Estimator.OriginFromGPS, func(topic string, retained bool, v any) error {
		return publishJSON(client, topic, retained, v)
	})
	log.Printf("tracker: session %s, mode %s", tr.Session(), ecfg.Mode)

	switch {
	case cfg.Estimator.AutoCalibrate:
		log.Println("tracker: keep the device still, calibrating accelerometer")
		est.StartCalibration(estimator.Accelerometer)
		est.StartTracking()
	case preset:
		est.StartTracking()
	default:
		log.Printf("tracker: waiting for a start command on %s", cfg.MQTT.TopicControl)
	}

	// Paho runs handlers on its own goroutines; the estimator is driven from
	// this one.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inbox := make(chan func(), 256)
	enqueue := func(name string, fn func([]byte) error) mqtt.MessageHandler {
		return func(_ mqtt.Client, msg mqtt.Message) {
			payload := msg.Payload()
			inbox <- func() {
				if err := fn(payload); err != nil {
					log.Printf("tracker: %s: %v", name, err)
				}
			}
		}
	}

	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{cfg.MQTT.TopicMotion, enqueue("motion", func(p []byte) error { return tr.HandleMotion(ctx, p) })},
		{cfg.MQTT.TopicOrientation, enqueue("orientation", tr.HandleOrientation)},
		{cfg.MQTT.TopicControl, enqueue("control", func(p []byte) error { return tr.HandleControl(ctx, p) })},
		{cfg.MQTT.TopicGPS, enqueue("gps", tr.HandleGPS)},
	}
	for _, s := range subs {
		if err := subscribe(client, s.topic, s.handler); err != nil {
			return err
		}
	}

	sigDone := make(chan struct{})
	go func() {
		waitForSignal()
		close(sigDone)
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case fn := <-inbox:
			fn()
		case <-ticker.C:
			if err := tr.PublishStatus(); err != nil {
				log.Printf("tracker: status: %v", err)
			}
		case <-sigDone:
			log.Println("tracker: shutting down")
			return nil
		}
	}
}
