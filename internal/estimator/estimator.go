// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package estimator is the dead-reckoning position estimator. It removes
// calibrated sensor bias, filters each acceleration axis, rotates the
// acceleration into the world frame with the latest orientation and
// integrates it into a displacement relative to the last reset.
//
// Samples are processed one at a time. Every processed acceleration sample
// produces a new Output that is delivered to subscribers in registration
// order, each delivery completing before the next one starts.
package estimator

import (
	"context"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/inertial_tracker/internal/calibration"
	"github.com/relabs-tech/inertial_tracker/internal/filter"
	"github.com/relabs-tech/inertial_tracker/internal/imu"
	"github.com/relabs-tech/inertial_tracker/internal/monitoring"
	"github.com/relabs-tech/inertial_tracker/internal/motion"
	"github.com/relabs-tech/inertial_tracker/internal/orientation"
)

// Output is the published position snapshot. In motion.ModeGeographic X and
// Y are degrees of latitude and longitude and Z is meters of altitude,
// all relative to the session origin.
type Output struct {
	X           float64            `json:"x"`
	Y           float64            `json:"y"`
	Z           float64            `json:"z"`
	Orientation orientation.Angles `json:"orientation"`
}

// Subscriber receives every published Output. A returned error is logged and
// does not stop delivery to the remaining subscribers.
//
// Subscribers run on the goroutine that fed the sample. They may call
// Status, StartTracking, StopTracking and StartCalibration, but must not feed
// samples or call Reset synchronously.
type Subscriber func(ctx context.Context, out Output) error

// Status is a point-in-time view of the estimator.
type Status struct {
	State State `json:"state"`
	// CalibratingKind is meaningful only while State is Calibrating.
	CalibratingKind     Kind               `json:"calibrating_kind"`
	CalibrationProgress int                `json:"calibration_progress"`
	CalibrationSamples  int                `json:"calibration_samples"`
	AccelCalibrated     bool               `json:"accel_calibrated"`
	GyroCalibrated      bool               `json:"gyro_calibrated"`
	AccelBias           r3.Vec             `json:"accel_bias"`
	GyroBias            orientation.Angles `json:"gyro_bias"`
	Velocity            r3.Vec             `json:"velocity"`
	Mode                string             `json:"mode"`
	Output              Output             `json:"output"`
}

type subscription struct {
	id uint64
	fn Subscriber
}

// Estimator is the position estimator state machine. The zero value is not
// usable; construct with New.
type Estimator struct {
	cfg Config

	// pipeline serializes sample processing and subscriber delivery.
	pipeline sync.Mutex

	mu          sync.Mutex
	state       State
	resume      State // state to return to once calibration completes
	calibrating Kind

	accelBias *calibration.Bias
	gyroBias  *calibration.Bias

	axes        [3]*filter.Axis
	orientation orientation.Angles
	integ       *motion.Integrator
	output      Output

	subs   []subscription
	nextID uint64
}

// New builds an estimator. Zero filter coefficients take their defaults;
// every other invalid value yields an error wrapping ErrInvalidConfig.
func New(cfg Config) (*Estimator, error) {
	d := filter.DefaultParams()
	if cfg.Filter.ProcessNoise == 0 {
		cfg.Filter.ProcessNoise = d.ProcessNoise
	}
	if cfg.Filter.MeasurementNoise == 0 {
		cfg.Filter.MeasurementNoise = d.MeasurementNoise
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	integ, err := motion.New(motion.Config{
		Mode:           cfg.Mode,
		Deadband:       cfg.Deadband,
		OriginLatitude: cfg.OriginLatitude,
	})
	if err != nil {
		return nil, err
	}

	e := &Estimator{
		cfg:       cfg,
		state:     Uncalibrated,
		accelBias: calibration.NewBias(cfg.CalibrationSamples),
		gyroBias:  calibration.NewBias(cfg.CalibrationSamples),
		integ:     integ,
	}
	for i := range e.axes {
		if e.axes[i], err = filter.NewAxis(cfg.Filter); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Subscribe registers fn and returns a function that removes this
// registration. Registering the same function twice delivers to it twice.
func (e *Estimator) Subscribe(fn Subscriber) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, subscription{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			for i, s := range e.subs {
				if s.id == id {
					e.subs = append(e.subs[:i], e.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// StartCalibration begins a bias window for kind. Samples of that kind feed
// the calibrator instead of the tracking pipeline until the window is full,
// after which the estimator returns to the state it was in before.
func (e *Estimator) StartCalibration(kind Kind) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Calibrating {
		e.resume = e.state
	}
	e.calibrating = kind
	e.calibrator(kind).Start()
	e.state = Calibrating
	monitoring.Logf("estimator: %s calibration started (%d samples)", kind, e.cfg.CalibrationSamples)
}

// StartTracking enables the tracking pipeline. During a calibration it takes
// effect once the calibration completes.
func (e *Estimator) StartTracking() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.accelBias.Estimate(); !ok {
		monitoring.Logf("estimator: tracking without accelerometer calibration, using zero bias")
	}
	if e.state == Calibrating {
		e.resume = Tracking
		return
	}
	e.state = Tracking
}

// StopTracking stops processing samples until StartTracking is called. It
// does not interrupt a delivery that is already in progress.
func (e *Estimator) StopTracking() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Calibrating {
		e.resume = Stopped
		return
	}
	e.state = Stopped
}

// Reset zeroes velocity and displacement in any state and notifies
// subscribers of the zeroed output. The current orientation is kept.
func (e *Estimator) Reset(ctx context.Context) Output {
	e.pipeline.Lock()
	defer e.pipeline.Unlock()

	e.mu.Lock()
	e.integ.Reset()
	e.output = Output{Orientation: e.orientation}
	out := e.output
	subs := e.subscribers()
	e.mu.Unlock()

	e.deliver(ctx, subs, out)
	return out
}

// HandleMotionEvent decodes and processes a wire motion event.
func (e *Estimator) HandleMotionEvent(ctx context.Context, ev imu.MotionEvent) (Output, bool) {
	return e.HandleMotion(ctx, ev.Acceleration())
}

// HandleOrientationEvent decodes and processes a wire orientation event.
func (e *Estimator) HandleOrientationEvent(ev imu.OrientationEvent) {
	e.HandleOrientation(ev.Orientation())
}

// HandleMotion processes one acceleration sample. When the sample went
// through the tracking pipeline it returns the new output and true, after
// every subscriber has been notified.
func (e *Estimator) HandleMotion(ctx context.Context, a imu.Acceleration) (Output, bool) {
	e.pipeline.Lock()
	defer e.pipeline.Unlock()

	e.mu.Lock()
	out, ok := e.motionLocked(a)
	subs := e.subscribers()
	e.mu.Unlock()

	if ok {
		e.deliver(ctx, subs, out)
	}
	return out, ok
}

// HandleOrientation processes one orientation sample.
func (e *Estimator) HandleOrientation(o imu.Orientation) {
	e.pipeline.Lock()
	defer e.pipeline.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	angles := orientation.Angles{Alpha: o.Alpha, Beta: o.Beta, Gamma: o.Gamma}
	if e.state == Calibrating && e.calibrating == Gyroscope {
		if e.gyroBias.Accumulate(angles.Vec()) {
			e.finishCalibration(Gyroscope)
		}
		return
	}
	if !e.trackingLocked() {
		return
	}
	if bias, ok := e.gyroBias.Estimate(); ok {
		angles = angles.Sub(orientation.FromVec(bias))
	}
	e.orientation = angles
}

func (e *Estimator) motionLocked(a imu.Acceleration) (Output, bool) {
	if e.state == Calibrating && e.calibrating == Accelerometer {
		if e.accelBias.Accumulate(a.Vec) {
			e.finishCalibration(Accelerometer)
		}
		return e.output, false
	}
	if !e.trackingLocked() {
		return e.output, false
	}

	bias, _ := e.accelBias.Estimate()
	v := motion.Deadband(r3.Sub(a.Vec, bias), e.cfg.Deadband)
	v = r3.Vec{
		X: e.axes[0].Filter(v.X),
		Y: e.axes[1].Filter(v.Y),
		Z: e.axes[2].Filter(v.Z),
	}
	world := orientation.Transform(v, e.orientation)
	e.integ.Integrate(world, a.DeltaTime)

	d := e.integ.Displacement()
	e.output = Output{X: d.X, Y: d.Y, Z: d.Z, Orientation: e.orientation}
	return e.output, true
}

// trackingLocked reports whether samples not claimed by a calibration go
// through the tracking pipeline.
func (e *Estimator) trackingLocked() bool {
	return e.state == Tracking || (e.state == Calibrating && e.resume == Tracking)
}

func (e *Estimator) finishCalibration(kind Kind) {
	bias, _ := e.calibrator(kind).Estimate()
	e.state = e.resume
	monitoring.Logf("estimator: %s calibration complete: bias=(%.4f, %.4f, %.4f), back to %s",
		kind, bias.X, bias.Y, bias.Z, e.state)
}

func (e *Estimator) calibrator(kind Kind) *calibration.Bias {
	if kind == Gyroscope {
		return e.gyroBias
	}
	return e.accelBias
}

func (e *Estimator) subscribers() []subscription {
	if len(e.subs) == 0 {
		return nil
	}
	out := make([]subscription, len(e.subs))
	copy(out, e.subs)
	return out
}

func (e *Estimator) deliver(ctx context.Context, subs []subscription, out Output) {
	for _, s := range subs {
		if err := s.fn(ctx, out); err != nil {
			monitoring.Logf("estimator: subscriber %d: %v", s.id, err)
		}
	}
}

// PresetBias installs a bias computed elsewhere (for example a persisted
// calibration) and marks that kind calibrated. For Gyroscope the vector is
// (alpha, beta, gamma).
func (e *Estimator) PresetBias(kind Kind, bias r3.Vec) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calibrator(kind).Preset(bias)
	if e.state == Calibrating && e.calibrating == kind {
		e.state = e.resume
	}
}

// SetOrigin sets the origin latitude used by the geographic integration mode.
func (e *Estimator) SetOrigin(latDeg float64) {
	e.integ.SetOrigin(latDeg)
}

// State returns the current state.
func (e *Estimator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Output returns the most recently published output.
func (e *Estimator) Output() Output {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.output
}

// Status returns a snapshot of the estimator state.
func (e *Estimator) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	accel, accelOK := e.accelBias.Estimate()
	gyro, gyroOK := e.gyroBias.Estimate()
	st := Status{
		State:              e.state,
		CalibrationSamples: e.cfg.CalibrationSamples,
		AccelCalibrated:    accelOK,
		GyroCalibrated:     gyroOK,
		AccelBias:          accel,
		GyroBias:           orientation.FromVec(gyro),
		Velocity:           e.integ.Velocity(),
		Mode:               e.integ.Mode().String(),
		Output:             e.output,
	}
	if e.state == Calibrating {
		st.CalibratingKind = e.calibrating
		st.CalibrationProgress = e.calibrator(e.calibrating).Count()
	}
	return st
}
