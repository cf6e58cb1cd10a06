// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file used by the cmd/ programs when no
// -config flag is given.
const DefaultPath = "inertial_tracker.yaml"

// Config holds all application configuration values.
type Config struct {
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Estimator   EstimatorConfig   `yaml:"estimator"`
	IMU         IMUConfig         `yaml:"imu"`
	GPS         GPSConfig         `yaml:"gps"`
	Web         WebConfig         `yaml:"web"`
	Display     DisplayConfig     `yaml:"display"`
	Calibration CalibrationConfig `yaml:"calibration"`
}

type MQTTConfig struct {
	Broker string `yaml:"broker"`

	ClientIDTracker  string `yaml:"client_id_tracker"`
	ClientIDProducer string `yaml:"client_id_producer"`
	ClientIDGPS      string `yaml:"client_id_gps"`
	ClientIDConsole  string `yaml:"client_id_console"`
	ClientIDWeb      string `yaml:"client_id_web"`
	ClientIDDisplay  string `yaml:"client_id_display"`

	TopicMotion      string `yaml:"topic_motion"`
	TopicOrientation string `yaml:"topic_orientation"`
	TopicPosition    string `yaml:"topic_position"`
	TopicStatus      string `yaml:"topic_status"`
	TopicControl     string `yaml:"topic_control"`
	TopicGPS         string `yaml:"topic_gps"`
}

// EstimatorConfig mirrors the tunable constants of the position estimator.
type EstimatorConfig struct {
	CalibrationSamples int `yaml:"calibration_samples"`
	// Deadband is nil when unset; an explicit 0 disables the deadband.
	Deadband          *float64 `yaml:"deadband"`
	ProcessNoise      float64  `yaml:"process_noise"`
	MeasurementNoise  float64  `yaml:"measurement_noise"`
	InitialCovariance float64  `yaml:"initial_covariance"`
	// Mode is "displacement" or "geographic".
	Mode           string  `yaml:"mode"`
	OriginLatitude float64 `yaml:"origin_latitude"`
	// AutoCalibrate runs an accelerometer calibration when the tracker
	// starts, followed by tracking.
	AutoCalibrate bool `yaml:"auto_calibrate"`
	// OriginFromGPS seeds OriginLatitude from the first valid GPS fix.
	OriginFromGPS bool `yaml:"origin_from_gps"`
}

type IMUConfig struct {
	Name      string `yaml:"name"`
	SPIDevice string `yaml:"spi_device"`
	CSPin     string `yaml:"cs_pin"`
	// AccelRange: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	AccelRange     byte          `yaml:"accel_range"`
	SampleInterval time.Duration `yaml:"sample_interval"`
}

type GPSConfig struct {
	SerialPort string `yaml:"serial_port"`
	BaudRate   uint   `yaml:"baud_rate"`
}

type WebConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

type DisplayConfig struct {
	// I2CBus is the periph bus name; empty selects the first bus.
	I2CBus         string        `yaml:"i2c_bus"`
	UpdateInterval time.Duration `yaml:"update_interval"`
}

type CalibrationConfig struct {
	// File is written by cmd/calibration and, when present, loaded by the
	// tracker as a preset bias.
	File     string        `yaml:"file"`
	Duration time.Duration `yaml:"duration"`
}

// Package-level unexported variables for the singleton:
//   - globalConfig is only reachable through InitGlobal and Get.
//   - configOnce makes InitGlobal run once.
//   - configMu guards globalConfig for concurrent readers.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration with every default filled in.
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

// Load reads the YAML configuration file, fills defaults and validates it.
func Load(configPath string) (*Config, error) {
	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes a YAML document, fills defaults and validates it.
func Parse(b []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	m := &c.MQTT
	setString(&m.Broker, "tcp://localhost:1883")
	setString(&m.ClientIDTracker, "inertial-tracker")
	setString(&m.ClientIDProducer, "inertial-producer")
	setString(&m.ClientIDGPS, "inertial-gps-producer")
	setString(&m.ClientIDConsole, "inertial-console-subscriber")
	setString(&m.ClientIDWeb, "inertial-web-subscriber")
	setString(&m.ClientIDDisplay, "inertial-display")
	setString(&m.TopicMotion, "inertial/motion")
	setString(&m.TopicOrientation, "inertial/orientation")
	setString(&m.TopicPosition, "inertial/position")
	setString(&m.TopicStatus, "inertial/status")
	setString(&m.TopicControl, "inertial/control")
	setString(&m.TopicGPS, "inertial/gps")

	e := &c.Estimator
	if e.CalibrationSamples == 0 {
		e.CalibrationSamples = 100
	}
	if e.Deadband == nil {
		def := 0.1
		e.Deadband = &def
	}
	if e.ProcessNoise == 0 {
		e.ProcessNoise = 1
	}
	if e.MeasurementNoise == 0 {
		e.MeasurementNoise = 1
	}
	setString(&e.Mode, "displacement")

	setString(&c.IMU.Name, "left")
	setString(&c.IMU.SPIDevice, "/dev/spidev6.0")
	setString(&c.IMU.CSPin, "18")
	if c.IMU.SampleInterval <= 0 {
		c.IMU.SampleInterval = 10 * time.Millisecond
	}

	setString(&c.GPS.SerialPort, "/dev/serial0")
	if c.GPS.BaudRate == 0 {
		c.GPS.BaudRate = 9600
	}

	setString(&c.Web.Addr, ":8080")
	setString(&c.Web.StaticDir, "web")

	if c.Display.UpdateInterval <= 0 {
		c.Display.UpdateInterval = 200 * time.Millisecond
	}

	setString(&c.Calibration.File, "inertial_calibration.json")
	if c.Calibration.Duration <= 0 {
		c.Calibration.Duration = 5 * time.Second
	}
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

// validate checks values that have no usable default.
func (c *Config) validate() error {
	if c.Estimator.CalibrationSamples < 0 {
		return fmt.Errorf("estimator.calibration_samples must be > 0, got %d", c.Estimator.CalibrationSamples)
	}
	if *c.Estimator.Deadband < 0 {
		return fmt.Errorf("estimator.deadband must be >= 0, got %v", *c.Estimator.Deadband)
	}
	if c.Estimator.ProcessNoise < 0 || c.Estimator.MeasurementNoise < 0 {
		return fmt.Errorf("estimator noise coefficients must be > 0")
	}
	if c.Estimator.Mode != "displacement" && c.Estimator.Mode != "geographic" {
		return fmt.Errorf("estimator.mode must be displacement or geographic, got %q", c.Estimator.Mode)
	}
	if c.Estimator.OriginLatitude < -90 || c.Estimator.OriginLatitude > 90 {
		return fmt.Errorf("estimator.origin_latitude must be within [-90, 90], got %v", c.Estimator.OriginLatitude)
	}
	if c.IMU.AccelRange > 3 {
		return fmt.Errorf("imu.accel_range must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", c.IMU.AccelRange)
	}
	if c.MQTT.TopicMotion == c.MQTT.TopicPosition {
		return fmt.Errorf("mqtt.topic_motion and mqtt.topic_position must differ")
	}
	return nil
}

// InitGlobal initializes the global configuration from file. Only the first
// call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
