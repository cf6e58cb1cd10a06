// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/inertial_tracker/internal/config"
	"github.com/relabs-tech/inertial_tracker/internal/sensors"
)

// RunIMUProducer reads the MPU9250 and publishes motion and orientation
// events every imu.sample_interval.
func RunIMUProducer() error {
	log.Println("starting inertial-tracker IMU producer")
	cfg := config.Get()

	src, err := sensors.NewIMUSource(sensors.IMUConfig{
		Name:       cfg.IMU.Name,
		SPIDevice:  cfg.IMU.SPIDevice,
		CSPin:      cfg.IMU.CSPin,
		AccelRange: cfg.IMU.AccelRange,
	})
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	return runSampleProducer(client, src, cfg)
}

// RunMockProducer publishes simulated sample events.
func RunMockProducer() error {
	log.Println("starting inertial-tracker MQTT producer (mock)")
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientIDProducer+"-mock")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	return runSampleProducer(client, sensors.NewMockSource(cfg.IMU.SampleInterval), cfg)
}

func runSampleProducer(client mqtt.Client, src sensors.Source, cfg *config.Config) error {
	ticker := time.NewTicker(cfg.IMU.SampleInterval)
	defer ticker.Stop()

	log.Printf("publishing samples every %s on %s and %s",
		cfg.IMU.SampleInterval, cfg.MQTT.TopicOrientation, cfg.MQTT.TopicMotion)

	var published int
	for range ticker.C {
		s, err := src.Next()
		if err != nil {
			log.Printf("sensor read error: %v", err)
			continue
		}

		// Orientation goes first so the tracker rotates this motion sample
		// with the angles measured alongside it.
		if err := publishJSON(client, cfg.MQTT.TopicOrientation, false, s.Orientation); err != nil {
			log.Printf("MQTT publish error: %v", err)
			continue
		}
		if err := publishJSON(client, cfg.MQTT.TopicMotion, false, s.Motion); err != nil {
			log.Printf("MQTT publish error: %v", err)
			continue
		}

		published++
		if published%100 == 0 {
			a := s.Motion.Acceleration()
			o := s.Orientation.Orientation()
			log.Printf("%s tick %d: accel=(%.3f, %.3f, %.3f) dt=%.3fs | alpha=%.1f beta=%.1f gamma=%.1f",
				s.Time.Format(time.RFC3339), published,
				a.Vec.X, a.Vec.Y, a.Vec.Z, a.DeltaTime,
				o.Alpha, o.Beta, o.Gamma)
		}
	}
	return nil
}
