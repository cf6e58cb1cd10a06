// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/inertial_tracker/internal/config"
	"github.com/relabs-tech/inertial_tracker/internal/gps"
)

// RunConsoleMQTT prints positions, tracker status and GPS fixes as they are
// published.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribe(client, cfg.MQTT.TopicPosition, func(_ mqtt.Client, msg mqtt.Message) {
		var env Envelope
		if err := json.Unmarshal(msg.Payload(), &env); err != nil {
			log.Printf("console: position unmarshal error: %v", err)
			return
		}
		fmt.Println(formatEnvelope(env))
	}); err != nil {
		return err
	}

	if err := subscribe(client, cfg.MQTT.TopicStatus, func(_ mqtt.Client, msg mqtt.Message) {
		var st TrackerStatus
		if err := json.Unmarshal(msg.Payload(), &st); err != nil {
			log.Printf("console: status unmarshal error: %v", err)
			return
		}
		fmt.Printf("[STAT] state=%s accel_cal=%t gyro_cal=%t progress=%d/%d v=(%.3f, %.3f, %.3f)\n",
			st.State, st.AccelCalibrated, st.GyroCalibrated,
			st.CalibrationProgress, st.CalibrationSamples,
			st.Velocity.X, st.Velocity.Y, st.Velocity.Z)
	}); err != nil {
		return err
	}

	if err := subscribe(client, cfg.MQTT.TopicGPS, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: gps unmarshal error: %v", err)
			return
		}
		fmt.Printf(
			"[GPS ] time=%s date=%s lat=%.6f lon=%.6f speed=%.1fkn course=%.1f° validity=%s\n",
			f.Time, f.Date, f.Latitude, f.Longitude, f.SpeedKnots, f.CourseDeg, f.Validity,
		)
	}); err != nil {
		return err
	}

	waitForSignal()
	log.Println("console: shutting down")
	return nil
}

func formatEnvelope(env Envelope) string {
	p := env.Position
	return fmt.Sprintf("[POS ] #%-6d %-12s X=%9.3f Y=%9.3f Z=%9.3f | ALPHA=%6.1f BETA=%6.1f GAMMA=%6.1f",
		env.Seq, env.State, p.X, p.Y, p.Z,
		p.Orientation.Alpha, p.Orientation.Beta, p.Orientation.Gamma)
}
