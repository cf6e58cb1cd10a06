// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"fmt"
	"log"
	"strings"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/inertial_tracker/internal/config"
	"github.com/relabs-tech/inertial_tracker/internal/gps"
)

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes RMC fixes as JSON on the GPS topic. The tracker uses the first
// valid fix as the origin latitude of the geographic mode.
func RunGPSProducer() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientIDGPS)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	serialOpts := serial.OpenOptions{
		PortName:              cfg.GPS.SerialPort,
		BaudRate:              cfg.GPS.BaudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("open GPS serial port %s: %w", serialOpts.PortName, err)
	}
	defer port.Close()
	log.Printf("GPS serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	reader := bufio.NewReader(port)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("GPS read: %w", err)
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		// Noisy receivers emit partial sentences; those are skipped.
		fix, ok := gps.ParseRMC(line)
		if !ok {
			continue
		}

		if err := publishJSON(client, cfg.MQTT.TopicGPS, true, fix); err != nil {
			log.Printf("GPS publish error: %v", err)
			continue
		}
		log.Printf("published GPS fix: %+v", fix)
	}
}
