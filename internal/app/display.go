// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_tracker/internal/config"
)

const (
	oledWidth  = 128
	oledHeight = 64
	lineHeight = 13
)

// displayData holds the latest tracker output for the OLED.
type displayData struct {
	mu           sync.RWMutex
	position     Envelope
	havePosition bool
}

func (d *displayData) set(env Envelope) {
	d.mu.Lock()
	d.position = env
	d.havePosition = true
	d.mu.Unlock()
}

func (d *displayData) get() (Envelope, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.position, d.havePosition
}

// RunDisplay renders the latest published position on an SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.Display.I2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	// The driver addresses the panel at 0x3C.
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized on I2C bus %q", cfg.Display.I2CBus)

	if err := dev.Draw(dev.Bounds(), renderLines("Inertial Pi", "Dead reckoning", "Waiting..."), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &displayData{}

	client, err := connectMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribe(client, cfg.MQTT.TopicPosition, func(_ mqtt.Client, msg mqtt.Message) {
		var env Envelope
		if err := json.Unmarshal(msg.Payload(), &env); err != nil {
			log.Printf("display: position unmarshal error: %v", err)
			return
		}
		data.set(env)
	}); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.Display.UpdateInterval)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for range ticker.C {
		env, ok := data.get()
		if err := dev.Draw(dev.Bounds(), renderPosition(env, ok), image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}
	return nil
}

// renderPosition lays out one envelope on a 128x64 frame.
func renderPosition(env Envelope, haveData bool) *image1bit.VerticalLSB {
	if !haveData {
		return renderLines("", "Position", "Waiting...")
	}
	p := env.Position
	cal := "--"
	switch {
	case env.AccelCalibrated && env.GyroCalibrated:
		cal = "AG"
	case env.AccelCalibrated:
		cal = "A-"
	case env.GyroCalibrated:
		cal = "-G"
	}
	return renderLines(
		fmt.Sprintf("%-11s %s", env.State, cal),
		fmt.Sprintf("X:%9.2f", p.X),
		fmt.Sprintf("Y:%9.2f", p.Y),
		fmt.Sprintf("Z:%9.2f", p.Z),
		fmt.Sprintf("A%4.0f B%4.0f G%4.0f", p.Orientation.Alpha, p.Orientation.Beta, p.Orientation.Gamma),
	)
}

// renderLines draws up to five text lines in Face7x13.
func renderLines(lines ...string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		baseline := lineHeight*i + basicfont.Face7x13.Ascent
		if baseline >= oledHeight {
			break
		}
		drawer.Dot = fixed.P(0, baseline)
		drawer.DrawString(line)
	}
	return img
}
