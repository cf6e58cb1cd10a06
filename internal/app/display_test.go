// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/inertial_tracker/internal/estimator"
)

func litPixels(img *image1bit.VerticalLSB, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestRenderPositionWaiting(t *testing.T) {
	img := renderPosition(Envelope{}, false)

	assert.Equal(t, image.Rect(0, 0, oledWidth, oledHeight), img.Bounds())
	assert.Zero(t, litPixels(img, image.Rect(0, 0, oledWidth, lineHeight)), "first line is blank")
	assert.NotZero(t, litPixels(img, img.Bounds()))
}

func TestRenderPositionUsesEveryLine(t *testing.T) {
	img := renderPosition(Envelope{
		State:           estimator.Tracking,
		AccelCalibrated: true,
		Position:        estimator.Output{X: 1.25, Y: -3.5, Z: 0.1},
	}, true)

	for line := 0; line < 5; line++ {
		band := image.Rect(0, line*lineHeight, oledWidth, min((line+1)*lineHeight, oledHeight))
		assert.NotZero(t, litPixels(img, band), "line %d", line)
	}
}

func TestRenderLinesDropsOverflow(t *testing.T) {
	full := renderLines("a", "b", "c", "d", "e")
	overflow := renderLines("a", "b", "c", "d", "e", "f", "g")
	assert.Equal(t, full.Pix, overflow.Pix)
}
