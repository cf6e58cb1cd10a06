// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relabs-tech/inertial_tracker/internal/estimator"
)

// Control actions accepted on the control topic and POST /api/control.
const (
	ActionCalibrate = "calibrate"
	ActionStart     = "start"
	ActionStop      = "stop"
	ActionReset     = "reset"
)

// Command is a control message for the tracker.
type Command struct {
	Action string `json:"action"`
	// Kind is required for ActionCalibrate: "accelerometer" or "gyroscope".
	Kind string `json:"kind,omitempty"`
}

// DecodeCommand parses and validates a control message.
func DecodeCommand(b []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("decode control command: %w", err)
	}
	c.Action = strings.ToLower(strings.TrimSpace(c.Action))
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate checks the action and, for calibrations, the kind.
func (c Command) Validate() error {
	switch c.Action {
	case ActionStart, ActionStop, ActionReset:
		return nil
	case ActionCalibrate:
		_, err := estimator.ParseKind(c.Kind)
		return err
	default:
		return fmt.Errorf("unknown control action %q", c.Action)
	}
}

// Apply runs the command against est.
func (c Command) Apply(ctx context.Context, est *estimator.Estimator) error {
	switch c.Action {
	case ActionStart:
		est.StartTracking()
	case ActionStop:
		est.StopTracking()
	case ActionReset:
		est.Reset(ctx)
	case ActionCalibrate:
		kind, err := estimator.ParseKind(c.Kind)
		if err != nil {
			return err
		}
		est.StartCalibration(kind)
	default:
		return fmt.Errorf("unknown control action %q", c.Action)
	}
	return nil
}
