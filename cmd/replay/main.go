// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/relabs-tech/inertial_tracker/internal/app"
	"github.com/relabs-tech/inertial_tracker/internal/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to configuration file (optional)")
	input := flag.String("in", "recording.jsonl", "JSON-lines sample recording")
	plotPath := flag.String("plot", "", "write the trajectory plot to this file (e.g. trajectory.png)")
	generate := flag.Int("generate", 0, "write this many mock samples to -in instead of replaying")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("failed to load config: %v", err)
	}

	if *generate > 0 {
		if err := app.RunGenerateRecording(*input, *generate); err != nil {
			log.Fatalf("fatal: %v", err)
		}
		log.Printf("wrote %d mock samples to %s", *generate, *input)
		return
	}

	if err := app.RunReplay(*input, *plotPath); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
