// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Records raw x,y,z samples from the sensor debug console into a CSV file
// suitable for ./calibration.
//
// Run:
//
//	capture -o mag.csv -n 2000
package main

import (
	"flag"
	"log"
	"time"

	"github.com/relabs-tech/vision_telemetry/internal/app"
	"github.com/relabs-tech/vision_telemetry/internal/config"
)

func main() {
	configPath := flag.String("config", "vision_config.txt", "path to the configuration file")
	out := flag.String("o", "samples.csv", "output CSV file")
	count := flag.Int("n", 0, "stop after this many samples (0 = until Ctrl+C)")
	dur := flag.Duration("d", 0, "stop after this long (0 = no limit)")
	flag.Parse()

	log.Println("starting vision-telemetry sample capture")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunCapture(cfg, *out, *count, *dur); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
