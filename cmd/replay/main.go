// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Publishes recorded detections on the regions topic so the telemetry loop
// can run without the camera front-end.
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
	in := flag.String("i", "detections.ndjson", "newline-delimited detection JSON to publish")
	interval := flag.Duration("interval", 33*time.Millisecond, "delay between detections")
	flag.Parse()

	log.Println("starting vision-telemetry replay producer (mock front-end)")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunReplayProducer(cfg, *in, *interval); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
