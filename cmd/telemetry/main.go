// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/vision_telemetry/internal/app"
	"github.com/relabs-tech/vision_telemetry/internal/config"
)

func main() {
	configPath := flag.String("config", "vision_config.txt", "path to the configuration file")
	flag.Parse()

	log.Println("starting vision-telemetry (serial link)")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunTelemetry(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
