// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/vision_telemetry/internal/config"
	"github.com/relabs-tech/vision_telemetry/internal/telemetry"
	"github.com/relabs-tech/vision_telemetry/internal/tracking"
)

// RunConsoleMQTT prints every mirrored telemetry frame until Ctrl+C.
func RunConsoleMQTT(cfg *config.Config) error {
	client, err := connectMQTT("console", cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}

	err = subscribeTrack(client, "console", cfg.TopicTrack, func(r telemetry.Report) {
		fmt.Println(formatReport(r))
	})
	if err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func formatReport(r telemetry.Report) string {
	return fmt.Sprintf("[%6d] BALL %s  GOAL(%s) %s  wire=% x",
		r.Seq, formatEstimate(r.Frame.Ball), r.Goal, formatEstimate(r.Frame.Goal), r.Wire)
}

func formatEstimate(e tracking.TrackEstimate) string {
	if !e.Valid {
		return "        ---        "
	}
	return fmt.Sprintf("b=%6.1f° r=%7.2f", e.Bearing, e.Range)
}
