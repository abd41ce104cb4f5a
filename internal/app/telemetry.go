// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/vision_telemetry/internal/config"
	"github.com/relabs-tech/vision_telemetry/internal/instrumentation"
	"github.com/relabs-tech/vision_telemetry/internal/telemetry"
	"github.com/relabs-tech/vision_telemetry/internal/vision"
)

// RunTelemetry runs the vision to serial telemetry loop until SIGINT/SIGTERM
// or the end of a replay file.
func RunTelemetry(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := cfg.Session()
	settings := cfg.Settings()

	// --- MQTT: vision source and mirror ---
	var client mqtt.Client
	c, err := connectMQTT("telemetry", cfg.MQTTBroker, cfg.MQTTClientIDTelemetry)
	switch {
	case err == nil:
		client = c
		defer client.Disconnect(250)
	case cfg.VisionSource == config.VisionSourceMQTT:
		return err
	default:
		log.Printf("telemetry: %v (continuing without mirror)", err)
	}

	// --- vision front-end ---
	camera, closeCamera, err := openCamera(cfg, client, settings)
	if err != nil {
		return err
	}
	defer closeCamera()

	// --- serial link ---
	port, err := telemetry.OpenSerial(cfg.SerialPort, cfg.PortOptions())
	if err != nil {
		return err
	}
	defer port.Close()
	writer := telemetry.NewWriter(port, cfg.BreakDuration())

	// --- goal colour, once ---
	goal, fixed := cfg.FixedGoal()
	if fixed {
		log.Printf("telemetry: goal colour fixed to %s", goal)
	} else {
		goal, err = telemetry.LatchGoal(ctx, camera, settings, session.Center(), cfg.LatchPolicy())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("telemetry: goal latch: %w", err)
		}
	}

	// --- instrumentation ---
	var observers []telemetry.Observer
	if cfg.LEDBallPin != "" || cfg.LEDGoalPin != "" || cfg.LEDIdlePin != "" {
		leds, err := instrumentation.OpenStatusLEDs(cfg.LEDBallPin, cfg.LEDGoalPin, cfg.LEDIdlePin)
		if err != nil {
			log.Printf("telemetry: status LEDs disabled: %v", err)
		} else {
			defer leds.Off()
			observers = append(observers, leds)
		}
	}
	if client != nil {
		observers = append(observers, instrumentation.NewMirror(client, cfg.TopicTrack))
	}
	if cfg.FPSLogInterval > 0 {
		observers = append(observers, telemetry.NewFrameRateLogger(time.Duration(cfg.FPSLogInterval)*time.Millisecond))
	}

	loop := telemetry.NewLoop(camera, session, settings, goal, writer, observers...)
	err = loop.Run(ctx)
	log.Printf("telemetry: %d frames sent", writer.Sent())
	if errors.Is(err, context.Canceled) {
		log.Println("telemetry: shutting down")
		return nil
	}
	return err
}

func openCamera(cfg *config.Config, client mqtt.Client, settings telemetry.Settings) (vision.Camera, func(), error) {
	switch cfg.VisionSource {
	case config.VisionSourceReplay:
		f, err := os.Open(cfg.VisionReplayFile)
		if err != nil {
			return nil, nil, fmt.Errorf("telemetry: replay: %w", err)
		}
		log.Printf("telemetry: replaying detections from %s", cfg.VisionReplayFile)
		return vision.NewReplayCamera(f), func() { f.Close() }, nil

	default:
		cam := vision.NewMQTTCamera(client, cfg.TopicRegions)
		if err := cam.Configure(cfg.TopicVisionConfig, settings.Requests()); err != nil {
			return nil, nil, err
		}
		if err := cam.Start(); err != nil {
			return nil, nil, err
		}
		return cam, func() {
			if n := cam.Dropped(); n > 0 {
				log.Printf("telemetry: %d detections dropped while busy", n)
			}
		}, nil
	}
}
