// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/vision_telemetry/internal/config"
	"github.com/relabs-tech/vision_telemetry/internal/instrumentation"
	"github.com/relabs-tech/vision_telemetry/internal/vision"
)

// RunReplayProducer stands in for the vision front-end: it publishes the
// detections recorded in path on TOPIC_REGIONS, one per interval.
func RunReplayProducer(cfg *config.Config, path string, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	defer f.Close()

	client, err := connectMQTT("replay", cfg.MQTTBroker, cfg.MQTTClientIDTelemetry+"-replay")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	n, err := publishDetections(ctx, vision.NewReplayCamera(f), client, cfg.TopicRegions, ticker.C)
	log.Printf("replay: published %d detections", n)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// publishDetections sends one detection from cam per tick until cam is
// exhausted. Missing sequence numbers and timestamps are filled in.
func publishDetections(ctx context.Context, cam vision.Camera, pub instrumentation.Publisher, topic string, tick <-chan time.Time) (int, error) {
	var n int
	for {
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		case t := <-tick:
			frame, err := cam.Snapshot(ctx)
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			if err != nil {
				return n, err
			}
			d, ok := frame.(*vision.Detection)
			if !ok {
				return n, fmt.Errorf("replay: unexpected frame type %T", frame)
			}
			if d.Seq == 0 {
				d.Seq = uint64(n + 1)
			}
			if d.Time.IsZero() {
				d.Time = t
			}

			payload, err := json.Marshal(d)
			if err != nil {
				log.Printf("replay: json marshal error: %v", err)
				continue
			}
			token := pub.Publish(topic, 0, false, payload)
			token.Wait()
			if err := token.Error(); err != nil {
				log.Printf("replay: publish error: %v", err)
				continue
			}
			n++
		}
	}
}
