// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/vision_telemetry/internal/capture"
	"github.com/relabs-tech/vision_telemetry/internal/config"
)

// RunCapture records up to count samples (0 = unlimited) from the debug
// console into outPath, stopping early after d (0 = no limit) or on Ctrl+C.
func RunCapture(cfg *config.Config, outPath string, count int, d time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	port, err := capture.OpenConsole(cfg.CaptureSerialPort, cfg.CaptureBaudRate)
	if err != nil {
		return err
	}
	// Closing the port unblocks a pending read once ctx ends.
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	defer f.Close()

	log.Printf("capture: recording to %s, rotate the sensor through all orientations", outPath)
	st, err := capture.Record(ctx, port, f, count)
	stop()
	log.Printf("capture: %d samples written, %d of %d lines rejected", st.Samples, st.Rejected, st.Lines)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return f.Sync()
}
