// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/vision_telemetry/internal/config"
	"github.com/relabs-tech/vision_telemetry/internal/telemetry"
)

const (
	displayWidth  = 128
	displayHeight = 64
)

// trackState holds the latest mirrored frame for the display and web front-ends.
type trackState struct {
	mu       sync.RWMutex
	last     telemetry.Report
	have     bool
	received time.Time
}

func (s *trackState) update(r telemetry.Report) {
	s.mu.Lock()
	s.last = r
	s.have = true
	s.received = time.Now()
	s.mu.Unlock()
}

func (s *trackState) get() (telemetry.Report, bool, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.have, s.received
}

// RunDisplay shows the latest ball and goal estimates on an SSD1306 OLED.
func RunDisplay(cfg *config.Config) error {
	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus %q: %w", cfg.DisplayI2CBus, err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: SSD1306 initialized")

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	state := &trackState{}

	client, err := connectMQTT("display", cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribeTrack(client, "display", cfg.TopicTrack, state.update); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	var lastSeq uint64
	for range ticker.C {
		r, have, at := state.get()
		stale := have && time.Since(at) > 2*time.Second
		if have && !stale && r.Seq == lastSeq {
			continue
		}
		lastSeq = r.Seq

		if err := dev.Draw(dev.Bounds(), renderTrack(r, have, stale), image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}
	return nil
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(d *font.Drawer, x, y int, s string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

// renderTrack draws one frame: ball on the top half, goal on the bottom half.
func renderTrack(r telemetry.Report, have, stale bool) *image1bit.VerticalLSB {
	img, d := newCanvas()

	if !have {
		drawLine(d, 0, 26, "Vision telemetry")
		drawLine(d, 0, 39, "Waiting...")
		return img
	}

	drawLine(d, 0, 13, "Ball")
	if r.Frame.Ball.Valid {
		drawLine(d, 0, 26, fmt.Sprintf("%5.1f %6.1f", r.Frame.Ball.Bearing, r.Frame.Ball.Range))
	} else {
		drawLine(d, 0, 26, "  none")
	}

	drawLine(d, 0, 45, "Goal "+r.Goal)
	if r.Frame.Goal.Valid {
		drawLine(d, 0, 58, fmt.Sprintf("%5.1f %6.1f", r.Frame.Goal.Bearing, r.Frame.Goal.Range))
	} else {
		drawLine(d, 0, 58, "  none")
	}

	if stale {
		drawLine(d, 92, 13, "STALE")
	}
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, d := newCanvas()
	drawLine(d, 10, 26, "Vision Pi")
	drawLine(d, 5, 43, "Telemetry")
	return img
}
