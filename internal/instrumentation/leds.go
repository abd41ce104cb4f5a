// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package instrumentation holds the telemetry loop observers: status LEDs and
// the MQTT mirror used by the console, display and web front-ends.
package instrumentation

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/vision_telemetry/internal/telemetry"
)

// StatusLEDs shows what the camera currently sees: the ball LED is lit while
// the ball is tracked, the goal LED while the goal is tracked, and the idle
// LED when neither is.
type StatusLEDs struct {
	ball gpio.PinOut
	goal gpio.PinOut
	idle gpio.PinOut

	last [3]gpio.Level
	set  bool
}

// OpenStatusLEDs initialises periph and looks up the named GPIO pins.
// An empty name leaves that LED unused.
func OpenStatusLEDs(ballPin, goalPin, idlePin string) (*StatusLEDs, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("leds: periph host init: %w", err)
	}
	pins := make([]gpio.PinOut, 3)
	for i, name := range []string{ballPin, goalPin, idlePin} {
		if name == "" {
			continue
		}
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("leds: pin %q not found", name)
		}
		pins[i] = p
	}
	log.Printf("leds: ball=%q goal=%q idle=%q", ballPin, goalPin, idlePin)
	return NewStatusLEDs(pins[0], pins[1], pins[2]), nil
}

// NewStatusLEDs drives the given pins. Nil pins are skipped.
func NewStatusLEDs(ball, goal, idle gpio.PinOut) *StatusLEDs {
	return &StatusLEDs{ball: ball, goal: goal, idle: idle}
}

// Observe updates the LEDs for one transmitted frame.
func (s *StatusLEDs) Observe(r telemetry.Report) {
	ball := r.Frame.Ball.Valid
	goal := r.Frame.Goal.Valid
	levels := [3]gpio.Level{gpio.Level(ball), gpio.Level(goal), gpio.Level(!ball && !goal)}
	if s.set && levels == s.last {
		return
	}
	for i, p := range []gpio.PinOut{s.ball, s.goal, s.idle} {
		if p == nil {
			continue
		}
		if err := p.Out(levels[i]); err != nil {
			log.Printf("leds: %s: %v", p, err)
		}
	}
	s.last = levels
	s.set = true
}

// Off switches every LED off.
func (s *StatusLEDs) Off() {
	for _, p := range []gpio.PinOut{s.ball, s.goal, s.idle} {
		if p != nil {
			_ = p.Out(gpio.Low)
		}
	}
	s.set = false
}
