// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/relabs-tech/vision_telemetry/internal/tracking"
	"github.com/relabs-tech/vision_telemetry/internal/vision"
)

// LatchPolicy bounds the goal colour decision made at startup.
type LatchPolicy struct {
	Attempts int           // snapshots to inspect before giving up
	Timeout  time.Duration // per snapshot
	Fallback tracking.GoalColor
}

// DefaultLatchPolicy tries ten snapshots of 500 ms each and falls back to blue.
func DefaultLatchPolicy() LatchPolicy {
	return LatchPolicy{Attempts: 10, Timeout: 500 * time.Millisecond, Fallback: tracking.GoalBlue}
}

// LatchGoal decides once which goal colour to track for the session.
//
// It needs both goals in the same snapshot. The goal whose centroid is above
// the optical centre is our own, so the robot attacks the other one: blue if
// the yellow goal is above centre, yellow otherwise. When no snapshot shows
// both goals within the policy, the fallback colour is returned.
// An error is only returned if ctx ends.
func LatchGoal(ctx context.Context, camera vision.Camera, s Settings, center tracking.Point, p LatchPolicy) (tracking.GoalColor, error) {
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		actx, cancel := context.WithTimeout(ctx, p.Timeout)
		snap, err := camera.Snapshot(actx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return p.Fallback, ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				Logf("telemetry: goal latch: vision stream ended after %d attempts", attempt)
				break
			}
			Logf("telemetry: goal latch attempt %d/%d: %v", attempt, p.Attempts, err)
			continue
		}

		yellow, yok := vision.Largest(snap.FindRegions(s.YellowGoal, s.GoalOptions))
		_, bok := vision.Largest(snap.FindRegions(s.BlueGoal, s.GoalOptions))
		if !yok || !bok {
			continue
		}

		color := tracking.GoalYellow
		if yellow.CY < center.Y {
			color = tracking.GoalBlue
		}
		Logf("telemetry: goal latch: tracking %s goal (attempt %d)", color, attempt)
		return color, nil
	}

	Logf("telemetry: goal latch: both goals not seen in %d attempts, using %s", p.Attempts, p.Fallback)
	return p.Fallback, nil
}
