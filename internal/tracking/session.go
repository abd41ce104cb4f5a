// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tracking

import (
	"fmt"
	"strings"

	"github.com/relabs-tech/vision_telemetry/internal/vision"
)

// TrackEstimate is the polar position of one object in the robot frame.
// An invalid estimate always carries zero bearing and range.
type TrackEstimate struct {
	Bearing float64 `json:"bearing"`
	Range   float64 `json:"range"`
	Valid   bool    `json:"valid"`
}

// Session holds the constants shared by every frame of a run.
// It is never modified after NewSession.
type Session struct {
	center Point
	curve  DistanceCurve
}

// NewSession creates a session around the optical centre with the given curve.
func NewSession(center Point, curve DistanceCurve) *Session {
	return &Session{center: center, curve: curve}
}

// Center returns the image position of the optical axis.
func (s *Session) Center() Point { return s.center }

// Curve returns the range calibration curve.
func (s *Session) Curve() DistanceCurve { return s.curve }

// Estimate converts a selected region into an estimate for target.
// ok reports whether a region was selected at all; when false the result is invalid.
func (s *Session) Estimate(target Target, region vision.Region, ok bool) TrackEstimate {
	if !ok {
		return TrackEstimate{}
	}
	dx := region.CX - s.center.X
	dy := region.CY - s.center.Y
	return TrackEstimate{
		Bearing: target.Bearing(dx, dy),
		Range:   s.curve.Range(target.RawDistance(dx, dy)),
		Valid:   true,
	}
}

// Track selects the largest region and estimates its position.
func (s *Session) Track(target Target, regions []vision.Region) TrackEstimate {
	r, ok := vision.Largest(regions)
	return s.Estimate(target, r, ok)
}

// GoalColor is the goal the robot attacks for the whole session.
type GoalColor int

const (
	GoalYellow GoalColor = iota
	GoalBlue
)

func (g GoalColor) String() string {
	switch g {
	case GoalYellow:
		return "yellow"
	case GoalBlue:
		return "blue"
	default:
		return fmt.Sprintf("goal(%d)", int(g))
	}
}

// ParseGoalColor accepts "yellow" or "blue", case-insensitively.
func ParseGoalColor(s string) (GoalColor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yellow":
		return GoalYellow, nil
	case "blue":
		return GoalBlue, nil
	default:
		return 0, fmt.Errorf("unknown goal color %q (want yellow or blue)", s)
	}
}
