// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tracking

import (
	"fmt"
	"math"
)

// Point is a position in image pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// Target selects the bearing reference and distance axis used for a region.
type Target int

const (
	// Ball bearings are rotated by -90 degrees so 0 is the robot's forward axis.
	// Raw distance is the Euclidean pixel offset.
	Ball Target = iota
	// Goal bearings are not rotated. Raw distance is the vertical pixel offset only,
	// goals sit near the horizontal centre line of the mirror image.
	Goal
)

func (t Target) String() string {
	switch t {
	case Ball:
		return "ball"
	case Goal:
		return "goal"
	default:
		return fmt.Sprintf("target(%d)", int(t))
	}
}

// BearingOffset returns the rotation applied to the raw atan2 angle, in degrees.
func (t Target) BearingOffset() float64 {
	if t == Ball {
		return -90
	}
	return 0
}

// Bearing returns the angle of the offset (dx, dy) in degrees, in [0, 360).
func (t Target) Bearing(dx, dy float64) float64 {
	return NormalizeBearing(math.Atan2(dx, dy)*180/math.Pi + t.BearingOffset())
}

// RawDistance returns the pixel-space distance the calibration curve expects.
func (t Target) RawDistance(dx, dy float64) float64 {
	if t == Goal {
		return math.Abs(dy)
	}
	return math.Hypot(dx, dy)
}

// NormalizeBearing maps an angle in (-270, 180] into [0, 360).
// One wrap is enough for atan2 output plus the ball rotation.
func NormalizeBearing(deg float64) float64 {
	if deg < 0 {
		deg += 360
	}
	// -1e-14 + 360 rounds to exactly 360.
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// DistanceCurve maps raw pixel distance to physical range:
// range = M*e^(T*raw) + C*raw + D.
type DistanceCurve struct {
	M float64
	T float64
	C float64
	D float64
}

// DefaultCurve is the curve fitted for the current mirror and camera mount.
var DefaultCurve = DistanceCurve{
	M: 0.0001144220513222588,
	T: 0.11943230322950865,
	C: 0.48308099078412714,
	D: -4.1580139472465865,
}

// Range evaluates the curve at raw.
func (c DistanceCurve) Range(raw float64) float64 {
	return c.M*math.Exp(c.T*raw) + c.C*raw + c.D
}
