// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package magcal

import "fmt"

// Mode names the sensor being calibrated and the constants emitted for it.
type Mode struct {
	Version    int
	Name       string
	Radius     float64 // target sphere radius F
	OffsetName string
	MatrixName string
}

var (
	Magnetometer = Mode{
		Version:    1,
		Name:       "magnetometer",
		Radius:     1000,
		OffsetName: "HARD_IRON_OFFSET",
		MatrixName: "SOFT_IRON_MATRIX",
	}
	Accelerometer = Mode{
		Version:    2,
		Name:       "accelerometer",
		Radius:     1,
		OffsetName: "ACC_OFFSET",
		MatrixName: "ACC_MISALIGNMENT",
	}
)

// ModeForVersion returns the mode selected by the command line version argument.
func ModeForVersion(v int) (Mode, error) {
	switch v {
	case Magnetometer.Version:
		return Magnetometer, nil
	case Accelerometer.Version:
		return Accelerometer, nil
	default:
		return Mode{}, fmt.Errorf("magcal: unknown version %d (1 = magnetometer, 2 = accelerometer)", v)
	}
}
