// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"

	"github.com/relabs-tech/vision_telemetry/internal/magcal"
)

// ErrUsage is returned for a wrong number of calibration arguments.
var ErrUsage = errors.New("usage: calibration [-json dir] <samples.csv> <version>")

// RunCalibration fits the samples file named in args and writes the report
// and constants to out. args are the positional arguments: path and version.
// A non-empty jsonDir also saves the result there.
func RunCalibration(args []string, jsonDir string, out io.Writer) error {
	if len(args) != 2 {
		return ErrUsage
	}
	path := args[0]
	version, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[1], err)
	}
	mode, err := magcal.ModeForVersion(version)
	if err != nil {
		return err
	}

	samples, err := magcal.LoadSamplesFile(path)
	if err != nil {
		return err
	}
	log.Printf("calibration: %d samples from %s (%s)", len(samples), path, mode.Name)

	res, err := magcal.Calibrate(samples, mode)
	if err != nil {
		return err
	}
	if err := res.WriteReport(out); err != nil {
		return err
	}

	if jsonDir != "" {
		file, err := res.Save(jsonDir)
		if err != nil {
			return err
		}
		log.Printf("calibration: saved results to %s", file)
	}
	return nil
}
