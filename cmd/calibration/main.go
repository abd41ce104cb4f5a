// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Fits a hard/soft iron (version 1) or accelerometer (version 2) correction
// to a CSV of raw samples and prints the constants to paste into the firmware.
//
// Run:
//
//	calibration [-json dir] <samples.csv> <version>
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/relabs-tech/vision_telemetry/internal/app"
)

func main() {
	jsonDir := flag.String("json", "", "also write the result as JSON into this directory")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), app.ErrUsage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := app.RunCalibration(flag.Args(), *jsonDir, os.Stdout); err != nil {
		if errors.Is(err, app.ErrUsage) {
			flag.Usage()
		} else {
			fmt.Fprintf(os.Stderr, "calibration: %v\n", err)
		}
		os.Exit(1)
	}
}
