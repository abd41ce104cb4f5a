// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package magcal

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// Result is everything one calibration run produced.
type Result struct {
	RunID     string    `json:"run_id"`
	Version   int       `json:"version"`
	Mode      string    `json:"mode"`
	Timestamp time.Time `json:"timestamp"`

	InputSamples    int  `json:"input_samples"`
	FilteredSamples int  `json:"filtered_samples"`
	Band            Band `json:"band"`

	Correction Correction `json:"correction"`
	Rounded    Correction `json:"rounded"`

	// Filtered samples after correction; ideally a sphere of radius Mode.Radius.
	CorrectedMin Vec3    `json:"corrected_min"`
	CorrectedMax Vec3    `json:"corrected_max"`
	RadiusMean   float64 `json:"radius_mean"`
	RadiusStdDev float64 `json:"radius_stddev"`

	mode Mode
}

// Calibrate filters outliers, fits the ellipsoid and derives the correction.
func Calibrate(samples []Vec3, mode Mode) (*Result, error) {
	band := InlierBand(samples, DefaultMargin)
	kept := Filter(samples, band)

	fit, err := Fit(kept)
	if err != nil {
		return nil, err
	}
	corr, err := Derive(fit, mode.Radius)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:           uuid.New().String(),
		Version:         mode.Version,
		Mode:            mode.Name,
		Timestamp:       time.Now(),
		InputSamples:    len(samples),
		FilteredSamples: len(kept),
		Band:            band,
		Correction:      corr,
		Rounded:         corr.Rounded(),
		mode:            mode,
	}

	radii := make([]float64, len(kept))
	for i := range res.CorrectedMin {
		res.CorrectedMin[i] = math.Inf(1)
		res.CorrectedMax[i] = math.Inf(-1)
	}
	for k, s := range kept {
		c := corr.Apply(s)
		for i := 0; i < 3; i++ {
			res.CorrectedMin[i] = math.Min(res.CorrectedMin[i], c[i])
			res.CorrectedMax[i] = math.Max(res.CorrectedMax[i], c[i])
		}
		radii[k] = math.Sqrt(c[0]*c[0] + c[1]*c[1] + c[2]*c[2])
	}
	res.RadiusMean, res.RadiusStdDev = stat.MeanStdDev(radii, nil)
	return res, nil
}

// WriteConstants prints the rounded correction as firmware source constants.
func WriteConstants(w io.Writer, mode Mode, c Correction) error {
	r := c.Rounded()
	_, err := fmt.Fprintf(w,
		"pub const %s: [f32; 3] = [%.3f, %.3f, %.3f];\n"+
			"pub const %s: [[f32; 3]; 3] = [\n"+
			"    [%.3f, %.3f, %.3f],\n"+
			"    [%.3f, %.3f, %.3f],\n"+
			"    [%.3f, %.3f, %.3f],\n"+
			"];\n",
		mode.OffsetName, r.Offset[0], r.Offset[1], r.Offset[2],
		mode.MatrixName,
		r.Matrix[0][0], r.Matrix[0][1], r.Matrix[0][2],
		r.Matrix[1][0], r.Matrix[1][1], r.Matrix[1][2],
		r.Matrix[2][0], r.Matrix[2][1], r.Matrix[2][2],
	)
	return err
}

// WriteReport prints the run summary followed by the constants to paste.
func (r *Result) WriteReport(w io.Writer) error {
	fmt.Fprintf(w, "Samples: %d read, %d kept after filtering\n", r.InputSamples, r.FilteredSamples)
	fmt.Fprintln(w, "Filter band:")
	for i, axis := range []string{"x", "y", "z"} {
		fmt.Fprintf(w, "  %s: [%.3f, %.3f]\n", axis, r.Band.Low[i], r.Band.High[i])
	}
	fmt.Fprintf(w, "\nHard iron bias: [%.6f, %.6f, %.6f]\n", r.Correction.Offset[0], r.Correction.Offset[1], r.Correction.Offset[2])
	fmt.Fprintln(w, "Soft iron transformation matrix:")
	for _, row := range r.Correction.Matrix {
		fmt.Fprintf(w, "  [%.6f, %.6f, %.6f]\n", row[0], row[1], row[2])
	}
	fmt.Fprintf(w, "\nData normalized to %g\n", r.mode.Radius)
	fmt.Fprintf(w, "Max values: [%.3f, %.3f, %.3f]\n", r.CorrectedMax[0], r.CorrectedMax[1], r.CorrectedMax[2])
	fmt.Fprintf(w, "Min values: [%.3f, %.3f, %.3f]\n", r.CorrectedMin[0], r.CorrectedMin[1], r.CorrectedMin[2])
	fmt.Fprintf(w, "Radius: mean %.3f, stddev %.3f\n", r.RadiusMean, r.RadiusStdDev)

	fmt.Fprint(w, "\n*************************\nCode to paste:\n*************************\n\n")
	return WriteConstants(w, r.mode, r.Correction)
}

// Save writes the result as indented JSON into dir and returns the file path.
func (r *Result) Save(dir string) (string, error) {
	name := fmt.Sprintf("%s_%d_calibration.json", r.Mode, r.Timestamp.Unix())
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal calibration result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write calibration file: %w", err)
	}
	return path, nil
}
