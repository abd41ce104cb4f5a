// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package magcal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Vec3 is one raw 3-axis reading.
type Vec3 [3]float64

// ErrNoSamples is returned when an input file holds no readings.
var ErrNoSamples = errors.New("magcal: no samples")

// LoadSamples reads comma separated x,y,z rows. Blank lines and lines starting
// with '#' are skipped. Any malformed row fails the whole load.
func LoadSamples(r io.Reader) ([]Vec3, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var out []Vec3
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("magcal: %w", err)
		}
		line, _ := cr.FieldPos(0)

		var v Vec3
		for i, field := range rec {
			f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("magcal: line %d column %d: %w", line, i+1, err)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("magcal: line %d column %d: non-finite value %q", line, i+1, field)
			}
			v[i] = f
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, ErrNoSamples
	}
	return out, nil
}

// LoadSamplesFile opens path and reads it with LoadSamples.
func LoadSamplesFile(path string) ([]Vec3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("magcal: %w", err)
	}
	defer f.Close()
	return LoadSamples(f)
}

// DefaultMargin widens the percentile band on both sides, in raw units.
const DefaultMargin = 10

// Band is the per-axis inlier interval, bounds included.
type Band struct {
	Low  Vec3 `json:"low"`
	High Vec3 `json:"high"`
}

// InlierBand returns [P1 - margin, P99 + margin] for each axis.
func InlierBand(samples []Vec3, margin float64) Band {
	var b Band
	axis := make([]float64, len(samples))
	for i := 0; i < 3; i++ {
		for j, s := range samples {
			axis[j] = s[i]
		}
		sort.Float64s(axis)
		b.Low[i] = percentileSorted(axis, 1) - margin
		b.High[i] = percentileSorted(axis, 99) + margin
	}
	return b
}

// Contains reports whether every axis of v lies inside the band.
func (b Band) Contains(v Vec3) bool {
	for i := 0; i < 3; i++ {
		if v[i] < b.Low[i] || v[i] > b.High[i] {
			return false
		}
	}
	return true
}

// Filter returns the samples inside band, in their original order.
func Filter(samples []Vec3, band Band) []Vec3 {
	out := make([]Vec3, 0, len(samples))
	for _, s := range samples {
		if band.Contains(s) {
			out = append(out, s)
		}
	}
	return out
}

// Percentile returns the p-th percentile (0..100) of values, interpolating
// linearly between the two closest ranks. values is not modified.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo < 0 {
		return sorted[0]
	}
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}
