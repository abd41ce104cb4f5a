// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vision

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Region is a connected image area matching a colour threshold, as reported
// by the vision front-end.
type Region struct {
	X int `json:"x"` // bounding box
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`

	CX float64 `json:"cx"` // centroid
	CY float64 `json:"cy"`

	Pixels float64 `json:"pixels"`
}

// Threshold bounds a colour class in LAB space.
type Threshold struct {
	Name string `json:"name"`

	LMin int `json:"l_min"`
	LMax int `json:"l_max"`
	AMin int `json:"a_min"`
	AMax int `json:"a_max"`
	BMin int `json:"b_min"`
	BMax int `json:"b_max"`
}

// ParseThreshold parses "l1,l2,a1,a2,b1,b2" (parentheses allowed).
func ParseThreshold(name, s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	parts := strings.Split(s, ",")
	if len(parts) != 6 {
		return Threshold{}, fmt.Errorf("threshold %s: want 6 values, got %d", name, len(parts))
	}
	var v [6]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Threshold{}, fmt.Errorf("threshold %s: value %d: %w", name, i, err)
		}
		v[i] = n
	}
	t := Threshold{Name: name, LMin: v[0], LMax: v[1], AMin: v[2], AMax: v[3], BMin: v[4], BMax: v[5]}
	if t.LMin > t.LMax || t.AMin > t.AMax || t.BMin > t.BMax {
		return Threshold{}, fmt.Errorf("threshold %s: min above max in %q", name, s)
	}
	return t, nil
}

// String formats the threshold the way ParseThreshold reads it.
func (t Threshold) String() string {
	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", t.LMin, t.LMax, t.AMin, t.AMax, t.BMin, t.BMax)
}

// FindOptions are the segmentation parameters passed to the front-end along
// with a threshold.
type FindOptions struct {
	PixelThreshold int  `json:"pixel_threshold"`
	Merge          bool `json:"merge"`
	Margin         int  `json:"margin"`
}

// Frame is one captured camera frame.
type Frame interface {
	FindRegions(t Threshold, opts FindOptions) []Region
}

// Camera is the vision front-end: it blocks until the next frame is available.
type Camera interface {
	Snapshot(ctx context.Context) (Frame, error)
}

// Largest returns the region with the highest pixel count.
// The second return value is false when regions is empty.
func Largest(regions []Region) (Region, bool) {
	if len(regions) == 0 {
		return Region{}, false
	}
	best := regions[0]
	for _, r := range regions[1:] {
		if r.Pixels > best.Pixels {
			best = r
		}
	}
	return best, true
}
