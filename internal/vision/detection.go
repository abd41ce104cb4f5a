// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vision

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Detection is the JSON schema the front-end publishes for every camera frame.
// Regions are keyed by threshold name.
type Detection struct {
	Seq     uint64              `json:"seq"`
	Time    time.Time           `json:"time"`
	Regions map[string][]Region `json:"regions"`
}

// Request describes one colour class the front-end should segment.
type Request struct {
	Threshold Threshold   `json:"threshold"`
	Options   FindOptions `json:"options"`
}

// FindRegions returns the regions reported for t, dropping any region below
// the pixel threshold. Merging is left to the front-end.
func (d *Detection) FindRegions(t Threshold, opts FindOptions) []Region {
	all := d.Regions[t.Name]
	if opts.PixelThreshold <= 0 {
		return all
	}
	out := make([]Region, 0, len(all))
	for _, r := range all {
		if r.Pixels >= float64(opts.PixelThreshold) {
			out = append(out, r)
		}
	}
	return out
}

// ReplayCamera serves detections recorded as newline-delimited JSON.
type ReplayCamera struct {
	scan *bufio.Scanner
	line int
}

// NewReplayCamera reads detections from r, one JSON object per line.
func NewReplayCamera(r io.Reader) *ReplayCamera {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &ReplayCamera{scan: scan}
}

// Snapshot returns the next recorded detection, or io.EOF after the last one.
func (c *ReplayCamera) Snapshot(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !c.scan.Scan() {
			if err := c.scan.Err(); err != nil {
				return nil, fmt.Errorf("replay: %w", err)
			}
			return nil, io.EOF
		}
		c.line++
		b := c.scan.Bytes()
		if len(b) == 0 {
			continue
		}
		var d Detection
		if err := json.Unmarshal(b, &d); err != nil {
			return nil, fmt.Errorf("replay line %d: %w", c.line, err)
		}
		return &d, nil
	}
}
