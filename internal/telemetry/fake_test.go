// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/vision_telemetry/internal/vision"
)

// testPort records every operation performed on the line.
type testPort struct {
	buf    bytes.Buffer
	events []string

	WriteError error
	BreakError error
	ShortWrite bool
}

func (p *testPort) Write(b []byte) (int, error) {
	if p.WriteError != nil {
		return 0, p.WriteError
	}
	if p.ShortWrite {
		b = b[:len(b)-1]
	}
	p.events = append(p.events, fmt.Sprintf("write %d", len(b)))
	return p.buf.Write(b)
}

func (p *testPort) Drain() error {
	p.events = append(p.events, "drain")
	return nil
}

func (p *testPort) Break(d time.Duration) error {
	if p.BreakError != nil {
		return p.BreakError
	}
	p.events = append(p.events, "break "+d.String())
	return nil
}

// testCamera serves a fixed list of detections, then io.EOF.
type testCamera struct {
	frames []*vision.Detection
	calls  int
}

func (c *testCamera) Snapshot(ctx context.Context) (vision.Frame, error) {
	c.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(c.frames) == 0 {
		return nil, io.EOF
	}
	f := c.frames[0]
	c.frames = c.frames[1:]
	if f == nil {
		return nil, context.DeadlineExceeded
	}
	return f, nil
}

func detection(regions map[string][]vision.Region) *vision.Detection {
	return &vision.Detection{Regions: regions}
}
