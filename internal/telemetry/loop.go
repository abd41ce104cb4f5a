// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/vision_telemetry/internal/tracking"
	"github.com/relabs-tech/vision_telemetry/internal/vision"
)

// ErrTransmit wraps serial errors returned by Step. Run logs them and carries on.
var ErrTransmit = errors.New("transmit failed")

// Settings are the segmentation parameters for the three colour classes.
type Settings struct {
	Ball       vision.Threshold
	YellowGoal vision.Threshold
	BlueGoal   vision.Threshold

	BallOptions vision.FindOptions
	GoalOptions vision.FindOptions
}

// DefaultFindOptions returns the ball and goal options the front-end is tuned for:
// every ball blob, and goal blobs of at least 100 pixels merged within 20 pixels.
func DefaultFindOptions() (ball, goal vision.FindOptions) {
	ball = vision.FindOptions{PixelThreshold: 0, Merge: true}
	goal = vision.FindOptions{PixelThreshold: 100, Merge: true, Margin: 20}
	return ball, goal
}

// GoalThreshold returns the threshold for the given goal colour.
func (s Settings) GoalThreshold(c tracking.GoalColor) vision.Threshold {
	if c == tracking.GoalYellow {
		return s.YellowGoal
	}
	return s.BlueGoal
}

// Requests lists the segmentation jobs the front-end must run every frame.
func (s Settings) Requests() []vision.Request {
	return []vision.Request{
		{Threshold: s.Ball, Options: s.BallOptions},
		{Threshold: s.YellowGoal, Options: s.GoalOptions},
		{Threshold: s.BlueGoal, Options: s.GoalOptions},
	}
}

// Report describes one transmitted frame.
type Report struct {
	Seq   uint64    `json:"seq"`
	Time  time.Time `json:"time"`
	Goal  string    `json:"goal_color"`
	Frame Frame     `json:"frame"`
	Wire  []byte    `json:"wire"`
}

// Observer is notified after every transmitted frame.
type Observer interface {
	Observe(r Report)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(r Report)

func (f ObserverFunc) Observe(r Report) { f(r) }

// Loop runs capture, selection, transform, encoding and transmission,
// one camera frame at a time.
type Loop struct {
	camera    vision.Camera
	session   *tracking.Session
	settings  Settings
	goal      tracking.GoalColor
	writer    *Writer
	observers []Observer

	seq uint64
	now func() time.Time
}

// NewLoop wires a loop. goal is the colour returned by LatchGoal.
func NewLoop(camera vision.Camera, session *tracking.Session, settings Settings, goal tracking.GoalColor, writer *Writer, observers ...Observer) *Loop {
	return &Loop{
		camera:    camera,
		session:   session,
		settings:  settings,
		goal:      goal,
		writer:    writer,
		observers: observers,
		now:       time.Now,
	}
}

// Estimate computes the frame for one camera snapshot without transmitting it.
func (l *Loop) Estimate(f vision.Frame) Frame {
	balls := f.FindRegions(l.settings.Ball, l.settings.BallOptions)
	goals := f.FindRegions(l.settings.GoalThreshold(l.goal), l.settings.GoalOptions)
	return Frame{
		Ball: l.session.Track(tracking.Ball, balls),
		Goal: l.session.Track(tracking.Goal, goals),
	}
}

// Step processes exactly one camera frame. It blocks until the next snapshot
// is available and returns after the frame's break has been sent.
func (l *Loop) Step(ctx context.Context) (Report, error) {
	snap, err := l.camera.Snapshot(ctx)
	if err != nil {
		return Report{}, err
	}

	frame := l.Estimate(snap)
	if err := l.writer.WriteFrame(frame); err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrTransmit, err)
	}

	l.seq++
	r := Report{
		Seq:   l.seq,
		Time:  l.now(),
		Goal:  l.goal.String(),
		Frame: frame,
		Wire:  append([]byte(nil), l.writer.Bytes()...),
	}
	for _, o := range l.observers {
		l.notify(o, r)
	}
	return r, nil
}

func (l *Loop) notify(o Observer, r Report) {
	defer func() {
		if p := recover(); p != nil {
			Logf("telemetry: observer panic: %v", p)
		}
	}()
	o.Observe(r)
}

// Run calls Step until the camera reaches end of stream or ctx is done.
// Transmit errors are logged and the frame is dropped.
func (l *Loop) Run(ctx context.Context) error {
	Logf("telemetry: loop started, tracking %s goal", l.goal)
	for {
		_, err := l.Step(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrTransmit):
			Logf("telemetry: %v", err)
		case errors.Is(err, io.EOF):
			Logf("telemetry: vision stream ended after %d frames", l.seq)
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return fmt.Errorf("telemetry: snapshot: %w", err)
		}
	}
}

// FrameRateLogger logs the transmitted frame rate at a fixed interval.
type FrameRateLogger struct {
	interval time.Duration
	start    time.Time
	frames   int
}

// NewFrameRateLogger creates a logger reporting every interval.
func NewFrameRateLogger(interval time.Duration) *FrameRateLogger {
	return &FrameRateLogger{interval: interval}
}

func (f *FrameRateLogger) Observe(r Report) {
	if f.start.IsZero() {
		f.start = r.Time
		return
	}
	f.frames++
	elapsed := r.Time.Sub(f.start)
	if elapsed < f.interval {
		return
	}
	Logf("telemetry: %.1f fps (%d frames in %v)", float64(f.frames)/elapsed.Seconds(), f.frames, elapsed.Round(time.Millisecond))
	f.start = r.Time
	f.frames = 0
}
