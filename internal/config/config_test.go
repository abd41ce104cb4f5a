// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/vision_telemetry/internal/tracking"
	"github.com/relabs-tech/vision_telemetry/internal/vision"
)

func TestDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, 115200, cfg.SerialBaudRate)
	assert.Equal(t, tracking.Point{X: 125, Y: 126}, cfg.Center())
	assert.Equal(t, tracking.DefaultCurve, cfg.Curve)
	assert.Equal(t, GoalColorAuto, cfg.GoalColor)
	assert.Equal(t, tracking.GoalBlue, cfg.GoalFallbackColor)

	s := cfg.Settings()
	assert.Equal(t, vision.FindOptions{PixelThreshold: 0, Merge: true}, s.BallOptions)
	assert.Equal(t, vision.FindOptions{PixelThreshold: 100, Merge: true, Margin: 20}, s.GoalOptions)

	p := cfg.LatchPolicy()
	assert.Equal(t, 10, p.Attempts)
	assert.Equal(t, 500*time.Millisecond, p.Timeout)

	_, fixed := cfg.FixedGoal()
	assert.False(t, fixed)
}

func TestParseOverrides(t *testing.T) {
	input := `
# telemetry link
SERIAL_PORT=/dev/ttyAMA0
SERIAL_BREAK_MS = 2
CENTER_X=160
CENTER_Y=120
CURVE_D=-3.5
THRESH_BALL=(10, 60, 50, 80, 10, 40)
GOAL_COLOR=Yellow
GOAL_FALLBACK_COLOR=yellow
`
	cfg, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyAMA0", cfg.SerialPort)
	assert.Equal(t, 2*time.Millisecond, cfg.BreakDuration())
	assert.Equal(t, tracking.Point{X: 160, Y: 120}, cfg.Center())
	assert.Equal(t, -3.5, cfg.Curve.D)
	assert.Equal(t, tracking.DefaultCurve.M, cfg.Curve.M)
	assert.Equal(t, vision.Threshold{Name: "ball", LMin: 10, LMax: 60, AMin: 50, AMax: 80, BMin: 10, BMax: 40}, cfg.ThreshBall)

	gc, fixed := cfg.FixedGoal()
	assert.True(t, fixed)
	assert.Equal(t, tracking.GoalYellow, gc)
	assert.Equal(t, tracking.GoalYellow, cfg.LatchPolicy().Fallback)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unknown key", "FOO=1\n", "unknown config key"},
		{"missing equals", "SERIAL_PORT\n", "invalid config line 1"},
		{"bad number", "\nCENTER_X=abc\n", "config line 2"},
		{"data bits range", "SERIAL_DATA_BITS=9\n", "SERIAL_DATA_BITS must be 5-8"},
		{"bad threshold", "THRESH_BLUE_GOAL=1,2,3\n", "threshold blue_goal"},
		{"bad goal colour", "GOAL_COLOR=red\n", "GOAL_COLOR must be"},
		{"bad parity", "SERIAL_PARITY=M\n", "SERIAL_PARITY"},
		{"replay without file", "VISION_SOURCE=replay\n", "VISION_REPLAY_FILE is required"},
		{"zero break", "SERIAL_BREAK_MS=0\n", "must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vision_config.txt")
	require.NoError(t, os.WriteFile(path, []byte("WEB_SERVER_PORT=9090\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.WebServerPort)

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "vision_config.txt"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
