// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/vision_telemetry/internal/tracking"
	"github.com/relabs-tech/vision_telemetry/internal/vision"
)

var center = tracking.Point{X: 125, Y: 126}

func goals(yellowCY, blueCY float64) *vision.Detection {
	return detection(map[string][]vision.Region{
		"yellow_goal": {{CX: 125, CY: yellowCY, Pixels: 800}},
		"blue_goal":   {{CX: 125, CY: blueCY, Pixels: 800}},
	})
}

func testPolicy() LatchPolicy {
	p := DefaultLatchPolicy()
	p.Attempts = 4
	p.Timeout = 10 * time.Millisecond
	return p
}

func TestLatchGoal(t *testing.T) {
	silenceLog(t)

	tests := []struct {
		name   string
		frames []*vision.Detection
		want   tracking.GoalColor
		calls  int
	}{
		{
			name:   "yellow above centre attacks blue",
			frames: []*vision.Detection{goals(96, 160)},
			want:   tracking.GoalBlue,
			calls:  1,
		},
		{
			name:   "yellow below centre attacks yellow",
			frames: []*vision.Detection{goals(160, 96)},
			want:   tracking.GoalYellow,
			calls:  1,
		},
		{
			name: "retries until both goals are visible",
			frames: []*vision.Detection{
				detection(map[string][]vision.Region{"yellow_goal": {{CY: 160, Pixels: 800}}}),
				nil, // timeout
				goals(160, 96),
			},
			want:  tracking.GoalYellow,
			calls: 3,
		},
		{
			name: "small goals do not count",
			frames: []*vision.Detection{
				detection(map[string][]vision.Region{
					"yellow_goal": {{CY: 160, Pixels: 50}},
					"blue_goal":   {{CY: 96, Pixels: 800}},
				}),
				detection(nil), detection(nil), detection(nil), goals(160, 96),
			},
			want:  tracking.GoalBlue,
			calls: 4,
		},
		{
			name:   "end of stream falls back",
			frames: nil,
			want:   tracking.GoalBlue,
			calls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := &testCamera{frames: tt.frames}
			got, err := LatchGoal(context.Background(), cam, testSettings(), center, testPolicy())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.calls, cam.calls)
		})
	}
}

func TestLatchGoalFallbackColour(t *testing.T) {
	silenceLog(t)
	p := testPolicy()
	p.Fallback = tracking.GoalYellow
	cam := &testCamera{frames: []*vision.Detection{detection(nil), detection(nil), detection(nil), detection(nil)}}

	got, err := LatchGoal(context.Background(), cam, testSettings(), center, p)
	require.NoError(t, err)
	assert.Equal(t, tracking.GoalYellow, got)
}

func TestLatchGoalCancelled(t *testing.T) {
	silenceLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := LatchGoal(ctx, &testCamera{frames: []*vision.Detection{goals(96, 160)}}, testSettings(), center, testPolicy())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, tracking.GoalBlue, got)
}
