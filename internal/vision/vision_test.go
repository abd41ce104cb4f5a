// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vision

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLargest(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, ok := Largest(nil)
		assert.False(t, ok)
	})

	t.Run("picks max pixels", func(t *testing.T) {
		regions := []Region{
			{CX: 1, Pixels: 12},
			{CX: 2, Pixels: 340.5},
			{CX: 3, Pixels: 90},
		}
		r, ok := Largest(regions)
		require.True(t, ok)
		assert.Equal(t, 2.0, r.CX)
	})

	t.Run("single", func(t *testing.T) {
		r, ok := Largest([]Region{{CX: 7, Pixels: 1}})
		require.True(t, ok)
		assert.Equal(t, 7.0, r.CX)
	})
}

func TestParseThreshold(t *testing.T) {
	th, err := ParseThreshold("ball", "(14, 62, 54, 75, 11, 41)")
	require.NoError(t, err)
	assert.Equal(t, Threshold{Name: "ball", LMin: 14, LMax: 62, AMin: 54, AMax: 75, BMin: 11, BMax: 41}, th)
	assert.Equal(t, "14,62,54,75,11,41", th.String())

	_, err = ParseThreshold("ball", "1,2,3")
	assert.Error(t, err)

	_, err = ParseThreshold("ball", "1,2,3,x,5,6")
	assert.Error(t, err)

	_, err = ParseThreshold("ball", "50,10,0,1,0,1")
	assert.Error(t, err)
}

func TestDetectionFindRegions(t *testing.T) {
	d := &Detection{Regions: map[string][]Region{
		"blue_goal": {{Pixels: 50}, {Pixels: 150}},
	}}
	blue := Threshold{Name: "blue_goal"}

	assert.Len(t, d.FindRegions(blue, FindOptions{}), 2)
	got := d.FindRegions(blue, FindOptions{PixelThreshold: 100})
	require.Len(t, got, 1)
	assert.Equal(t, 150.0, got[0].Pixels)
	assert.Empty(t, d.FindRegions(Threshold{Name: "ball"}, FindOptions{}))
}

func TestReplayCamera(t *testing.T) {
	input := `{"seq":1,"regions":{"ball":[{"cx":135,"cy":126,"pixels":40}]}}

{"seq":2,"regions":{}}
`
	cam := NewReplayCamera(strings.NewReader(input))
	ctx := context.Background()

	f, err := cam.Snapshot(ctx)
	require.NoError(t, err)
	regions := f.FindRegions(Threshold{Name: "ball"}, FindOptions{})
	require.Len(t, regions, 1)
	assert.Equal(t, 135.0, regions[0].CX)

	f, err = cam.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.FindRegions(Threshold{Name: "ball"}, FindOptions{}))

	_, err = cam.Snapshot(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReplayCameraBadLine(t *testing.T) {
	cam := NewReplayCamera(strings.NewReader("{not json}\n"))
	_, err := cam.Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestMQTTCameraKeepsNewest(t *testing.T) {
	cam := NewMQTTCamera(nil, "vision/regions")
	cam.handle([]byte(`{"seq":1}`))
	cam.handle([]byte(`{"seq":2}`))
	cam.handle([]byte(`garbage`))

	f, err := cam.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), f.(*Detection).Seq)
	assert.Equal(t, uint64(1), cam.Dropped())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = cam.Snapshot(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMQTTCameraWakesWaiter(t *testing.T) {
	cam := NewMQTTCamera(nil, "vision/regions")
	done := make(chan Frame, 1)
	go func() {
		f, _ := cam.Snapshot(context.Background())
		done <- f
	}()

	time.Sleep(10 * time.Millisecond)
	cam.handle([]byte(`{"seq":7}`))

	select {
	case f := <-done:
		require.NotNil(t, f)
		assert.Equal(t, uint64(7), f.(*Detection).Seq)
	case <-time.After(time.Second):
		t.Fatal("snapshot did not return")
	}
}
