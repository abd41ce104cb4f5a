// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/vision_telemetry/internal/telemetry"
	"github.com/relabs-tech/vision_telemetry/internal/tracking"
)

func sampleReport() telemetry.Report {
	f := telemetry.Frame{
		Ball: tracking.TrackEstimate{Bearing: 90, Range: 37.5, Valid: true},
		Goal: tracking.TrackEstimate{},
	}
	wire, _ := f.MarshalBinary()
	return telemetry.Report{Seq: 7, Goal: "yellow", Frame: f, Wire: wire}
}

func TestFormatReport(t *testing.T) {
	got := formatReport(sampleReport())
	assert.Equal(t,
		"[     7] BALL b=  90.0° r=  37.50  GOAL(yellow)         ---          wire=01 00 2d c0 12 00 00 00 00",
		got)
}

func TestDecodeReportRoundTrip(t *testing.T) {
	want := sampleReport()
	payload, err := json.Marshal(want)
	require.NoError(t, err)

	got, err := decodeReport(payload)
	require.NoError(t, err)
	assert.Equal(t, want.Seq, got.Seq)
	assert.Equal(t, want.Frame, got.Frame)
	assert.Equal(t, want.Wire, got.Wire)

	_, err = decodeReport([]byte("{"))
	assert.Error(t, err)
}

func litPixels(img *image1bit.VerticalLSB, y0, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := 0; x < displayWidth; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestRenderTrack(t *testing.T) {
	img := renderTrack(sampleReport(), true, false)
	assert.Positive(t, litPixels(img, 0, displayHeight/2), "ball half")
	assert.Positive(t, litPixels(img, displayHeight/2, displayHeight), "goal half")

	fresh := litPixels(img, 0, displayHeight)
	stale := litPixels(renderTrack(sampleReport(), true, true), 0, displayHeight)
	assert.Greater(t, stale, fresh)

	waiting := renderTrack(telemetry.Report{}, false, false)
	assert.Positive(t, litPixels(waiting, 0, displayHeight))
}

func TestTrackStateLatest(t *testing.T) {
	var s trackState
	_, have, _ := s.get()
	assert.False(t, have)

	r := sampleReport()
	s.update(r)
	r.Seq = 8
	s.update(r)

	got, have, at := s.get()
	assert.True(t, have)
	assert.Equal(t, uint64(8), got.Seq)
	assert.WithinDuration(t, time.Now(), at, time.Second)
}

func TestHandleTrack(t *testing.T) {
	hub := newTrackHub()

	rec := httptest.NewRecorder()
	hub.handleTrack(rec, httptest.NewRequest(http.MethodGet, "/api/track", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	hub.publish(sampleReport())

	rec = httptest.NewRecorder()
	hub.handleTrack(rec, httptest.NewRequest(http.MethodGet, "/api/track", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got telemetry.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(7), got.Seq)
	assert.True(t, got.Frame.Ball.Valid)
}

func TestWebSocketPush(t *testing.T) {
	hub := newTrackHub()
	srv := httptest.NewServer(hub.routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/track"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 1
	}, time.Second, 5*time.Millisecond)

	hub.publish(sampleReport())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got telemetry.Report
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, uint64(7), got.Seq)
	assert.Equal(t, "yellow", got.Goal)

	conn.Close()
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 0
	}, time.Second, 5*time.Millisecond)
}

// writeSphereCSV writes n points on a sphere of radius r around center.
func writeSphereCSV(t *testing.T, n int, center [3]float64, r float64) string {
	t.Helper()
	var b bytes.Buffer
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := 0; i < n; i++ {
		z := 1 - 2*(float64(i)+0.5)/float64(n)
		rho := math.Sqrt(1 - z*z)
		phi := golden * float64(i)
		fmt.Fprintf(&b, "%.4f,%.4f,%.4f\n",
			center[0]+r*rho*math.Cos(phi),
			center[1]+r*rho*math.Sin(phi),
			center[2]+r*z)
	}
	path := filepath.Join(t.TempDir(), "samples.csv")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
	return path
}

func TestRunCalibration(t *testing.T) {
	path := writeSphereCSV(t, 400, [3]float64{120, -40, 15}, 450)
	dir := t.TempDir()

	var out bytes.Buffer
	require.NoError(t, RunCalibration([]string{path, "1"}, dir, &out))
	assert.Contains(t, out.String(), "HARD_IRON_OFFSET")
	assert.Contains(t, out.String(), "SOFT_IRON_MATRIX")
	assert.Contains(t, out.String(), "120.000")

	files, err := filepath.Glob(filepath.Join(dir, "*_calibration.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestRunCalibrationArgs(t *testing.T) {
	var out bytes.Buffer
	tests := []struct {
		name string
		args []string
	}{
		{"none", nil},
		{"one", []string{"samples.csv"}},
		{"three", []string{"samples.csv", "1", "extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, RunCalibration(tt.args, "", &out), ErrUsage)
		})
	}

	path := writeSphereCSV(t, 50, [3]float64{}, 1)
	assert.Error(t, RunCalibration([]string{path, "x"}, "", &out))
	assert.Error(t, RunCalibration([]string{path, "3"}, "", &out))
	assert.Error(t, RunCalibration([]string{filepath.Join(t.TempDir(), "missing.csv"), "1"}, "", &out))
	assert.Empty(t, out.String())
}
