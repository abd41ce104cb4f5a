// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package capture

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/vision_telemetry/internal/magcal"
)

func TestParseLine(t *testing.T) {
	v, ok := ParseLine(" -12.5, 3 ,4e1\r")
	require.True(t, ok)
	assert.Equal(t, [3]float64{-12.5, 3, 40}, v)

	for _, bad := range []string{"", "1,2", "1,2,3,4", "a,b,c", "1,2,inf", "boot ok"} {
		_, ok := ParseLine(bad)
		assert.False(t, ok, "line %q", bad)
	}
}

func TestRecord(t *testing.T) {
	console := "boot\n1,2,3\n\ngarbage\n-4.5,5,6.25\n7,8,9\n"
	var out bytes.Buffer

	st, err := Record(context.Background(), strings.NewReader(console), &out, 0)
	require.NoError(t, err)
	assert.Equal(t, Stats{Lines: 6, Samples: 3, Rejected: 3}, st)
	assert.Equal(t, "1,2,3\n-4.5,5,6.25\n7,8,9\n", out.String())

	// the output is what the fitter reads
	samples, err := magcal.LoadSamples(&out)
	require.NoError(t, err)
	assert.Equal(t, []magcal.Vec3{{1, 2, 3}, {-4.5, 5, 6.25}, {7, 8, 9}}, samples)
}

func TestRecordLimit(t *testing.T) {
	var out bytes.Buffer
	st, err := Record(context.Background(), strings.NewReader("1,1,1\n2,2,2\n3,3,3\n"), &out, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Samples)
	assert.Equal(t, "1,1,1\n2,2,2\n", out.String())
}

func TestRecordCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	st, err := Record(ctx, strings.NewReader("1,1,1\n"), &out, 0)
	require.NoError(t, err)
	assert.Zero(t, st.Samples)
	assert.Empty(t, out.String())
}
