// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/relabs-tech/vision_telemetry/internal/tracking"
)

// Wire layout of one frame, break excluded:
//
//	[0]    start marker (1)
//	[1:3]  ball bearing  uint16 LE, x128
//	[3:5]  ball range    int16  LE, x128
//	[5:7]  goal bearing  uint16 LE, x128
//	[7:9]  goal range    int16  LE, x128
const (
	FrameSize   = 9
	StartMarker = 1

	// Scale is the fixed-point multiplier (7 fractional bits).
	Scale = 128
)

var (
	ErrFrameLength = errors.New("telemetry: frame must be 9 bytes")
	ErrStartMarker = errors.New("telemetry: bad start marker")
)

// Frame is the telemetry sent to the motion controller for one camera frame.
type Frame struct {
	Ball tracking.TrackEstimate `json:"ball"`
	Goal tracking.TrackEstimate `json:"goal"`
}

// AppendBinary appends the 9 wire bytes of f to b.
func (f Frame) AppendBinary(b []byte) ([]byte, error) {
	b = append(b, StartMarker)
	b = appendEstimate(b, f.Ball)
	b = appendEstimate(b, f.Goal)
	return b, nil
}

// MarshalBinary returns the 9 wire bytes of f.
func (f Frame) MarshalBinary() ([]byte, error) {
	return f.AppendBinary(make([]byte, 0, FrameSize))
}

func appendEstimate(b []byte, e tracking.TrackEstimate) []byte {
	if !e.Valid {
		return append(b, 0, 0, 0, 0)
	}
	b = binary.LittleEndian.AppendUint16(b, EncodeBearing(e.Bearing))
	b = binary.LittleEndian.AppendUint16(b, uint16(EncodeRange(e.Range)))
	return b
}

// DecodeFrame parses the wire bytes of one frame. An estimate whose four
// bytes are all zero decodes as invalid.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) != FrameSize {
		return Frame{}, fmt.Errorf("%w: got %d", ErrFrameLength, len(b))
	}
	if b[0] != StartMarker {
		return Frame{}, fmt.Errorf("%w: 0x%02x", ErrStartMarker, b[0])
	}
	return Frame{
		Ball: decodeEstimate(b[1:5]),
		Goal: decodeEstimate(b[5:9]),
	}, nil
}

func decodeEstimate(b []byte) tracking.TrackEstimate {
	bearing := binary.LittleEndian.Uint16(b[0:2])
	rng := int16(binary.LittleEndian.Uint16(b[2:4]))
	if bearing == 0 && rng == 0 {
		return tracking.TrackEstimate{}
	}
	return tracking.TrackEstimate{
		Bearing: float64(bearing) / Scale,
		Range:   float64(rng) / Scale,
		Valid:   true,
	}
}

// EncodeBearing converts degrees to unsigned fixed point, rounding half to
// even and saturating to [0, 511.99].
func EncodeBearing(deg float64) uint16 {
	return uint16(fixed(deg, 0, math.MaxUint16))
}

// EncodeRange converts a range to signed fixed point, rounding half to even
// and saturating to [-256, 255.99].
func EncodeRange(r float64) int16 {
	return int16(fixed(r, math.MinInt16, math.MaxInt16))
}

func fixed(v float64, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	n := math.RoundToEven(v * Scale)
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
