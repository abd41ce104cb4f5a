// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package capture records raw 3-axis readings printed by the robot's debug
// console into the CSV files the calibration fitter reads.
package capture

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"

	serial "github.com/jacobsa/go-serial/serial"
)

// OpenConsole opens the debug console serial port, 8N1.
func OpenConsole(name string, baud int) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              name,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("capture: open %s: %w", name, err)
	}
	log.Printf("capture: serial port opened on %s at %d baud", name, baud)
	return port, nil
}

// ParseLine extracts x,y,z from one console line. ok is false for anything
// that is not exactly three finite numbers.
func ParseLine(line string) (v [3]float64, ok bool) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 3 {
		return v, false
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return v, false
		}
		v[i] = f
	}
	return v, true
}

// Stats summarises one recording.
type Stats struct {
	Lines    int
	Samples  int
	Rejected int
}

// Record copies readings from r to w as CSV until limit samples were written
// (limit <= 0 means no limit), r ends, or ctx is done.
// The caller closes r to unblock a pending read after cancellation.
func Record(ctx context.Context, r io.Reader, w io.Writer, limit int) (Stats, error) {
	var st Stats
	scan := bufio.NewScanner(r)
	out := csv.NewWriter(w)
	defer out.Flush()

	for scan.Scan() {
		if ctx.Err() != nil {
			break
		}
		st.Lines++
		v, ok := ParseLine(scan.Text())
		if !ok {
			st.Rejected++
			continue
		}
		rec := []string{
			strconv.FormatFloat(v[0], 'f', -1, 64),
			strconv.FormatFloat(v[1], 'f', -1, 64),
			strconv.FormatFloat(v[2], 'f', -1, 64),
		}
		if err := out.Write(rec); err != nil {
			return st, fmt.Errorf("capture: write sample: %w", err)
		}
		st.Samples++
		if st.Samples%500 == 0 {
			log.Printf("capture: %d samples", st.Samples)
		}
		if limit > 0 && st.Samples >= limit {
			break
		}
	}

	out.Flush()
	if err := out.Error(); err != nil {
		return st, fmt.Errorf("capture: flush: %w", err)
	}
	if ctx.Err() != nil {
		return st, nil
	}
	if err := scan.Err(); err != nil {
		return st, fmt.Errorf("capture: read: %w", err)
	}
	return st, nil
}
