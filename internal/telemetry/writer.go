// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"fmt"
	"io"
	"time"
)

// Port is the serial line the frames are written to.
// go.bug.st/serial's serial.Port satisfies it.
type Port interface {
	io.Writer
	// Drain blocks until all written bytes have left the UART.
	Drain() error
	// Break holds the line low for d.
	Break(d time.Duration) error
}

// State of the frame writer.
type State int

const (
	StateIdle State = iota
	StateEncoding
	StateTransmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEncoding:
		return "encoding"
	case StateTransmitting:
		return "transmitting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Writer sends frames over a Port, each followed by a break.
// There is no acknowledgement or retry: a failed frame is lost and the next
// break resynchronises the receiver. Writer is not safe for concurrent use.
type Writer struct {
	port     Port
	breakDur time.Duration
	state    State
	buf      []byte
	sent     uint64
}

// NewWriter creates a writer. breakDur is how long the line is held in break
// after each frame.
func NewWriter(port Port, breakDur time.Duration) *Writer {
	return &Writer{
		port:     port,
		breakDur: breakDur,
		buf:      make([]byte, 0, FrameSize),
	}
}

// WriteFrame encodes and transmits f. It returns once the break has been sent.
func (w *Writer) WriteFrame(f Frame) error {
	defer func() { w.state = StateIdle }()

	w.state = StateEncoding
	buf, err := f.AppendBinary(w.buf[:0])
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	w.buf = buf

	w.state = StateTransmitting
	n, err := w.port.Write(w.buf)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if n != len(w.buf) {
		return fmt.Errorf("write frame: %w (%d of %d bytes)", io.ErrShortWrite, n, len(w.buf))
	}
	if err := w.port.Drain(); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	if err := w.port.Break(w.breakDur); err != nil {
		return fmt.Errorf("send break: %w", err)
	}
	w.sent++
	return nil
}

// State returns the current writer state. Outside WriteFrame it is always StateIdle.
func (w *Writer) State() State { return w.state }

// Sent returns the number of frames fully transmitted.
func (w *Writer) Sent() uint64 { return w.sent }

// Bytes returns the wire bytes of the last encoded frame.
// The slice is reused by the next WriteFrame.
func (w *Writer) Bytes() []byte { return w.buf }
