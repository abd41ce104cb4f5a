// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import "log"

// Logf is the package logger. It defaults to log.Printf.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces Logf. A nil f discards all output.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}
