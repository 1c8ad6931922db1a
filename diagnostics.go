// diagnostics.go: Internal fault reporting channel
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"fmt"
	"os"
)

// DiagnosticFunc receives non-fatal faults from inside the pipeline:
// sink write failures, rotation/retention errors, dispatcher drops.
// It is the pipeline's own error channel and must never panic; nothing
// on the hot path propagates an error past this callback.
//
// The operation string identifies what failed ("sink_write",
// "rotation", "queue_overflow", ...).
type DiagnosticFunc func(operation string, err error)

// defaultDiagnostics writes one line per fault to standard error.
func defaultDiagnostics(operation string, err error) {
	fmt.Fprintf(os.Stderr, "hermes: %s: %v\n", operation, err)
}

// normalizeDiag substitutes the default reporter for a nil callback so
// internal call sites never need a nil check.
func normalizeDiag(diag DiagnosticFunc) DiagnosticFunc {
	if diag == nil {
		return defaultDiagnostics
	}
	return diag
}
