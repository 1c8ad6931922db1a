// global.go: Optional process-wide default pipeline
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import "sync/atomic"

// The core is built around explicit Pipeline handles; this file is the
// thin convenience layer on top for hosts that want one process-wide
// instance reachable without wiring. Nothing in the core depends on it.

var defaultPipeline atomic.Pointer[Pipeline]

// SetDefault installs the process-wide default pipeline. The previous
// default, if any, is returned so the caller can close it.
func SetDefault(p *Pipeline) *Pipeline {
	return defaultPipeline.Swap(p)
}

// Default returns the process-wide pipeline, lazily constructing one
// from DefaultSettings on first use.
func Default() *Pipeline {
	if p := defaultPipeline.Load(); p != nil {
		return p
	}
	p, err := New(DefaultSettings())
	if err != nil {
		// DefaultSettings always validates; this is unreachable short
		// of a programming error in the defaults themselves.
		panic("hermes: default settings invalid: " + err.Error())
	}
	if !defaultPipeline.CompareAndSwap(nil, p) {
		_ = p.Close()
		return defaultPipeline.Load()
	}
	return p
}

// L returns a logger bound to category on the default pipeline.
func L(category string) *Logger {
	return Default().Logger(category)
}
