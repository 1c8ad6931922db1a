// logger.go: Category-bound logger facade
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"bytes"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strconv"
)

// Logger is the facade application call sites hold. It is a pure
// pass-through: each call stamps its category, the cached UTC time, the
// current frame counter and the ambient goroutine metadata onto a
// Message and hands it to the router. Loggers are immutable and cheap;
// derive as many as needed.
type Logger struct {
	p        *Pipeline
	category string
	name     string
	fields   []Field
}

// Logger returns a facade bound to the given category. An empty
// category is a programming error at the call site and panics rather
// than producing unroutable messages.
func (p *Pipeline) Logger(category string) *Logger {
	if category == "" {
		panic("hermes: logger category cannot be empty")
	}
	return &Logger{p: p, category: category}
}

// WithCategory derives a logger bound to another category, keeping the
// accumulated context fields and name.
func (l *Logger) WithCategory(category string) *Logger {
	if category == "" {
		panic("hermes: logger category cannot be empty")
	}
	out := *l
	out.category = category
	return &out
}

// With derives a logger whose messages carry the extra context fields.
func (l *Logger) With(fields ...Field) *Logger {
	out := *l
	out.fields = make([]Field, 0, len(l.fields)+len(fields))
	out.fields = append(out.fields, l.fields...)
	out.fields = append(out.fields, fields...)
	return &out
}

// WithName derives a logger that labels its messages with a thread
// name, typically the background worker the logger lives on.
func (l *Logger) WithName(name string) *Logger {
	out := *l
	out.name = name
	return &out
}

// Category returns the bound category.
func (l *Logger) Category() string { return l.category }

// Trace logs at LevelTrace.
func (l *Logger) Trace(text string) { l.log(LevelTrace, text) }

// Debug logs at LevelDebug.
func (l *Logger) Debug(text string) { l.log(LevelDebug, text) }

// Info logs at LevelInfo.
func (l *Logger) Info(text string) { l.log(LevelInfo, text) }

// Warn logs at LevelWarn.
func (l *Logger) Warn(text string) { l.log(LevelWarn, text) }

// Error logs at LevelError.
func (l *Logger) Error(text string) { l.log(LevelError, text) }

// Critical logs at LevelCritical.
func (l *Logger) Critical(text string) { l.log(LevelCritical, text) }

// Log logs at an explicit level.
func (l *Logger) Log(level Level, text string) { l.log(level, text) }

func (l *Logger) log(level Level, text string) {
	msg := Message{
		Level:       level,
		Category:    l.category,
		Text:        text,
		Timestamp:   l.p.now(),
		Frame:       l.p.frame.Load(),
		GoroutineID: goroutineID(),
		ThreadName:  l.name,
		Context:     l.fields,
	}

	if l.p.captureCaller.Load() {
		if pc, file, line, ok := runtime.Caller(2); ok {
			msg.File = filepath.Base(file)
			msg.Line = line
			if fn := runtime.FuncForPC(pc); fn != nil {
				msg.Method = fn.Name()
			}
		}
	}
	if level >= LevelError && l.p.captureStack.Load() {
		msg.Stack = string(debug.Stack())
	}

	l.p.router.Route(msg)
}

// goroutineID extracts the numeric id from the current goroutine's
// stack header ("goroutine 123 [running]:"). It is the closest
// equivalent to an origin-thread id and only used as a label; nothing
// keys behavior on it.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	header := buf[:n]

	header = bytes.TrimPrefix(header, []byte("goroutine "))
	if idx := bytes.IndexByte(header, ' '); idx > 0 {
		if id, err := strconv.ParseUint(string(header[:idx]), 10, 64); err == nil {
			return id
		}
	}
	return 0
}
