// filesink.go: Buffered file sink with rotation
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var errEmptyPath = errors.New("file sink path cannot be empty")

const fileSinkBufferSize = 32 * 1024

// FileSink renders messages through the template engine and appends
// them to a log file. It composes the Rotator: before each write it
// checks whether the live file has exceeded the size threshold, and if
// so closes its handle, archives the file and reopens a fresh one.
//
// Writes are buffered in memory; callers needing durability on shutdown
// or a crash path must call Flush explicitly. The sink owns its handle
// exclusively; no two sinks may share one open file.
type FileSink struct {
	mu      sync.Mutex
	path    string
	engine  *TemplateEngine
	rotator *Rotator
	mode    FormatMode
	diag    DiagnosticFunc

	file   *os.File
	writer *bufio.Writer
}

// NewFileSink creates a file sink writing to path. The path directory is
// created on first write. An empty path fails fast; everything after
// construction degrades instead of erroring out of the hot path.
func NewFileSink(path string, engine *TemplateEngine, rotator *Rotator, mode FormatMode, diag DiagnosticFunc) (*FileSink, error) {
	if path == "" {
		return nil, errEmptyPath
	}
	if err := ValidatePathLength(path); err != nil {
		return nil, fmt.Errorf("invalid log file path: %w", err)
	}

	dir := filepath.Dir(path)
	sanitized := filepath.Join(dir, SanitizeFilename(filepath.Base(path)))

	return &FileSink{
		path:    sanitized,
		engine:  engine,
		rotator: rotator,
		mode:    mode,
		diag:    normalizeDiag(diag),
	}, nil
}

// Name implements Sink.
func (s *FileSink) Name() string { return "file" }

// Path returns the live log file path.
func (s *FileSink) Path() string { return s.path }

// Write implements Sink. Rotation faults are reported and leave the
// live file in place; logging continues uninterrupted.
func (s *FileSink) Write(msg Message) error {
	line := s.engine.Format(msg, s.mode)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rotator != nil && s.rotator.ShouldRotate(s.path) {
		s.rotateLocked()
	}

	if err := s.openLocked(); err != nil {
		return err
	}
	if _, err := s.writer.WriteString(line); err != nil {
		return fmt.Errorf("file write: %w", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("file write: %w", err)
	}
	return nil
}

// Flush implements Sink, draining the memory buffer to the file.
func (s *FileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// Close flushes and releases the file handle. The sink reopens lazily
// if written to again.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

// rotateLocked hands the live file to the rotator. The open handle must
// be flushed and closed first, and a fresh one is opened lazily by the
// next write. A rotation failure is reported, never propagated: the old
// file simply keeps growing until the next attempt.
func (s *FileSink) rotateLocked() {
	if err := s.closeLocked(); err != nil {
		s.diag("rotation_close", err)
		return
	}
	if _, err := s.rotator.Rotate(s.path); err != nil {
		s.diag("rotation", err)
	}
}

// openLocked lazily (re)opens the writer.
func (s *FileSink) openLocked() error {
	if s.file != nil {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := RetryFileOperation(func() error {
			return os.MkdirAll(dir, 0750)
		}, 0, 0); err != nil {
			return fmt.Errorf("failed to create log directory %q: %w", dir, err)
		}
	}

	var file *os.File
	err := RetryFileOperation(func() error {
		var err error
		file, err = os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644) // #nosec G304 -- path sanitized in NewFileSink
		return err
	}, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to open log file %q: %w", s.path, err)
	}

	s.file = file
	s.writer = bufio.NewWriterSize(file, fileSinkBufferSize)
	return nil
}

func (s *FileSink) flushLocked() error {
	if s.writer == nil {
		return nil
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("file flush: %w", err)
	}
	return nil
}

func (s *FileSink) closeLocked() error {
	if s.file == nil {
		return nil
	}
	flushErr := s.flushLocked()
	closeErr := s.file.Close()
	s.file = nil
	s.writer = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
