// sink.go: Sink contract and console sink
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Sink is a terminal consumer of accepted log messages. Implementations
// must not panic out of Write or Flush; the Router catches anyway, but
// that is defense in depth, not a substitute for the sink's own error
// handling. A returned error is reported to the diagnostic channel and
// never retried.
type Sink interface {
	Write(msg Message) error
	Flush() error
	Name() string
}

// ConsoleSink renders messages through the template engine and forwards
// them to an io.Writer, by default standard output. It performs no
// buffering, so Flush is a no-op.
//
// When a category has a display color registered and color output is
// enabled, the rendered line is styled with that color.
type ConsoleSink struct {
	mu       sync.Mutex
	out      io.Writer
	engine   *TemplateEngine
	registry *CategoryRegistry
	mode     FormatMode
	color    bool
	styles   map[string]lipgloss.Style
}

// NewConsoleSink creates a console sink. registry may be nil, which
// disables per-category coloring.
func NewConsoleSink(engine *TemplateEngine, registry *CategoryRegistry, mode FormatMode) *ConsoleSink {
	return &ConsoleSink{
		out:      os.Stdout,
		engine:   engine,
		registry: registry,
		mode:     mode,
		color:    true,
		styles:   make(map[string]lipgloss.Style),
	}
}

// SetOutput redirects the sink, mainly for tests.
func (s *ConsoleSink) SetOutput(out io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if out != nil {
		s.out = out
	}
}

// SetColor toggles per-category color styling.
func (s *ConsoleSink) SetColor(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.color = enabled
}

// Name implements Sink.
func (s *ConsoleSink) Name() string { return "console" }

// Write implements Sink.
func (s *ConsoleSink) Write(msg Message) error {
	line := s.engine.Format(msg, s.mode)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Structured output stays machine-readable; color only applies to text.
	if s.color && s.mode == FormatText && s.registry != nil {
		if c := s.registry.Color(msg.Category); c != "" {
			line = s.styleFor(c).Render(line)
		}
	}

	if _, err := fmt.Fprintln(s.out, line); err != nil {
		return fmt.Errorf("console write: %w", err)
	}
	return nil
}

// Flush implements Sink. The console sink is unbuffered.
func (s *ConsoleSink) Flush() error { return nil }

// styleFor returns a cached foreground style for the color value.
// Callers hold s.mu.
func (s *ConsoleSink) styleFor(color string) lipgloss.Style {
	if style, ok := s.styles[color]; ok {
		return style
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	s.styles[color] = style
	return style
}
