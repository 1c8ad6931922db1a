// message.go: Log message value type, levels and context fields
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Pre-allocated errors to avoid allocations in hot paths
var (
	errEmptyCategory = errors.New("category cannot be empty")
)

// Level is the ordered severity of a log message.
// Trace is the lowest level, Critical the highest.
type Level int8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
)

// levelNames is indexed by Level. Kept in declaration order.
var levelNames = [...]string{
	"TRACE",
	"DEBUG",
	"INFO",
	"WARN",
	"ERROR",
	"CRITICAL",
}

// String returns the upper-case name of the level.
// Out-of-range values render as "LEVEL(n)" rather than panicking.
func (l Level) String() string {
	if l < LevelTrace || l > LevelCritical {
		return "LEVEL(" + strconv.Itoa(int(l)) + ")"
	}
	return levelNames[l]
}

// ParseLevel converts a level name ("warn", "ERROR", ...) to a Level.
// Matching is case-insensitive.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// FieldType discriminates the value stored in a Field.
type FieldType uint8

const (
	StringType FieldType = iota
	IntType
	FloatType
	BoolType
)

// Field is one key/value pair of a message's context.
// It is a tagged union of primitive values so serialization stays
// deterministic and allocation-free for the common cases.
type Field struct {
	Key   string
	Type  FieldType
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

// String creates a string context field.
func String(key, value string) Field {
	return Field{Key: key, Type: StringType, Str: value}
}

// Int creates an integer context field.
func Int(key string, value int) Field {
	return Field{Key: key, Type: IntType, Int: int64(value)}
}

// Int64 creates a 64-bit integer context field.
func Int64(key string, value int64) Field {
	return Field{Key: key, Type: IntType, Int: value}
}

// Float64 creates a floating-point context field.
func Float64(key string, value float64) Field {
	return Field{Key: key, Type: FloatType, Float: value}
}

// Bool creates a boolean context field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Type: BoolType, Bool: value}
}

// Value returns the field value rendered as a string.
func (f Field) Value() string {
	switch f.Type {
	case IntType:
		return strconv.FormatInt(f.Int, 10)
	case FloatType:
		return strconv.FormatFloat(f.Float, 'g', -1, 64)
	case BoolType:
		return strconv.FormatBool(f.Bool)
	default:
		return f.Str
	}
}

// Message is a single log record. It is a value type and is never
// mutated after construction, so it is safe to hand the same Message
// to every sink and subscriber without copying.
//
// Category is never empty; constructors enforce this. All metadata
// beyond level/category/text/timestamp is optional and omitted from
// structured output when unset.
type Message struct {
	Level     Level
	Category  string
	Text      string
	Timestamp time.Time

	// Optional diagnostic metadata, stamped by the logger facade.
	Frame       uint64
	GoroutineID uint64
	ThreadName  string
	File        string
	Method      string
	Line        int
	Stack       string
	Context     []Field
}

// NewMessage builds a Message with the given required fields and the
// current UTC time. It fails fast on an empty category: that is a
// programming error at the call site, not a runtime condition.
func NewMessage(level Level, category, text string) (Message, error) {
	if category == "" {
		return Message{}, errEmptyCategory
	}
	return Message{
		Level:     level,
		Category:  category,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}, nil
}

// ContextValue looks up a context field by exact key.
func (m Message) ContextValue(key string) (string, bool) {
	for _, f := range m.Context {
		if f.Key == key {
			return f.Value(), true
		}
	}
	return "", false
}
