// template.go: Token-based message formatting engine
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FormatMode selects the rendered representation of a message.
type FormatMode uint8

const (
	// FormatText renders through the active token template.
	FormatText FormatMode = iota
	// FormatJSON renders a flat JSON object with optional fields omitted.
	FormatJSON
)

// ParseFormatMode converts "text"/"json" to a FormatMode, defaulting to text.
func ParseFormatMode(s string) FormatMode {
	if strings.EqualFold(s, "json") {
		return FormatJSON
	}
	return FormatText
}

// DefaultTemplate is the out-of-the-box text template.
const DefaultTemplate = "{timestamp:2006-01-02 15:04:05.000} [{level}] {category}: {message}"

// defaultTimestampLayout is used by the {timestamp} token when no
// :format suffix is given.
const defaultTimestampLayout = "2006-01-02 15:04:05.000"

// TemplateEngine resolves token templates against messages.
//
// A template is literal text interleaved with {token} placeholders.
// Token resolution never fails: an unknown token is echoed back as the
// literal {token} text, so a typo'd or future token can never corrupt
// output or abort formatting.
//
// Per-category template overrides fall back to the default template.
// This lookup is independent of the Router's category filtering.
type TemplateEngine struct {
	mu        sync.RWMutex
	def       string
	templates map[string]string
}

// NewTemplateEngine creates an engine with the built-in default template.
func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{
		def:       DefaultTemplate,
		templates: make(map[string]string),
	}
}

// SetDefaultTemplate replaces the fallback template. An empty template
// restores the built-in default.
func (e *TemplateEngine) SetDefaultTemplate(template string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if template == "" {
		template = DefaultTemplate
	}
	e.def = template
}

// SetCategoryTemplate installs a per-category override. An empty
// template removes the override.
func (e *TemplateEngine) SetCategoryTemplate(category, template string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if template == "" {
		delete(e.templates, category)
		return
	}
	e.templates[category] = template
}

// CategoryTemplate returns the template that would be used for the
// category: its override if one exists, the default otherwise.
func (e *TemplateEngine) CategoryTemplate(category string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if t, ok := e.templates[category]; ok {
		return t
	}
	return e.def
}

// Format renders the message in the requested mode.
func (e *TemplateEngine) Format(msg Message, mode FormatMode) string {
	if mode == FormatJSON {
		return formatJSON(msg)
	}
	return renderTemplate(e.CategoryTemplate(msg.Category), msg)
}

// renderTemplate scans the template for {token[:format]} spans and
// substitutes resolved values, copying everything else through verbatim.
// A '{' with no closing '}' is treated as literal text.
func renderTemplate(template string, msg Message) string {
	var b strings.Builder
	b.Grow(len(template) + len(msg.Text) + 32)

	for i := 0; i < len(template); {
		open := strings.IndexByte(template[i:], '{')
		if open < 0 {
			b.WriteString(template[i:])
			break
		}
		open += i
		close := strings.IndexByte(template[open:], '}')
		if close < 0 {
			b.WriteString(template[i:])
			break
		}
		close += open

		b.WriteString(template[i:open])
		span := template[open+1 : close]
		if value, ok := resolveToken(span, msg); ok {
			b.WriteString(value)
		} else {
			// Graceful degradation: echo the original span unchanged.
			b.WriteString(template[open : close+1])
		}
		i = close + 1
	}
	return b.String()
}

// resolveToken resolves one token span. The optional text after the
// first ':' is a format argument, used only by the timestamp token.
// Token names match case-insensitively against the fixed set, then the
// message context map by exact key.
func resolveToken(span string, msg Message) (string, bool) {
	name := span
	format := ""
	if idx := strings.IndexByte(span, ':'); idx >= 0 {
		name = span[:idx]
		format = span[idx+1:]
	}

	switch strings.ToLower(name) {
	case "timestamp":
		layout := format
		if layout == "" {
			layout = defaultTimestampLayout
		}
		return msg.Timestamp.Format(layout), true
	case "level":
		return msg.Level.String(), true
	case "category":
		return msg.Category, true
	case "message":
		return msg.Text, true
	case "frame":
		return strconv.FormatUint(msg.Frame, 10), true
	case "file":
		return msg.File, true
	case "method":
		return msg.Method, true
	case "line":
		return strconv.Itoa(msg.Line), true
	case "stack":
		return msg.Stack, true
	case "thread", "threadid":
		return strconv.FormatUint(msg.GoroutineID, 10), true
	case "threadname":
		return msg.ThreadName, true
	case "memory-usage", "memoryusage":
		return memoryUsage(), true
	}

	// Context fields resolve by exact key, including any ':' suffix the
	// caller happened to use in the key itself.
	if value, ok := msg.ContextValue(span); ok {
		return value, true
	}
	return "", false
}

// memoryUsage reports the current heap allocation in whole megabytes.
func memoryUsage() string {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return strconv.FormatUint(stats.Alloc/(1024*1024), 10) + "MB"
}

// formatJSON emits a flat object with the required fields and only the
// optional fields that carry data. Values are escaped by writeJSONString;
// encoding/json is deliberately not used here so the hot path stays
// allocation-light and the field order deterministic.
func formatJSON(msg Message) string {
	var b strings.Builder
	b.Grow(96 + len(msg.Text) + len(msg.Category))

	b.WriteString(`{"timestamp":`)
	writeJSONString(&b, msg.Timestamp.UTC().Format(time.RFC3339Nano))
	b.WriteString(`,"level":`)
	writeJSONString(&b, msg.Level.String())
	b.WriteString(`,"category":`)
	writeJSONString(&b, msg.Category)
	b.WriteString(`,"message":`)
	writeJSONString(&b, msg.Text)

	if msg.Frame > 0 {
		b.WriteString(`,"frame":`)
		b.WriteString(strconv.FormatUint(msg.Frame, 10))
	}
	if msg.GoroutineID > 0 {
		b.WriteString(`,"threadId":`)
		b.WriteString(strconv.FormatUint(msg.GoroutineID, 10))
	}
	if msg.ThreadName != "" {
		b.WriteString(`,"threadName":`)
		writeJSONString(&b, msg.ThreadName)
	}
	if msg.File != "" {
		b.WriteString(`,"file":`)
		writeJSONString(&b, msg.File)
	}
	if msg.Method != "" {
		b.WriteString(`,"method":`)
		writeJSONString(&b, msg.Method)
	}
	if msg.Line > 0 {
		b.WriteString(`,"line":`)
		b.WriteString(strconv.Itoa(msg.Line))
	}
	if msg.Stack != "" {
		b.WriteString(`,"stackTrace":`)
		writeJSONString(&b, msg.Stack)
	}
	if len(msg.Context) > 0 {
		b.WriteString(`,"context":{`)
		for i, f := range msg.Context {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(&b, f.Key)
			b.WriteByte(':')
			switch f.Type {
			case IntType:
				b.WriteString(strconv.FormatInt(f.Int, 10))
			case FloatType:
				b.WriteString(strconv.FormatFloat(f.Float, 'g', -1, 64))
			case BoolType:
				b.WriteString(strconv.FormatBool(f.Bool))
			default:
				writeJSONString(&b, f.Str)
			}
		}
		b.WriteByte('}')
	}

	b.WriteByte('}')
	return b.String()
}

// writeJSONString writes s as a quoted JSON string, escaping quotes,
// backslashes and control characters.
func writeJSONString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				const hex = "0123456789abcdef"
				b.WriteString(`\u00`)
				b.WriteByte(hex[r>>4])
				b.WriteByte(hex[r&0xf])
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}
