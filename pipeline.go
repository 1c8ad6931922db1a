// pipeline.go: Composition root wiring registry, router, sinks and queue
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
)

// Pipeline is the explicit composition root of the logging system. It
// constructs and owns the category registry, the router, the template
// engine, the configured sinks and the cross-goroutine dispatch queue,
// and hands out logger facades bound to categories.
//
// Construct one per application (or per test) and share it by handle;
// the optional package-level default in global.go is a thin convenience
// on top and is not required by anything in the core.
type Pipeline struct {
	registry   *CategoryRegistry
	router     *Router
	engine     *TemplateEngine
	dispatcher *Dispatcher
	rotator    *Rotator
	console    *ConsoleSink
	file       *FileSink

	clock *timecache.TimeCache
	frame atomic.Uint64
	diag  DiagnosticFunc

	captureCaller atomic.Bool
	captureStack  atomic.Bool

	closeOnce sync.Once
}

// PipelineStats is a point-in-time snapshot for monitoring.
type PipelineStats struct {
	Router        RouterStats `json:"router"`
	Frame         uint64      `json:"frame"`
	QueueDepth    int         `json:"queue_depth"`
	QueueDropped  uint64      `json:"queue_dropped"`
	QueueExecuted uint64      `json:"queue_executed"`
}

// New builds a pipeline from the given settings. A nil settings pointer
// selects DefaultSettings. Construction is the only place configuration
// errors surface as errors; after this everything degrades instead.
func New(settings *Settings) (*Pipeline, error) {
	return NewWithDiagnostics(settings, nil)
}

// NewWithDiagnostics is New with a custom diagnostic callback. diag
// receives every internal fault (sink writes, rotation, queue overflow)
// and may be nil for the stderr default.
func NewWithDiagnostics(settings *Settings, diag DiagnosticFunc) (*Pipeline, error) {
	if settings == nil {
		settings = DefaultSettings()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	diag = normalizeDiag(diag)

	p := &Pipeline{
		registry:   NewCategoryRegistry(),
		engine:     NewTemplateEngine(),
		dispatcher: NewDispatcher(settings.QueueCapacity, diag),
		clock:      timecache.NewWithResolution(time.Millisecond),
		diag:       diag,
	}
	p.router = NewRouter(p.registry, diag)

	if settings.Console.Enabled {
		p.console = NewConsoleSink(p.engine, p.registry, ParseFormatMode(settings.Format))
		p.console.SetColor(settings.Console.Color)
		if err := p.router.RegisterSink(p.console); err != nil {
			return nil, err
		}
	}
	if settings.File.Enabled {
		p.rotator = NewRotator(settings.File.rotationPolicy(), diag)
		file, err := NewFileSink(settings.File.Path, p.engine, p.rotator, ParseFormatMode(settings.Format), diag)
		if err != nil {
			return nil, err
		}
		p.file = file
		if err := p.router.RegisterSink(file); err != nil {
			return nil, err
		}
	}

	p.ApplySettings(settings)
	return p, nil
}

// ApplySettings hot-applies the runtime-safe subset of a settings
// record: levels, router overrides, registry entries, templates and
// capture flags. Sink topology is fixed at construction.
func (p *Pipeline) ApplySettings(s *Settings) {
	if s == nil {
		return
	}

	if level, err := ParseLevel(s.Level); err == nil {
		p.router.SetGlobalMinimumLevel(level)
	}
	for category, name := range s.CategoryLevels {
		if level, err := ParseLevel(name); err == nil {
			p.router.SetCategoryFilter(category, level)
		}
	}
	for category, cs := range s.Categories {
		level := DefaultCategoryLevel
		if cs.Level != "" {
			if parsed, err := ParseLevel(cs.Level); err == nil {
				level = parsed
			}
		}
		if err := p.registry.Register(category, level); err != nil {
			continue
		}
		p.registry.SetEnabled(category, cs.enabled())
		if cs.Color != "" {
			p.registry.SetColor(category, cs.Color)
		}
	}

	p.engine.SetDefaultTemplate(s.Template)
	for category, template := range s.CategoryTemplates {
		p.engine.SetCategoryTemplate(category, template)
	}

	p.captureCaller.Store(s.CaptureCaller)
	p.captureStack.Store(s.CaptureStack)
}

// Registry exposes the category registry shared with any configuration
// surface. Only the registry itself mutates category metadata.
func (p *Pipeline) Registry() *CategoryRegistry { return p.registry }

// Router exposes the fan-out hub for sink and subscriber management.
func (p *Pipeline) Router() *Router { return p.router }

// Engine exposes the template engine for template overrides.
func (p *Pipeline) Engine() *TemplateEngine { return p.engine }

// AttachBuffer creates a ring buffer of the given capacity and
// subscribes it to the live message stream. Release the subscription to
// detach; the buffer stays valid for inspection after detaching.
func (p *Pipeline) AttachBuffer(capacity int) (*MessageBuffer, *Subscription) {
	buffer := NewMessageBuffer(capacity)
	return buffer, p.router.Subscribe(buffer.Subscriber())
}

// Enqueue hands an action to the pipeline's dispatch queue from any
// goroutine. It never blocks; on a full queue the action is dropped and
// counted. Use it to marshal log-driven work (UI updates, expensive
// handlers) onto the goroutine that calls Advance.
func (p *Pipeline) Enqueue(action func()) bool {
	return p.dispatcher.Enqueue(action)
}

// Advance ticks the pipeline once per host update: it increments the
// frame counter stamped onto new messages and drains up to maxPerTick
// queued actions. Call it from exactly one goroutine.
func (p *Pipeline) Advance(maxPerTick int) int {
	p.frame.Add(1)
	return p.dispatcher.Process(maxPerTick)
}

// Frame returns the current frame counter.
func (p *Pipeline) Frame() uint64 { return p.frame.Load() }

// Flush drains every sink that buffers. Call on shutdown and before
// crash reporting; file sink durability is explicit by design.
func (p *Pipeline) Flush() {
	for _, sink := range p.router.Sinks() {
		if err := sink.Flush(); err != nil {
			p.diag("sink_flush", err)
		}
	}
}

// Stats returns a monitoring snapshot.
func (p *Pipeline) Stats() PipelineStats {
	return PipelineStats{
		Router:        p.router.Stats(),
		Frame:         p.frame.Load(),
		QueueDepth:    p.dispatcher.Len(),
		QueueDropped:  p.dispatcher.Dropped(),
		QueueExecuted: p.dispatcher.Executed(),
	}
}

// Close flushes sinks and releases file handles and clocks. Safe to
// call more than once. The pipeline must not be used afterwards.
func (p *Pipeline) Close() error {
	var closeErr error
	p.closeOnce.Do(func() {
		p.Flush()
		if p.file != nil {
			closeErr = p.file.Close()
		}
		if p.rotator != nil {
			p.rotator.Stop()
		}
		if p.clock != nil {
			p.clock.Stop()
		}
	})
	return closeErr
}

// now returns the cached wall clock in UTC.
func (p *Pipeline) now() time.Time {
	if p.clock != nil {
		return p.clock.CachedTime().UTC()
	}
	return time.Now().UTC()
}
