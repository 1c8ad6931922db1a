// router.go: Filtering and fan-out hub
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"errors"
	"fmt"
	"sync"
)

var errNilSink = errors.New("sink cannot be nil")

// SubscriberFunc receives every accepted message, synchronously, after
// the sinks. Subscribers observing the live stream (e.g. a ring buffer
// feeding a log viewer) attach here.
type SubscriberFunc func(msg Message)

// Subscription is the capability returned by Router.Subscribe. Release
// removes exactly that handler; releasing twice is a no-op.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Release detaches the subscriber.
func (s *Subscription) Release() {
	s.once.Do(s.cancel)
}

// RouterStats is a snapshot of routing activity.
type RouterStats struct {
	Routed    uint64 `json:"routed"`   // Route calls seen
	Accepted  uint64 `json:"accepted"` // messages passing the filters
	Rejected  uint64 `json:"rejected"` // messages filtered out
	SinkFault uint64 `json:"sink_faults"`
}

type subscriberEntry struct {
	id uint64
	fn SubscriberFunc
}

// Router is the central hub connecting loggers to sinks and live
// subscribers. It owns the sink list, the subscriber list and its own
// per-category override table for its lifetime.
//
// Filtering is two layers, deliberately decoupled:
//
//   - the CategoryRegistry expresses "can this category ever log"
//     (enabled flag, plus the registry minimum for categories that were
//     explicitly registered — unregistered categories fail open);
//   - the Router's override table expresses "temporarily silence or
//     amplify this category independent of registry state", falling
//     back to the global minimum when no override exists.
//
// One lock protects all three tables and is held for the full fan-out,
// which keeps same-goroutine delivery ordered. Sinks are expected to be
// fast or internally asynchronous.
type Router struct {
	mu        sync.Mutex
	registry  *CategoryRegistry
	sinks     []Sink
	subs      []subscriberEntry
	nextSubID uint64
	overrides map[string]Level
	globalMin Level
	diag      DiagnosticFunc
	stats     RouterStats
}

// NewRouter creates a router consulting the given registry. registry
// may be nil, which skips the registry layer entirely. diag receives
// isolated sink and subscriber faults and may be nil.
func NewRouter(registry *CategoryRegistry, diag DiagnosticFunc) *Router {
	return &Router{
		registry:  registry,
		overrides: make(map[string]Level),
		globalMin: LevelTrace,
		diag:      normalizeDiag(diag),
	}
}

// RegisterSink appends a sink to the fan-out list. Sinks are invoked in
// registration order.
func (r *Router) RegisterSink(sink Sink) error {
	if sink == nil {
		return errNilSink
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, sink)
	return nil
}

// UnregisterSink removes every sink with the given name.
func (r *Router) UnregisterSink(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.sinks[:0]
	for _, s := range r.sinks {
		if s.Name() != name {
			kept = append(kept, s)
		}
	}
	r.sinks = kept
}

// Sinks returns the registered sinks in order.
func (r *Router) Sinks() []Sink {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sink, len(r.sinks))
	copy(out, r.sinks)
	return out
}

// Subscribe attaches a live-stream handler and returns the capability
// that removes it. Safe to call from any goroutine, including release
// from a goroutine other than the subscriber's.
func (r *Router) Subscribe(fn SubscriberFunc) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSubID++
	id := r.nextSubID
	r.subs = append(r.subs, subscriberEntry{id: id, fn: fn})

	return &Subscription{cancel: func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, entry := range r.subs {
			if entry.id == id {
				r.subs = append(r.subs[:i], r.subs[i+1:]...)
				return
			}
		}
	}}
}

// SetGlobalMinimumLevel sets the level messages must reach when their
// category has no explicit override.
func (r *Router) SetGlobalMinimumLevel(level Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globalMin = level
}

// GlobalMinimumLevel returns the current global minimum.
func (r *Router) GlobalMinimumLevel() Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.globalMin
}

// SetCategoryFilter installs a per-category override that takes
// precedence over the global minimum for that category.
func (r *Router) SetCategoryFilter(category string, level Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[category] = level
}

// ClearCategoryFilter removes a per-category override.
func (r *Router) ClearCategoryFilter(category string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overrides, category)
}

// Route filters the message and, on acceptance, synchronously delivers
// it to every sink in registration order and then to every subscriber.
// A faulting sink or subscriber is reported to the diagnostic channel
// and never prevents the remaining consumers from running.
func (r *Router) Route(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Routed++
	if !r.acceptLocked(msg) {
		r.stats.Rejected++
		return
	}
	r.stats.Accepted++

	for _, sink := range r.sinks {
		if err := r.safeWrite(sink, msg); err != nil {
			r.stats.SinkFault++
			r.diag("sink_write", fmt.Errorf("sink %q: %w", sink.Name(), err))
		}
	}
	for _, sub := range r.subs {
		if err := safeNotify(sub.fn, msg); err != nil {
			r.diag("subscriber", err)
		}
	}
}

// acceptLocked applies the two filtering layers. Callers hold r.mu.
func (r *Router) acceptLocked(msg Message) bool {
	if r.registry != nil {
		meta, registered := r.registry.Metadata(msg.Category)
		if !meta.Enabled {
			return false
		}
		// The registry minimum only binds categories somebody explicitly
		// registered. Unknown categories fail open here and are governed
		// by the override/global rules alone, so lowering the global
		// minimum below Info reaches them.
		if registered && msg.Level < meta.MinLevel {
			return false
		}
	}
	if override, ok := r.overrides[msg.Category]; ok {
		return msg.Level >= override
	}
	return msg.Level >= r.globalMin
}

// Stats returns a snapshot of routing counters.
func (r *Router) Stats() RouterStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// safeWrite isolates a sink call: both returned errors and panics end
// up as errors for the diagnostic channel.
func (r *Router) safeWrite(sink Sink, msg Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic [%v]", rec)
		}
	}()
	return sink.Write(msg)
}

// safeNotify isolates a subscriber call the same way.
func safeNotify(fn SubscriberFunc, msg Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("subscriber panic [%v]", rec)
		}
	}()
	fn(msg)
	return nil
}
