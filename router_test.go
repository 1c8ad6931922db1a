// router_test.go: Filtering and fan-out tests
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureSink records every message it receives. fail and panics let
// tests exercise the router's fault isolation.
type captureSink struct {
	name     string
	messages []Message
	fail     error
	panics   bool
}

func (s *captureSink) Write(msg Message) error {
	if s.panics {
		panic("sink exploded")
	}
	if s.fail != nil {
		return s.fail
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *captureSink) Flush() error { return nil }
func (s *captureSink) Name() string { return s.name }

func routeTestMessage(t *testing.T, level Level, category string) Message {
	t.Helper()
	msg, err := NewMessage(level, category, "something happened")
	require.NoError(t, err)
	return msg
}

func TestRouter_GlobalMinimumLevel(t *testing.T) {
	sink := &captureSink{name: "capture"}
	router := NewRouter(nil, nil)
	require.NoError(t, router.RegisterSink(sink))

	router.SetGlobalMinimumLevel(LevelInfo)
	router.Route(routeTestMessage(t, LevelDebug, "App"))
	router.Route(routeTestMessage(t, LevelInfo, "App"))
	router.Route(routeTestMessage(t, LevelError, "App"))

	require.Len(t, sink.messages, 2)
	assert.Equal(t, LevelInfo, sink.messages[0].Level)
	assert.Equal(t, LevelError, sink.messages[1].Level)

	stats := router.Stats()
	assert.Equal(t, uint64(3), stats.Routed)
	assert.Equal(t, uint64(2), stats.Accepted)
	assert.Equal(t, uint64(1), stats.Rejected)
}

func TestRouter_CategoryOverrideBeatsGlobal(t *testing.T) {
	sink := &captureSink{name: "capture"}
	router := NewRouter(nil, nil)
	require.NoError(t, router.RegisterSink(sink))

	router.SetGlobalMinimumLevel(LevelInfo)
	router.SetCategoryFilter("Network", LevelWarn)

	// Info passes globally but the Network override demands Warning.
	router.Route(routeTestMessage(t, LevelInfo, "Network"))
	router.Route(routeTestMessage(t, LevelWarn, "Network"))
	router.Route(routeTestMessage(t, LevelInfo, "App"))

	require.Len(t, sink.messages, 2)
	assert.Equal(t, "Network", sink.messages[0].Category)
	assert.Equal(t, LevelWarn, sink.messages[0].Level)
	assert.Equal(t, "App", sink.messages[1].Category)

	// Clearing the override restores the global rule.
	router.ClearCategoryFilter("Network")
	router.Route(routeTestMessage(t, LevelInfo, "Network"))
	assert.Len(t, sink.messages, 3)
}

func TestRouter_RegistryLayerGatesFirst(t *testing.T) {
	registry := NewCategoryRegistry()
	require.NoError(t, registry.Register("AI", LevelWarn))
	require.NoError(t, registry.Register("Muted", LevelTrace))
	registry.SetEnabled("Muted", false)

	sink := &captureSink{name: "capture"}
	router := NewRouter(registry, nil)
	require.NoError(t, router.RegisterSink(sink))

	// Registry minimum rejects below Warning even though the router's
	// global minimum is Trace.
	router.Route(routeTestMessage(t, LevelInfo, "AI"))
	router.Route(routeTestMessage(t, LevelError, "AI"))

	// Disabled categories never log, whatever the level.
	router.Route(routeTestMessage(t, LevelCritical, "Muted"))

	// Unregistered categories are not level-gated by the registry; only
	// the router's rules (global Trace here) apply.
	router.Route(routeTestMessage(t, LevelDebug, "Unknown"))
	router.Route(routeTestMessage(t, LevelInfo, "Unknown"))

	require.Len(t, sink.messages, 3)
	assert.Equal(t, "AI", sink.messages[0].Category)
	assert.Equal(t, LevelError, sink.messages[0].Level)
	assert.Equal(t, "Unknown", sink.messages[1].Category)
	assert.Equal(t, LevelDebug, sink.messages[1].Level)
	assert.Equal(t, "Unknown", sink.messages[2].Category)
}

func TestRouter_UnregisteredCategoryHonorsLowGlobalMinimum(t *testing.T) {
	registry := NewCategoryRegistry()
	require.NoError(t, registry.Register("AI", LevelWarn))

	sink := &captureSink{name: "capture"}
	router := NewRouter(registry, nil)
	require.NoError(t, router.RegisterSink(sink))
	router.SetGlobalMinimumLevel(LevelDebug)

	// Lowering the global minimum below Info must reach categories that
	// were never registered.
	router.Route(routeTestMessage(t, LevelDebug, "Gameplay"))
	router.Route(routeTestMessage(t, LevelTrace, "Gameplay"))

	// The registered minimum still binds its own category.
	router.Route(routeTestMessage(t, LevelDebug, "AI"))

	require.Len(t, sink.messages, 1)
	assert.Equal(t, "Gameplay", sink.messages[0].Category)
	assert.Equal(t, LevelDebug, sink.messages[0].Level)
}

func TestRouter_SinkOrderAndUnregister(t *testing.T) {
	first := &captureSink{name: "first"}
	second := &captureSink{name: "second"}
	router := NewRouter(nil, nil)
	require.NoError(t, router.RegisterSink(first))
	require.NoError(t, router.RegisterSink(second))
	require.Len(t, router.Sinks(), 2)

	router.Route(routeTestMessage(t, LevelInfo, "App"))
	assert.Len(t, first.messages, 1)
	assert.Len(t, second.messages, 1)

	router.UnregisterSink("first")
	require.Len(t, router.Sinks(), 1)

	router.Route(routeTestMessage(t, LevelInfo, "App"))
	assert.Len(t, first.messages, 1)
	assert.Len(t, second.messages, 2)
}

func TestRouter_RegisterNilSink(t *testing.T) {
	router := NewRouter(nil, nil)
	assert.ErrorIs(t, router.RegisterSink(nil), errNilSink)
}

func TestRouter_SubscribeAndRelease(t *testing.T) {
	router := NewRouter(nil, nil)

	var seen []string
	sub := router.Subscribe(func(msg Message) {
		seen = append(seen, msg.Category)
	})

	router.Route(routeTestMessage(t, LevelInfo, "App"))
	require.Equal(t, []string{"App"}, seen)

	sub.Release()
	router.Route(routeTestMessage(t, LevelInfo, "App"))
	assert.Len(t, seen, 1)

	// Releasing twice is a no-op.
	sub.Release()
}

func TestRouter_SubscribersRunAfterSinks(t *testing.T) {
	var order []string
	sink := &orderSink{record: func() { order = append(order, "sink") }}
	router := NewRouter(nil, nil)
	require.NoError(t, router.RegisterSink(sink))
	router.Subscribe(func(Message) { order = append(order, "subscriber") })

	router.Route(routeTestMessage(t, LevelInfo, "App"))
	assert.Equal(t, []string{"sink", "subscriber"}, order)
}

type orderSink struct{ record func() }

func (s *orderSink) Write(Message) error { s.record(); return nil }
func (s *orderSink) Flush() error        { return nil }
func (s *orderSink) Name() string        { return "order" }

func TestRouter_FaultIsolation(t *testing.T) {
	var diags []string
	diag := func(op string, err error) { diags = append(diags, op) }

	failing := &captureSink{name: "failing", fail: errors.New("disk full")}
	panicking := &captureSink{name: "panicking", panics: true}
	healthy := &captureSink{name: "healthy"}

	router := NewRouter(nil, diag)
	require.NoError(t, router.RegisterSink(failing))
	require.NoError(t, router.RegisterSink(panicking))
	require.NoError(t, router.RegisterSink(healthy))
	router.Subscribe(func(Message) { panic("subscriber exploded") })

	var notified int
	router.Subscribe(func(Message) { notified++ })

	router.Route(routeTestMessage(t, LevelError, "App"))

	// Healthy consumers ran despite two sink faults and a subscriber panic.
	assert.Len(t, healthy.messages, 1)
	assert.Equal(t, 1, notified)
	assert.Equal(t, []string{"sink_write", "sink_write", "subscriber"}, diags)
	assert.Equal(t, uint64(2), router.Stats().SinkFault)
}

func TestRouter_ConcurrentRouting(t *testing.T) {
	sink := &captureSink{name: "capture"}
	router := NewRouter(nil, nil)
	require.NoError(t, router.RegisterSink(sink))

	msg := routeTestMessage(t, LevelInfo, "App")

	const goroutines = 8
	const perGoroutine = 50
	done := make(chan struct{})
	for g := 0; g < goroutines; g++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < perGoroutine; i++ {
				router.Route(msg)
			}
		}()
	}
	for g := 0; g < goroutines; g++ {
		<-done
	}

	stats := router.Stats()
	assert.Equal(t, uint64(goroutines*perGoroutine), stats.Routed)
	assert.Len(t, sink.messages, goroutines*perGoroutine)
}
