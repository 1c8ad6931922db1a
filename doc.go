// Package hermes is an in-process structured-logging pipeline for
// interactive applications.
//
// Callers emit leveled, categorized messages through a logger facade;
// the pipeline filters them against a category registry and the
// router's own override table, renders them through a token template
// engine, and fans them out to pluggable sinks (console, rotating file)
// and live subscribers (e.g. a ring buffer feeding an in-app log
// viewer). It stays safe under concurrent producers with a single
// consuming frame goroutine, and it never lets a sink fault, a rotation
// failure or a full queue crash the host it instruments.
//
// # Quick Start
//
// Explicit composition root:
//
//	pipeline, err := hermes.New(&hermes.Settings{
//		Level:   "info",
//		Format:  "text",
//		Console: hermes.ConsoleSettings{Enabled: true, Color: true},
//		File: hermes.FileSettings{
//			Enabled:   true,
//			Path:      "logs/app.log",
//			MaxSize:   "10MB",
//			Retention: 5,
//		},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pipeline.Close()
//
//	logger := pipeline.Logger("Network")
//	logger.Info("connected")
//	logger.With(hermes.String("peer", "10.0.0.7")).Warn("slow handshake")
//
// Or the process-wide convenience layer:
//
//	hermes.L("Gameplay").Debug("spawned")
//
// # Filtering
//
// Two deliberately independent layers decide whether a message is
// delivered. The CategoryRegistry answers "can this category ever log"
// (enabled flag, plus a per-category minimum for explicitly registered
// categories; unregistered categories fail open). The Router then
// applies its own per-category override, falling back to the global
// minimum. Overrides silence or amplify a category for a session
// without touching registry state:
//
//	pipeline.Registry().Register("AI", hermes.LevelWarn)
//	pipeline.Router().SetCategoryFilter("Network", hermes.LevelError)
//	pipeline.Router().SetGlobalMinimumLevel(hermes.LevelInfo)
//
// # Templates
//
// Text output is driven by token templates; unknown tokens are echoed
// back literally instead of failing:
//
//	pipeline.Engine().SetDefaultTemplate(
//		"{timestamp:15:04:05.000} {level} [{category}] {message}")
//
// # Live inspection
//
// Subscribers receive every accepted message synchronously. The bundled
// ring buffer keeps the most recent messages for an overlay or editor:
//
//	buffer, sub := pipeline.AttachBuffer(512)
//	defer sub.Release()
//	for _, msg := range buffer.Snapshot() {
//		// render msg
//	}
//
// # Settings files
//
// Settings load from yaml/json/toml via LoadSettings, and WatchSettings
// hot-applies level, override and template changes while the process
// runs when live_reload is set.
//
// Delivery is best effort by design: a failing sink is isolated and
// reported to the diagnostic callback, never retried; a full dispatch
// queue drops rather than blocking producers.
package hermes
