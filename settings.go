// settings.go: Pipeline configuration surface
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Settings is the flat configuration record consumed by the composition
// root. It carries no knowledge of how it was produced: load it from a
// file with LoadSettings, build it in code, or hand it over from an
// editor layer.
type Settings struct {
	// Level is the router's global minimum ("trace".."critical").
	Level string `mapstructure:"level"`

	// CategoryLevels are the router's per-category overrides, taking
	// precedence over Level for their category.
	CategoryLevels map[string]string `mapstructure:"category_levels"`

	// Categories pre-registers registry entries.
	Categories map[string]CategorySettings `mapstructure:"categories"`

	// Format selects the sink rendering: "text" or "json".
	Format string `mapstructure:"format"`

	// Template overrides the default text template; empty keeps the
	// built-in one. CategoryTemplates override per category.
	Template          string            `mapstructure:"template"`
	CategoryTemplates map[string]string `mapstructure:"category_templates"`

	Console ConsoleSettings `mapstructure:"console"`
	File    FileSettings    `mapstructure:"file"`

	// CaptureCaller stamps file/method/line on every message.
	// CaptureStack attaches a stack trace to Error and Critical messages.
	CaptureCaller bool `mapstructure:"capture_caller"`
	CaptureStack  bool `mapstructure:"capture_stack"`

	// QueueCapacity bounds the cross-goroutine dispatch queue.
	QueueCapacity int `mapstructure:"queue_capacity"`

	// LiveReload re-applies the runtime-safe subset of this record when
	// the watched settings file changes.
	LiveReload bool `mapstructure:"live_reload"`
}

// CategorySettings pre-registers one category in the registry. Enabled
// is a pointer so an entry that only sets a level or color stays
// enabled; only an explicit `enabled: false` mutes the category.
type CategorySettings struct {
	Level   string `mapstructure:"level"`
	Enabled *bool  `mapstructure:"enabled"`
	Color   string `mapstructure:"color"`
}

// enabled reports the effective flag, failing open when unset.
func (cs CategorySettings) enabled() bool {
	return cs.Enabled == nil || *cs.Enabled
}

// ConsoleSettings configures the console sink.
type ConsoleSettings struct {
	Enabled bool `mapstructure:"enabled"`
	Color   bool `mapstructure:"color"`
}

// FileSettings configures the file sink and its rotation policy.
type FileSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	// MaxSize is the rotation threshold as a size string ("10MB").
	MaxSize string `mapstructure:"max_size"`
	// Retention is the number of archives kept; 0 keeps all.
	Retention int `mapstructure:"retention"`
	// MaxArchiveAge prunes archives older than this ("7d"); empty disables.
	MaxArchiveAge string `mapstructure:"max_archive_age"`
}

// DefaultSettings returns the configuration used when nothing else is
// specified: text to the console from Info up, no file sink.
func DefaultSettings() *Settings {
	return &Settings{
		Level:         "info",
		Format:        "text",
		Console:       ConsoleSettings{Enabled: true, Color: true},
		File:          FileSettings{MaxSize: "10MB", Retention: 3},
		QueueCapacity: defaultQueueCapacity,
	}
}

// setDefaults registers the default values on a viper instance so a
// partial settings file still yields a complete record.
func setDefaults(v *viper.Viper) {
	defaults := DefaultSettings()

	v.SetDefault("level", defaults.Level)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("template", defaults.Template)
	v.SetDefault("console.enabled", defaults.Console.Enabled)
	v.SetDefault("console.color", defaults.Console.Color)
	v.SetDefault("file.enabled", defaults.File.Enabled)
	v.SetDefault("file.path", defaults.File.Path)
	v.SetDefault("file.max_size", defaults.File.MaxSize)
	v.SetDefault("file.retention", defaults.File.Retention)
	v.SetDefault("file.max_archive_age", defaults.File.MaxArchiveAge)
	v.SetDefault("capture_caller", defaults.CaptureCaller)
	v.SetDefault("capture_stack", defaults.CaptureStack)
	v.SetDefault("queue_capacity", defaults.QueueCapacity)
	v.SetDefault("live_reload", defaults.LiveReload)
}

// LoadSettings reads and validates a settings file. The format is
// inferred from the extension (yaml or json).
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return nil, fmt.Errorf("settings path cannot be empty")
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read settings %q: %w", path, err)
	}
	return unmarshalSettings(v)
}

func unmarshalSettings(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if err := restoreCategoryCase(v.ConfigFileUsed(), &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// restoreCategoryCase re-decodes the map-keyed sections from the raw
// file. Viper lowercases every configuration key, which would turn the
// case-sensitive category maps ("AI", "Network") into entries that can
// never match the categories messages actually carry. YAML is a
// superset of JSON, so both supported formats decode here.
func restoreCategoryCase(path string, s *Settings) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings %q: %w", path, err)
	}

	var raw struct {
		CategoryLevels    map[string]string           `yaml:"category_levels"`
		Categories        map[string]CategorySettings `yaml:"categories"`
		CategoryTemplates map[string]string           `yaml:"category_templates"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse settings %q: %w", path, err)
	}

	s.CategoryLevels = raw.CategoryLevels
	s.Categories = raw.Categories
	s.CategoryTemplates = raw.CategoryTemplates
	return nil
}

// Validate fails fast on configuration that would otherwise surface as
// silent degradation deep in the pipeline.
func (s *Settings) Validate() error {
	if _, err := ParseLevel(s.Level); err != nil {
		return fmt.Errorf("invalid level: %w", err)
	}
	for category, level := range s.CategoryLevels {
		if category == "" {
			return errEmptyCategory
		}
		if _, err := ParseLevel(level); err != nil {
			return fmt.Errorf("invalid level for category %q: %w", category, err)
		}
	}
	for category, cs := range s.Categories {
		if category == "" {
			return errEmptyCategory
		}
		if cs.Level != "" {
			if _, err := ParseLevel(cs.Level); err != nil {
				return fmt.Errorf("invalid level for category %q: %w", category, err)
			}
		}
	}
	if s.File.Enabled {
		if s.File.Path == "" {
			return errEmptyPath
		}
		if s.File.MaxSize != "" {
			if _, err := ParseSize(s.File.MaxSize); err != nil {
				return fmt.Errorf("invalid file.max_size: %w", err)
			}
		}
		if s.File.MaxArchiveAge != "" {
			if _, err := ParseDuration(s.File.MaxArchiveAge); err != nil {
				return fmt.Errorf("invalid file.max_archive_age: %w", err)
			}
		}
	}
	return nil
}

// rotationPolicy converts the validated file settings.
func (fs FileSettings) rotationPolicy() RotationPolicy {
	policy := RotationPolicy{Retention: fs.Retention}
	if fs.MaxSize != "" {
		if size, err := ParseSize(fs.MaxSize); err == nil {
			policy.MaxBytes = size
		}
	}
	if fs.MaxArchiveAge != "" {
		if age, err := ParseDuration(fs.MaxArchiveAge); err == nil {
			policy.MaxArchiveAge = age
		}
	}
	return policy
}

// SettingsWatcher re-applies a settings file to a live pipeline whenever
// the file changes. Only the runtime-safe subset is hot-applied: levels,
// overrides, registry entries and templates. Sink topology (enabling the
// file sink, changing its path) requires constructing a new pipeline.
type SettingsWatcher struct {
	v    *viper.Viper
	p    *Pipeline
	diag DiagnosticFunc
}

// WatchSettings loads the settings file, applies it to the pipeline and,
// when its live_reload flag is set, keeps watching it for changes.
func WatchSettings(path string, p *Pipeline) (*SettingsWatcher, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read settings %q: %w", path, err)
	}
	s, err := unmarshalSettings(v)
	if err != nil {
		return nil, err
	}

	w := &SettingsWatcher{v: v, p: p, diag: p.diag}
	p.ApplySettings(s)

	if s.LiveReload {
		v.OnConfigChange(func(_ fsnotify.Event) { w.reload() })
		v.WatchConfig()
	}
	return w, nil
}

// reload re-reads the file and hot-applies it. A broken edit is
// reported and the previous configuration stays in effect.
func (w *SettingsWatcher) reload() {
	if err := w.v.ReadInConfig(); err != nil {
		w.diag("settings_reload", err)
		return
	}
	s, err := unmarshalSettings(w.v)
	if err != nil {
		w.diag("settings_reload", err)
		return
	}
	w.p.ApplySettings(s)
}
