// registry.go: Thread-safe category metadata registry
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultCategoryLevel is the minimum level given to categories
// registered implicitly by a setter, and the level reported for unknown
// categories. Categories never registered at all are not level-gated by
// the registry; filtering for them is the Router's business alone.
const DefaultCategoryLevel = LevelInfo

// CategoryMetadata describes one named message source. A copy is
// returned to callers; only the registry mutates the stored value.
type CategoryMetadata struct {
	MinLevel Level
	Enabled  bool
	Color    string // terminal color, e.g. "#ff5f87" or an ANSI index
}

// CategoryRegistry is the source of truth for "is this category allowed
// to log at all". It is shared by reference between the Router and any
// configuration surface; no other component mutates its entries.
//
// All operations take a single lock. Category churn is rare relative to
// message volume, so correctness wins over lock granularity here.
type CategoryRegistry struct {
	mu         sync.Mutex
	categories map[string]CategoryMetadata
}

// NewCategoryRegistry creates an empty registry.
func NewCategoryRegistry() *CategoryRegistry {
	return &CategoryRegistry{
		categories: make(map[string]CategoryMetadata),
	}
}

// Register adds or replaces a category with the given minimum level.
// The category starts enabled. An empty name fails fast.
func (r *CategoryRegistry) Register(category string, minLevel Level) error {
	if category == "" {
		return errEmptyCategory
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	meta := r.categories[category]
	meta.MinLevel = minLevel
	meta.Enabled = true
	r.categories[category] = meta
	return nil
}

// Unregister removes a category. Removing an unknown category is a no-op.
func (r *CategoryRegistry) Unregister(category string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.categories, category)
}

// Rename moves a category's metadata to a new name. The old entry is
// removed. Renaming an unknown category registers the new name with
// defaults so the rename never silently drops configuration intent.
func (r *CategoryRegistry) Rename(oldName, newName string) error {
	if newName == "" {
		return errEmptyCategory
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, ok := r.categories[oldName]
	if !ok {
		meta = CategoryMetadata{MinLevel: DefaultCategoryLevel, Enabled: true}
	}
	delete(r.categories, oldName)
	r.categories[newName] = meta
	return nil
}

// SetMinLevel updates the minimum level, registering the category if needed.
func (r *CategoryRegistry) SetMinLevel(category string, minLevel Level) {
	r.update(category, func(meta *CategoryMetadata) { meta.MinLevel = minLevel })
}

// MinLevel returns the category's minimum level, or DefaultCategoryLevel
// for unknown categories.
func (r *CategoryRegistry) MinLevel(category string) Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	if meta, ok := r.categories[category]; ok {
		return meta.MinLevel
	}
	return DefaultCategoryLevel
}

// SetColor updates the display color, registering the category if needed.
func (r *CategoryRegistry) SetColor(category, color string) {
	r.update(category, func(meta *CategoryMetadata) { meta.Color = color })
}

// Color returns the category's display color, empty for unknown categories.
func (r *CategoryRegistry) Color(category string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.categories[category].Color
}

// SetEnabled toggles the category, registering it if needed.
func (r *CategoryRegistry) SetEnabled(category string, enabled bool) {
	r.update(category, func(meta *CategoryMetadata) { meta.Enabled = enabled })
}

// IsEnabled reports whether the category may log. Unknown categories are
// enabled: the registry fails open for discoverability.
func (r *CategoryRegistry) IsEnabled(category string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if meta, ok := r.categories[category]; ok {
		return meta.Enabled
	}
	return true
}

// Metadata returns a copy of the category's metadata and whether the
// category is actually registered. Unknown categories report the
// permissive defaults.
func (r *CategoryRegistry) Metadata(category string) (CategoryMetadata, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if meta, ok := r.categories[category]; ok {
		return meta, true
	}
	return CategoryMetadata{MinLevel: DefaultCategoryLevel, Enabled: true}, false
}

// HasCategory reports whether the category was explicitly registered.
func (r *CategoryRegistry) HasCategory(category string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.categories[category]
	return ok
}

// Categories returns all registered category names, sorted.
func (r *CategoryRegistry) Categories() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.categories))
	for name := range r.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// update applies a mutation to a category, creating it with defaults
// first when it does not exist yet.
func (r *CategoryRegistry) update(category string, fn func(*CategoryMetadata)) {
	if category == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, ok := r.categories[category]
	if !ok {
		meta = CategoryMetadata{MinLevel: DefaultCategoryLevel, Enabled: true}
	}
	fn(&meta)
	r.categories[category] = meta
}

// String renders a short human-readable summary, mainly for diagnostics.
func (r *CategoryRegistry) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("CategoryRegistry(%d categories)", len(r.categories))
}
