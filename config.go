// config.go: Parsing and filesystem utilities
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// sizeSuffixes maps size units to byte multipliers. Both one- and
// two-letter spellings are accepted, case-insensitively.
var sizeSuffixes = []struct {
	suffix     string
	multiplier int64
}{
	{"KB", 1024},
	{"MB", 1024 * 1024},
	{"GB", 1024 * 1024 * 1024},
	{"TB", 1024 * 1024 * 1024 * 1024},
	{"K", 1024},
	{"M", 1024 * 1024},
	{"G", 1024 * 1024 * 1024},
	{"T", 1024 * 1024 * 1024 * 1024},
}

// ParseSize converts strings like "10MB", "512K" or "4096" to bytes.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	// Plain numbers are bytes.
	if val, err := strconv.ParseInt(s, 10, 64); err == nil {
		return val, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, u := range sizeSuffixes {
		if !strings.HasSuffix(upper, u.suffix) {
			continue
		}
		val, err := strconv.ParseInt(strings.TrimSpace(upper[:len(upper)-len(u.suffix)]), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size number in %q: %v", s, err)
		}
		result := val * u.multiplier
		if result < 0 { // Overflow check
			return 0, fmt.Errorf("size %q too large", s)
		}
		return result, nil
	}
	return 0, fmt.Errorf("unknown size suffix in %q (supported: KB/K, MB/M, GB/G, TB/T)", s)
}

// ParseDuration accepts Go duration syntax plus day/week/year suffixes
// ("7d", "2w", "1y").
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	lower := strings.ToLower(strings.TrimSpace(s))
	var multiplier time.Duration
	switch {
	case strings.HasSuffix(lower, "d"):
		multiplier = 24 * time.Hour
	case strings.HasSuffix(lower, "w"):
		multiplier = 7 * 24 * time.Hour
	case strings.HasSuffix(lower, "y"):
		multiplier = 365 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("unknown duration suffix in %q", s)
	}

	val, err := strconv.ParseInt(lower[:len(lower)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration number in %q: %v", s, err)
	}
	return time.Duration(val) * multiplier, nil
}

// SanitizeFilename replaces characters that are invalid on the current
// platform so a configured log path cannot fail at open time.
func SanitizeFilename(filename string) string {
	if runtime.GOOS != "windows" {
		return strings.ReplaceAll(filename, "\x00", "_")
	}

	var b strings.Builder
	for _, r := range filename {
		switch {
		case r < 32:
			b.WriteRune('_')
		case strings.ContainsRune(`<>:"|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidatePathLength rejects paths beyond the platform limit before any
// file operation is attempted with them.
func ValidatePathLength(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %v", err)
	}

	limit := 4096
	if runtime.GOOS == "windows" {
		limit = 260
	}
	if len(absPath) > limit {
		return fmt.Errorf("path too long: %d characters (limit: %d)", len(absPath), limit)
	}
	return nil
}

// RetryFileOperation executes a file operation with retry. Antivirus
// scans, network shares and overlay filesystems cause transient
// failures that a short bounded retry absorbs without masking real
// errors. Zero arguments select the defaults (3 attempts, 10ms apart).
func RetryFileOperation(operation func() error, retryCount int, retryDelay time.Duration) error {
	if retryCount <= 0 {
		retryCount = 3
	}
	if retryDelay <= 0 {
		retryDelay = 10 * time.Millisecond
	}

	var lastErr error
	for i := 0; i < retryCount; i++ {
		if lastErr = operation(); lastErr == nil {
			return nil
		}
		if i < retryCount-1 {
			time.Sleep(retryDelay)
		}
	}
	return fmt.Errorf("operation failed after %d retries: %v", retryCount, lastErr)
}
