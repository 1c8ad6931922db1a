// rotation.go: Size-based rotation and archive retention service
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-timecache"
)

// RotationPolicy bounds the size of a live log file and the amount of
// archive history kept next to it. It is stateless: every decision is
// recomputed from the file system, so correctness survives process
// restarts.
type RotationPolicy struct {
	// MaxBytes triggers rotation once the live file reaches this size.
	// Zero or negative disables size-based rotation.
	MaxBytes int64

	// Retention is the number of archives to keep after a rotation.
	// Zero means keep all archives forever.
	Retention int

	// MaxArchiveAge additionally prunes archives older than this
	// duration during cleanup. Zero disables age-based pruning.
	MaxArchiveAge time.Duration
}

// Rotator applies a RotationPolicy to a live log file. It owns no file
// handles; the caller must close any open handle to the live file before
// Rotate and reopen a fresh one after.
type Rotator struct {
	policy RotationPolicy
	diag   DiagnosticFunc
	clock  *timecache.TimeCache

	// Naming state: issued counts one archive name per stamp so names
	// are never handed out twice, even after retention pruning frees
	// them on disk.
	nameMu    sync.Mutex
	lastStamp string
	issued    int
}

// NewRotator creates a rotation service. diag receives non-fatal
// filesystem faults and may be nil.
func NewRotator(policy RotationPolicy, diag DiagnosticFunc) *Rotator {
	return &Rotator{
		policy: policy,
		diag:   normalizeDiag(diag),
		clock:  timecache.NewWithResolution(time.Millisecond),
	}
}

// Policy returns the rotator's policy.
func (r *Rotator) Policy() RotationPolicy { return r.policy }

// Stop releases the rotator's cached clock.
func (r *Rotator) Stop() {
	if r.clock != nil {
		r.clock.Stop()
	}
}

// ShouldRotate reports whether the live file at path has reached the
// size threshold. An absent or unreadable file is not an error: it
// simply does not need rotating yet.
func (r *Rotator) ShouldRotate(path string) bool {
	if r.policy.MaxBytes <= 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() >= r.policy.MaxBytes
}

// Rotate moves the live file at path to a timestamped archive name and
// prunes archives beyond the retention policy. It returns the archive
// path the live file was moved to.
//
// Archive naming is {base}_{yyyyMMdd-HHmmss-fff}{ext}; on a collision
// within the same millisecond an incrementing _N suffix is appended
// until the name is unique.
//
// A failed rename leaves the live file in place and is returned to the
// caller; per-archive faults during retention cleanup are reported via
// the diagnostic callback and never abort cleanup of the remaining
// archives. Logging must never crash the host over a rotation failure.
func (r *Rotator) Rotate(path string) (string, error) {
	archive := r.nextArchiveName(path)

	err := RetryFileOperation(func() error {
		return os.Rename(path, archive)
	}, 0, 0)
	if err != nil {
		return "", fmt.Errorf("failed to archive %q: %w", path, err)
	}

	r.pruneArchives(path)
	return archive, nil
}

// nextArchiveName computes a collision-free archive path for the live
// file. The suffix counter is monotonic per stamp for the life of the
// process: a name freed by retention pruning is never reissued, so each
// archive of a rotation burst keeps a distinct identity. The stat check
// only guards against archives left behind by a previous process.
func (r *Rotator) nextArchiveName(path string) string {
	now := r.now().UTC()
	base, ext := splitBaseExt(path)
	stamp := fmt.Sprintf("%s-%03d", now.Format("20060102-150405"), now.Nanosecond()/int(time.Millisecond))

	r.nameMu.Lock()
	defer r.nameMu.Unlock()
	if stamp != r.lastStamp {
		r.lastStamp = stamp
		r.issued = 0
	}

	for {
		r.issued++
		candidate := fmt.Sprintf("%s_%s%s", base, stamp, ext)
		if r.issued > 1 {
			candidate = fmt.Sprintf("%s_%s_%d%s", base, stamp, r.issued-1, ext)
		}
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// pruneArchives deletes archives beyond the retention count and, when
// configured, archives older than MaxArchiveAge. The live file itself
// never matches the {base}_*{ext} pattern.
func (r *Rotator) pruneArchives(path string) {
	base, ext := splitBaseExt(path)
	matches, err := filepath.Glob(base + "_*" + ext)
	if err != nil {
		r.diag("retention_scan", err)
		return
	}

	now := r.now()
	var archives []fileInfo
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			r.diag("retention_stat", err)
			continue
		}

		if r.policy.MaxArchiveAge > 0 && now.Sub(info.ModTime()) > r.policy.MaxArchiveAge {
			if err := os.Remove(match); err != nil {
				r.diag("age_cleanup", fmt.Errorf("failed to remove expired archive %s: %w", match, err))
			}
			continue
		}

		archives = append(archives, fileInfo{name: match, modTime: info.ModTime()})
	}

	if r.policy.Retention <= 0 || len(archives) <= r.policy.Retention {
		return
	}

	// Newest first; everything past the retention count goes.
	sort.Slice(archives, func(i, j int) bool {
		return archives[i].modTime.After(archives[j].modTime)
	})
	for _, old := range archives[r.policy.Retention:] {
		if err := os.Remove(old.name); err != nil {
			r.diag("count_cleanup", fmt.Errorf("failed to remove excess archive %s: %w", old.name, err))
		}
	}
}

func (r *Rotator) now() time.Time {
	if r.clock != nil {
		return r.clock.CachedTime()
	}
	return time.Now()
}

// fileInfo holds file information for retention sorting
type fileInfo struct {
	name    string
	modTime time.Time
}

// splitBaseExt splits a path into everything before the final extension
// and the extension itself ("app.log" -> "app", ".log").
func splitBaseExt(path string) (string, string) {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext), ext
}
