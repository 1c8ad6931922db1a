// rotation_test.go: Rotation and retention tests
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var archivePattern = regexp.MustCompile(`^app_\d{8}-\d{6}-\d{3}(_\d+)?\.log$`)

func writeLiveFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
}

func TestRotator_ShouldRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	r := NewRotator(RotationPolicy{MaxBytes: 100}, nil)
	defer r.Stop()

	// Absent file: not an error, just no rotation needed.
	assert.False(t, r.ShouldRotate(path))

	writeLiveFile(t, path, 99)
	assert.False(t, r.ShouldRotate(path))

	writeLiveFile(t, path, 100)
	assert.True(t, r.ShouldRotate(path))

	// Idempotent without an intervening write.
	assert.True(t, r.ShouldRotate(path))
	assert.True(t, r.ShouldRotate(path))
}

func TestRotator_ShouldRotate_DisabledPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	writeLiveFile(t, path, 1<<20)

	r := NewRotator(RotationPolicy{MaxBytes: 0}, nil)
	defer r.Stop()
	assert.False(t, r.ShouldRotate(path))
}

func TestRotator_Rotate_ArchiveNaming(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	writeLiveFile(t, path, 128)

	r := NewRotator(RotationPolicy{MaxBytes: 64}, nil)
	defer r.Stop()

	archive, err := r.Rotate(path)
	require.NoError(t, err)

	assert.NoFileExists(t, path)
	assert.FileExists(t, archive)
	assert.Regexp(t, archivePattern, filepath.Base(archive))
}

func TestRotator_Rotate_CollisionSuffix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	r := NewRotator(RotationPolicy{MaxBytes: 1}, nil)
	defer r.Stop()

	// The cached clock has millisecond resolution, so rotating twice
	// back-to-back collides on the timestamp and must suffix.
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		writeLiveFile(t, path, 8)
		archive, err := r.Rotate(path)
		require.NoError(t, err)
		assert.False(t, seen[archive], "archive name %q reused", archive)
		seen[archive] = true
	}
}

func TestRotator_Rotate_MissingLiveFile(t *testing.T) {
	dir := t.TempDir()
	r := NewRotator(RotationPolicy{MaxBytes: 1}, nil)
	defer r.Stop()

	_, err := r.Rotate(filepath.Join(dir, "ghost.log"))
	assert.Error(t, err)
}

func TestRotator_RetentionBound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	const rotations = 6
	const retention = 2
	r := NewRotator(RotationPolicy{MaxBytes: 1, Retention: retention}, nil)
	defer r.Stop()

	var archives []string
	for i := 0; i < rotations; i++ {
		writeLiveFile(t, path, 16)
		archive, err := r.Rotate(path)
		require.NoError(t, err)
		archives = append(archives, archive)
		// Separate modification times so "most recent" is unambiguous.
		stamp := time.Now().Add(time.Duration(i-rotations) * time.Minute)
		require.NoError(t, os.Chtimes(archive, stamp, stamp))
	}

	remaining, err := filepath.Glob(filepath.Join(dir, "app_*.log"))
	require.NoError(t, err)
	assert.Len(t, remaining, retention)

	// The survivors are the most recently modified archives.
	for _, archive := range archives[rotations-retention:] {
		assert.FileExists(t, archive)
	}
	for _, archive := range archives[:rotations-retention] {
		assert.NoFileExists(t, archive)
	}
}

func TestRotator_ArchiveNamesNotReusedAfterPruning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	// Retention 1 frees archive names on disk during the burst; a freed
	// name must still never be issued a second time.
	r := NewRotator(RotationPolicy{MaxBytes: 1, Retention: 1}, nil)
	defer r.Stop()

	seen := map[string]bool{}
	for i := 0; i < 6; i++ {
		writeLiveFile(t, path, 8)
		archive, err := r.Rotate(path)
		require.NoError(t, err)
		assert.False(t, seen[archive], "archive name %q issued twice", archive)
		seen[archive] = true
	}
	assert.Len(t, seen, 6)
}

func TestRotator_RetentionZeroKeepsAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	r := NewRotator(RotationPolicy{MaxBytes: 1, Retention: 0}, nil)
	defer r.Stop()

	for i := 0; i < 5; i++ {
		writeLiveFile(t, path, 16)
		_, err := r.Rotate(path)
		require.NoError(t, err)
	}

	remaining, err := filepath.Glob(filepath.Join(dir, "app_*.log"))
	require.NoError(t, err)
	assert.Len(t, remaining, 5)
}

func TestRotator_MaxArchiveAgePruning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	r := NewRotator(RotationPolicy{MaxBytes: 1, MaxArchiveAge: time.Hour}, nil)
	defer r.Stop()

	// Plant an expired archive next to the live file.
	expired := filepath.Join(dir, "app_20200101-000000-000.log")
	require.NoError(t, os.WriteFile(expired, []byte("old"), 0644))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(expired, old, old))

	writeLiveFile(t, path, 16)
	fresh, err := r.Rotate(path)
	require.NoError(t, err)

	assert.NoFileExists(t, expired)
	assert.FileExists(t, fresh)
}

func TestRotator_RetentionSkipsUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	unrelated := filepath.Join(dir, "other.log")
	require.NoError(t, os.WriteFile(unrelated, []byte("keep me"), 0644))

	r := NewRotator(RotationPolicy{MaxBytes: 1, Retention: 1}, nil)
	defer r.Stop()

	for i := 0; i < 3; i++ {
		writeLiveFile(t, path, 16)
		_, err := r.Rotate(path)
		require.NoError(t, err)
	}

	assert.FileExists(t, unrelated)
}

func TestRotator_DiagnosticsOnCleanupFault(t *testing.T) {
	// A diag callback that records operations proves per-archive faults
	// are reported rather than propagated. Simulate by pruning a glob
	// pattern that errors: bad pattern via the path itself.
	var ops []string
	r := NewRotator(RotationPolicy{Retention: 1}, func(op string, err error) {
		ops = append(ops, fmt.Sprintf("%s:%v", op, err != nil))
	})
	defer r.Stop()

	r.pruneArchives("[bad-glob.log")
	require.NotEmpty(t, ops)
	assert.Contains(t, ops[0], "retention_scan:true")
}
