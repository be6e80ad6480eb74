package services_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/spittal/internal/lib"
	"github.com/trobanga/spittal/internal/services"
)

func TestRunLock_Exclusive(t *testing.T) {
	runsDir := t.TempDir()

	lock, err := services.AcquireRunLock(runsDir, "run-1", quietLogger())
	require.NoError(t, err)
	assert.True(t, services.IsRunLocked(runsDir, "run-1"))

	_, err = services.AcquireRunLock(runsDir, "run-1", quietLogger())
	requireCategory(t, err, lib.CategoryState)

	require.NoError(t, lock.Release())
	assert.False(t, services.IsRunLocked(runsDir, "run-1"))
	require.NoError(t, lock.Release(), "release is idempotent")
}

func TestIsRunLocked_NoLockFile(t *testing.T) {
	assert.False(t, services.IsRunLocked(t.TempDir(), "never-started"))
}

func TestWithRunLock_ReleasesOnError(t *testing.T) {
	runsDir := t.TempDir()
	boom := errors.New("boom")

	err := services.WithRunLock(runsDir, "run-1", quietLogger(), func() error {
		assert.True(t, services.IsRunLocked(runsDir, "run-1"))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, services.IsRunLocked(runsDir, "run-1"))
}

func TestRunLock_RecordsOwner(t *testing.T) {
	runsDir := t.TempDir()
	lock, err := services.AcquireRunLock(runsDir, "run-1", quietLogger())
	require.NoError(t, err)
	defer func() { _ = lock.Release() }()

	content, err := os.ReadFile(filepath.Join(services.GetRunDir(runsDir, "run-1"), ".lock"))
	require.NoError(t, err)
	assert.Contains(t, string(content), fmt.Sprintf("pid=%d\n", os.Getpid()))
}
