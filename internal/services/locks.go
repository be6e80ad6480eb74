package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/trobanga/spittal/internal/lib"
)

// RunLock is an exclusive file lock on one run directory.
// It is held for the lifetime of `spittal run` so that `runs list` can tell
// live runs from interrupted ones.
type RunLock struct {
	runID    string
	lockFile *os.File
	lockPath string
	logger   *lib.Logger
}

func runLockPath(runsDir string, runID string) string {
	return filepath.Join(GetRunDir(runsDir, runID), ".lock")
}

// AcquireRunLock takes the lock of a run without blocking.
// Returns ErrRunLocked if another process holds it; the operating system
// drops the lock when the process exits.
func AcquireRunLock(runsDir string, runID string, logger *lib.Logger) (*RunLock, error) {
	runDir := GetRunDir(runsDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	lockPath := runLockPath(runsDir, runID)
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	held, err := tryLock(lockFile)
	if held || err != nil {
		_ = lockFile.Close()
		if held {
			return nil, lib.ErrRunLocked(runDir)
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	lock := &RunLock{
		runID:    runID,
		lockFile: lockFile,
		lockPath: lockPath,
		logger:   logger,
	}
	if err := lock.writeLockInfo(); err != nil {
		logger.Warn("Failed to write lock info", "run_id", runID, "error", err)
	}

	logger.Debug("Acquired run lock", "run_id", runID, "pid", os.Getpid())
	return lock, nil
}

// Release unlocks and closes the lock file. Calling it twice is a no-op.
func (rl *RunLock) Release() error {
	if rl.lockFile == nil {
		return nil
	}

	if err := unlock(rl.lockFile); err != nil {
		rl.logger.Warn("Failed to release lock", "run_id", rl.runID, "error", err)
	}
	if err := rl.lockFile.Close(); err != nil {
		rl.logger.Warn("Failed to close lock file", "run_id", rl.runID, "error", err)
		return err
	}

	rl.logger.Debug("Released run lock", "run_id", rl.runID, "pid", os.Getpid())
	rl.lockFile = nil
	return nil
}

// IsRunLocked reports whether some process holds the lock of a run.
// A missing or unreadable lock file counts as unlocked.
func IsRunLocked(runsDir string, runID string) bool {
	lockFile, err := os.Open(runLockPath(runsDir, runID))
	if err != nil {
		return false
	}
	defer func() {
		_ = lockFile.Close()
	}()

	held, err := tryLock(lockFile)
	if held || err != nil {
		return held
	}
	_ = unlock(lockFile)
	return false
}

// WithRunLock executes fn while holding the lock of a run directory
func WithRunLock(runsDir string, runID string, logger *lib.Logger, fn func() error) error {
	lock, err := AcquireRunLock(runsDir, runID, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Error("Failed to release run lock", "error", err)
		}
	}()

	return fn()
}

// writeLockInfo writes debug information to the lock file
func (rl *RunLock) writeLockInfo() error {
	lockInfo := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	_ = rl.lockFile.Truncate(0)
	_, _ = rl.lockFile.Seek(0, 0)
	_, _ = rl.lockFile.WriteString(lockInfo)
	return rl.lockFile.Sync()
}
