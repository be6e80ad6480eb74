package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/trobanga/spittal/internal/lib"
	"github.com/trobanga/spittal/internal/models"
)

const (
	ManifestFileName = "manifest.json"
)

// NewRunID returns a fresh identifier for a run directory
func NewRunID() string {
	return uuid.New().String()
}

// GetRunDir returns the directory path for a specific run
func GetRunDir(runsBaseDir string, runID string) string {
	return filepath.Join(runsBaseDir, runID)
}

// GetManifestPath returns the full path to a run's manifest file
func GetManifestPath(runsBaseDir string, runID string) string {
	return filepath.Join(GetRunDir(runsBaseDir, runID), ManifestFileName)
}

// LoadManifest reads a run's manifest from disk for display
func LoadManifest(runsBaseDir string, runID string) (*models.RunManifest, error) {
	data, err := os.ReadFile(GetManifestPath(runsBaseDir, runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lib.ErrRunNotFound(runID)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest models.RunManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, lib.ErrCorruptedManifest(runID, err)
	}

	if err := manifest.Validate(); err != nil {
		return nil, lib.ErrCorruptedManifest(runID, err)
	}

	return &manifest, nil
}

// SaveManifest writes a run's manifest to disk with atomic write
// Uses temp file + rename so a reader never sees a half-written manifest
func SaveManifest(runsBaseDir string, manifest *models.RunManifest) error {
	if err := manifest.Validate(); err != nil {
		return fmt.Errorf("cannot save invalid manifest: %w", err)
	}

	runDir := GetRunDir(runsBaseDir, manifest.RunID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	tempFile := filepath.Join(runDir, fmt.Sprintf(".manifest.tmp.%s", uuid.New().String()))
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp manifest: %w", err)
	}

	if err := os.Rename(tempFile, GetManifestPath(runsBaseDir, manifest.RunID)); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to save manifest: %w", err)
	}

	return nil
}

// ListRuns loads every manifest under the runs directory, newest first
// Directories without a readable manifest are skipped
func ListRuns(runsBaseDir string) ([]*models.RunManifest, error) {
	entries, err := os.ReadDir(runsBaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.RunManifest{}, nil
		}
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	runs := []*models.RunManifest{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifest, err := LoadManifest(runsBaseDir, entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, manifest)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	return runs, nil
}

// EffectiveStatus reports a manifest still marked running whose process has
// gone (no lock held) as interrupted
func EffectiveStatus(runsBaseDir string, manifest *models.RunManifest) string {
	if manifest.Status == models.RunStatusRunning && !IsRunLocked(runsBaseDir, manifest.RunID) {
		return "interrupted"
	}
	return string(manifest.Status)
}
