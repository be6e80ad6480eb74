package services_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/spittal/internal/lib"
	"github.com/trobanga/spittal/internal/models"
	"github.com/trobanga/spittal/internal/services"
)

func finishedManifest(t *testing.T, runID string) *models.RunManifest {
	t.Helper()
	reg := models.NewRegistry("model")
	put(t, reg, models.TypeEventDict, created(staged(1, 3, 4), 102))

	m := models.NewRunManifest(runID, "http://localhost:8000/oasis", "user", []models.PipelineName{models.PipelineModel})
	m.Finish(map[models.PipelineName]*models.Registry{models.PipelineModel: reg}, nil)
	return m
}

func TestManifest_SaveAndLoad(t *testing.T) {
	runsDir := t.TempDir()
	manifest := finishedManifest(t, "run-1")

	require.NoError(t, services.SaveManifest(runsDir, manifest))

	loaded, err := services.LoadManifest(runsDir, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, loaded.Status)
	assert.Equal(t, []models.PipelineName{models.PipelineModel}, loaded.Sections)
	record := loaded.Registries["model"]["dict_event"]
	assert.Equal(t, int64(102), *record.CreationTaskID)
	assert.Equal(t, int64(3), *record.UploadHandle)

	entries, err := os.ReadDir(services.GetRunDir(runsDir, "run-1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only manifest.json remains")
}

func TestManifest_SaveRejectsInvalid(t *testing.T) {
	manifest := finishedManifest(t, "")

	err := services.SaveManifest(t.TempDir(), manifest)

	assert.Error(t, err)
}

func TestManifest_LoadMissing(t *testing.T) {
	_, err := services.LoadManifest(t.TempDir(), "nope")

	var spittalErr *lib.SpittalError
	require.True(t, errors.As(err, &spittalErr))
	assert.Contains(t, spittalErr.Message, "nope")
}

func TestManifest_LoadCorrupted(t *testing.T) {
	runsDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(runsDir, "bad"), 0755))
	writeFile(t, filepath.Join(runsDir, "bad"), services.ManifestFileName, "{not json")

	_, err := services.LoadManifest(runsDir, "bad")

	requireCategory(t, err, lib.CategoryState)
}

func TestListRuns_NewestFirst(t *testing.T) {
	runsDir := t.TempDir()

	older := finishedManifest(t, "older")
	older.StartedAt = time.Now().Add(-time.Hour)
	newer := finishedManifest(t, "newer")
	require.NoError(t, services.SaveManifest(runsDir, older))
	require.NoError(t, services.SaveManifest(runsDir, newer))
	require.NoError(t, os.MkdirAll(filepath.Join(runsDir, "empty"), 0755))

	runs, err := services.ListRuns(runsDir)
	require.NoError(t, err)
	require.Len(t, runs, 2, "directories without a manifest are skipped")
	assert.Equal(t, "newer", runs[0].RunID)
	assert.Equal(t, "older", runs[1].RunID)
}

func TestListRuns_MissingDirectory(t *testing.T) {
	runs, err := services.ListRuns(filepath.Join(t.TempDir(), "absent"))

	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestEffectiveStatus(t *testing.T) {
	runsDir := t.TempDir()
	running := models.NewRunManifest("live", "http://h/oasis", "user", nil)
	require.NoError(t, services.SaveManifest(runsDir, running))

	assert.Equal(t, "interrupted", services.EffectiveStatus(runsDir, running))

	err := services.WithRunLock(runsDir, "live", quietLogger(), func() error {
		assert.Equal(t, "running", services.EffectiveStatus(runsDir, running))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "completed", services.EffectiveStatus(runsDir, finishedManifest(t, "done")))
}
