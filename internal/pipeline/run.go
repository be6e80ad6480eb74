package pipeline

import (
	"fmt"

	"github.com/trobanga/spittal/internal/models"
	"github.com/trobanga/spittal/internal/services"
)

// StartRun creates a run directory and writes its initial manifest
// Returns the manifest in the running state
func StartRun(runsDir string, config *models.ProjectConfig, sections []models.PipelineName) (*models.RunManifest, error) {
	manifest := models.NewRunManifest(services.NewRunID(), config.Meta.URL, config.Login.User, sections)

	if err := services.SaveManifest(runsDir, manifest); err != nil {
		return nil, fmt.Errorf("failed to save initial manifest: %w", err)
	}

	return manifest, nil
}

// FinishRun records the workflow result in the manifest and saves it
// The manifest is saved for failed runs too, so every identifier produced
// before the failure stays inspectable
func FinishRun(runsDir string, manifest *models.RunManifest, result *Result) error {
	manifest.Finish(result.Registries, result.Err)
	manifest.Published = result.Published

	if err := services.SaveManifest(runsDir, manifest); err != nil {
		return fmt.Errorf("failed to save final manifest: %w", err)
	}
	return nil
}

// Summary is a per-pipeline count of resources by job state
type Summary struct {
	Pipeline models.PipelineName
	Total    int
	Done     int
	Failed   int
	Adopted  int // created before the run, never queued
	Pending  int
}

// Summarize counts the records of each registry in pipeline order
func Summarize(registries map[models.PipelineName]*models.Registry) []Summary {
	var out []Summary
	for _, name := range models.PipelineOrder {
		reg, ok := registries[name]
		if !ok {
			continue
		}
		s := Summary{Pipeline: name}
		for _, key := range reg.Keys() {
			rec, err := reg.Get(key)
			if err != nil {
				continue
			}
			s.Total++
			switch rec.JobState {
			case models.JobStateDone:
				s.Done++
			case models.JobStateFailed, models.JobStateTimedOut:
				s.Failed++
			case models.JobStateNone:
				if rec.IsCreated() && !rec.IsStaged() {
					s.Adopted++
				} else {
					s.Pending++
				}
			default:
				s.Pending++
			}
		}
		out = append(out, s)
	}
	return out
}
