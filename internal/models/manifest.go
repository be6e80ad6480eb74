package models

import "time"

// RunStatus is the overall state of one orchestrator run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IsValidRunStatus checks if the run status is recognized
func IsValidRunStatus(s RunStatus) bool {
	switch s {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return true
	default:
		return false
	}
}

// RunManifest is a write-only diagnostic snapshot of a run.
// It is never read back as input to another run.
type RunManifest struct {
	RunID      string                               `json:"run_id" yaml:"run_id"`
	BackendURL string                               `json:"backend_url" yaml:"backend_url"`
	User       string                               `json:"user" yaml:"user"`
	Sections   []PipelineName                       `json:"sections" yaml:"sections"`
	Status     RunStatus                            `json:"status" yaml:"status"`
	StartedAt  time.Time                            `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time                           `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Registries map[string]map[string]ResourceRecord `json:"registries" yaml:"registries"`
	Published  string                               `json:"published,omitempty" yaml:"published,omitempty"`
	Error      string                               `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewRunManifest starts a manifest for a run in the running state
func NewRunManifest(runID, backendURL, user string, sections []PipelineName) *RunManifest {
	return &RunManifest{
		RunID:      runID,
		BackendURL: backendURL,
		User:       user,
		Sections:   sections,
		Status:     RunStatusRunning,
		StartedAt:  time.Now(),
		Registries: make(map[string]map[string]ResourceRecord),
	}
}

// Finish records the registries and final status of a run
func (m *RunManifest) Finish(registries map[PipelineName]*Registry, runErr error) {
	now := time.Now()
	m.FinishedAt = &now
	for name, reg := range registries {
		m.Registries[string(name)] = reg.Snapshot()
	}
	if runErr != nil {
		m.Status = RunStatusFailed
		m.Error = runErr.Error()
		return
	}
	m.Status = RunStatusCompleted
}

// Duration returns elapsed run time, up to now for unfinished runs
func (m *RunManifest) Duration() time.Duration {
	if m.FinishedAt != nil {
		return m.FinishedAt.Sub(m.StartedAt)
	}
	return time.Since(m.StartedAt)
}
