package services

import (
	"fmt"
	"io"
	"time"

	"github.com/trobanga/spittal/internal/lib"
	"github.com/trobanga/spittal/internal/models"
	"github.com/trobanga/spittal/internal/ui"
)

// PollConfig holds the parameters of job submission and status polling
type PollConfig struct {
	Interval     time.Duration
	InitialDelay time.Duration
	MaxAttempts  int
	ConfigID     int // first segment of /statusAsync
	SysConfig    int // first segment of /doTask*
}

// NewPollConfig creates polling configuration from config settings
func NewPollConfig(p models.PollingConfig) PollConfig {
	return PollConfig{
		Interval:     p.Interval(),
		InitialDelay: p.InitialDelay(),
		MaxAttempts:  p.MaxAttempts,
		ConfigID:     p.ConfigID,
		SysConfig:    p.SysConfig,
	}
}

// DefaultPollConfig returns the documented polling defaults
func DefaultPollConfig() PollConfig {
	return NewPollConfig(models.DefaultPollingConfig())
}

// MaxWait is the longest AwaitCompletion can block, excluding request time
func (pc PollConfig) MaxWait() time.Duration {
	return pc.InitialDelay + time.Duration(pc.MaxAttempts)*pc.Interval
}

// Poller queues creation tasks as backend jobs and blocks until they finish
type Poller struct {
	client   *SessionClient
	registry *models.Registry
	config   PollConfig
	logger   *lib.Logger
	sleep    func(time.Duration)
	awaited  map[int64]bool
	queued   map[models.ResourceKey]int64
	progress io.Writer
}

// NewPoller creates a poller; registry may be nil when only AwaitCompletion is used
func NewPoller(client *SessionClient, registry *models.Registry, config PollConfig, logger *lib.Logger) *Poller {
	return &Poller{
		client:   client,
		registry: registry,
		config:   config,
		logger:   logger,
		sleep:    time.Sleep,
		awaited:  make(map[int64]bool),
		queued:   make(map[models.ResourceKey]int64),
	}
}

// WithSleep replaces the function used to wait between status checks
func (p *Poller) WithSleep(sleep func(time.Duration)) *Poller {
	p.sleep = sleep
	return p
}

// WithProgress shows a spinner on out while a job is awaited
func (p *Poller) WithProgress(out io.Writer) *Poller {
	p.progress = out
	return p
}

// Queue submits the creation task of key as a job. A key is queued at most once.
func (p *Poller) Queue(key models.ResourceKey) (int64, error) {
	t, ok := models.TypeOf(key)
	if !ok || !t.IsCreatable() {
		return 0, fmt.Errorf("%s cannot be queued", key)
	}

	record, err := p.registry.Get(key)
	if err != nil {
		return 0, &lib.DependencyNotReadyError{Key: key, Dependency: key, Reason: "is not registered"}
	}
	if !record.IsCreated() {
		return 0, &lib.DependencyNotReadyError{Key: key, Dependency: key, Reason: "has no creation task id"}
	}
	if record.IsQueued() {
		return 0, &lib.AlreadyQueuedError{Key: key, JobID: *record.JobID}
	}
	if jobID, ok := p.queued[key]; ok {
		return 0, &lib.AlreadyQueuedError{Key: key, JobID: jobID}
	}

	taskID := *record.CreationTaskID
	jobID, payload, err := p.Submit("doTask"+t.TypeName(), p.config.SysConfig, taskID)
	if err != nil {
		return 0, fmt.Errorf("queue %s: %w", key, err)
	}

	if err := p.registry.Update(key, func(r models.ResourceRecord) (models.ResourceRecord, error) {
		return models.SetQueued(r, jobID, payload)
	}); err != nil {
		return 0, err
	}
	p.queued[key] = jobID

	lib.LogJobQueued(p.logger, key.String(), taskID, jobID)
	return jobID, nil
}

// Submit posts to /endpoint/segments.../ and returns the JobId of the reply
func (p *Poller) Submit(endpoint string, segments ...interface{}) (int64, string, error) {
	resp, err := p.client.Send(apiPath(endpoint, segments...), nil, nil)
	if err != nil {
		return 0, "", err
	}
	jobID, err := resp.Int64("JobId")
	if err != nil {
		return 0, "", err
	}
	return jobID, resp.Raw(), nil
}

// FetchStatus performs one status check and returns the status and raw reply
func (p *Poller) FetchStatus(jobID int64) (string, string, error) {
	resp, err := p.client.Send(apiPath("statusAsync", p.config.ConfigID, jobID), nil, nil)
	if err != nil {
		return "", "", err
	}
	status, err := resp.String("status")
	if err != nil {
		return "", resp.Raw(), err
	}
	return status, resp.Raw(), nil
}

// Await blocks until the queued job of key is terminal and records the outcome
func (p *Poller) Await(key models.ResourceKey) (models.Outcome, error) {
	record, err := p.registry.Get(key)
	if err != nil {
		return "", err
	}
	if !record.IsQueued() {
		return "", fmt.Errorf("%s has not been queued", key)
	}
	jobID := *record.JobID

	if err := p.registry.Update(key, func(r models.ResourceRecord) (models.ResourceRecord, error) {
		return models.TransitionJob(r, models.JobStatePolling, "")
	}); err != nil {
		return "", err
	}

	outcome, payload, awaitErr := p.await(key, jobID)
	if outcome == "" {
		return "", awaitErr
	}

	if err := p.registry.Update(key, func(r models.ResourceRecord) (models.ResourceRecord, error) {
		return models.TransitionJob(r, outcome.State(), payload)
	}); err != nil {
		return outcome, err
	}
	return outcome, awaitErr
}

// AwaitCompletion blocks until jobID is terminal. A job id is awaited at most once.
func (p *Poller) AwaitCompletion(jobID int64) (models.Outcome, error) {
	outcome, _, err := p.await(models.ResourceKey{}, jobID)
	return outcome, err
}

// await runs the status loop. The returned outcome is empty when no terminal
// state was reached because a request failed.
func (p *Poller) await(key models.ResourceKey, jobID int64) (models.Outcome, string, error) {
	if p.awaited[jobID] {
		return "", "", &lib.AlreadyAwaitedError{JobID: jobID}
	}
	p.awaited[jobID] = true

	label := fmt.Sprintf("job %d", jobID)
	if key != (models.ResourceKey{}) {
		label = fmt.Sprintf("%s (job %d)", key, jobID)
	}

	var spinner *ui.Spinner
	if p.progress != nil {
		spinner = ui.NewSpinnerWithWriter("Waiting for "+label, p.progress)
		spinner.Start()
	}
	finish := func(ok bool) {
		if spinner != nil {
			spinner.Stop(ok)
		}
	}

	if p.config.InitialDelay > 0 {
		p.sleep(p.config.InitialDelay)
	}

	var payload string
	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		status, raw, err := p.FetchStatus(jobID)
		if err != nil {
			finish(false)
			return "", raw, fmt.Errorf("status of %s: %w", label, err)
		}
		payload = raw
		p.logger.Debug("Job status", "job_id", jobID, "attempt", attempt, "status", status)

		switch status {
		case models.StatusDone:
			finish(true)
			p.logger.Info("Job done", "job_id", jobID, "attempts", attempt)
			return models.OutcomeDone, payload, nil
		case models.StatusFailed:
			finish(false)
			p.logger.Error("Job failed", "job_id", jobID, "payload", payload)
			return models.OutcomeFailed, payload, &lib.JobFailedError{Key: key, JobID: jobID, Payload: payload}
		}

		if spinner != nil {
			spinner.UpdateMessage(fmt.Sprintf("Waiting for %s: %s, check %d/%d", label, status, attempt, p.config.MaxAttempts))
		}
		p.sleep(p.config.Interval)
	}

	finish(false)
	p.logger.Error("Job timed out", "job_id", jobID, "attempts", p.config.MaxAttempts)
	return models.OutcomeTimedOut, payload, &lib.JobTimeoutError{Key: key, JobID: jobID, Attempts: p.config.MaxAttempts, Payload: payload}
}
