package pipeline

import (
	"fmt"
	"time"

	"github.com/trobanga/spittal/internal/lib"
	"github.com/trobanga/spittal/internal/models"
	"github.com/trobanga/spittal/internal/services"
)

// FileSource is the local file behind one file-backed resource
type FileSource struct {
	LocalPath        string
	ModuleSupplierID int
	Timestamp        bool
}

// Executor runs one declared pipeline against one registry
type Executor struct {
	name       models.PipelineName
	registry   *models.Registry
	stager     *services.Stager
	dispatcher *services.Dispatcher
	poller     *services.Poller
	logger     *lib.Logger

	// AfterCreate runs between the creation call and queueing of a stage
	AfterCreate func(key models.ResourceKey, taskID int64) error
}

// NewExecutor wires the collaborators of one pipeline run
func NewExecutor(name models.PipelineName, registry *models.Registry, stager *services.Stager, dispatcher *services.Dispatcher, poller *services.Poller, logger *lib.Logger) *Executor {
	return &Executor{
		name:       name,
		registry:   registry,
		stager:     stager,
		dispatcher: dispatcher,
		poller:     poller,
		logger:     logger,
	}
}

// Run stages the attachments, then takes every stage through
// stage -> create -> queue -> await, strictly in declared order.
// The first error aborts the pipeline and is returned as a StageError.
func (e *Executor) Run(p models.Pipeline, sources map[models.ResourceKey]FileSource) error {
	for _, key := range p.Attachments {
		if err := e.stageIfNeeded(key, sources); err != nil {
			return e.fail(key, err)
		}
	}

	for _, key := range p.Stages {
		start := time.Now()
		lib.LogStageStart(e.logger, string(e.name), key.String())

		taskID, jobID, err := e.runStage(key, sources)
		if err != nil {
			return e.fail(key, err)
		}

		lib.LogStageComplete(e.logger, string(e.name), key.String(), taskID, jobID, time.Since(start))
	}
	return nil
}

func (e *Executor) runStage(key models.ResourceKey, sources map[models.ResourceKey]FileSource) (int64, int64, error) {
	if err := e.stageIfNeeded(key, sources); err != nil {
		return 0, 0, err
	}

	record, err := e.registry.Get(key)
	var taskID int64
	if err == nil && record.IsCreated() {
		taskID = *record.CreationTaskID
		e.logger.Debug("Using existing backend object", "resource", key.String(), "task_id", taskID)
	} else {
		if taskID, err = e.dispatcher.Create(key); err != nil {
			return 0, 0, err
		}
		if e.AfterCreate != nil {
			if err := e.AfterCreate(key, taskID); err != nil {
				return taskID, 0, err
			}
		}
	}

	jobID, err := e.poller.Queue(key)
	if err != nil {
		return taskID, 0, err
	}

	outcome, err := e.poller.Await(key)
	if err != nil {
		return taskID, jobID, err
	}
	if outcome != models.OutcomeDone {
		return taskID, jobID, fmt.Errorf("job %d ended %s", jobID, outcome)
	}
	return taskID, jobID, nil
}

// stageIfNeeded uploads file-backed resources that are neither staged nor
// already created on the backend
func (e *Executor) stageIfNeeded(key models.ResourceKey, sources map[models.ResourceKey]FileSource) error {
	t, ok := models.TypeOf(key)
	if !ok {
		return fmt.Errorf("unknown resource %s", key)
	}
	if !t.IsFileBacked() {
		return nil
	}

	if record, err := e.registry.Get(key); err == nil && (record.IsStaged() || record.IsCreated()) {
		return nil
	}

	src, ok := sources[key]
	if !ok {
		return fmt.Errorf("no local file configured for %s", key)
	}
	_, err := e.stager.Stage(key, src.LocalPath, src.ModuleSupplierID, src.Timestamp)
	return err
}

func (e *Executor) fail(key models.ResourceKey, err error) error {
	lib.LogStageFailed(e.logger, string(e.name), key.String(), err)
	return &lib.StageError{Pipeline: e.name, Key: key, Err: err}
}
