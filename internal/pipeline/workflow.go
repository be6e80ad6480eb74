package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/trobanga/spittal/internal/lib"
	"github.com/trobanga/spittal/internal/models"
	"github.com/trobanga/spittal/internal/services"
)

// Result is what a workflow run produced, including on failure
type Result struct {
	Registries map[models.PipelineName]*models.Registry
	Outcome    models.RunStatus
	Published  string // local path of the downloaded GUL output
	Err        error
}

// Workflow runs the configured pipelines in fixed order, one registry each
type Workflow struct {
	client   *services.SessionClient
	config   *models.ProjectConfig
	logger   *lib.Logger
	sleep    func(time.Duration)
	progress io.Writer
}

// NewWorkflow creates a workflow over an authenticated client
func NewWorkflow(client *services.SessionClient, config *models.ProjectConfig, logger *lib.Logger) *Workflow {
	return &Workflow{
		client: client,
		config: config,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// WithSleep replaces the wait between job status checks
func (w *Workflow) WithSleep(sleep func(time.Duration)) *Workflow {
	w.sleep = sleep
	return w
}

// WithProgress enables upload bars and job spinners on out
func (w *Workflow) WithProgress(out io.Writer) *Workflow {
	w.progress = out
	return w
}

// Run executes the selected sections in pipeline order. Registries of
// completed and failed pipelines are always returned for diagnosis.
func (w *Workflow) Run(sections []models.PipelineName) *Result {
	result := &Result{Registries: make(map[models.PipelineName]*models.Registry)}

	selected := make(map[models.PipelineName]bool, len(sections))
	for _, s := range sections {
		selected[s] = true
	}

	for _, name := range models.PipelineOrder {
		if !selected[name] {
			continue
		}
		err := lib.LogOperation(w.logger, fmt.Sprintf("%s pipeline", name), func() error {
			return w.runPipeline(name, result)
		})
		if err != nil {
			result.Outcome = models.RunStatusFailed
			result.Err = err
			return result
		}
	}

	result.Outcome = models.RunStatusCompleted
	return result
}

func (w *Workflow) runPipeline(name models.PipelineName, result *Result) error {
	p, ok := models.PipelineFor(name)
	if !ok {
		return fmt.Errorf("unknown pipeline %s", name)
	}

	var upstream []models.RegistryView
	for _, up := range p.Upstream {
		reg, ok := result.Registries[up]
		if !ok {
			return lib.ErrSectionPrerequisiteNotMet(name, up)
		}
		upstream = append(upstream, reg)
	}

	registry := models.NewRegistry(string(name))
	result.Registries[name] = registry

	stager := services.NewStager(w.client, registry, w.config.Login.User, w.logger)
	poller := services.NewPoller(w.client, registry, services.NewPollConfig(w.config.Polling), w.logger).WithSleep(w.sleep)
	if w.progress != nil {
		stager.WithProgress(w.progress)
		poller.WithProgress(w.progress)
	}
	dispatcher := services.NewDispatcher(w.client, registry, w.createOptions(name), w.logger, upstream...)
	executor := NewExecutor(name, registry, stager, dispatcher, poller, w.logger)

	switch name {
	case models.PipelineGUL:
		// The random number table version already exists on the backend
		key := models.TypeRandomNumberTableVersion.Key()
		if err := registry.Put(key, models.Adopt(w.config.GUL.RandomVersionID)); err != nil {
			return err
		}
	case models.PipelinePubGUL:
		return w.runPublish(p, registry, stager, poller, executor, result)
	}

	return executor.Run(p, w.sources(name))
}

// runPublish creates, publishes and downloads the GUL output:
// allocate download -> create PubGUL -> update download -> queue+await ->
// saveFilePubGUL job -> await -> download
func (w *Workflow) runPublish(p models.Pipeline, registry *models.Registry, stager *services.Stager, poller *services.Poller, executor *Executor, result *Result) error {
	cfg := w.config.PubGUL
	key := models.TypePubGUL.Key()

	downloadID, err := stager.AllocateDownload(key, cfg.Filename, cfg.ModuleSupplierID)
	if err != nil {
		return &lib.StageError{Pipeline: p.Name, Key: key, Err: err}
	}

	executor.AfterCreate = func(created models.ResourceKey, _ int64) error {
		if created != key {
			return nil
		}
		_, err := stager.UpdateDownload(key, downloadID, cfg.Filename, cfg.ModuleSupplierID, cfg.Filename)
		return err
	}
	if err := executor.Run(p, nil); err != nil {
		return err
	}

	record, err := registry.Get(key)
	if err != nil {
		return err
	}
	jobID, _, err := poller.Submit("saveFilePubGUL", w.config.Polling.SysConfig, *record.CreationTaskID)
	if err != nil {
		return &lib.StageError{Pipeline: p.Name, Key: key, Err: fmt.Errorf("save published GUL: %w", err)}
	}
	w.logger.Info("Published GUL save queued", "task_id", *record.CreationTaskID, "job_id", jobID)

	if _, err := poller.AwaitCompletion(jobID); err != nil {
		return &lib.StageError{Pipeline: p.Name, Key: key, Err: err}
	}

	if cfg.OutputPath == "" {
		return nil
	}
	if _, err := stager.Download(downloadID, cfg.OutputPath); err != nil {
		return &lib.StageError{Pipeline: p.Name, Key: key, Err: err}
	}
	result.Published = cfg.OutputPath
	return nil
}

func (w *Workflow) createOptions(name models.PipelineName) services.CreateOptions {
	opts := services.CreateOptions{PubUser: w.config.Login.User}
	switch name {
	case models.PipelineModel:
		opts.ModelKey = w.config.Model.ModelKey
	case models.PipelineExposure:
		opts.ModelKey = w.config.Exposure.ModelKey
	case models.PipelineBenchmark:
		opts.Benchmark = *w.config.Benchmark
	case models.PipelineGUL:
		opts.GUL = *w.config.GUL
	case models.PipelinePubGUL:
		opts.PubGUL = *w.config.PubGUL
	}
	return opts
}

func (w *Workflow) sources(name models.PipelineName) map[models.ResourceKey]FileSource {
	var section *models.UploadSection
	switch name {
	case models.PipelineModel:
		section = w.config.Model
	case models.PipelineExposure:
		section = w.config.Exposure
	}
	if section == nil {
		return nil
	}

	out := make(map[models.ResourceKey]FileSource, len(section.Files))
	for key, entry := range section.Files {
		out[key] = FileSource{
			LocalPath:        services.LocalPath(section, key),
			ModuleSupplierID: entry.ModuleSupplierID,
			Timestamp:        section.DoTimestamps,
		}
	}
	return out
}
