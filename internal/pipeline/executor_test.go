package pipeline_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/spittal/internal/lib"
	"github.com/trobanga/spittal/internal/models"
	"github.com/trobanga/spittal/internal/pipeline"
	"github.com/trobanga/spittal/internal/services"
	"github.com/trobanga/spittal/internal/testutil"
)

func modelExecutor(t *testing.T, backend *testutil.FakeBackend) (*pipeline.Executor, *models.Registry, map[models.ResourceKey]pipeline.FileSource) {
	t.Helper()
	config := fullConfig(t, backend)
	client := services.NewSessionClient(backend.URL(), 0, quietLogger())
	_, err := client.Authenticate(backend.User, backend.Password)
	require.NoError(t, err)

	registry := models.NewRegistry("model")
	stager := services.NewStager(client, registry, "user", quietLogger())
	poller := services.NewPoller(client, registry, services.DefaultPollConfig(), quietLogger()).WithSleep(noSleep)
	dispatcher := services.NewDispatcher(client, registry, services.CreateOptions{PubUser: "user", ModelKey: "ModelKey"}, quietLogger())

	sources := make(map[models.ResourceKey]pipeline.FileSource)
	for key, entry := range config.Model.Files {
		sources[key] = pipeline.FileSource{
			LocalPath:        services.LocalPath(config.Model, key),
			ModuleSupplierID: entry.ModuleSupplierID,
		}
	}
	return pipeline.NewExecutor(models.PipelineModel, registry, stager, dispatcher, poller, quietLogger()), registry, sources
}

func TestExecutor_RunsEveryStage(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	executor, registry, sources := modelExecutor(t, backend)

	require.NoError(t, executor.Run(models.ModelPipeline(), sources))

	for _, key := range models.ModelPipeline().Stages {
		record, err := registry.Get(key)
		require.NoError(t, err, key.String())
		assert.True(t, record.IsStaged(), key.String())
		assert.True(t, record.IsCreated(), key.String())
		assert.Equal(t, models.JobStateDone, record.JobState, key.String())
	}
	assert.Equal(t, 7, backend.Count("/statusAsync/"))
}

func TestExecutor_CreationFailureStopsPipeline(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.RejectCreate["VulnDict"] = true
	executor, registry, sources := modelExecutor(t, backend)

	err := executor.Run(models.ModelPipeline(), sources)

	var stageErr *lib.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, models.PipelineModel, stageErr.Pipeline)
	assert.Equal(t, models.TypeVulnDict.Key(), stageErr.Key)

	event, err := registry.Get(models.TypeEventDict.Key())
	require.NoError(t, err)
	assert.Equal(t, models.JobStateDone, event.JobState)

	vuln, err := registry.Get(models.TypeVulnDict.Key())
	require.NoError(t, err)
	assert.True(t, vuln.IsStaged())
	assert.False(t, vuln.IsCreated())

	assert.False(t, registry.Has(models.TypeDamageBinDict.Key()))
	assert.Equal(t, 0, backend.Count("/createFileUpload/user/damagebin.csv/"))
	assert.Equal(t, 0, backend.Count("/doTaskVulnDict/"))
}

func TestExecutor_FailedJobStopsPipeline(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.FailTask["EventDict"] = true
	executor, _, sources := modelExecutor(t, backend)

	err := executor.Run(models.ModelPipeline(), sources)

	var failed *lib.JobFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, models.TypeEventDict.Key(), failed.Key)
	assert.Equal(t, 0, backend.Count("/createVulnDict/"))
}

func TestExecutor_MissingSource(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	executor, _, sources := modelExecutor(t, backend)
	delete(sources, models.TypeDamageBinDict.Key())

	err := executor.Run(models.ModelPipeline(), sources)

	var stageErr *lib.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, models.TypeDamageBinDict.Key(), stageErr.Key)
	assert.Contains(t, err.Error(), "no local file configured")
}

func TestExecutor_AfterCreateRunsBeforeQueue(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	executor, _, sources := modelExecutor(t, backend)

	var seen []string
	executor.AfterCreate = func(key models.ResourceKey, taskID int64) error {
		seen = append(seen, key.String())
		assert.Equal(t, 0, backend.Count("/doTask"+typeName(key)+"/"), "not yet queued")
		if key == models.TypeEventDict.Key() {
			return errors.New("hook failed")
		}
		return nil
	}

	err := executor.Run(models.ModelPipeline(), sources)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "hook failed")
	assert.Equal(t, []string{"dict_areaperil", "dict_event"}, seen)
	assert.Equal(t, 0, backend.Count("/doTaskEventDict/"))
}

func typeName(key models.ResourceKey) string {
	t, _ := models.TypeOf(key)
	return t.TypeName()
}
