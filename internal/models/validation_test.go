package models_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/spittal/internal/models"
)

func modelSection() *models.UploadSection {
	return &models.UploadSection{
		DirectoryPath: "/data/model",
		DoTimestamps:  true,
		ModelKey:      "ModelKey",
		Files: map[models.ResourceKey]models.FileEntry{
			models.TypeAreaPerilDict.Key():          {Filename: "areaperil.csv", ModuleSupplierID: 1},
			models.TypeEventDict.Key():              {Filename: "events.csv", ModuleSupplierID: 1},
			models.TypeVulnDict.Key():               {Filename: "vuln.csv", ModuleSupplierID: 1},
			models.TypeDamageBinDict.Key():          {Filename: "damagebin.csv", ModuleSupplierID: 1},
			models.TypeHazardIntensityBinDict.Key(): {Filename: "hazardbin.csv", ModuleSupplierID: 1},
			models.TypeHazFPVersion.Key():           {Filename: "footprint.csv", ModuleSupplierID: 1},
			models.TypeVulnVersion.Key():            {Filename: "vulnerability.csv", ModuleSupplierID: 1},
		},
	}
}

func validConfig() models.ProjectConfig {
	config := models.DefaultConfig()
	config.Meta.URL = "http://localhost:8000/oasis"
	config.Login = models.LoginConfig{User: "user", Password: "secret"}
	config.Model = modelSection()
	return config
}

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()
	var fieldErr *models.FieldError
	require.True(t, errors.As(err, &fieldErr), "expected FieldError, got %v", err)
	assert.Equal(t, field, fieldErr.Field)
}

func TestProjectConfig_Validate_Valid(t *testing.T) {
	config := validConfig()
	assert.NoError(t, config.Validate())
}

func TestProjectConfig_Validate_Meta(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.ProjectConfig)
		field  string
	}{
		{"missing url", func(c *models.ProjectConfig) { c.Meta.URL = "" }, "meta.url"},
		{"non-http url", func(c *models.ProjectConfig) { c.Meta.URL = "ftp://host/oasis" }, "meta.url"},
		{"url without host", func(c *models.ProjectConfig) { c.Meta.URL = "http:///oasis" }, "meta.url"},
		{"unknown log level", func(c *models.ProjectConfig) { c.Meta.LogLevel = "trace" }, "meta.log_level"},
		{"zero timeout", func(c *models.ProjectConfig) { c.Meta.TimeoutSeconds = 0 }, "meta.timeout_seconds"},
		{"missing user", func(c *models.ProjectConfig) { c.Login.User = "" }, "login.user"},
		{"user with slash", func(c *models.ProjectConfig) { c.Login.User = "a/b" }, "login.user"},
		{"missing password", func(c *models.ProjectConfig) { c.Login.Password = "" }, "login.password"},
		{"zero max attempts", func(c *models.ProjectConfig) { c.Polling.MaxAttempts = 0 }, "polling.max_attempts"},
		{"negative interval", func(c *models.ProjectConfig) { c.Polling.IntervalSeconds = -1 }, "polling.interval_seconds"},
		{"no sections", func(c *models.ProjectConfig) { c.Model = nil }, "config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)
			requireFieldError(t, config.Validate(), tt.field)
		})
	}
}

func TestProjectConfig_Validate_UploadSection(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		config := validConfig()
		config.Model.DirectoryPath = ""
		requireFieldError(t, config.Validate(), "model.directory_path")
	})

	t.Run("missing required file", func(t *testing.T) {
		config := validConfig()
		delete(config.Model.Files, models.TypeVulnVersion.Key())
		requireFieldError(t, config.Validate(), "model.version.vuln")
	})

	t.Run("file of another pipeline", func(t *testing.T) {
		config := validConfig()
		config.Model.Files[models.TypeExposureDict.Key()] = models.FileEntry{Filename: "exposure.csv", ModuleSupplierID: 1}
		requireFieldError(t, config.Validate(), "model.dict.exposure")
	})

	t.Run("missing module supplier id", func(t *testing.T) {
		config := validConfig()
		config.Model.Files[models.TypeEventDict.Key()] = models.FileEntry{Filename: "events.csv"}
		requireFieldError(t, config.Validate(), "model.dict.event.module_supplier_id")
	})

	t.Run("missing model key", func(t *testing.T) {
		config := validConfig()
		config.Model.ModelKey = ""
		requireFieldError(t, config.Validate(), "model.model_key")
	})
}

func TestBenchmarkConfig_Validate(t *testing.T) {
	b := models.BenchmarkConfig{Name: "bench", ChunkSize: 10, MinChunk: 1, MaxChunk: 5}
	assert.NoError(t, b.Validate())

	b.MinChunk = 6
	requireFieldError(t, b.Validate(), "benchmark.min_chunk")

	b = models.BenchmarkConfig{ChunkSize: 10, MinChunk: 1, MaxChunk: 5}
	requireFieldError(t, b.Validate(), "benchmark.name")
}

func TestGULConfig_Validate(t *testing.T) {
	g := models.DefaultGULConfig()
	requireFieldError(t, g.Validate(), "gul.name")

	g.Name = "gul"
	assert.NoError(t, g.Validate())

	g.RandomVersionID = 0
	requireFieldError(t, g.Validate(), "gul.random_version_id")
}

func TestPubGULConfig_Validate(t *testing.T) {
	p := models.PubGULConfig{Name: "pub", Filename: "gul.csv", ModuleSupplierID: 1}
	assert.NoError(t, p.Validate())

	p.ModuleSupplierID = 0
	requireFieldError(t, p.Validate(), "pubgul.module_supplier_id")
}

func TestRunManifest_Validate(t *testing.T) {
	m := models.NewRunManifest("run-1", "http://h/oasis", "user", []models.PipelineName{models.PipelineModel})
	assert.NoError(t, m.Validate())

	m.Registries["bogus"] = map[string]models.ResourceRecord{}
	assert.Error(t, m.Validate())

	m = models.NewRunManifest("", "http://h/oasis", "user", nil)
	assert.Error(t, m.Validate())
}

func TestRunManifest_Finish(t *testing.T) {
	reg := models.NewRegistry("model")
	require.NoError(t, reg.Put(models.TypeEventDict.Key(), models.Adopt(3)))
	registries := map[models.PipelineName]*models.Registry{models.PipelineModel: reg}

	m := models.NewRunManifest("run-1", "http://h/oasis", "user", []models.PipelineName{models.PipelineModel})
	m.Finish(registries, nil)
	assert.Equal(t, models.RunStatusCompleted, m.Status)
	require.NotNil(t, m.FinishedAt)
	assert.Equal(t, int64(3), *m.Registries["model"]["dict_event"].CreationTaskID)

	failed := models.NewRunManifest("run-2", "http://h/oasis", "user", nil)
	failed.Finish(registries, errors.New("job 7 failed"))
	assert.Equal(t, models.RunStatusFailed, failed.Status)
	assert.Equal(t, "job 7 failed", failed.Error)
}
