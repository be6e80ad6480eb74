package services_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/spittal/internal/lib"
	"github.com/trobanga/spittal/internal/models"
	"github.com/trobanga/spittal/internal/services"
)

var modelFiles = map[string]string{
	"dict.areaperil":          "areaperil.csv",
	"dict.event":              "events.csv",
	"dict.vuln":               "vuln.csv",
	"dict.damagebin":          "damagebin.csv",
	"dict.hazardintensitybin": "hazardbin.csv",
	"version.hazfp":           "footprint.csv",
	"version.vuln":            "vulnerability.csv",
}

// modelDir creates a directory holding every model file
func modelDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range modelFiles {
		writeFile(t, dir, name, "id\n1\n")
	}
	return dir
}

func modelTOML(dir string) string {
	s := fmt.Sprintf(`[meta]
url = "http://localhost:8000/oasis"
log_level = "debug"

[login]
user = "user"
password = "secret"

[polling]
interval_seconds = 5
max_attempts = 12

[model]
directory_path = %q
model_key = "Key1"
`, dir)
	for entry, file := range modelFiles {
		s += fmt.Sprintf("\n[model.%s]\nfilename = %q\nmodule_supplier_id = 1\n", entry, file)
	}
	return s
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	return writeFile(t, t.TempDir(), name, content)
}

func requireCategory(t *testing.T, err error, category lib.ErrorCategory) {
	t.Helper()
	var spittalErr *lib.SpittalError
	require.True(t, errors.As(err, &spittalErr), "expected SpittalError, got %v", err)
	assert.Equal(t, category, spittalErr.Category)
}

func TestLoadConfig_TOML(t *testing.T) {
	dir := modelDir(t)
	path := writeConfig(t, "spittal.toml", modelTOML(dir))

	config, err := services.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/oasis", config.Meta.URL)
	assert.Equal(t, "debug", config.Meta.LogLevel)
	assert.Equal(t, 60, config.Meta.TimeoutSeconds, "default kept")
	assert.Equal(t, 5, config.Polling.IntervalSeconds)
	assert.Equal(t, 12, config.Polling.MaxAttempts)
	assert.Equal(t, 1, config.Polling.ConfigID, "default kept")
	assert.Equal(t, []models.PipelineName{models.PipelineModel}, config.Sections())

	require.NotNil(t, config.Model)
	assert.Equal(t, "Key1", config.Model.ModelKey)
	assert.True(t, config.Model.DoTimestamps)
	assert.Len(t, config.Model.Files, 7)
	assert.Equal(t, filepath.Join(dir, "events.csv"), services.LocalPath(config.Model, models.TypeEventDict.Key()))
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := modelDir(t)
	yaml := fmt.Sprintf(`meta:
  url: http://localhost:8000/oasis
login:
  user: user
  password: secret
model:
  directory_path: %s
  do_timestamps: false
  dict:
    areaperil: {filename: areaperil.csv, module_supplier_id: 1}
    event: {filename: events.csv, module_supplier_id: 1}
    vuln: {filename: vuln.csv, module_supplier_id: 1}
    damagebin: {filename: damagebin.csv, module_supplier_id: 1}
    hazardintensitybin: {filename: hazardbin.csv, module_supplier_id: 1}
  version:
    hazfp: {filename: footprint.csv, module_supplier_id: 1}
    vuln: {filename: vulnerability.csv, module_supplier_id: 2}
`, dir)
	path := writeConfig(t, "spittal.yaml", yaml)

	config, err := services.LoadConfig(path)
	require.NoError(t, err)

	assert.False(t, config.Model.DoTimestamps)
	assert.Equal(t, "ModelKey", config.Model.ModelKey, "default model key")
	assert.Equal(t, 2, config.Model.Files[models.TypeVulnVersion.Key()].ModuleSupplierID)
}

func TestLoadConfig_EnvironmentOverridesFile(t *testing.T) {
	dir := modelDir(t)
	path := writeConfig(t, "spittal.toml", modelTOML(dir))
	t.Setenv("SPITTAL_LOGIN_PASSWORD", "from-env")
	t.Setenv("SPITTAL_POLLING_MAX_ATTEMPTS", "3")

	config, err := services.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", config.Login.Password)
	assert.Equal(t, 3, config.Polling.MaxAttempts)
}

func TestLoadConfig_RejectsUnknownKey(t *testing.T) {
	dir := modelDir(t)
	path := writeConfig(t, "spittal.toml", modelTOML(dir)+"\n[meta.extra]\ncolour = \"blue\"\n")

	_, err := services.LoadConfig(path)

	requireCategory(t, err, lib.CategoryConfiguration)
}

func TestLoadConfig_RejectsBadLogLevel(t *testing.T) {
	dir := modelDir(t)
	content := modelTOML(dir)
	content = replaceOnce(t, content, `log_level = "debug"`, `log_level = "trace"`)
	path := writeConfig(t, "spittal.toml", content)

	_, err := services.LoadConfig(path)

	requireCategory(t, err, lib.CategoryConfiguration)
}

func TestLoadConfig_MissingModelFile(t *testing.T) {
	dir := modelDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "events.csv")))
	path := writeConfig(t, "spittal.toml", modelTOML(dir))

	_, err := services.LoadConfig(path)

	requireCategory(t, err, lib.CategoryFileSystem)
	assert.Contains(t, err.Error(), "events.csv")
}

func TestLoadConfig_SectionPrerequisites(t *testing.T) {
	dir := modelDir(t)
	content := modelTOML(dir) + `
[benchmark]
name = "bench"
chunk_size = 10
min_chunk = 1
max_chunk = 5
`
	path := writeConfig(t, "spittal.toml", content)

	_, err := services.LoadConfig(path)

	requireCategory(t, err, lib.CategoryValidation)
	assert.Contains(t, err.Error(), "exposure")
}

func TestLoadConfig_PubGULRequiresGUL(t *testing.T) {
	dir := modelDir(t)
	content := modelTOML(dir) + `
[pubgul]
name = "pub"
filename = "gul.csv"
module_supplier_id = 1
`
	path := writeConfig(t, "spittal.toml", content)

	_, err := services.LoadConfig(path)

	requireCategory(t, err, lib.CategoryValidation)
}

func TestLoadConfig_Discover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"dict_areaperil_3.csv", "dict_event_3.csv", "dict_vuln_3.csv", "dict_damagebin_3.csv",
		"dict_hazardintensitybin_3.csv", "version_hazfp_3.csv", "version_vuln_3.csv",
	} {
		writeFile(t, dir, name, "id\n")
	}
	writeFile(t, dir, "events_override.csv", "id\n")

	content := fmt.Sprintf(`[meta]
url = "http://localhost:8000/oasis"

[login]
user = "user"
password = "secret"

[model]
directory_path = %q
discover = true

[model.dict.event]
filename = "events_override.csv"
module_supplier_id = 9
`, dir)
	path := writeConfig(t, "spittal.toml", content)

	// events_override.csv does not follow the naming convention
	_, err := services.LoadConfig(path)
	requireCategory(t, err, lib.CategoryConfiguration)

	require.NoError(t, os.Rename(filepath.Join(dir, "events_override.csv"), filepath.Join(dir, ".events_override.csv")))
	content = replaceOnce(t, content, `"events_override.csv"`, `".events_override.csv"`)
	path = writeConfig(t, "spittal.toml", content)

	config, err := services.LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, config.Model.Files, 7)
	assert.Equal(t, models.FileEntry{Filename: "dict_areaperil_3.csv", ModuleSupplierID: 3}, config.Model.Files[models.TypeAreaPerilDict.Key()])
	assert.Equal(t, models.FileEntry{Filename: ".events_override.csv", ModuleSupplierID: 9}, config.Model.Files[models.TypeEventDict.Key()], "explicit entries win")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := services.LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func replaceOnce(t *testing.T, s, old, new string) string {
	t.Helper()
	require.Contains(t, s, old)
	return strings.Replace(s, old, new, 1)
}
