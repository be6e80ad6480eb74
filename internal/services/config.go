package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/trobanga/spittal/internal/lib"
	"github.com/trobanga/spittal/internal/models"
)

// configSchema constrains the shape of the raw settings. Numbers and booleans
// may arrive as strings when overridden from the environment.
const configSchema = `
#Int:  int | =~"^-?[0-9]+$"
#Bool: bool | "true" | "false"

#File: {
	filename?:           string
	module_supplier_id?: #Int
}

#Upload: {
	directory_path?: string
	discover?:       #Bool
	do_timestamps?:  #Bool
	model_key?:      string
	dict?: {[string]: #File}
	version?: {[string]: #File}
}

#Config: {
	meta?: {
		url?:             string
		log_level?:       "debug" | "info" | "warn" | "error"
		log_file?:        string
		timeout_seconds?: #Int
		runs_dir?:        string
	}
	login?: {
		user?:     string
		password?: string
	}
	polling?: {
		interval_seconds?:      #Int
		max_attempts?:          #Int
		initial_delay_seconds?: #Int
		config_id?:             #Int
		sys_config?:            #Int
		show_progress?:         #Bool
	}
	retry?: {
		max_attempts?:       #Int
		initial_backoff_ms?: #Int
		max_backoff_ms?:     #Int
	}
	model?:    #Upload
	exposure?: #Upload
	benchmark?: {
		name?:       string
		chunk_size?: #Int
		min_chunk?:  #Int
		max_chunk?:  #Int
	}
	gul?: {
		name?:                    string
		number_of_samples?:       #Int
		loss_threshold?:          #Int
		random_version_id?:       #Int
		random_table_name?:       string
		random_chunks?:           #Int
		random_rows_per_chunk?:   #Int
		random_pages?:            #Int
		random_samples_per_page?: #Int
	}
	pubgul?: {
		name?:               string
		filename?:           string
		module_supplier_id?: #Int
		output_path?:        string
	}
}
`

// LoadConfig loads configuration from file and environment
// Priority order (highest to lowest):
//  1. Environment variables (SPITTAL_SECTION_KEY)
//  2. Configuration file
//  3. Default values
func LoadConfig(configFile string) (*models.ProjectConfig, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// Search for spittal.toml / spittal.yaml in standard locations
		v.SetConfigName("spittal")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/spittal")
		v.AddConfigPath("/etc/spittal")
	}

	v.SetEnvPrefix("SPITTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, lib.WrapError(lib.CategoryConfiguration, "No config file found", err,
				"Create spittal.toml in the current directory",
				"Or pass --config <file>",
				"See config/spittal.example.toml for reference")
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := checkSchema(v.AllSettings()); err != nil {
		return nil, err
	}

	config, err := buildConfig(v)
	if err != nil {
		return nil, toConfigError(err)
	}

	if err := config.Validate(); err != nil {
		return nil, toConfigError(err)
	}

	if err := lib.ValidateSectionPrerequisites(config.Sections()); err != nil {
		return nil, err
	}

	if err := checkFiles(config); err != nil {
		return nil, err
	}

	return config, nil
}

// checkSchema validates raw settings against configSchema; unknown keys are rejected
func checkSchema(settings map[string]interface{}) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	data := ctx.Encode(settings)
	if err := data.Err(); err != nil {
		return lib.ErrInvalidConfig("config", fmt.Sprintf("cannot interpret settings: %v", err))
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return lib.ErrInvalidConfig("config", err.Error())
	}
	return nil
}

func buildConfig(v *viper.Viper) (*models.ProjectConfig, error) {
	config := models.DefaultConfig()

	config.Meta.URL = v.GetString("meta.url")
	if s := v.GetString("meta.log_level"); s != "" {
		config.Meta.LogLevel = s
	}
	config.Meta.LogFile = v.GetString("meta.log_file")
	if v.IsSet("meta.timeout_seconds") {
		config.Meta.TimeoutSeconds = v.GetInt("meta.timeout_seconds")
	}
	if s := v.GetString("meta.runs_dir"); s != "" {
		config.Meta.RunsDir = s
	}

	config.Login = models.LoginConfig{
		User:     v.GetString("login.user"),
		Password: v.GetString("login.password"),
	}

	setInt(v, "polling.interval_seconds", &config.Polling.IntervalSeconds)
	setInt(v, "polling.max_attempts", &config.Polling.MaxAttempts)
	setInt(v, "polling.initial_delay_seconds", &config.Polling.InitialDelaySeconds)
	setInt(v, "polling.config_id", &config.Polling.ConfigID)
	setInt(v, "polling.sys_config", &config.Polling.SysConfig)
	if v.IsSet("polling.show_progress") {
		config.Polling.ShowProgress = v.GetBool("polling.show_progress")
	}

	setInt(v, "retry.max_attempts", &config.Retry.MaxAttempts)
	if v.IsSet("retry.initial_backoff_ms") {
		config.Retry.InitialBackoffMs = v.GetInt64("retry.initial_backoff_ms")
	}
	if v.IsSet("retry.max_backoff_ms") {
		config.Retry.MaxBackoffMs = v.GetInt64("retry.max_backoff_ms")
	}

	var err error
	if v.IsSet("model") {
		if config.Model, err = buildUploadSection(v, models.PipelineModel); err != nil {
			return nil, err
		}
	}
	if v.IsSet("exposure") {
		if config.Exposure, err = buildUploadSection(v, models.PipelineExposure); err != nil {
			return nil, err
		}
	}

	if v.IsSet("benchmark") {
		config.Benchmark = &models.BenchmarkConfig{
			Name:      v.GetString("benchmark.name"),
			ChunkSize: v.GetInt("benchmark.chunk_size"),
			MinChunk:  v.GetInt("benchmark.min_chunk"),
			MaxChunk:  v.GetInt("benchmark.max_chunk"),
		}
	}

	if v.IsSet("gul") {
		gul := models.DefaultGULConfig()
		gul.Name = v.GetString("gul.name")
		setInt(v, "gul.number_of_samples", &gul.NumberOfSamples)
		setInt(v, "gul.loss_threshold", &gul.LossThreshold)
		if v.IsSet("gul.random_version_id") {
			gul.RandomVersionID = v.GetInt64("gul.random_version_id")
		}
		if s := v.GetString("gul.random_table_name"); s != "" {
			gul.RandomTableName = s
		}
		setInt(v, "gul.random_chunks", &gul.RandomChunks)
		setInt(v, "gul.random_rows_per_chunk", &gul.RandomRowsPerChunk)
		setInt(v, "gul.random_pages", &gul.RandomPages)
		setInt(v, "gul.random_samples_per_page", &gul.RandomSamplesPerPage)
		config.GUL = &gul
	}

	if v.IsSet("pubgul") {
		config.PubGUL = &models.PubGULConfig{
			Name:             v.GetString("pubgul.name"),
			Filename:         v.GetString("pubgul.filename"),
			ModuleSupplierID: v.GetInt("pubgul.module_supplier_id"),
			OutputPath:       v.GetString("pubgul.output_path"),
		}
		if config.PubGUL.OutputPath == "" {
			config.PubGUL.OutputPath = config.PubGUL.Filename
		}
	}

	return &config, nil
}

func buildUploadSection(v *viper.Viper, section models.PipelineName) (*models.UploadSection, error) {
	prefix := string(section)
	s := &models.UploadSection{
		DirectoryPath: v.GetString(prefix + ".directory_path"),
		Discover:      v.GetBool(prefix + ".discover"),
		DoTimestamps:  true,
		ModelKey:      "ModelKey",
		Files:         make(map[models.ResourceKey]models.FileEntry),
	}
	if v.IsSet(prefix + ".do_timestamps") {
		s.DoTimestamps = v.GetBool(prefix + ".do_timestamps")
	}
	if v.IsSet(prefix + ".model_key") {
		s.ModelKey = v.GetString(prefix + ".model_key")
	}

	if s.Discover && s.DirectoryPath != "" {
		discovered, err := DiscoverFiles(s.DirectoryPath)
		if err != nil {
			return nil, &models.FieldError{Field: prefix + ".discover", Reason: err.Error()}
		}
		pipeline, _ := models.PipelineFor(section)
		for _, key := range pipeline.FileResources() {
			if entry, ok := discovered[key]; ok {
				s.Files[key] = entry
			}
		}
	}

	// Explicit entries override discovered ones
	for _, category := range []models.Category{models.CategoryDict, models.CategoryVersion} {
		group := prefix + "." + string(category)
		for name := range v.GetStringMap(group) {
			key := models.Key(category, name)
			if _, ok := models.TypeOf(key); !ok {
				return nil, &models.FieldError{Field: group + "." + name, Reason: "unknown resource " + key.String()}
			}
			s.Files[key] = models.FileEntry{
				Filename:         v.GetString(group + "." + name + ".filename"),
				ModuleSupplierID: v.GetInt(group + "." + name + ".module_supplier_id"),
			}
		}
	}
	return s, nil
}

func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func toConfigError(err error) error {
	var fieldErr *models.FieldError
	if errors.As(err, &fieldErr) {
		e := lib.ErrInvalidConfig(fieldErr.Field, fieldErr.Error())
		e.Cause = err
		return e
	}
	return lib.ErrInvalidConfig("config", err.Error())
}

// checkFiles ensures every declared local file exists before any network call
func checkFiles(config *models.ProjectConfig) error {
	for _, section := range []*models.UploadSection{config.Model, config.Exposure} {
		if section == nil {
			continue
		}
		for _, key := range sortedFileKeys(section) {
			path := LocalPath(section, key)
			info, err := os.Stat(path)
			if err != nil {
				return lib.ErrFileNotFound(path)
			}
			if info.IsDir() {
				return lib.ErrInvalidConfig(key.String(), fmt.Sprintf("%s is a directory", path))
			}
		}
	}
	return nil
}

// LocalPath joins the section directory and the file entry of key
func LocalPath(section *models.UploadSection, key models.ResourceKey) string {
	return filepath.Join(section.DirectoryPath, section.Files[key].Filename)
}

func sortedFileKeys(section *models.UploadSection) []models.ResourceKey {
	keys := make([]models.ResourceKey, 0, len(section.Files))
	for key := range section.Files {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
