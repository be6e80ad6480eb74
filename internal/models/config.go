package models

import "time"

// ProjectConfig is the top-level configuration for one orchestrator run
type ProjectConfig struct {
	Meta      MetaConfig       `yaml:"meta" json:"meta"`
	Login     LoginConfig      `yaml:"login" json:"login"`
	Polling   PollingConfig    `yaml:"polling" json:"polling"`
	Retry     RetryConfig      `yaml:"retry" json:"retry"`
	Model     *UploadSection   `yaml:"model,omitempty" json:"model,omitempty"`
	Exposure  *UploadSection   `yaml:"exposure,omitempty" json:"exposure,omitempty"`
	Benchmark *BenchmarkConfig `yaml:"benchmark,omitempty" json:"benchmark,omitempty"`
	GUL       *GULConfig       `yaml:"gul,omitempty" json:"gul,omitempty"`
	PubGUL    *PubGULConfig    `yaml:"pubgul,omitempty" json:"pubgul,omitempty"`
}

// MetaConfig contains backend location and process-wide settings
type MetaConfig struct {
	URL            string `yaml:"url" json:"url"` // Base URL including the API prefix, e.g. http://host:8000/oasis
	LogLevel       string `yaml:"log_level" json:"log_level"`
	LogFile        string `yaml:"log_file" json:"log_file"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	RunsDir        string `yaml:"runs_dir" json:"runs_dir"`
}

// LoginConfig holds backend credentials; User doubles as the public user in paths
type LoginConfig struct {
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"-"`
}

// PollingConfig controls how queued jobs are awaited
type PollingConfig struct {
	IntervalSeconds     int  `yaml:"interval_seconds" json:"interval_seconds"`
	MaxAttempts         int  `yaml:"max_attempts" json:"max_attempts"`
	InitialDelaySeconds int  `yaml:"initial_delay_seconds" json:"initial_delay_seconds"`
	ConfigID            int  `yaml:"config_id" json:"config_id"`   // first segment of /statusAsync
	SysConfig           int  `yaml:"sys_config" json:"sys_config"` // first segment of /doTask*
	ShowProgress        bool `yaml:"show_progress" json:"show_progress"`
}

// RetryConfig controls retry behavior for login transport errors
type RetryConfig struct {
	MaxAttempts      int   `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoffMs int64 `yaml:"initial_backoff_ms" json:"initial_backoff_ms"`
	MaxBackoffMs     int64 `yaml:"max_backoff_ms" json:"max_backoff_ms"`
}

// FileEntry declares one local file for a dict.<name> or version.<name> entry
type FileEntry struct {
	Filename         string `yaml:"filename" json:"filename"`
	ModuleSupplierID int    `yaml:"module_supplier_id" json:"module_supplier_id"`
}

// UploadSection is the shape shared by the model and exposure sections
type UploadSection struct {
	DirectoryPath string                    `yaml:"directory_path" json:"directory_path"`
	Discover      bool                      `yaml:"discover" json:"discover"`
	DoTimestamps  bool                      `yaml:"do_timestamps" json:"do_timestamps"`
	ModelKey      string                    `yaml:"model_key" json:"model_key"`
	Files         map[ResourceKey]FileEntry `yaml:"-" json:"-"`
}

// BenchmarkConfig holds the benchmark kernel parameters
type BenchmarkConfig struct {
	Name      string `yaml:"name" json:"name"`
	ChunkSize int    `yaml:"chunk_size" json:"chunk_size"`
	MinChunk  int    `yaml:"min_chunk" json:"min_chunk"`
	MaxChunk  int    `yaml:"max_chunk" json:"max_chunk"`
}

// GULConfig holds the random number and ground-up-loss parameters
type GULConfig struct {
	Name                 string `yaml:"name" json:"name"`
	NumberOfSamples      int    `yaml:"number_of_samples" json:"number_of_samples"`
	LossThreshold        int    `yaml:"loss_threshold" json:"loss_threshold"`
	RandomVersionID      int64  `yaml:"random_version_id" json:"random_version_id"` // pre-existing RandomNumberTableVersion on the backend
	RandomTableName      string `yaml:"random_table_name" json:"random_table_name"`
	RandomChunks         int    `yaml:"random_chunks" json:"random_chunks"`
	RandomRowsPerChunk   int    `yaml:"random_rows_per_chunk" json:"random_rows_per_chunk"`
	RandomPages          int    `yaml:"random_pages" json:"random_pages"`
	RandomSamplesPerPage int    `yaml:"random_samples_per_page" json:"random_samples_per_page"`
}

// PubGULConfig holds publish and download settings for the GUL output
type PubGULConfig struct {
	Name             string `yaml:"name" json:"name"`
	Filename         string `yaml:"filename" json:"filename"`
	ModuleSupplierID int    `yaml:"module_supplier_id" json:"module_supplier_id"`
	OutputPath       string `yaml:"output_path" json:"output_path"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() ProjectConfig {
	return ProjectConfig{
		Meta: MetaConfig{
			LogLevel:       "info",
			TimeoutSeconds: 60,
			RunsDir:        "./runs",
		},
		Polling: DefaultPollingConfig(),
		Retry: RetryConfig{
			MaxAttempts:      3,
			InitialBackoffMs: 1000,
			MaxBackoffMs:     10000,
		},
	}
}

// DefaultPollingConfig returns the documented polling defaults
func DefaultPollingConfig() PollingConfig {
	return PollingConfig{
		IntervalSeconds:     2,
		MaxAttempts:         100,
		InitialDelaySeconds: 0,
		ConfigID:            1,
		SysConfig:           1,
		ShowProgress:        true,
	}
}

// DefaultGULConfig returns the random number defaults the backend ships with
func DefaultGULConfig() GULConfig {
	return GULConfig{
		NumberOfSamples:      10,
		LossThreshold:        0,
		RandomVersionID:      2,
		RandomTableName:      "rand_nums",
		RandomChunks:         10,
		RandomRowsPerChunk:   1000,
		RandomPages:          10,
		RandomSamplesPerPage: 20,
	}
}

// Interval returns the poll interval as a duration
func (p PollingConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

// InitialDelay returns the wait before the first status fetch
func (p PollingConfig) InitialDelay() time.Duration {
	return time.Duration(p.InitialDelaySeconds) * time.Second
}

// Timeout returns the HTTP timeout for backend calls
func (m MetaConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// Sections returns the pipelines configured in this file, in run order
func (c *ProjectConfig) Sections() []PipelineName {
	var out []PipelineName
	for _, name := range PipelineOrder {
		if c.HasSection(name) {
			out = append(out, name)
		}
	}
	return out
}

// HasSection checks if a pipeline section is present
func (c *ProjectConfig) HasSection(name PipelineName) bool {
	switch name {
	case PipelineModel:
		return c.Model != nil
	case PipelineExposure:
		return c.Exposure != nil
	case PipelineBenchmark:
		return c.Benchmark != nil
	case PipelineGUL:
		return c.GUL != nil
	case PipelinePubGUL:
		return c.PubGUL != nil
	default:
		return false
	}
}
