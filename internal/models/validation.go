package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// FieldError reports a configuration problem at a dotted key
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func missing(field string) error {
	return &FieldError{Field: field, Reason: "is required"}
}

// Validate checks required keys and value ranges of every present section
func (c *ProjectConfig) Validate() error {
	if c.Meta.URL == "" {
		return missing("meta.url")
	}
	u, err := url.Parse(c.Meta.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &FieldError{Field: "meta.url", Reason: fmt.Sprintf("must be an http(s) URL, got %q", c.Meta.URL)}
	}
	switch c.Meta.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return &FieldError{Field: "meta.log_level", Reason: fmt.Sprintf("unknown level %q", c.Meta.LogLevel)}
	}
	if c.Meta.TimeoutSeconds <= 0 {
		return &FieldError{Field: "meta.timeout_seconds", Reason: "must be > 0"}
	}

	if c.Login.User == "" {
		return missing("login.user")
	}
	if strings.Contains(c.Login.User, "/") {
		return &FieldError{Field: "login.user", Reason: "must not contain '/'"}
	}
	if c.Login.Password == "" {
		return missing("login.password")
	}

	if err := c.Polling.Validate(); err != nil {
		return err
	}

	if c.Model != nil {
		if err := c.Model.validate(ModelPipeline()); err != nil {
			return err
		}
	}
	if c.Exposure != nil {
		if err := c.Exposure.validate(ExposurePipeline()); err != nil {
			return err
		}
	}
	if c.Benchmark != nil {
		if err := c.Benchmark.Validate(); err != nil {
			return err
		}
	}
	if c.GUL != nil {
		if err := c.GUL.Validate(); err != nil {
			return err
		}
	}
	if c.PubGUL != nil {
		if err := c.PubGUL.Validate(); err != nil {
			return err
		}
	}
	if len(c.Sections()) == 0 {
		return &FieldError{Field: "config", Reason: "no pipeline section (model, exposure, benchmark, gul, pubgul) present"}
	}
	return nil
}

// Validate checks polling bounds
func (p *PollingConfig) Validate() error {
	if p.IntervalSeconds < 0 {
		return &FieldError{Field: "polling.interval_seconds", Reason: "cannot be negative"}
	}
	if p.MaxAttempts <= 0 {
		return &FieldError{Field: "polling.max_attempts", Reason: "must be > 0"}
	}
	if p.InitialDelaySeconds < 0 {
		return &FieldError{Field: "polling.initial_delay_seconds", Reason: "cannot be negative"}
	}
	return nil
}

func (s *UploadSection) validate(p Pipeline) error {
	section := string(p.Name)
	if s.DirectoryPath == "" {
		return missing(section + ".directory_path")
	}

	allowed := make(map[ResourceKey]bool)
	for _, k := range p.FileResources() {
		allowed[k] = true
	}
	for key, entry := range s.Files {
		field := fmt.Sprintf("%s.%s.%s", section, key.Category, key.Name)
		if !allowed[key] {
			return &FieldError{Field: field, Reason: fmt.Sprintf("not used by the %s pipeline", section)}
		}
		if entry.Filename == "" {
			return missing(field + ".filename")
		}
		if entry.ModuleSupplierID <= 0 {
			return missing(field + ".module_supplier_id")
		}
	}
	for _, key := range p.FileResources() {
		if _, ok := s.Files[key]; !ok {
			return missing(fmt.Sprintf("%s.%s.%s", section, key.Category, key.Name))
		}
	}

	for _, t := range AllResourceTypes() {
		if t.Shape() == ShapeVersion && allowed[t.Key()] && s.ModelKey == "" {
			return missing(section + ".model_key")
		}
	}
	return nil
}

// Validate checks benchmark parameters
func (b *BenchmarkConfig) Validate() error {
	if b.Name == "" {
		return missing("benchmark.name")
	}
	if b.ChunkSize <= 0 {
		return missing("benchmark.chunk_size")
	}
	if b.MinChunk <= 0 {
		return missing("benchmark.min_chunk")
	}
	if b.MaxChunk <= 0 {
		return missing("benchmark.max_chunk")
	}
	if b.MinChunk > b.MaxChunk {
		return &FieldError{Field: "benchmark.min_chunk", Reason: fmt.Sprintf("(%d) must be <= max_chunk (%d)", b.MinChunk, b.MaxChunk)}
	}
	return nil
}

// Validate checks ground-up-loss parameters
func (g *GULConfig) Validate() error {
	if g.Name == "" {
		return missing("gul.name")
	}
	if g.NumberOfSamples <= 0 {
		return &FieldError{Field: "gul.number_of_samples", Reason: "must be > 0"}
	}
	if g.LossThreshold < 0 {
		return &FieldError{Field: "gul.loss_threshold", Reason: "cannot be negative"}
	}
	if g.RandomVersionID <= 0 {
		return &FieldError{Field: "gul.random_version_id", Reason: "must be > 0"}
	}
	if g.RandomTableName == "" {
		return missing("gul.random_table_name")
	}
	if g.RandomChunks <= 0 || g.RandomRowsPerChunk <= 0 || g.RandomPages <= 0 || g.RandomSamplesPerPage <= 0 {
		return &FieldError{Field: "gul.random_*", Reason: "random table dimensions must be > 0"}
	}
	return nil
}

// Validate checks publish parameters
func (p *PubGULConfig) Validate() error {
	if p.Name == "" {
		return missing("pubgul.name")
	}
	if p.Filename == "" {
		return missing("pubgul.filename")
	}
	if p.ModuleSupplierID <= 0 {
		return missing("pubgul.module_supplier_id")
	}
	return nil
}

// Validate checks a run manifest before it is written
func (m *RunManifest) Validate() error {
	if m.RunID == "" {
		return errors.New("run_id is required")
	}
	if !IsValidRunStatus(m.Status) {
		return fmt.Errorf("invalid status: %s", m.Status)
	}
	for name := range m.Registries {
		if !IsValidPipelineName(PipelineName(name)) {
			return fmt.Errorf("unknown pipeline in manifest: %s", name)
		}
	}
	return nil
}
