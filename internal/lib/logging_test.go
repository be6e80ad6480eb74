package lib_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/trobanga/spittal/internal/lib"
)

func TestLogger_RendersFields(t *testing.T) {
	var buf bytes.Buffer
	logger := lib.NewLoggerWithWriter(lib.LogLevelInfo, &buf)

	logger.Info("Resource created", "resource", "dict_event", "task_id", 42)

	assert.Contains(t, buf.String(), "[INFO] Resource created | resource=dict_event task_id=42")
}

func TestLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := lib.NewLoggerWithWriter(lib.LogLevelWarn, &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN] shown")

	logger.SetLevel(lib.LogLevelDebug)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "[DEBUG] now visible")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, lib.LogLevelDebug, lib.ParseLogLevel("debug"))
	assert.Equal(t, lib.LogLevelWarn, lib.ParseLogLevel("warn"))
	assert.Equal(t, lib.LogLevelError, lib.ParseLogLevel("error"))
	assert.Equal(t, lib.LogLevelInfo, lib.ParseLogLevel("bogus"))
}

func TestLogOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := lib.NewLoggerWithWriter(lib.LogLevelInfo, &buf)

	err := lib.LogOperation(logger, "model pipeline", func() error { return errors.New("stage failed") })

	assert.EqualError(t, err, "stage failed")
	assert.Contains(t, buf.String(), "Starting: model pipeline")
	assert.Contains(t, buf.String(), "Failed: model pipeline")
}

func TestStageLogHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := lib.NewLoggerWithWriter(lib.LogLevelInfo, &buf)

	lib.LogStageStart(logger, "gul", "kernel_cdf")
	lib.LogStageComplete(logger, "gul", "kernel_cdf", 10, 11, time.Second)
	lib.LogJobQueued(logger, "kernel_cdf", 10, 11)

	out := buf.String()
	assert.Contains(t, out, "kernel_cdf")
	assert.Contains(t, out, "task_id=10")
	assert.Contains(t, out, "job_id=11")
}
