package lib

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"
)

// LogLevel defines the severity of log messages
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// Logger provides levelled key/value logging for the orchestrator
type Logger struct {
	level  LogLevel
	logger *log.Logger
}

// NewLoggerWithWriter creates a logger writing to w (log file, test buffer)
func NewLoggerWithWriter(level LogLevel, w io.Writer) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(w, "", log.LstdFlags),
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields ...interface{}) {
	if l.level <= LogLevelDebug {
		l.log("DEBUG", message, fields...)
	}
}

// Info logs an informational message
func (l *Logger) Info(message string, fields ...interface{}) {
	if l.level <= LogLevelInfo {
		l.log("INFO", message, fields...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields ...interface{}) {
	if l.level <= LogLevelWarn {
		l.log("WARN", message, fields...)
	}
}

// Error logs an error message
func (l *Logger) Error(message string, fields ...interface{}) {
	if l.level <= LogLevelError {
		l.log("ERROR", message, fields...)
	}
}

// log renders fields as key=value pairs after the message
func (l *Logger) log(level string, message string, fields ...interface{}) {
	var b strings.Builder
	for i := 0; i < len(fields); i += 2 {
		b.WriteString(" ")
		if i+1 < len(fields) {
			fmt.Fprintf(&b, "%v=%v", fields[i], fields[i+1])
		} else {
			fmt.Fprintf(&b, "%v", fields[i])
		}
	}
	fieldsStr := ""
	if b.Len() > 0 {
		fieldsStr = " |" + b.String()
	}
	l.logger.Printf("[%s] %s%s", level, message, fieldsStr)
}

// LogOperation logs the start and completion of an operation
func LogOperation(logger *Logger, operation string, fn func() error) error {
	logger.Info(fmt.Sprintf("Starting: %s", operation))
	start := time.Now()

	err := fn()

	duration := time.Since(start)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed: %s", operation), "duration", duration, "error", err)
		return err
	}

	logger.Info(fmt.Sprintf("Completed: %s", operation), "duration", duration)
	return nil
}

// LogRetry logs retry attempts
func LogRetry(logger *Logger, operation string, attempt int, maxAttempts int, err error) {
	// Remove line breaks from operation to prevent log spoofing
	safeOperation := strings.ReplaceAll(operation, "\n", "")
	safeOperation = strings.ReplaceAll(safeOperation, "\r", "")
	logger.Warn(
		fmt.Sprintf("Retry attempt %d/%d for: %s", attempt+1, maxAttempts, safeOperation),
		"error", err,
	)
}

// LogStageStart logs the start of one pipeline stage
func LogStageStart(logger *Logger, pipeline string, key string) {
	logger.Info(
		"Stage started",
		"pipeline", pipeline,
		"resource", key,
	)
}

// LogStageComplete logs a stage whose job reached done
func LogStageComplete(logger *Logger, pipeline string, key string, taskID int64, jobID int64, duration time.Duration) {
	logger.Info(
		"Stage completed",
		"pipeline", pipeline,
		"resource", key,
		"task_id", taskID,
		"job_id", jobID,
		"duration", duration,
	)
}

// LogStageFailed logs a stage that aborted its pipeline
func LogStageFailed(logger *Logger, pipeline string, key string, err error) {
	logger.Error(
		"Stage failed",
		"pipeline", pipeline,
		"resource", key,
		"error", err,
	)
}

// LogFileStaged logs the handles obtained for an uploaded file
func LogFileStaged(logger *Logger, key string, uploadFilename string, upload int64, download int64) {
	logger.Info(
		"File staged",
		"resource", key,
		"upload_filename", uploadFilename,
		"upload_id", upload,
		"download_id", download,
	)
}

// LogJobQueued logs job submission
func LogJobQueued(logger *Logger, key string, taskID int64, jobID int64) {
	logger.Info(
		"Job queued",
		"resource", key,
		"task_id", taskID,
		"job_id", jobID,
	)
}

// LogServiceCall logs HTTP service calls
func LogServiceCall(logger *Logger, service string, endpoint string, method string) {
	logger.Debug(
		"Service call",
		"service", service,
		"endpoint", endpoint,
		"method", method,
	)
}

// LogServiceResponse logs HTTP service responses
func LogServiceResponse(logger *Logger, service string, statusCode int, duration time.Duration) {
	if statusCode >= 400 {
		logger.Warn(
			"Service response",
			"service", service,
			"status", statusCode,
			"duration", duration,
		)
	} else {
		logger.Debug(
			"Service response",
			"service", service,
			"status", statusCode,
			"duration", duration,
		)
	}
}

// SetLevel changes the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

// ParseLogLevel converts a string to LogLevel
func ParseLogLevel(levelStr string) LogLevel {
	switch levelStr {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}
