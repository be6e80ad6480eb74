package lib

import (
	"errors"
	"fmt"
	"strings"

	"github.com/trobanga/spittal/internal/models"
)

// SpittalError represents a user-friendly error with context and guidance
type SpittalError struct {
	Category    ErrorCategory
	Message     string   // Short description of what went wrong
	Cause       error    // Underlying error
	Guidance    []string // What the user can do to fix it
	HTTPStatus  int      // HTTP status code if applicable
	IsRetryable bool     // Can the CLI retry this without user action?
}

// ErrorCategory classifies errors for better UX
type ErrorCategory string

const (
	CategoryNetwork       ErrorCategory = "network"
	CategoryAuth          ErrorCategory = "auth"
	CategoryFileSystem    ErrorCategory = "filesystem"
	CategoryValidation    ErrorCategory = "validation"
	CategoryService       ErrorCategory = "service"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryJob           ErrorCategory = "job"
	CategoryState         ErrorCategory = "state"
)

// Error implements the error interface
func (e *SpittalError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] ", strings.ToUpper(string(e.Category))))
	sb.WriteString(e.Message)

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if e.HTTPStatus > 0 {
		sb.WriteString(fmt.Sprintf(" (HTTP %d)", e.HTTPStatus))
	}

	return sb.String()
}

// UserMessage returns a formatted message suitable for displaying to end users
func (e *SpittalError) UserMessage() string {
	var sb strings.Builder

	sb.WriteString("❌ Error: ")
	sb.WriteString(e.Message)
	sb.WriteString("\n\n")

	if len(e.Guidance) > 0 {
		sb.WriteString("💡 How to fix:\n")
		for i, guide := range e.Guidance {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, guide))
		}
	}

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("\nTechnical details: %v\n", e.Cause))
	}

	if e.IsRetryable {
		sb.WriteString("\n🔄 This error is transient; running the command again may succeed.\n")
	}

	return sb.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility
func (e *SpittalError) Unwrap() error {
	return e.Cause
}

// Network Errors

// ErrNetworkUnreachable creates an error for network connectivity issues
func ErrNetworkUnreachable(url string, cause error) *SpittalError {
	return &SpittalError{
		Category: CategoryNetwork,
		Message:  fmt.Sprintf("Cannot reach backend at %s", url),
		Cause:    cause,
		Guidance: []string{
			"Check that the backend is running",
			fmt.Sprintf("Verify meta.url is correct: %s", url),
			"Check your network connection",
		},
		IsRetryable: true,
	}
}

// Filesystem Errors

// ErrFileNotFound creates an error for missing files or directories
func ErrFileNotFound(path string) *SpittalError {
	return &SpittalError{
		Category: CategoryFileSystem,
		Message:  fmt.Sprintf("File or directory not found: %s", path),
		Guidance: []string{
			"Check directory_path and the filename entries in your config",
			"Ensure the file exists and is readable",
		},
		IsRetryable: false,
	}
}

// Configuration Errors

// ErrInvalidConfig creates an error for configuration validation failures
func ErrInvalidConfig(field string, reason string) *SpittalError {
	return &SpittalError{
		Category: CategoryConfiguration,
		Message:  fmt.Sprintf("Invalid configuration: %s", reason),
		Guidance: []string{
			fmt.Sprintf("Check the '%s' field in your config file", field),
			"Compare with config/spittal.example.toml for correct format",
			"Ensure all required fields are populated",
		},
		IsRetryable: false,
	}
}

// State Errors

// ErrRunNotFound creates an error for a missing run manifest
func ErrRunNotFound(runID string) *SpittalError {
	return &SpittalError{
		Category: CategoryState,
		Message:  fmt.Sprintf("Run '%s' not found", runID),
		Guidance: []string{
			"Check the run ID is correct",
			"Use 'spittal runs list' to see recorded runs",
		},
		IsRetryable: false,
	}
}

// ErrCorruptedManifest creates an error for an unreadable manifest file
func ErrCorruptedManifest(runID string, cause error) *SpittalError {
	return &SpittalError{
		Category: CategoryState,
		Message:  fmt.Sprintf("Manifest for run '%s' is corrupted", runID),
		Cause:    cause,
		Guidance: []string{
			"Check runs/<run-id>/manifest.json for syntax errors",
			"Manifests are diagnostics only; deleting the run directory is safe",
		},
		IsRetryable: false,
	}
}

// ErrSectionPrerequisiteNotMet creates an error for a section run without its upstream
func ErrSectionPrerequisiteNotMet(section models.PipelineName, prerequisite models.PipelineName) *SpittalError {
	return &SpittalError{
		Category: CategoryValidation,
		Message:  fmt.Sprintf("Cannot run %s: it reads the %s registry, which is not part of this run", section, prerequisite),
		Guidance: []string{
			fmt.Sprintf("Add a [%s] section to the config", prerequisite),
			fmt.Sprintf("Or include %s in --sections", prerequisite),
		},
		IsRetryable: false,
	}
}

// ErrRunLocked creates an error when another process holds a run directory lock
func ErrRunLocked(dir string) *SpittalError {
	return &SpittalError{
		Category: CategoryState,
		Message:  fmt.Sprintf("Run directory '%s' is locked by another process", dir),
		Guidance: []string{
			"Wait for the other spittal run to finish",
			fmt.Sprintf("If stuck, remove the lock file: %s/.lock", dir),
		},
		IsRetryable: true,
	}
}

// Helper Functions

// WrapError wraps a standard error with SpittalError context
func WrapError(category ErrorCategory, message string, cause error, guidance ...string) *SpittalError {
	return &SpittalError{
		Category:    category,
		Message:     message,
		Cause:       cause,
		Guidance:    guidance,
		IsRetryable: IsNetworkError(cause),
	}
}

// ClassifyError examines an error and returns appropriate user guidance
func ClassifyError(err error) *SpittalError {
	if err == nil {
		return nil
	}

	var spittalErr *SpittalError
	if errors.As(err, &spittalErr) {
		return spittalErr
	}

	var fieldErr *models.FieldError
	if errors.As(err, &fieldErr) {
		e := ErrInvalidConfig(fieldErr.Field, fieldErr.Error())
		e.Cause = err
		return e
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return &SpittalError{
			Category: CategoryAuth,
			Message:  "Login rejected by backend",
			Cause:    err,
			Guidance: []string{"Check login.user and login.password", "Set SPITTAL_LOGIN_PASSWORD to avoid storing it in the file"},
		}
	}

	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		return &SpittalError{
			Category:   CategoryService,
			Message:    fmt.Sprintf("Unexpected backend response from %s", protoErr.Path),
			Cause:      err,
			HTTPStatus: protoErr.StatusCode,
			Guidance:   []string{"Check that meta.url points at the API prefix", "Inspect the backend logs for this request"},
		}
	}

	var depErr *DependencyNotReadyError
	if errors.As(err, &depErr) {
		return &SpittalError{
			Category: CategoryValidation,
			Message:  fmt.Sprintf("Resource %s is not ready", depErr.Dependency),
			Cause:    err,
			Guidance: []string{"Ensure the section producing it is configured and ran first"},
		}
	}

	var failedErr *JobFailedError
	var timeoutErr *JobTimeoutError
	if errors.As(err, &failedErr) || errors.As(err, &timeoutErr) {
		return &SpittalError{
			Category: CategoryJob,
			Message:  "Backend job did not complete",
			Cause:    err,
			Guidance: []string{
				"Inspect the job in the backend admin",
				"Use 'spittal job wait <job-id>' to keep waiting on a slow job",
				"The run manifest records every identifier produced so far",
			},
		}
	}

	if IsNetworkError(err) {
		return &SpittalError{
			Category:    CategoryNetwork,
			Message:     "Network connectivity issue",
			Cause:       err,
			Guidance:    []string{"Check network connection", "Verify the backend is running"},
			IsRetryable: true,
		}
	}

	errMsg := err.Error()
	if containsIgnoreCase(errMsg, "permission denied") || containsIgnoreCase(errMsg, "access denied") {
		return &SpittalError{
			Category: CategoryFileSystem,
			Message:  "Permission denied",
			Cause:    err,
			Guidance: []string{"Check file/directory permissions", "Ensure proper access rights"},
		}
	}

	return &SpittalError{
		Category: CategoryValidation,
		Message:  "An error occurred",
		Cause:    err,
		Guidance: []string{"Check the technical details below", "See logs for more information"},
	}
}
