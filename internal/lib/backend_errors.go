package lib

import (
	"fmt"

	"github.com/trobanga/spittal/internal/models"
)

// NotFoundError is returned by registry lookups of unregistered keys
type NotFoundError = models.NotFoundError

// AuthError means the backend rejected the credentials
type AuthError struct {
	User    string
	Payload string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login rejected for user %q: %s", e.User, e.Payload)
}

// TransportError means the request never produced an HTTP response
type TransportError struct {
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error calling %s: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError means the backend answered, but not in the agreed shape
type ProtocolError struct {
	Path       string
	StatusCode int
	Reason     string
	Body       string
}

func (e *ProtocolError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("protocol error calling %s (HTTP %d): %s: %s", e.Path, e.StatusCode, e.Reason, e.Body)
	}
	return fmt.Sprintf("protocol error calling %s: %s: %s", e.Path, e.Reason, e.Body)
}

// DependencyNotReadyError means a creation call was attempted before a
// dependency had a creation task id. Nothing was sent.
type DependencyNotReadyError struct {
	Key        models.ResourceKey
	Dependency models.ResourceKey
	Reason     string
}

func (e *DependencyNotReadyError) Error() string {
	return fmt.Sprintf("cannot create %s: dependency %s %s", e.Key, e.Dependency, e.Reason)
}

// AlreadyQueuedError means a resource was queued a second time in one run
type AlreadyQueuedError struct {
	Key   models.ResourceKey
	JobID int64
}

func (e *AlreadyQueuedError) Error() string {
	return fmt.Sprintf("%s already queued as job %d", e.Key, e.JobID)
}

// AlreadyAwaitedError means a job id was awaited a second time by one poller
type AlreadyAwaitedError struct {
	JobID int64
}

func (e *AlreadyAwaitedError) Error() string {
	return fmt.Sprintf("job %d already awaited", e.JobID)
}

// JobFailedError means the backend reported the FAILED sentinel
type JobFailedError struct {
	Key     models.ResourceKey
	JobID   int64
	Payload string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %d%s failed: %s", e.JobID, keySuffix(e.Key), e.Payload)
}

// JobTimeoutError means polling exhausted its attempts without a terminal status
type JobTimeoutError struct {
	Key      models.ResourceKey
	JobID    int64
	Attempts int
	Payload  string
}

func (e *JobTimeoutError) Error() string {
	return fmt.Sprintf("job %d%s not done after %d status checks, last status: %s", e.JobID, keySuffix(e.Key), e.Attempts, e.Payload)
}

// StageError attributes a fatal error to one stage of one pipeline
type StageError struct {
	Pipeline models.PipelineName
	Key      models.ResourceKey
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s pipeline, stage %s: %v", e.Pipeline, e.Key, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func keySuffix(key models.ResourceKey) string {
	if key == (models.ResourceKey{}) {
		return ""
	}
	return " (" + key.String() + ")"
}
