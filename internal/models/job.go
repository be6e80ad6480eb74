package models

// JobState defines the lifecycle of one asynchronous backend job
type JobState string

const (
	JobStateNone     JobState = ""
	JobStateQueued   JobState = "queued"
	JobStatePolling  JobState = "polling"
	JobStateDone     JobState = "done"
	JobStateFailed   JobState = "failed"
	JobStateTimedOut JobState = "timed_out"
)

// Status values reported by /statusAsync
const (
	StatusDone   = "done"
	StatusFailed = "FAILED"
)

// IsValidJobState checks if the job state is recognized
func IsValidJobState(s JobState) bool {
	switch s {
	case JobStateNone, JobStateQueued, JobStatePolling, JobStateDone, JobStateFailed, JobStateTimedOut:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible
func (s JobState) IsTerminal() bool {
	return s == JobStateDone || s == JobStateFailed || s == JobStateTimedOut
}

// CanTransitionTo checks if state transition is valid
// Valid transitions:
//
//	none -> queued
//	queued -> polling
//	polling -> done | failed | timed_out
//	done, failed, timed_out -> (terminal)
func (s JobState) CanTransitionTo(next JobState) bool {
	switch s {
	case JobStateNone:
		return next == JobStateQueued
	case JobStateQueued:
		return next == JobStatePolling
	case JobStatePolling:
		return next.IsTerminal()
	default:
		return false
	}
}

// Outcome is the terminal result of awaiting a job
type Outcome string

const (
	OutcomeDone     Outcome = "done"
	OutcomeFailed   Outcome = "failed"
	OutcomeTimedOut Outcome = "timed_out"
)

// State maps an outcome to the terminal job state it produces
func (o Outcome) State() JobState {
	switch o {
	case OutcomeDone:
		return JobStateDone
	case OutcomeFailed:
		return JobStateFailed
	case OutcomeTimedOut:
		return JobStateTimedOut
	default:
		return JobStateNone
	}
}
