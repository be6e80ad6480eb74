package models

import "fmt"

// SetCreated creates a new ResourceRecord with the creation task id set
// Pure function - returns new instance, does not mutate original
func SetCreated(record ResourceRecord, taskID int64, payload string) ResourceRecord {
	record = record.Clone()
	record.CreationTaskID = Int64Ptr(taskID)
	record.LastPayload = payload
	return record
}

// SetQueued creates a new ResourceRecord holding the queued job id
// Pure function - returns new instance
func SetQueued(record ResourceRecord, jobID int64, payload string) (ResourceRecord, error) {
	if record.CreationTaskID == nil {
		return record, fmt.Errorf("cannot queue before creation")
	}
	if record.JobID != nil {
		return record, fmt.Errorf("already queued as job %d", *record.JobID)
	}
	record = record.Clone()
	record.JobID = Int64Ptr(jobID)
	record.JobState = JobStateQueued
	record.LastPayload = payload
	return record, nil
}

// TransitionJob creates a new ResourceRecord in the next job state
// Pure function - returns new instance
func TransitionJob(record ResourceRecord, next JobState, payload string) (ResourceRecord, error) {
	if !record.JobState.CanTransitionTo(next) {
		return record, fmt.Errorf("invalid job transition %q -> %q", record.JobState, next)
	}
	record = record.Clone()
	record.JobState = next
	if payload != "" {
		record.LastPayload = payload
	}
	return record, nil
}

// SetStaged creates a new ResourceRecord with fresh file handles and no
// creation or job identifiers
// Pure function - returns new instance
func SetStaged(localPath, uploadFilename, prefix string, moduleSupplierID int, upload, download int64) ResourceRecord {
	return ResourceRecord{
		LocalPath:        localPath,
		UploadFilename:   uploadFilename,
		TimestampPrefix:  prefix,
		UploadHandle:     Int64Ptr(upload),
		DownloadHandle:   Int64Ptr(download),
		ModuleSupplierID: moduleSupplierID,
	}
}

// Adopt creates a record for a resource that already exists on the backend
// Pure function - returns new instance
func Adopt(taskID int64) ResourceRecord {
	return ResourceRecord{CreationTaskID: Int64Ptr(taskID)}
}
