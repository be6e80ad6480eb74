package models

import (
	"errors"
	"fmt"
)

// ResourceRecord holds every identifier produced for one resource during a run
type ResourceRecord struct {
	LocalPath        string   `json:"local_path,omitempty" yaml:"local_path,omitempty"`
	UploadFilename   string   `json:"upload_filename,omitempty" yaml:"upload_filename,omitempty"`
	TimestampPrefix  string   `json:"timestamp_prefix,omitempty" yaml:"timestamp_prefix,omitempty"`
	UploadHandle     *int64   `json:"upload_handle,omitempty" yaml:"upload_handle,omitempty"`
	DownloadHandle   *int64   `json:"download_handle,omitempty" yaml:"download_handle,omitempty"`
	DownloadTaskID   *int64   `json:"download_task_id,omitempty" yaml:"download_task_id,omitempty"` // taskId of updateFileDownload
	ModuleSupplierID int      `json:"module_supplier_id" yaml:"module_supplier_id"`
	CreationTaskID   *int64   `json:"creation_task_id,omitempty" yaml:"creation_task_id,omitempty"`
	JobID            *int64   `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	JobState         JobState `json:"job_state,omitempty" yaml:"job_state,omitempty"`
	LastPayload      string   `json:"last_payload,omitempty" yaml:"last_payload,omitempty"`
}

// Int64Ptr returns a pointer to a copy of v
func Int64Ptr(v int64) *int64 {
	return &v
}

// IsStaged reports whether both file handles are present
func (r ResourceRecord) IsStaged() bool {
	return r.UploadHandle != nil && r.DownloadHandle != nil
}

// IsCreated reports whether the remote object exists
func (r ResourceRecord) IsCreated() bool {
	return r.CreationTaskID != nil
}

// IsQueued reports whether a job was ever submitted for this record
func (r ResourceRecord) IsQueued() bool {
	return r.JobID != nil
}

// Validate checks the ordering invariants of a record
func (r *ResourceRecord) Validate() error {
	if r.JobID != nil && r.CreationTaskID == nil {
		return errors.New("job_id set before creation_task_id")
	}
	if !IsValidJobState(r.JobState) {
		return fmt.Errorf("invalid job_state: %s", r.JobState)
	}
	if r.JobState != JobStateNone && r.JobID == nil {
		return fmt.Errorf("job_state %s without job_id", r.JobState)
	}
	if r.ModuleSupplierID < 0 {
		return errors.New("module_supplier_id cannot be negative")
	}
	return nil
}

// Clone returns a deep copy of the record
func (r ResourceRecord) Clone() ResourceRecord {
	out := r
	out.UploadHandle = clonePtr(r.UploadHandle)
	out.DownloadHandle = clonePtr(r.DownloadHandle)
	out.DownloadTaskID = clonePtr(r.DownloadTaskID)
	out.CreationTaskID = clonePtr(r.CreationTaskID)
	out.JobID = clonePtr(r.JobID)
	return out
}

func clonePtr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
