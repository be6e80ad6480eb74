package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/trobanga/spittal/internal/lib"
	"github.com/trobanga/spittal/internal/models"
	"github.com/trobanga/spittal/internal/ui"
)

// TimestampLayout is the local-time prefix put in front of upload names
const TimestampLayout = "20060102_150405_"

// Stager moves local files to and from the backend file store
type Stager struct {
	client       *SessionClient
	registry     *models.Registry
	pubUser      string
	logger       *lib.Logger
	now          func() time.Time
	progressOut  io.Writer
	showProgress bool
}

// NewStager creates a stager writing records into registry
func NewStager(client *SessionClient, registry *models.Registry, pubUser string, logger *lib.Logger) *Stager {
	return &Stager{
		client:      client,
		registry:    registry,
		pubUser:     pubUser,
		logger:      logger,
		now:         time.Now,
		progressOut: os.Stderr,
	}
}

// WithProgress enables a byte progress bar on out while uploading
func (s *Stager) WithProgress(out io.Writer) *Stager {
	s.showProgress = true
	s.progressOut = out
	return s
}

// WithClock overrides the clock used for timestamp prefixes
func (s *Stager) WithClock(now func() time.Time) *Stager {
	s.now = now
	return s
}

// UploadName computes the server-visible name of a local file
func UploadName(localPath string, timestamp bool, now time.Time) (name string, prefix string) {
	base := norm.NFC.String(filepath.Base(localPath))
	if !timestamp {
		return base, ""
	}
	prefix = now.Format(TimestampLayout)
	return prefix + base, prefix
}

// Stage uploads localPath and records fresh upload and download handles for key.
// The registry is written only after every call succeeded; staging the same
// key again replaces its record. A key whose job was queued cannot be staged again.
func (s *Stager) Stage(key models.ResourceKey, localPath string, moduleSupplierID int, timestamp bool) (models.ResourceRecord, error) {
	t, ok := models.TypeOf(key)
	if !ok || !t.IsFileBacked() {
		return models.ResourceRecord{}, fmt.Errorf("%s is not a file-backed resource", key)
	}
	if current, err := s.registry.Get(key); err == nil && current.IsQueued() {
		return models.ResourceRecord{}, &lib.AlreadyQueuedError{Key: key, JobID: *current.JobID}
	}

	f, err := os.Open(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.ResourceRecord{}, lib.ErrFileNotFound(localPath)
		}
		return models.ResourceRecord{}, fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	uploadName, prefix := UploadName(localPath, timestamp, s.now())

	upload, err := s.createHandle("createFileUpload", uploadName, moduleSupplierID)
	if err != nil {
		return models.ResourceRecord{}, fmt.Errorf("upload handle for %s: %w", key, err)
	}
	download, err := s.createHandle("createFileDownload", uploadName, moduleSupplierID)
	if err != nil {
		return models.ResourceRecord{}, fmt.Errorf("download handle for %s: %w", key, err)
	}

	var body io.Reader = f
	var bar *ui.ProgressBar
	if s.showProgress {
		if info, statErr := f.Stat(); statErr == nil {
			bar = ui.NewProgressBarWithWriter(info.Size(), "Uploading "+uploadName, s.progressOut)
			body = bar.WrapReader(f)
		}
	}

	_, err = s.client.Fetch(apiPath("doTaskUploadFileHelper"), nil, []FilePart{{
		Field:    uploadName,
		Filename: uploadName,
		Reader:   body,
	}})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return models.ResourceRecord{}, fmt.Errorf("upload of %s: %w", key, err)
	}

	record := models.SetStaged(localPath, uploadName, prefix, moduleSupplierID, upload, download)
	if err := s.registry.Put(key, record); err != nil {
		return models.ResourceRecord{}, err
	}
	lib.LogFileStaged(s.logger, key.String(), uploadName, upload, download)
	return record, nil
}

// AllocateDownload obtains a download handle for a backend-produced file and
// stores it on the key's record
func (s *Stager) AllocateDownload(key models.ResourceKey, filename string, moduleSupplierID int) (int64, error) {
	name := norm.NFC.String(filename)
	download, err := s.createHandle("createFileDownload", name, moduleSupplierID)
	if err != nil {
		return 0, fmt.Errorf("download handle for %s: %w", key, err)
	}

	setDownload := func(r models.ResourceRecord) (models.ResourceRecord, error) {
		r.DownloadHandle = models.Int64Ptr(download)
		r.UploadFilename = name
		r.ModuleSupplierID = moduleSupplierID
		return r, nil
	}

	if s.registry.Has(key) {
		err = s.registry.Update(key, setDownload)
	} else {
		record, _ := setDownload(models.ResourceRecord{})
		err = s.registry.Put(key, record)
	}
	if err != nil {
		return 0, err
	}

	s.logger.Info("Download handle allocated", "resource", key.String(), "download_id", download, "filename", name)
	return download, nil
}

// UpdateDownload binds a download handle to the named backend output and
// records the returned task id on key's record
func (s *Stager) UpdateDownload(key models.ResourceKey, downloadID int64, name string, moduleSupplierID int, filename string) (int64, error) {
	path := apiPath("updateFileDownload", downloadID, name, moduleSupplierID, norm.NFC.String(filename))
	resp, err := s.client.Send(path, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("update download %d: %w", downloadID, err)
	}
	taskID, err := resp.Int64("taskId")
	if err != nil {
		return 0, fmt.Errorf("update download %d: %w", downloadID, err)
	}

	if s.registry.Has(key) {
		if err := s.registry.Update(key, func(r models.ResourceRecord) (models.ResourceRecord, error) {
			r.DownloadTaskID = models.Int64Ptr(taskID)
			return r, nil
		}); err != nil {
			return 0, err
		}
	}

	s.logger.Info("Download handle updated", "resource", key.String(), "download_id", downloadID, "task_id", taskID)
	return taskID, nil
}

// Download writes the file behind a download handle to destPath
// Uses temp file + rename so a partial download never appears at destPath
func (s *Stager) Download(downloadID int64, destPath string) (int64, error) {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	tempFile := filepath.Join(dir, fmt.Sprintf(".%s.tmp.%s", filepath.Base(destPath), uuid.New().String()))
	out, err := os.Create(tempFile)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	n, err := s.client.FetchTo(apiPath("doTaskDownloadFileHelper", downloadID), nil, nil, out)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tempFile)
		return 0, fmt.Errorf("download %d: %w", downloadID, err)
	}

	if err := os.Rename(tempFile, destPath); err != nil {
		_ = os.Remove(tempFile)
		return 0, fmt.Errorf("failed to save download: %w", err)
	}

	s.logger.Info("File downloaded", "download_id", downloadID, "path", destPath, "size", ui.FormatBytes(n))
	return n, nil
}

func (s *Stager) createHandle(endpoint, name string, moduleSupplierID int) (int64, error) {
	resp, err := s.client.Send(apiPath(endpoint, s.pubUser, name, moduleSupplierID), nil, nil)
	if err != nil {
		return 0, err
	}
	return resp.Int64("taskId")
}
