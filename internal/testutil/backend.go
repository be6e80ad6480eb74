// Package testutil provides an in-process fake of the job-queue backend for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// FakeBackend is an httptest server speaking the backend's wire contract.
// Every reply id comes from one counter, so ids are unique across endpoints.
type FakeBackend struct {
	Server   *httptest.Server
	User     string
	Password string
	Session  string

	// DownloadBody is served by doTaskDownloadFileHelper
	DownloadBody []byte
	// FailTask makes every job submitted through doTask<TypeName> report FAILED
	FailTask map[string]bool
	// RejectCreate makes create<TypeName> reply with HTTP 500
	RejectCreate map[string]bool

	mu       sync.Mutex
	nextID   int64
	requests []string
	uploads  map[string][]byte
	jobs     map[int64]string
	statuses map[int64][]string
}

// NewFakeBackend starts a fake backend that accepts user/secret
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	b := &FakeBackend{
		User:         "user",
		Password:     "secret",
		Session:      "session-1",
		DownloadBody: []byte("event_id,loss\n1,10.5\n"),
		FailTask:     make(map[string]bool),
		RejectCreate: make(map[string]bool),
		nextID:       100,
		uploads:      make(map[string][]byte),
		jobs:         make(map[int64]string),
		statuses:     make(map[int64][]string),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the base URL including the API prefix
func (b *FakeBackend) URL() string {
	return b.Server.URL + "/oasis"
}

// ScriptStatus sets the statuses returned, in order, for jobID.
// The last status repeats once the script is exhausted.
func (b *FakeBackend) ScriptStatus(jobID int64, statuses ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses[jobID] = statuses
}

// NextID returns the id the backend will hand out next
func (b *FakeBackend) NextID() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextID
}

// Requests returns every escaped request path received, in order, without the API prefix
func (b *FakeBackend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

// Count returns how many requests started with prefix
func (b *FakeBackend) Count(prefix string) int {
	n := 0
	for _, p := range b.Requests() {
		if strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

// Upload returns the content received for a multipart field
func (b *FakeBackend) Upload(field string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.uploads[field]
	return data, ok
}

func (b *FakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/oasis")

	b.mu.Lock()
	b.requests = append(b.requests, strings.TrimPrefix(r.URL.EscapedPath(), "/oasis"))
	b.mu.Unlock()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if path == "/login" {
		b.login(w, r)
		return
	}

	if cookie, err := r.Cookie("sessionid"); err != nil || cookie.Value != b.Session {
		http.Error(w, "not logged in", http.StatusForbidden)
		return
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	endpoint := segments[0]

	switch {
	case endpoint == "doTaskUploadFileHelper":
		b.upload(w, r)

	case endpoint == "doTaskDownloadFileHelper":
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(b.DownloadBody)

	case endpoint == "statusAsync":
		b.status(w, segments)

	case strings.HasPrefix(endpoint, "doTask"), endpoint == "saveFilePubGUL":
		jobID := b.issue()
		b.mu.Lock()
		b.jobs[jobID] = strings.TrimPrefix(endpoint, "doTask")
		b.mu.Unlock()
		writeJSON(w, map[string]interface{}{"JobId": jobID})

	case strings.HasPrefix(endpoint, "create"):
		if b.RejectCreate[strings.TrimPrefix(endpoint, "create")] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{"taskId": b.issue()})

	case endpoint == "updateFileDownload":
		writeJSON(w, map[string]interface{}{"taskId": b.issue()})

	default:
		http.NotFound(w, r)
	}
}

func (b *FakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "bad login body", http.StatusBadRequest)
		return
	}
	if creds.Username != b.User || creds.Password != b.Password {
		writeJSON(w, map[string]interface{}{"success": false})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: b.Session, Path: "/"})
	writeJSON(w, map[string]interface{}{"success": true})
}

func (b *FakeBackend) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "bad multipart body", http.StatusBadRequest)
		return
	}
	for field, headers := range r.MultipartForm.File {
		for _, h := range headers {
			f, err := h.Open()
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(f)
			_ = f.Close()
			b.mu.Lock()
			b.uploads[field] = data
			b.mu.Unlock()
		}
	}
	writeJSON(w, map[string]interface{}{"status": "uploaded"})
}

func (b *FakeBackend) status(w http.ResponseWriter, segments []string) {
	if len(segments) < 3 {
		http.Error(w, "bad status path", http.StatusBadRequest)
		return
	}
	jobID, err := strconv.ParseInt(segments[2], 10, 64)
	if err != nil {
		http.Error(w, "bad job id", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	status := "done"
	if script := b.statuses[jobID]; len(script) > 0 {
		status = script[0]
		if len(script) > 1 {
			b.statuses[jobID] = script[1:]
		}
	} else if b.FailTask[b.jobs[jobID]] {
		status = "FAILED"
	}
	writeJSON(w, map[string]interface{}{"status": status, "job": fmt.Sprint(jobID)})
}

func (b *FakeBackend) issue() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	return id
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
