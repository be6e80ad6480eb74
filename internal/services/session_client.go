package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/trobanga/spittal/internal/lib"
)

// SessionCookieName is the cookie the backend issues on login
const SessionCookieName = "sessionid"

const serviceName = "backend"

// FilePart is one file attached to a multipart request
type FilePart struct {
	Field    string
	Filename string
	Reader   io.Reader
}

// SessionClient sends authenticated POST requests to the backend.
// It never retries; callers decide what is safe to repeat.
type SessionClient struct {
	baseURL string
	client  *http.Client
	logger  *lib.Logger
	session string
}

// NewSessionClient creates a client for the backend rooted at baseURL
// (including the API prefix, e.g. http://host:8000/oasis)
func NewSessionClient(baseURL string, timeout time.Duration, logger *lib.Logger) *SessionClient {
	return &SessionClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// BaseURL returns the backend root the client was created with
func (c *SessionClient) BaseURL() string {
	return c.baseURL
}

// Session returns the current session token, empty before Authenticate
func (c *SessionClient) Session() string {
	return c.session
}

// SetSession installs a session token obtained elsewhere
func (c *SessionClient) SetSession(token string) {
	c.session = token
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Authenticate exchanges credentials for a session token and keeps it for
// all subsequent calls
func (c *SessionClient) Authenticate(user, password string) (string, error) {
	body, err := json.Marshal(loginRequest{Username: user, Password: password})
	if err != nil {
		return "", fmt.Errorf("failed to encode login request: %w", err)
	}

	const path = "/login"
	status, raw, cookies, err := c.post(path, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	resp, err := parseResponse(path, status, raw)
	if err != nil {
		return "", err
	}

	ok, err := resp.Bool("success")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &lib.AuthError{User: user, Payload: resp.Raw()}
	}

	for _, cookie := range cookies {
		if cookie.Name == SessionCookieName && cookie.Value != "" {
			c.session = cookie.Value
			c.logger.Info("Logged in to backend", "user", user)
			return c.session, nil
		}
	}
	return "", &lib.ProtocolError{Path: path, StatusCode: status, Reason: "login succeeded without a " + SessionCookieName + " cookie", Body: resp.Raw()}
}

// Send posts form fields and files to path and parses the JSON object reply
func (c *SessionClient) Send(path string, form url.Values, files []FilePart) (*Response, error) {
	contentType, body, err := encodeBody(form, files)
	if err != nil {
		return nil, err
	}
	status, raw, _, err := c.post(path, contentType, body)
	if err != nil {
		return nil, err
	}
	return parseResponse(path, status, raw)
}

// Fetch posts to path and returns the raw reply body
func (c *SessionClient) Fetch(path string, form url.Values, files []FilePart) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.FetchTo(path, form, files, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FetchTo posts to path and streams the reply body into w
func (c *SessionClient) FetchTo(path string, form url.Values, files []FilePart, w io.Writer) (int64, error) {
	contentType, body, err := encodeBody(form, files)
	if err != nil {
		return 0, err
	}

	resp, err := c.do(path, contentType, body)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return 0, &lib.ProtocolError{Path: path, StatusCode: resp.StatusCode, Reason: "unexpected status", Body: string(raw)}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &lib.TransportError{Path: path, Err: err}
	}
	return n, nil
}

func (c *SessionClient) post(path, contentType string, body io.Reader) (int, []byte, []*http.Cookie, error) {
	resp, err := c.do(path, contentType, body)
	if err != nil {
		return 0, nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, nil, &lib.TransportError{Path: path, Err: err}
	}
	return resp.StatusCode, raw, resp.Cookies(), nil
}

func (c *SessionClient) do(path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: c.session})
	}

	lib.LogServiceCall(c.logger, serviceName, path, req.Method)
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &lib.TransportError{Path: path, Err: err}
	}
	lib.LogServiceResponse(c.logger, serviceName, resp.StatusCode, time.Since(start))
	return resp, nil
}

func encodeBody(form url.Values, files []FilePart) (string, io.Reader, error) {
	if len(files) == 0 {
		if len(form) == 0 {
			return "", nil, nil
		}
		return "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, values := range form {
		for _, v := range values {
			if err := w.WriteField(field, v); err != nil {
				return "", nil, fmt.Errorf("failed to write form field %s: %w", field, err)
			}
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return "", nil, fmt.Errorf("failed to create file part %s: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return "", nil, fmt.Errorf("failed to read file %s: %w", f.Filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return w.FormDataContentType(), &buf, nil
}

// Response is a parsed JSON object reply
type Response struct {
	Path   string
	Status int
	body   []byte
	fields map[string]json.RawMessage
}

func parseResponse(path string, status int, body []byte) (*Response, error) {
	if status < 200 || status >= 300 {
		return nil, &lib.ProtocolError{Path: path, StatusCode: status, Reason: "unexpected status", Body: string(body)}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, &lib.ProtocolError{Path: path, StatusCode: status, Reason: "reply is not a JSON object", Body: string(body)}
	}
	return &Response{Path: path, Status: status, body: body, fields: fields}, nil
}

// Raw returns the reply body as received
func (r *Response) Raw() string {
	return string(r.body)
}

// Int64 returns an integer field; strings, fractions and missing fields are protocol errors
func (r *Response) Int64(field string) (int64, error) {
	raw, ok := r.fields[field]
	if !ok {
		return 0, r.fieldError(field, "missing field")
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, r.fieldError(field, "not an integer")
	}
	return v, nil
}

// Bool returns a boolean field
func (r *Response) Bool(field string) (bool, error) {
	raw, ok := r.fields[field]
	if !ok {
		return false, r.fieldError(field, "missing field")
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, r.fieldError(field, "not a boolean")
	}
	return v, nil
}

// String returns a string field
func (r *Response) String(field string) (string, error) {
	raw, ok := r.fields[field]
	if !ok {
		return "", r.fieldError(field, "missing field")
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", r.fieldError(field, "not a string")
	}
	return v, nil
}

func (r *Response) fieldError(field, reason string) error {
	return &lib.ProtocolError{Path: r.Path, StatusCode: r.Status, Reason: fmt.Sprintf("%s %q", reason, field), Body: r.Raw()}
}

// apiPath builds "/endpoint/seg1/seg2/" with each segment path-escaped
func apiPath(endpoint string, segments ...interface{}) string {
	var b strings.Builder
	b.WriteString("/")
	b.WriteString(endpoint)
	b.WriteString("/")
	for _, s := range segments {
		b.WriteString(url.PathEscape(fmt.Sprint(s)))
		b.WriteString("/")
	}
	return b.String()
}
