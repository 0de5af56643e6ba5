// Package testutil provides helpers for exercising the site's HTTP endpoints.
// It does not import the sitio package, so it is safe to use from any test.
package testutil

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// RequestBuilder helps construct test HTTP requests with a fluent API.
type RequestBuilder struct {
	method      string
	path        string
	body        []byte
	headers     map[string]string
	queryParams url.Values
	form        url.Values
	files       []file
	remoteAddr  string
}

type file struct {
	field, name string
	data        []byte
}

// NewRequest creates a new request builder.
func NewRequest() *RequestBuilder {
	return &RequestBuilder{
		method:      http.MethodGet,
		path:        "/",
		headers:     make(map[string]string),
		queryParams: make(url.Values),
	}
}

// GET sets the HTTP method to GET.
func (b *RequestBuilder) GET(path string) *RequestBuilder {
	b.method = http.MethodGet
	b.path = path
	return b
}

// POST sets the HTTP method to POST.
func (b *RequestBuilder) POST(path string) *RequestBuilder {
	b.method = http.MethodPost
	b.path = path
	return b
}

// WithBody sets the raw request body.
func (b *RequestBuilder) WithBody(body string) *RequestBuilder {
	b.body = []byte(body)
	return b
}

// WithHeader adds a header to the request.
func (b *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	b.headers[key] = value
	return b
}

// WithQuery adds a query parameter.
func (b *RequestBuilder) WithQuery(key, value string) *RequestBuilder {
	b.queryParams.Add(key, value)
	return b
}

// WithField adds a form field. The body is sent urlencoded unless a file is attached.
func (b *RequestBuilder) WithField(key, value string) *RequestBuilder {
	if b.form == nil {
		b.form = make(url.Values)
	}
	b.form.Add(key, value)
	return b
}

// WithFields adds every field of values.
func (b *RequestBuilder) WithFields(values map[string]string) *RequestBuilder {
	for k, v := range values {
		b.WithField(k, v)
	}
	return b
}

// WithFile attaches a file part and switches the body to multipart/form-data.
func (b *RequestBuilder) WithFile(field, name string, data []byte) *RequestBuilder {
	b.files = append(b.files, file{field: field, name: name, data: data})
	return b
}

// WithRemoteAddr sets the request's RemoteAddr ("ip:port").
func (b *RequestBuilder) WithRemoteAddr(addr string) *RequestBuilder {
	b.remoteAddr = addr
	return b
}

// Build creates the HTTP request and ResponseRecorder.
func (b *RequestBuilder) Build() (*http.Request, *httptest.ResponseRecorder) {
	path := b.path
	if len(b.queryParams) > 0 {
		path += "?" + b.queryParams.Encode()
	}

	body := b.body
	contentType := ""
	switch {
	case len(b.files) > 0:
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for k, vs := range b.form {
			for _, v := range vs {
				mw.WriteField(k, v)
			}
		}
		for _, f := range b.files {
			part, _ := mw.CreateFormFile(f.field, f.name)
			part.Write(f.data)
		}
		mw.Close()
		body = buf.Bytes()
		contentType = mw.FormDataContentType()
	case b.form != nil:
		body = []byte(b.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	var req *http.Request
	if len(body) > 0 {
		req = httptest.NewRequest(b.method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(b.method, path, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	if b.remoteAddr != "" {
		req.RemoteAddr = b.remoteAddr
	}

	return req, httptest.NewRecorder()
}

// Serve builds the request and serves it with h.
func (b *RequestBuilder) Serve(h http.Handler) *httptest.ResponseRecorder {
	req, w := b.Build()
	h.ServeHTTP(w, req)
	return w
}

// AssertStatus checks that the response has the expected status code.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) {
	t.Helper()
	if w.Code != expectedStatus {
		t.Errorf("expected status %d, got %d\nBody: %s", expectedStatus, w.Code, w.Body.String())
	}
}

// ErrorResponse is the failure envelope written by the endpoint layer.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Campos  map[string]string `json:"campos,omitempty"`
}

// AssertJSONError checks that the response is a 400 failure envelope with the expected code.
func AssertJSONError(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) *ErrorResponse {
	t.Helper()

	AssertStatus(t, w, http.StatusBadRequest)
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("expected Content-Type to contain application/json, got %s", ct)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v\nBody: %s", err, w.Body.String())
	}
	if errResp.Success {
		t.Errorf("expected success=false in error response")
	}
	if errResp.Code != expectedCode {
		t.Errorf("expected error code %s, got %s (message: %s)", expectedCode, errResp.Code, errResp.Message)
	}
	return &errResp
}

// AssertHeader checks that a response header has the expected value.
func AssertHeader(t *testing.T, w *httptest.ResponseRecorder, key, expectedValue string) {
	t.Helper()
	if actual := w.Header().Get(key); actual != expectedValue {
		t.Errorf("expected header %s=%s, got %s", key, expectedValue, actual)
	}
}

// DecodeJSON decodes the response body into the provided value.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v\nBody: %s", err, w.Body.String())
	}
}
