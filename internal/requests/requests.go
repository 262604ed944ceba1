// Package requests holds the shared HTTP request/response plumbing used
// by the token exchanger and the resource client. It deliberately
// contains no retry logic: retry policy belongs to the caller.
package requests

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// HttpClient interface for making HTTP requests
type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Compile-time check that http.Client implements HttpClient
var _ HttpClient = (*http.Client)(nil)

// Request describes one HTTP call before it is built and sent.
type Request struct {
	// Name identifies the call in logs and error messages.
	Name   string
	Method string
	URL    string

	headers     map[string]string
	contentType string
	body        []byte
}

// SetJSONBody marshals v as the request body with a JSON content type.
func (r *Request) SetJSONBody(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	r.contentType = "application/json"
	r.body = data
	return nil
}

// SetFormBody encodes fields as an x-www-form-urlencoded request body.
func (r *Request) SetFormBody(fields map[string]string) {
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	r.contentType = "application/x-www-form-urlencoded"
	r.body = []byte(values.Encode())
}

// SetRawBody sets an opaque request body with an explicit content type.
func (r *Request) SetRawBody(contentType string, body []byte) {
	r.contentType = contentType
	r.body = body
}

// SetHeader sets a request header.
func (r *Request) SetHeader(key, value string) {
	if r.headers == nil {
		r.headers = map[string]string{}
	}
	r.headers[key] = value
}

// SetBasicAuth sets an Authorization header with HTTP basic credentials.
func (r *Request) SetBasicAuth(username, password string) {
	r.SetHeader("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(username+":"+password)))
}

// SetBearerToken sets an Authorization header with a bearer token.
func (r *Request) SetBearerToken(token string) {
	r.SetHeader("Authorization", "Bearer "+token)
}

func (r *Request) buildHttpRequest(ctx context.Context) (*http.Request, error) {
	var bodyReader io.Reader
	if r.body != nil {
		bodyReader = bytes.NewReader(r.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.Method, r.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if r.contentType != "" {
		httpReq.Header.Set("Content-Type", r.contentType)
	}
	for k, v := range r.headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// Send builds and sends an HTTP request, returning a Result with the
// response body fully buffered. A non-nil Result is always returned.
func Send(ctx context.Context, client HttpClient, req *Request) *Result {
	httpReq, err := req.buildHttpRequest(ctx)
	if err != nil {
		return &Result{err: fmt.Errorf("%s: %w", req.Name, err)}
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return &Result{err: fmt.Errorf("%s: request failed: %w", req.Name, err)}
	}

	// Read response body and close immediately to avoid resource leaks
	respBody, err := io.ReadAll(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil {
		slog.Warn("failed to close response body",
			slog.String("request", req.Name),
			slog.String("error", closeErr.Error()))
	}
	if err != nil {
		return &Result{err: fmt.Errorf("%s: failed to read response body: %w", req.Name, err)}
	}

	return &Result{statusCode: resp.StatusCode, body: respBody}
}

// Result holds the buffered response from Send.
type Result struct {
	statusCode int
	body       []byte
	err        error
}

// Err returns the transport-level error, nil if a response was received.
func (r *Result) Err() error {
	return r.err
}

// StatusCode returns the HTTP status code, 0 when no response arrived.
func (r *Result) StatusCode() int {
	return r.statusCode
}

// Body returns the buffered response body.
func (r *Result) Body() []byte {
	return r.body
}

// Scan unmarshals the response body into v.
func (r *Result) Scan(v any) error {
	if r.err != nil {
		return r.err
	}
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("failed to decode response body for status %d: %w", r.statusCode, err)
	}
	return nil
}
