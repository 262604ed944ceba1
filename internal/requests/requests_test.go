package requests

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_BuffersResponse(t *testing.T) {
	var gotContentType, gotAuth string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	req := &Request{Name: "test.call", Method: http.MethodPost, URL: server.URL}
	req.SetFormBody(map[string]string{"grant_type": "jwt-bearer", "scope": "a b"})
	req.SetBearerToken("tok")

	result := Send(context.Background(), server.Client(), req)
	require.NoError(t, result.Err())
	assert.Equal(t, http.StatusCreated, result.StatusCode())
	assert.Equal(t, `{"status":"ok"}`, string(result.Body()))

	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Contains(t, string(gotBody), "grant_type=jwt-bearer")
	assert.Contains(t, string(gotBody), "scope=a+b")

	var decoded struct {
		Status string `json:"status"`
	}
	require.NoError(t, result.Scan(&decoded))
	assert.Equal(t, "ok", decoded.Status)
}

func TestSend_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	req := &Request{Name: "test.call", Method: http.MethodGet, URL: server.URL}
	result := Send(context.Background(), http.DefaultClient, req)
	require.Error(t, result.Err())
	assert.Contains(t, result.Err().Error(), "test.call")
	assert.Equal(t, 0, result.StatusCode())
}

func TestSetBasicAuth(t *testing.T) {
	req := &Request{}
	req.SetBasicAuth("user", "pass")
	// base64("user:pass")
	assert.Equal(t, "Basic dXNlcjpwYXNz", req.headers["Authorization"])
}

func TestScan_InvalidJSON(t *testing.T) {
	result := &Result{statusCode: http.StatusOK, body: []byte("not-json")}
	var v map[string]any
	require.Error(t, result.Scan(&v))
}
