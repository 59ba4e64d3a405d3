package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/leg100/kvproxy/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientConfig{URL: srv.URL})
	require.NoError(t, err)
	return client
}

func TestNewURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:5000", NewURL("127.0.0.1", 5000))
	assert.Equal(t, "http://[::1]:8080", NewURL("::1", 8080))
}

func TestNewClient_InvalidURL(t *testing.T) {
	for _, u := range []string{"localhost:5000", "://nope", "/just/a/path"} {
		_, err := NewClient(ClientConfig{URL: u})
		assert.Error(t, err, u)
	}
}

func TestClient_Get(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/get/color", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Write([]byte(`{"color":"blue"}`))
	})

	got, err := client.Get(context.Background(), "color")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"color": "blue"}, got)
}

func TestClient_Get_EscapesKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get/hello%20world", r.URL.EscapedPath())

		w.Write([]byte(`{"hello world":"hi"}`))
	})

	got, err := client.Get(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"hello world": "hi"}, got)
}

func TestClient_Set(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/set", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"key":"color","value":"blue"}`, string(body))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status":"success"}`))
	})

	got, err := client.Set(context.Background(), json.RawMessage(`{"key":"color","value":"blue"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"status": "success"}, got)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    string
		want    string
		wantErr *internal.HTTPError
	}{
		{
			name:    "not found",
			code:    404,
			body:    `{"error":"Key not found"}`,
			want:    "404 Not Found: Key not found",
			wantErr: &internal.HTTPError{Code: 404, Status: "404 Not Found", Message: "Key not found"},
		},
		{
			name:    "bad request",
			code:    400,
			body:    `{"error":"Key and value are required"}`,
			want:    "400 Bad Request: Key and value are required",
			wantErr: &internal.HTTPError{Code: 400, Status: "400 Bad Request", Message: "Key and value are required"},
		},
		{
			name:    "non-json error",
			code:    502,
			body:    `<html>bad gateway</html>`,
			want:    "502 Bad Gateway",
			wantErr: &internal.HTTPError{Code: 502, Status: "502 Bad Gateway"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			})

			_, err := client.Get(context.Background(), "color")
			assert.EqualError(t, err, tt.want)

			var httpErr *internal.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.wantErr, httpErr)
		})
	}
}

func TestClient_MalformedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := client.Get(context.Background(), "color")
	assert.ErrorContains(t, err, "unmarshalling response")
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	client, err := NewClient(ClientConfig{URL: url})
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "color")
	assert.ErrorContains(t, err, "connection refused")
}

func TestClient_NoRetries(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Get(context.Background(), "color")
	assert.Error(t, err)
	assert.Equal(t, int32(1), requests.Load())
}
