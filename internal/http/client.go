package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/leg100/kvproxy/internal"
)

type (
	// Client is a client for the kvproxy API.
	Client struct {
		baseURL *url.URL
		http    *retryablehttp.Client
	}

	// ClientConfig provides configuration details to the API client.
	ClientConfig struct {
		// The URL of the kvproxy server.
		URL string
		// Override default http transport
		Transport http.RoundTripper
		// Logger for debugging requests
		Logger logr.Logger
	}
)

// NewURL builds the base URL of a kvproxy server from its host and port.
func NewURL(host string, port int) string {
	return (&url.URL{Scheme: "http", Host: net.JoinHostPort(host, strconv.Itoa(port))}).String()
}

func NewClient(config ClientConfig) (*Client, error) {
	if config.URL == "" {
		config.URL = NewURL(DefaultHost, DefaultPort)
	}
	if config.Transport == nil {
		config.Transport = http.DefaultTransport
	}
	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
	}

	baseURL, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid server url: %s", config.URL)
	}
	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}

	return &Client{
		baseURL: baseURL,
		http: &retryablehttp.Client{
			HTTPClient:   &http.Client{Transport: config.Transport},
			Logger:       leveledLogger{config.Logger},
			ErrorHandler: retryablehttp.PassthroughErrorHandler,
			// retries are disabled: each call makes exactly one request.
			CheckRetry: func(_ context.Context, _ *http.Response, err error) (bool, error) {
				return false, err
			},
		},
	}, nil
}

// Get retrieves the value of key, returning the server's response, which
// maps the key to its value.
func (c *Client) Get(ctx context.Context, key string) (map[string]string, error) {
	var resp map[string]string
	if err := c.do(ctx, "GET", "get/"+url.PathEscape(key), nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Set sends body, a JSON document holding a key and value, to be stored.
func (c *Client) Set(ctx context.Context, body json.RawMessage) (map[string]string, error) {
	var resp map[string]string
	if err := c.do(ctx, "POST", "set", body, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, v any) error {
	u, err := c.baseURL.Parse(path)
	if err != nil {
		return err
	}
	var reqBody any
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// If we got an error, and the context has been canceled,
		// the context's error is probably more useful.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return err
		}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if err := checkResponseCode(resp, b); err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("unmarshalling response: %w", err)
	}
	return nil
}

// checkResponseCode returns an error if the response is not a success,
// including the error message from the body if there is one.
func checkResponseCode(r *http.Response, body []byte) error {
	if r.StatusCode >= 200 && r.StatusCode <= 299 {
		return nil
	}
	httpErr := &internal.HTTPError{Code: r.StatusCode, Status: r.Status}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		httpErr.Message = payload.Error
	}
	return httpErr
}

// leveledLogger adapts logr for use by retryablehttp.
type leveledLogger struct {
	logr.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) {
	l.Logger.Error(nil, msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.Logger.Info(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...any) {
	l.Logger.V(1).Info(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.Logger.V(2).Info(msg, keysAndValues...)
}
