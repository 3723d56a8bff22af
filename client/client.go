// Package client provides the HTTP client for the meetscribe transcription
// API. It handles request construction, authentication headers, retry logic,
// and error mapping.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hdntran/meetscribe-cli/config"
	"github.com/hdntran/meetscribe-cli/credentials"
	mserrors "github.com/hdntran/meetscribe-cli/pkg/errors"
	"github.com/hdntran/meetscribe-cli/pkg/logging"
)

// Default client settings.
const (
	DefaultRequestTimeout    = 10 * time.Minute
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 500 * time.Millisecond
	DefaultMaxBackoff        = 5 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Options configures the Client behavior.
type Options struct {
	// Timeout is the maximum duration for a single request, including
	// uploads. Long because transcription uploads can be large.
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for retryable
	// failures.
	MaxRetries int

	// InitialBackoff is the initial backoff duration for retries.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration for retries.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64

	// Insecure disables TLS certificate verification (for development only).
	Insecure bool

	// Debug enables verbose logging.
	Debug bool

	// APIKey is sent as X-API-Key on every request when set.
	APIKey string

	// Token is sent as a bearer token on every request when set.
	Token string

	// Logger receives request/response debug logs. Defaults to a no-op
	// logger.
	Logger logging.Logger

	// HTTPClient overrides the underlying HTTP client. Used in tests.
	HTTPClient *http.Client
}

// DefaultOptions returns Options with default values.
func DefaultOptions() *Options {
	return &Options{
		Timeout:           DefaultRequestTimeout,
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// Client is the meetscribe API client.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	options    *Options
	log        logging.Logger
}

// New creates a Client for the given server base URL.
func New(serverURL string, opts *Options) (*Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRequestTimeout
	}
	if opts.BackoffMultiplier <= 1 {
		opts.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	base, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server URL %q: %w", serverURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server URL %q must use http or https", serverURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   opts.Timeout,
			Transport: newTransport(opts.Insecure),
		}
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		options:    opts,
		log:        opts.Logger,
	}, nil
}

// FromConfig creates a Client from CLI configuration, attaching stored
// credentials when available. Missing credentials are not an error; the
// backend decides whether authentication is required.
func FromConfig(cfg *config.CLIConfig, log logging.Logger) (*Client, error) {
	opts := DefaultOptions()
	opts.Timeout = cfg.Timeout
	opts.Insecure = cfg.Insecure
	opts.Debug = cfg.Debug
	opts.Logger = log

	if store, err := credentials.NewStore(); err == nil {
		if creds, err := store.GetActiveCredential(); err == nil {
			opts.APIKey = creds.APIKey
			opts.Token = creds.Token
		}
	}

	return New(cfg.ServerURL, opts)
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// endpoint joins the base URL with an API path and optional query values.
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// newRequest builds a request with standard headers: request ID, accept,
// and authentication.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.options.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.options.Token)
	} else if c.options.APIKey != "" {
		req.Header.Set("X-API-Key", c.options.APIKey)
	}

	return req, nil
}

// do executes a request and decodes a JSON response into out (which may be
// nil). Non-2xx responses are returned as *mserrors.APIError with the
// server's detail message extracted.
func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug("api request",
		logging.F("method", req.Method),
		logging.F("path", req.URL.Path),
		logging.F("status", resp.StatusCode),
		logging.F("duration", time.Since(start)))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return apiErrorFromResponse(req, resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// apiErrorFromResponse extracts the FastAPI-style {"detail": "..."} message
// from an error body, falling back to the raw body or status text.
func apiErrorFromResponse(req *http.Request, status int, body []byte) error {
	detail := ""
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		detail = payload.Detail
	} else if len(body) > 0 {
		detail = strings.TrimSpace(string(body))
		if len(detail) > 200 {
			detail = detail[:200]
		}
	}
	if detail == "" {
		detail = http.StatusText(status)
	}

	return &mserrors.APIError{
		StatusCode: status,
		Detail:     detail,
		Method:     req.Method,
		Path:       req.URL.Path,
	}
}

// getJSON performs a GET with retry and decodes the response.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.withRetry(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, path, query, nil, "")
		if err != nil {
			return err
		}
		return c.do(req, out)
	})
}

// postJSON performs a POST with a JSON body. Not retried: POSTs are not
// assumed idempotent.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// putJSON performs a PUT with a JSON body.
func (c *Client) putJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, path, nil, bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// delete performs a DELETE.
func (c *Client) delete(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil, nil, "")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// withRetry executes fn with exponential backoff on retryable failures:
// transport errors and 429/5xx responses. Context cancellation stops the
// loop immediately.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	backoff := c.options.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.options.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == c.options.MaxRetries {
			break
		}

		c.log.Debug("retrying request",
			logging.F("attempt", attempt+1),
			logging.F("backoff", backoff),
			logging.Err(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("operation cancelled: %w", ctx.Err())
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * c.options.BackoffMultiplier)
		if backoff > c.options.MaxBackoff {
			backoff = c.options.MaxBackoff
		}
	}

	return lastErr
}

// isRetryable reports whether an error is worth retrying. API errors carry
// their own classification; everything else is treated as a transport-level
// failure unless the context was cancelled.
func isRetryable(err error) bool {
	if apiErr, ok := mserrors.AsAPIError(err); ok {
		return apiErr.Retryable()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// HealthStatus is the backend liveness payload.
type HealthStatus struct {
	Status             string `json:"status"`
	Timestamp          string `json:"timestamp"`
	MeetingsCount      int    `json:"meetings_count"`
	TranscriptionTasks int    `json:"transcription_tasks"`
}

// Health checks backend liveness via GET /api/health.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.getJSON(ctx, "/api/health", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
