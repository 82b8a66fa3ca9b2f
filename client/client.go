// Package client is a typed Go SDK for the harmonizer REST API and its
// event stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// requestIDHeader is echoed by the server on every response.
const requestIDHeader = "X-Request-ID"

// maxRetryWait caps how long a single Retry-After is honoured.
const maxRetryWait = 5 * time.Second

// Client talks to one harmonizer server. The per-area services share it.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	maxRetries int
	httpClient *http.Client

	Skills   *SkillService
	Ontology *OntologyService
	Admin    *AdminService
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the bearer token. Only the admin and events endpoints
// require it.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithMaxRetries sets how many times a rate-limited (429) call is retried
// after the server's Retry-After. Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = max(n, 0) }
}

// New creates a client for baseURL, e.g. "http://localhost:8000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  "harmonizer-go-client",
		maxRetries: 2,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	c.Skills = &SkillService{c: c}
	c.Ontology = &OntologyService{c: c}
	c.Admin = &AdminService{c: c}
	return c
}

// Health returns liveness and cache state. The server answers 200 even when
// degraded.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/api/v1/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ready returns the readiness check. A not-ready server answers 503, which
// is reported as an *APIError.
func (c *Client) Ready(ctx context.Context) (*ReadinessResponse, error) {
	var resp ReadinessResponse
	if err := c.get(ctx, "/api/v1/ready", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns taxonomy counts.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.get(ctx, "/api/v1/stats", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do sends one JSON call, retrying 429 responses, and decodes the result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		status, header, respBody, err := c.send(ctx, method, path, payload)
		if err != nil {
			return err
		}

		if status < 400 {
			if result != nil && len(respBody) > 0 {
				if err := json.Unmarshal(respBody, result); err != nil {
					return fmt.Errorf("decoding response: %w", err)
				}
			}
			return nil
		}

		apiErr := parseAPIError(status, respBody)
		if apiErr.RequestID == "" {
			apiErr.RequestID = header.Get(requestIDHeader)
		}

		if status != http.StatusTooManyRequests || attempt >= c.maxRetries {
			return apiErr
		}

		t := time.NewTimer(retryAfter(header))
		select {
		case <-ctx.Done():
			t.Stop()
			return apiErr
		case <-t.C:
		}
	}
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (int, http.Header, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("reading response: %w", err)
	}

	return resp.StatusCode, resp.Header, respBody, nil
}

// retryAfter reads a Retry-After in seconds, defaulting to one second.
func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs < 0 {
		return time.Second
	}
	return min(time.Duration(secs)*time.Second, maxRetryWait)
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}
