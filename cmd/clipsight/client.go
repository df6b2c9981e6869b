package main

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
	"syscall"
	"time"

	"clipsight/internal/api"
)

// apiClient is a thin HTTP client for the daemon API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(addr, token string) (*apiClient, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("daemon API address is not configured; set paths.api_bind or pass --api")
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	parsed, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse API address %q: %w", addr, err)
	}
	// A bind-all listen address is not dialable as-is.
	if host := parsed.Hostname(); host == "0.0.0.0" || host == "::" {
		parsed.Host = "127.0.0.1"
		if port := parsed.Port(); port != "" {
			parsed.Host = "127.0.0.1:" + port
		}
	}
	return &apiClient{
		baseURL: strings.TrimRight(parsed.String(), "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *apiClient) Submit(ctx context.Context, req api.SubmitRequest) (api.SubmitResponse, error) {
	var resp api.SubmitResponse
	err := c.do(ctx, http.MethodPost, "/api/jobs", req, &resp)
	return resp, err
}

func (c *apiClient) Job(ctx context.Context, id string) (api.JobResponse, error) {
	var resp api.JobResponse
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func (c *apiClient) List(ctx context.Context) (api.JobListResponse, error) {
	var resp api.JobListResponse
	err := c.do(ctx, http.MethodGet, "/api/jobs", nil, &resp)
	return resp, err
}

func (c *apiClient) Cancel(ctx context.Context, id, reason string) (api.CancelResponse, error) {
	var resp api.CancelResponse
	err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/cancel", api.CancelRequest{Reason: reason}, &resp)
	return resp, err
}

func (c *apiClient) Stats(ctx context.Context) (api.StatsResponse, error) {
	var resp api.StatsResponse
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &resp)
	return resp, err
}

// Health tolerates the 503 the daemon returns when a check fails; the
// decoded body still describes every check.
func (c *apiClient) Health(ctx context.Context) (api.HealthResponse, error) {
	var resp api.HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &resp)
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable && apiErr.decoded {
		return apiErr.health, nil
	}
	return resp, err
}

type apiError struct {
	StatusCode int
	Message    string

	decoded bool
	health  api.HealthResponse
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("daemon returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("daemon returned %d", e.StatusCode)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapDialError(err, c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &apiError{StatusCode: resp.StatusCode}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}
	var body api.ErrorResponse
	if json.Unmarshal(payload, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
		return apiErr
	}
	var health api.HealthResponse
	if json.Unmarshal(payload, &health) == nil && len(health.Checks) > 0 {
		apiErr.decoded = true
		apiErr.health = health
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(payload))
	return apiErr
}

func wrapDialError(err error, endpoint string) error {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon at %s: connection refused; start the daemon with `clipsightd`", endpoint)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("connect to daemon at %s: request timed out", endpoint)
	default:
		return fmt.Errorf("connect to daemon at %s: %w", endpoint, err)
	}
}
