// Package client talks to the inventory analysis service: it fetches runs by
// container or session, lists run history, and submits operator reviews. All
// responses are validated at this boundary before anything downstream sees
// them.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stockpod/stockpodgo/internal/models"
)

// maxResponseSize caps response bodies to keep a misbehaving server from
// exhausting memory on a small device
const maxResponseSize = 4 * 1024 * 1024 // 4MB

// Config holds configuration for the inventory API client
type Config struct {
	BaseURL       string        // e.g. http://localhost:8094
	FetchTimeout  time.Duration // per-fetch upper bound (default 10s)
	ReviewTimeout time.Duration // review submission upper bound (default 30s)
	HTTPClient    *http.Client  // optional custom transport
	Logger        *logrus.Logger
}

// Client is an inventory analysis API client
type Client struct {
	baseURL       string
	httpClient    *http.Client
	fetchTimeout  time.Duration
	reviewTimeout time.Duration
	log           *logrus.Entry
}

// New creates a new inventory API client
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.ReviewTimeout == 0 {
		cfg.ReviewTimeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	return &Client{
		baseURL:       base.String(),
		httpClient:    cfg.HTTPClient,
		fetchTimeout:  cfg.FetchTimeout,
		reviewTimeout: cfg.ReviewTimeout,
		log:           cfg.Logger.WithField("component", "inventory-client"),
	}, nil
}

// FetchLatest retrieves the most recent analysis run for a container.
// Returns ErrNotFound when no run exists; that is a valid empty state.
func (c *Client) FetchLatest(ctx context.Context, containerID string) (*models.InventoryAnalysisRun, error) {
	if containerID == "" {
		return nil, fmt.Errorf("container id is required")
	}
	path := fmt.Sprintf("/v1/containers/%s/inventory/latest", url.PathEscape(containerID))
	return c.fetchRun(ctx, path)
}

// FetchBySession retrieves the analysis run attached to a session.
// Returns ErrNotFound when no run exists.
func (c *Client) FetchBySession(ctx context.Context, sessionID string) (*models.InventoryAnalysisRun, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	path := fmt.Sprintf("/v1/sessions/%s/inventory-delta", url.PathEscape(sessionID))
	return c.fetchRun(ctx, path)
}

// ListOptions selects a page of the run history
type ListOptions struct {
	Limit  int
	Offset int
	Status models.AnalysisStatus // optional filter
}

// FetchRuns retrieves a page of run summaries for a container
func (c *Client) FetchRuns(ctx context.Context, containerID string, opts ListOptions) (*models.RunPage, error) {
	if containerID == "" {
		return nil, fmt.Errorf("container id is required")
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(opts.Limit))
	q.Set("offset", strconv.Itoa(opts.Offset))
	if opts.Status != "" {
		q.Set("status", string(opts.Status))
	}
	path := fmt.Sprintf("/v1/containers/%s/inventory/runs?%s", url.PathEscape(containerID), q.Encode())

	var page models.RunPage
	if err := c.do(ctx, http.MethodGet, path, nil, c.fetchTimeout, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SubmitReview posts an operator review for a run. Conflict (409), validation
// (400) and outage (503) failures come back as typed *APIError values.
func (c *Client) SubmitReview(ctx context.Context, runID string, req models.ReviewRequest) (*models.ReviewResult, error) {
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	path := fmt.Sprintf("/v1/inventory/%s/review", url.PathEscape(runID))

	var result models.ReviewResult
	if err := c.do(ctx, http.MethodPost, path, req, c.reviewTimeout, &result); err != nil {
		return nil, err
	}
	if result.Review != nil {
		if err := result.Review.Validate(); err != nil {
			return nil, fmt.Errorf("review response failed validation: %w", err)
		}
	}
	return &result, nil
}

func (c *Client) fetchRun(ctx context.Context, path string) (*models.InventoryAnalysisRun, error) {
	var run models.InventoryAnalysisRun
	if err := c.do(ctx, http.MethodGet, path, nil, c.fetchTimeout, &run); err != nil {
		return nil, err
	}
	if err := run.Validate(); err != nil {
		return nil, fmt.Errorf("run response failed validation: %w", err)
	}
	return &run, nil
}

// do executes one enveloped API call and decodes the data payload into out
func (c *Client) do(ctx context.Context, method, path string, body interface{}, timeout time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
		"request_id":  requestID,
	}).Debug("inventory api call")

	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("malformed envelope (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		return c.envelopeError(resp, &env, requestID)
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("envelope missing data (status %d)", resp.StatusCode)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("malformed data payload: %w", err)
	}
	return nil
}

// envelopeError maps an error envelope onto the client error taxonomy
func (c *Client) envelopeError(resp *http.Response, env *models.Envelope, requestID string) error {
	code := ""
	message := http.StatusText(resp.StatusCode)
	retryAfter := time.Duration(0)
	if env.Error != nil {
		code = env.Error.Code
		if env.Error.Message != "" {
			message = env.Error.Message
		}
		retryAfter = time.Duration(env.Error.RetryAfterSeconds) * time.Second
	}
	if retryAfter == 0 {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			retryAfter = time.Duration(secs) * time.Second
		}
	}

	// 404-class responses are a valid empty state, not a failure
	if code == models.CodeInventoryNotFound || code == models.CodeContainerNotFound ||
		(resp.StatusCode == http.StatusNotFound && code == "") {
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	}

	return &APIError{
		Code:       code,
		StatusCode: resp.StatusCode,
		Message:    message,
		RetryAfter: retryAfter,
		RequestID:  requestID,
	}
}
