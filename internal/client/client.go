// Package client talks to the video generator HTTP API.
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

	"video-generator-service/internal/entity"
)

var ErrVideoNotFound = errors.New("video not found")

// APIError is a non-2xx response carrying the server's error message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api status %d", e.StatusCode)
	}
	return fmt.Sprintf("api status %d: %s", e.StatusCode, e.Message)
}

const defaultRequestTimeout = 30 * time.Second

// Client bounds JSON calls with a per-request timeout. Downloads are bounded
// only by the caller's context, since videos can take long to stream.
type Client struct {
	baseURL        string
	http           *http.Client
	requestTimeout time.Duration
}

func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           hc,
		requestTimeout: defaultRequestTimeout,
	}
}

// WithRequestTimeout changes the limit for non-download calls; zero disables it.
func (c *Client) WithRequestTimeout(d time.Duration) *Client {
	c.requestTimeout = d
	return c
}

type generateRequest struct {
	Keyword         string `json:"keyword"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// Generate starts a job. A zero duration lets the server pick its default.
func (c *Client) Generate(ctx context.Context, keyword string, durationMinutes int) (*entity.Job, error) {
	body, err := json.Marshal(generateRequest{Keyword: keyword, DurationMinutes: durationMinutes})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var job entity.Job
	if err := c.doJSON(req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) Status(ctx context.Context, jobID string) (*entity.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}
	var job entity.Job
	if err := c.doJSON(req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Wait polls Status until the job is completed, failed or unknown.
// onUpdate, if set, sees every polled record.
func (c *Client) Wait(ctx context.Context, jobID string, interval time.Duration, onUpdate func(*entity.Job)) (*entity.Job, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := c.Status(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if onUpdate != nil {
			onUpdate(job)
		}
		if job.Status.Terminal() || job.Status == entity.StatusNotFound {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Download streams the finished video into w and returns the bytes copied.
func (c *Client) Download(ctx context.Context, jobID string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/download/"+url.PathEscape(jobID), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, ErrVideoNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return 0, apiError(resp)
	}
	return io.Copy(w, resp.Body)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	if c.requestTimeout > 0 {
		ctx, cancel := context.WithTimeout(req.Context(), c.requestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	_ = json.Unmarshal(raw, &body)
	return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
}
