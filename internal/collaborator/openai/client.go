// Package openai adapts the OpenAI chat completion and image endpoints to
// the script and image stages of the pipeline.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 3 * time.Minute
)

var ErrMissingAPIKey = errors.New("openai api key is not configured")

type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// client is shared by the script writer and the image generator. A missing
// key is reported on first use, not at construction, so the service can
// start without credentials.
type client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func newClient(opts Options) *client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &client{apiKey: strings.TrimSpace(opts.APIKey), baseURL: baseURL, http: hc}
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *client) postJSON(ctx context.Context, path string, payload, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("openai request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		var apiErr apiErrorBody
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("openai status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("openai status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
