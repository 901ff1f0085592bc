// Package enhance is the client for the external text-enhancement service,
// which reformats a raw description blob into the sectioned layout the
// extractor understands. The service's output is consumed as-is; callers
// fall back to the raw text when the call fails.
package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Enhancer turns raw free text into structured text.
type Enhancer interface {
	Enhance(ctx context.Context, rawText string) (string, error)
}

// Client calls an HTTP enhancement endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type enhanceRequest struct {
	Text string `json:"text"`
}

type enhanceResponse struct {
	Text string `json:"text"`
}

// Enhance posts the raw text and returns the structured rewrite.
func (c *Client) Enhance(ctx context.Context, rawText string) (string, error) {
	body, err := json.Marshal(enhanceRequest{Text: rawText})
	if err != nil {
		return "", fmt.Errorf("failed to marshal enhance request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build enhance request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("enhance request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("enhance service returned %d: %s", resp.StatusCode, snippet)
	}

	var out enhanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode enhance response: %w", err)
	}

	return out.Text, nil
}
