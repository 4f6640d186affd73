// Package httpx is the generic HTTP transport both venue adapters build on:
// a timeout-bound client with JSON decode helpers, generalized from the
// teacher's per-exchange Binance REST client into a reusable base. It does
// no rate limiting or latency sampling of its own.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a small JSON-over-HTTP client shared by venue adapters.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New constructs a Client with a sane default timeout, mirroring the
// teacher's 10s exchange-client timeout.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetJSON issues a GET request and decodes the JSON response body into out.
func (c *Client) GetJSON(ctx context.Context, path string, headers map[string]string, out interface{}) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("httpx: build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpx: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.Header, fmt.Errorf("httpx: read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return resp.Header, fmt.Errorf("httpx: status %d: %s", resp.StatusCode, string(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.Header, fmt.Errorf("httpx: decode response: %w", err)
		}
	}
	return resp.Header, nil
}

// PostJSON issues a POST request with a JSON-encoded body and decodes the
// response into out.
func (c *Client) PostJSON(ctx context.Context, path string, headers map[string]string, in, out interface{}) (http.Header, error) {
	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("httpx: encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("httpx: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpx: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.Header, fmt.Errorf("httpx: read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return resp.Header, fmt.Errorf("httpx: status %d: %s", resp.StatusCode, string(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.Header, fmt.Errorf("httpx: decode response: %w", err)
		}
	}
	return resp.Header, nil
}
