// Package sentiment implements the optional Fear & Greed Index capability:
// a bounded-timeout HTTP client that falls back to neutral (50) on failure.
package sentiment

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/raykavin/signalengine/internal/core"
)

const (
	defaultTimeout = 2 * time.Second
	neutralFGI     = 50
)

// Client calls an alternative.me-compatible Fear & Greed Index endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client bounded by timeout (defaultTimeout if zero).
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

type fgiResponse struct {
	Data []struct {
		Value string `json:"value"`
	} `json:"data"`
}

// GetFGI fetches the current index value. Falls back to the neutral value
// on any failure, per spec §7.
func (c *Client) GetFGI(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return neutralFGI, nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return neutralFGI, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return neutralFGI, nil
	}

	var parsed fgiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || len(parsed.Data) == 0 {
		return neutralFGI, nil
	}

	var value int
	for _, r := range parsed.Data[0].Value {
		if r < '0' || r > '9' {
			return neutralFGI, nil
		}
		value = value*10 + int(r-'0')
	}
	return value, nil
}

var _ core.SentimentAdapter = (*Client)(nil)
