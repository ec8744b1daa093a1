// Package mlmodel implements the optional external directional-model
// capability ("Kronos"): a bounded-timeout HTTP client that falls back to a
// neutral forecast on any failure, per spec §5/§7.
package mlmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/raykavin/signalengine/internal/core"
)

// defaultTimeout is Kronos's own shorter timeout (~1.2s), independent of
// the engine's general 30s external-call timeout (spec §5).
const defaultTimeout = 1200 * time.Millisecond

// neutralForecast is returned whenever the adapter cannot produce a real
// forecast; the engine must function identically whether this capability is
// absent or merely failing.
var neutralForecast = core.ModelForecast{ScoreLong: 0.5, ScoreShort: 0.5, Confidence: 0}

// Client calls an HTTP Kronos-compatible forecasting endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client bounded by timeout (defaultTimeout if zero).
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type forecastRequest struct {
	Symbol   string       `json:"symbol"`
	Interval string       `json:"interval"`
	OHLCV    [][6]float64 `json:"ohlcv"`
}

type forecastResponse struct {
	ScoreLong  float64 `json:"score_long"`
	ScoreShort float64 `json:"score_short"`
	Confidence float64 `json:"confidence"`
}

// Forecast calls the external model. On any error (timeout, non-2xx,
// malformed body) it returns the neutral forecast with a nil error: the
// caller never needs special-case handling for this capability's failure.
func (c *Client) Forecast(ctx context.Context, req core.ModelRequest) (core.ModelForecast, error) {
	body, err := json.Marshal(forecastRequest{
		Symbol:   req.Symbol,
		Interval: string(req.Interval),
		OHLCV:    req.OHLCV,
	})
	if err != nil {
		return neutralForecast, nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forecast", bytes.NewReader(body))
	if err != nil {
		return neutralForecast, nil
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return neutralForecast, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return neutralForecast, nil
	}

	var parsed forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return neutralForecast, nil
	}

	return core.ModelForecast{
		ScoreLong:  parsed.ScoreLong,
		ScoreShort: parsed.ScoreShort,
		Confidence: parsed.Confidence,
	}, nil
}

var _ core.ModelAdapter = (*Client)(nil)
