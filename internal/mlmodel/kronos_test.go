package mlmodel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/signalengine/internal/core"
)

func TestClient_Forecast_ParsesSuccessfulResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"score_long":0.8,"score_short":0.2,"confidence":0.7}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	forecast, err := c.Forecast(context.Background(), core.ModelRequest{Symbol: "BTCUSDT", Interval: core.Interval5m})
	require.NoError(t, err)
	assert.Equal(t, 0.8, forecast.ScoreLong)
	assert.Equal(t, 0.2, forecast.ScoreShort)
	assert.Equal(t, 0.7, forecast.Confidence)
}

func TestClient_Forecast_FallsBackToNeutralOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	forecast, err := c.Forecast(context.Background(), core.ModelRequest{Symbol: "BTCUSDT"})
	require.NoError(t, err)
	assert.Equal(t, neutralForecast, forecast)
}

func TestClient_Forecast_FallsBackToNeutralOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	forecast, err := c.Forecast(context.Background(), core.ModelRequest{Symbol: "BTCUSDT"})
	require.NoError(t, err)
	assert.Equal(t, neutralForecast, forecast)
}

func TestClient_Forecast_FallsBackToNeutralOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte(`{"score_long":0.9,"score_short":0.1,"confidence":0.9}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Millisecond)
	forecast, err := c.Forecast(context.Background(), core.ModelRequest{Symbol: "BTCUSDT"})
	require.NoError(t, err)
	assert.Equal(t, neutralForecast, forecast)
}

func TestNew_UsesDefaultTimeoutWhenZero(t *testing.T) {
	c := New("http://example.invalid", 0)
	assert.Equal(t, defaultTimeout, c.http.Timeout)
}
