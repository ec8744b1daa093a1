package core

import (
	"context"
	"time"
)

// Exchange is the in-bound adapter contract to the venue (spec §6). All
// methods may fail; failures surface as ErrUnavailable and are handled by
// the caller's retry/back-off policy, never propagated as panics.
type Exchange interface {
	GetTicker(ctx context.Context, symbol string) (MarketTick, error)
	GetKlineData(ctx context.Context, symbol string, interval Interval, limit int) ([]Candle, error)
	GetFundingRate(ctx context.Context, symbol string) (float64, error)
	GetOpenInterest(ctx context.Context, symbol string) (float64, error)
	CheckConnection(ctx context.Context) bool
}

// ModelAdapter is the optional external directional-model capability
// ("Kronos"). The engine must function when it is absent; implementations
// enforce their own short timeout (~1.2s) and return a neutral forecast on
// any failure rather than an error, per spec §5.
type ModelAdapter interface {
	Forecast(ctx context.Context, req ModelRequest) (ModelForecast, error)
}

// ModelRequest is the payload sent to the external model.
type ModelRequest struct {
	Symbol   string
	Interval Interval
	OHLCV    [][6]float64 // ts, o, h, l, c, v
}

// SentimentAdapter is the optional Fear & Greed Index capability.
type SentimentAdapter interface {
	GetFGI(ctx context.Context) (int, error)
}

// SampleStore is the out-bound persistence contract for MLSample rows
// (spec §6). The engine is the sole writer of new rows; the label
// backfiller mutates only the label fields of existing rows — disjoint
// columns of the same row, so row-level updates suffice without extra
// coordination.
type SampleStore interface {
	Initialize(ctx context.Context) error
	SaveMLSample(ctx context.Context, sample *MLSample) error
	GetPendingLabelSamples(ctx context.Context, defaultHorizonMin int, now time.Time, limit int) ([]MLSample, error)
	UpdateMLSampleLabel(ctx context.Context, id string, labelReturn, labelDrawdown *float64, ready bool) error
}

// Notifier is the out-bound notification capability (Telegram, log, ...).
type Notifier interface {
	Notify(message string)
	OnEvent(Event)
	OnError(err error)
}

// Cache is the C6 short-TTL cache contract backing latest_analysis,
// market_data, kline_data_{interval}_{limit} and analysis_progress.
type Cache interface {
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, bool, error)
}
