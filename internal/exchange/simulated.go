// Package exchange holds the core.Exchange implementations: the live
// Binance adapter (internal/exchange/binance) and this deterministic
// in-memory Simulated variant used by tests and by callers that inject it
// with signalengine.WithExchange, grounded on the teacher's PaperWallet (candle/ticker bookkeeping without
// order routing, per this engine's no-order-routing scope).
package exchange

import (
	"context"
	"fmt"
	"sort"

	"github.com/raykavin/signalengine/internal/core"
)

// Simulated is a deterministic core.Exchange backed by a preloaded candle
// series, used by tests and backfill replays. It never places orders.
type Simulated struct {
	candles      map[string][]core.Candle // key: symbol|interval
	fundingRates map[string]float64
	openInterest map[string]float64
	connected    bool
}

// NewSimulated creates an empty Simulated exchange.
func NewSimulated() *Simulated {
	return &Simulated{
		candles:      make(map[string][]core.Candle),
		fundingRates: make(map[string]float64),
		openInterest: make(map[string]float64),
		connected:    true,
	}
}

// LoadCandles seeds the deterministic candle history for symbol/interval,
// sorted ascending by time.
func (s *Simulated) LoadCandles(symbol string, interval core.Interval, candles []core.Candle) {
	sorted := append([]core.Candle(nil), candles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	s.candles[key(symbol, interval)] = sorted
}

// SetFundingRate sets the deterministic funding rate returned for symbol.
func (s *Simulated) SetFundingRate(symbol string, rate float64) { s.fundingRates[symbol] = rate }

// SetOpenInterest sets the deterministic open interest returned for symbol.
func (s *Simulated) SetOpenInterest(symbol string, oi float64) { s.openInterest[symbol] = oi }

// SetConnected toggles CheckConnection's return value, for exercising the
// Unavailable fallback path.
func (s *Simulated) SetConnected(connected bool) { s.connected = connected }

func (s *Simulated) GetTicker(ctx context.Context, symbol string) (core.MarketTick, error) {
	var latest *core.Candle
	for k, cs := range s.candles {
		if ownerSymbol(k) != symbol || len(cs) == 0 {
			continue
		}
		c := cs[len(cs)-1]
		if latest == nil || c.Time.After(latest.Time) {
			latest = &c
		}
	}
	if latest == nil {
		return core.MarketTick{}, fmt.Errorf("%w: no candles loaded for %s", core.ErrUnavailable, symbol)
	}
	high, low := latest.High, latest.Low
	for k, cs := range s.candles {
		if ownerSymbol(k) != symbol {
			continue
		}
		for _, c := range cs {
			if c.High > high {
				high = c.High
			}
			if c.Low < low {
				low = c.Low
			}
		}
	}
	return core.MarketTick{
		Symbol:     symbol,
		Price:      latest.Close,
		High24h:    high,
		Low24h:     low,
		Volume24h:  latest.Volume,
		ObservedAt: latest.Time,
	}, nil
}

func (s *Simulated) GetKlineData(ctx context.Context, symbol string, interval core.Interval, limit int) ([]core.Candle, error) {
	cs, ok := s.candles[key(symbol, interval)]
	if !ok {
		return nil, fmt.Errorf("%w: no candles loaded for %s/%s", core.ErrUnavailable, symbol, interval)
	}
	if limit > len(cs) {
		limit = len(cs)
	}
	return append([]core.Candle(nil), cs[len(cs)-limit:]...), nil
}

func (s *Simulated) GetFundingRate(ctx context.Context, symbol string) (float64, error) {
	return s.fundingRates[symbol], nil
}

func (s *Simulated) GetOpenInterest(ctx context.Context, symbol string) (float64, error) {
	return s.openInterest[symbol], nil
}

func (s *Simulated) CheckConnection(ctx context.Context) bool { return s.connected }

func key(symbol string, interval core.Interval) string { return symbol + "|" + string(interval) }

func ownerSymbol(k string) string {
	for i := 0; i < len(k); i++ {
		if k[i] == '|' {
			return k[:i]
		}
	}
	return k
}
