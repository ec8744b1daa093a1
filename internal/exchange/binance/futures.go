// Package binance adapts github.com/adshao/go-binance/v2's futures client
// to core.Exchange, grounded on the teacher's exchange/binance futures
// client (kline fetch, float parsing, funding-rate/open-interest calls).
package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"github.com/raykavin/signalengine/internal/core"
)

// Exchange adapts the Binance USDT-M futures client to core.Exchange.
type Exchange struct {
	client *futures.Client
}

// New creates an Exchange. apiKey/apiSecret may be empty for the
// market-data-only endpoints this engine uses (no order routing, per spec
// §6).
func New(apiKey, apiSecret string, useTestnet bool) *Exchange {
	futures.UseTestnet = useTestnet
	return &Exchange{client: futures.NewClient(apiKey, apiSecret)}
}

// GetTicker fetches the 24h ticker statistics for symbol.
func (e *Exchange) GetTicker(ctx context.Context, symbol string) (core.MarketTick, error) {
	stats, err := e.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return core.MarketTick{}, fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}
	if len(stats) == 0 {
		return core.MarketTick{}, fmt.Errorf("%w: empty ticker response", core.ErrUnavailable)
	}
	s := stats[0]

	tick := core.MarketTick{
		Symbol:     symbol,
		Price:      parseFloat(s.LastPrice),
		High24h:    parseFloat(s.HighPrice),
		Low24h:     parseFloat(s.LowPrice),
		Volume24h:  parseFloat(s.Volume),
		Change24h:  parseFloat(s.PriceChangePercent),
		ObservedAt: time.Now(),
	}
	return tick, nil
}

// GetKlineData fetches the last `limit` closed candles for symbol/interval,
// dropping the final (still-forming) bar as the teacher's CandlesByLimit
// does.
func (e *Exchange) GetKlineData(ctx context.Context, symbol string, interval core.Interval, limit int) ([]core.Candle, error) {
	data, err := e.client.NewKlinesService().
		Symbol(symbol).
		Interval(string(interval)).
		Limit(limit + 1).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}

	candles := make([]core.Candle, 0, len(data))
	for i, k := range data {
		if i == len(data)-1 {
			break // still-forming candle, per spec §4.1 only closed candles are ingested
		}
		candles = append(candles, convertKline(symbol, interval, *k))
	}
	return candles, nil
}

// GetFundingRate fetches the latest funding rate for symbol.
func (e *Exchange) GetFundingRate(ctx context.Context, symbol string) (float64, error) {
	rates, err := e.client.NewFundingRateService().Symbol(symbol).Limit(1).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}
	if len(rates) == 0 {
		return 0, fmt.Errorf("%w: empty funding rate response", core.ErrUnavailable)
	}
	return parseFloat(rates[0].FundingRate), nil
}

// GetOpenInterest fetches the current open interest for symbol.
func (e *Exchange) GetOpenInterest(ctx context.Context, symbol string) (float64, error) {
	oi, err := e.client.NewGetOpenInterestService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}
	return parseFloat(oi.OpenInterest), nil
}

// CheckConnection pings the venue.
func (e *Exchange) CheckConnection(ctx context.Context) bool {
	return e.client.NewPingService().Do(ctx) == nil
}

func convertKline(symbol string, interval core.Interval, k futures.Kline) core.Candle {
	return core.Candle{
		Symbol:   symbol,
		Interval: interval,
		Time:     time.UnixMilli(k.OpenTime),
		Open:     parseFloat(k.Open),
		High:     parseFloat(k.High),
		Low:      parseFloat(k.Low),
		Close:    parseFloat(k.Close),
		Volume:   parseFloat(k.Volume),
		Closed:   true,
	}
}

func parseFloat(s string) float64 {
	v, _ := core.ParseFloat(s)
	return v
}
