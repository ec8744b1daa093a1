package core

import "time"

// Candle is one OHLCV bar for a symbol/interval. A candle is Closed iff its
// Time plus the interval duration has fully elapsed.
//
// Invariant: High >= max(Open, Close, Low); Low <= min(Open, Close, High);
// Volume >= 0.
type Candle struct {
	Symbol   string
	Interval Interval
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	Closed   bool
}

// Valid reports whether the candle satisfies the OHLC shape invariant.
func (c Candle) Valid() bool {
	if c.Volume < 0 {
		return false
	}
	hi := max(c.Open, c.Close, c.Low)
	lo := min(c.Open, c.Close, c.High)
	return c.High >= hi && c.Low <= lo
}

// IsClosed reports whether the candle's interval has fully elapsed as of now.
func (c Candle) IsClosed(now time.Time) bool {
	return c.Closed || !c.Time.Add(c.Interval.Duration()).After(now)
}

// MarketTick is the latest ticker snapshot for a symbol. Its lifetime is one
// analysis iteration unless cached (<=30s, see internal/engine cache TTLs).
type MarketTick struct {
	Symbol       string
	Price        float64
	High24h      float64
	Low24h       float64
	Volume24h    float64
	Change24h    float64
	FundingRate  *float64
	OpenInterest *float64
	FGI          *int
	ObservedAt   time.Time
}
