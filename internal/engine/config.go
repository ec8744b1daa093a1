package engine

import "time"

// Config configures the analysis loop's period, TTLs and retry back-off.
type Config struct {
	Period time.Duration // default 30s, floor 10s

	LatestAnalysisTTL  time.Duration // 5m
	MarketDataTTL      time.Duration // 30s
	KlineDataTTL       time.Duration // 60s
	AnalysisProgressTTL time.Duration // 15s

	KlineLimit int // candles fetched per interval per iteration

	BackoffMin time.Duration // 10s
	BackoffMax time.Duration

	// SecondaryIntervals are the additional timeframes consulted for
	// multi-timeframe agreement (spec §4.2/§4.3), in addition to Primary.
	Primary           string
	SecondaryIntervals []string
}

// DefaultConfig returns the spec's defaults.
func DefaultConfig() Config {
	return Config{
		Period:              30 * time.Second,
		LatestAnalysisTTL:   5 * time.Minute,
		MarketDataTTL:       30 * time.Second,
		KlineDataTTL:        60 * time.Second,
		AnalysisProgressTTL: 15 * time.Second,
		KlineLimit:          200,
		BackoffMin:          10 * time.Second,
		BackoffMax:          2 * time.Minute,
		Primary:             "5m",
		SecondaryIntervals:  []string{"15m", "1h"},
	}
}

// normalizedPeriod enforces the 10s floor.
func (c Config) normalizedPeriod() time.Duration {
	if c.Period < 10*time.Second {
		return 10 * time.Second
	}
	return c.Period
}
