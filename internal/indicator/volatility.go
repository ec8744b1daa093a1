package indicator

import (
	"sort"

	"github.com/raykavin/signalengine/internal/core"
	"gonum.org/v1/gonum/stat"
)

// ATRPercentile returns the percentile rank (0..100) of the latest ATR value
// within the rolling window `history` (typically the last 100 closed
// candles' ATR values, oldest first, latest last), via gonum's empirical CDF.
func ATRPercentile(history []float64) float64 {
	n := len(history)
	if n == 0 {
		return 50
	}
	latest := history[n-1]

	sorted := append([]float64(nil), history...)
	sort.Float64s(sorted)

	return 100 * stat.CDF(latest, stat.Empirical, sorted, nil)
}

// VolatilityLevelFromPercentile buckets an ATR percentile into the
// LOW/MEDIUM/HIGH/EXTREME levels at the spec's p25/p75/p90 boundaries.
func VolatilityLevelFromPercentile(percentile float64) core.VolatilityLevel {
	switch {
	case percentile >= 90:
		return core.VolatilityExtreme
	case percentile >= 75:
		return core.VolatilityHigh
	case percentile >= 25:
		return core.VolatilityMedium
	default:
		return core.VolatilityLow
	}
}

// OBVSlope computes the linear-regression slope of OBV over its last
// `window` closed candles (default 20), via gonum's least-squares fit
// rather than a hand-rolled regression.
func OBVSlope(obv []float64, window int) float64 {
	n := len(obv)
	if n < 2 {
		return 0
	}
	if window > n {
		window = n
	}
	tail := obv[n-window:]

	xs := make([]float64, len(tail))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, tail, nil, false)
	return slope
}
