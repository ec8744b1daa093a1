package indicator

import "time"

// VWAP computes the volume-weighted average price cumulative since the
// start of the UTC day containing the last candle in
// times/typicalPrices/volumes (all same length, ascending, closed candles
// only); distance is the last typical price's offset from it. No ecosystem
// equivalent was found in the pack (talib has no session-anchored VWAP), so
// this is hand-rolled.
func VWAP(times []time.Time, typicalPrices, volumes []float64) (vwap, distance float64) {
	n := len(times)
	if n == 0 {
		return 0, 0
	}
	dayStart := times[n-1].UTC().Truncate(24 * time.Hour)

	var pv, vol float64
	for i := n - 1; i >= 0; i-- {
		if times[i].UTC().Before(dayStart) {
			break
		}
		pv += typicalPrices[i] * volumes[i]
		vol += volumes[i]
	}
	if vol == 0 {
		return typicalPrices[n-1], 0
	}
	vwap = pv / vol
	if vwap == 0 {
		return vwap, 0
	}
	distance = (typicalPrices[n-1] - vwap) / vwap
	return vwap, distance
}

// VolumeRatio is current volume over SMA(volume, period). Guards the
// zero-denominator edge case by defaulting to 1, per spec §4.1's numerical
// rules ("ratios -> 1" on a zero denominator).
func VolumeRatio(volumes []float64, period int) float64 {
	n := len(volumes)
	if n == 0 {
		return 1
	}
	if period > n {
		period = n
	}
	var sum float64
	for _, v := range volumes[n-period:] {
		sum += v
	}
	avg := sum / float64(period)
	if avg == 0 {
		return 1
	}
	return volumes[n-1] / avg
}
