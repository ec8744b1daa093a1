package indicator

// KDJ computes the stochastic KDJ oscillator. talib has no native KDJ, so K
// and D are derived from the raw %K (RSV) via the standard 1/3-weighted
// recursive smoothing (equivalent to an SMA(3) recursion seeded at 50), and
// J = 3K - 2D. rsvPeriod is typically 9.
func KDJ(high, low, close []float64, rsvPeriod int) (k, d, j []float64) {
	rsv := StochRaw(high, low, close, rsvPeriod)
	n := len(rsv)
	k = make([]float64, n)
	d = make([]float64, n)
	j = make([]float64, n)

	prevK, prevD := 50.0, 50.0
	for i := 0; i < n; i++ {
		r := rsv[i]
		if r != r { // NaN (warm-up region from talib)
			k[i], d[i], j[i] = 50, 50, 50
			prevK, prevD = 50, 50
			continue
		}
		curK := (2.0/3.0)*prevK + (1.0/3.0)*r
		curD := (2.0/3.0)*prevD + (1.0/3.0)*curK
		curJ := 3*curK - 2*curD

		k[i], d[i], j[i] = curK, curD, curJ
		prevK, prevD = curK, curD
	}
	return k, d, j
}
