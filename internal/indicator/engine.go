package indicator

import (
	"fmt"
	"time"

	"github.com/raykavin/signalengine/internal/core"
	"github.com/raykavin/signalengine/internal/ring"
)

const (
	// defaultCapacity bounds the per-interval candle ring; it must exceed
	// the largest required period (ATR-percentile window, default 100) plus
	// warm-up headroom for talib's recursive indicators.
	defaultCapacity = 300

	rsiPeriod       = 14
	emaFastPeriod   = 12
	emaSlowPeriod   = 26
	emaTrendPeriod  = 50
	smaPeriod       = 20
	macdFast        = 12
	macdSlow        = 26
	macdSignal      = 9
	bollPeriod      = 20
	bollDeviation   = 2.0
	keltnerPeriod   = 20
	keltnerMultiple = 1.5
	atrPeriod       = 14
	adxPeriod       = 14
	kdjPeriod       = 9
	williamsPeriod  = 14
	volumeSMAPeriod = 20
	obvSlopeWindow  = 20

	atrPercentileWindow = 100
)

// Engine computes the full indicator bank (C1) incrementally over a single
// symbol/interval's closed candles, using fixed-capacity ring buffers so
// memory is O(maxPeriod) rather than an unbounded history.
type Engine struct {
	symbol   string
	interval core.Interval

	candles *ring.Buffer[core.Candle]
	atrHist *ring.Buffer[float64]

	lastTime time.Time
	hasData  bool
}

// NewEngine creates an Engine for one symbol/interval pair.
func NewEngine(symbol string, interval core.Interval) *Engine {
	return &Engine{
		symbol:   symbol,
		interval: interval,
		candles:  ring.New[core.Candle](defaultCapacity),
		atrHist:  ring.New[float64](atrPercentileWindow + 1),
	}
}

// requiredPeriod is the largest lookback any single indicator needs.
func requiredPeriod() int {
	return atrPercentileWindow
}

// Push ingests a closed candle. Merges in place if its timestamp equals the
// last accepted candle (duplicate same-bar update); rejects with
// ErrOutOfOrder if strictly earlier than the last. O(1) amortized.
func (e *Engine) Push(c core.Candle) error {
	if !c.Closed {
		return nil // the engine only ever consumes closed candles (spec §4.1)
	}
	if e.hasData {
		if c.Time.Before(e.lastTime) {
			return fmt.Errorf("%w: candle %s before last %s", core.ErrOutOfOrder, c.Time, e.lastTime)
		}
		if c.Time.Equal(e.lastTime) {
			e.candles.ReplaceLast(c)
			e.recomputeATRTail()
			return nil
		}
	}

	e.candles.Push(c)
	e.lastTime = c.Time
	e.hasData = true
	e.appendATR()
	return nil
}

// recomputeATRTail refreshes the ATR history's last entry after a merge.
func (e *Engine) recomputeATRTail() {
	tail := e.candles.Tail(atrPeriod + 1)
	if len(tail) < atrPeriod+1 {
		return
	}
	highs, lows, closes := split(tail)
	atr := ATR(highs, lows, closes, atrPeriod)
	if n := len(atr); n > 0 && !isNaN(atr[n-1]) {
		e.atrHist.ReplaceLast(atr[n-1])
	}
}

func (e *Engine) appendATR() {
	tail := e.candles.Tail(atrPeriod + 1)
	if len(tail) < atrPeriod+1 {
		e.atrHist.Push(0)
		return
	}
	highs, lows, closes := split(tail)
	atr := ATR(highs, lows, closes, atrPeriod)
	if n := len(atr); n > 0 && !isNaN(atr[n-1]) {
		e.atrHist.Push(atr[n-1])
	} else {
		e.atrHist.Push(0)
	}
}

// Snapshot computes every indicator at the last closed candle. Returns
// ErrInsufficientData if fewer than requiredPeriod()+1 closed candles exist
// or any computed value is non-finite.
func (e *Engine) Snapshot() (core.IndicatorSnapshot, error) {
	need := requiredPeriod() + 1
	if e.candles.Len() < need {
		return core.IndicatorSnapshot{}, core.ErrInsufficientData
	}

	all := e.candles.Values()
	highs, lows, closes := split(all)
	opens := make([]float64, len(all))
	volumes := make([]float64, len(all))
	times := make([]time.Time, len(all))
	typical := make([]float64, len(all))
	for i, c := range all {
		opens[i] = c.Open
		volumes[i] = c.Volume
		times[i] = c.Time
		typical[i] = (c.High + c.Low + c.Close) / 3
	}

	snap := core.IndicatorSnapshot{
		Symbol:   e.symbol,
		Interval: e.interval,
		Time:     all[len(all)-1].Time,
		Price:    closes[len(closes)-1],
	}

	snap.RSI = lastOr(RSI(closes, rsiPeriod), 50)
	snap.SMA = lastOr(SMA(closes, smaPeriod), closes[len(closes)-1])
	snap.EMAFast = lastOr(EMA(closes, emaFastPeriod), closes[len(closes)-1])
	snap.EMASlow = lastOr(EMA(closes, emaSlowPeriod), closes[len(closes)-1])
	snap.EMATrend = lastOr(EMA(closes, emaTrendPeriod), closes[len(closes)-1])

	macd, signal, hist := MACD(closes, macdFast, macdSlow, macdSignal)
	snap.MACD = lastOr(macd, 0)
	snap.MACDSignal = lastOr(signal, 0)
	snap.MACDHist = lastOr(hist, 0)

	upper, middle, lower := BBands(closes, bollPeriod, bollDeviation)
	snap.BollUpper = lastOr(upper, closes[len(closes)-1])
	snap.BollMiddle = lastOr(middle, closes[len(closes)-1])
	snap.BollLower = lastOr(lower, closes[len(closes)-1])
	snap.BollPosition = clamp01(safeDiv(snap.Price-snap.BollLower, snap.BollUpper-snap.BollLower, 0.5))
	snap.BollBandwidth = safeDiv(snap.BollUpper-snap.BollLower, snap.BollMiddle, 0)

	emaKeltner := lastOr(EMA(closes, keltnerPeriod), closes[len(closes)-1])
	atrSeries := ATR(highs, lows, closes, atrPeriod)
	atrLast := lastOr(atrSeries, 0)
	snap.ATR = atrLast
	snap.KeltnerMiddle = emaKeltner
	snap.KeltnerUpper = emaKeltner + keltnerMultiple*atrLast
	snap.KeltnerLower = emaKeltner - keltnerMultiple*atrLast
	snap.Squeeze = snap.BollUpper <= snap.KeltnerUpper && snap.BollLower >= snap.KeltnerLower

	adx := ADX(highs, lows, closes, adxPeriod)
	snap.ADX = lastOr(adx, 0)
	snap.PlusDI = lastOr(PlusDI(highs, lows, closes, adxPeriod), 0)
	snap.MinusDI = lastOr(MinusDI(highs, lows, closes, adxPeriod), 0)
	snap.ADXTrend = adxTrend(adx)

	k, d, j := KDJ(highs, lows, closes, kdjPeriod)
	snap.KDJ_K, snap.KDJ_D, snap.KDJ_J = lastOr(k, 50), lastOr(d, 50), lastOr(j, 50)

	snap.WilliamsR = lastOr(WillR(highs, lows, closes, williamsPeriod), -50)

	obv := OBV(closes, volumes)
	snap.OBV = lastOr(obv, 0)
	snap.OBVSlope = OBVSlope(obv, obvSlopeWindow)

	snap.VWAP, snap.VWAPDistance = VWAP(times, typical, volumes)
	snap.VolumeRatio = VolumeRatio(volumes, volumeSMAPeriod)

	atrHistValues := e.atrHist.Values()
	snap.ATRPercentile = ATRPercentile(nonZero(atrHistValues))
	snap.VolatilityLevel = VolatilityLevelFromPercentile(snap.ATRPercentile)

	if !snap.Finite() {
		return core.IndicatorSnapshot{}, core.ErrInsufficientData
	}
	return snap, nil
}

// Len reports how many closed candles are currently retained.
func (e *Engine) Len() int { return e.candles.Len() }

// OHLCV returns the retained candle window as [ts_ms, o, h, l, c, v] rows,
// oldest first, for handing to an external model adapter.
func (e *Engine) OHLCV() [][6]float64 {
	candles := e.candles.Values()
	rows := make([][6]float64, len(candles))
	for i, c := range candles {
		rows[i] = [6]float64{float64(c.Time.UnixMilli()), c.Open, c.High, c.Low, c.Close, c.Volume}
	}
	return rows
}

func split(candles []core.Candle) (highs, lows, closes []float64) {
	highs = make([]float64, len(candles))
	lows = make([]float64, len(candles))
	closes = make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}
	return
}

func lastOr(values []float64, fallback float64) float64 {
	for i := len(values) - 1; i >= 0; i-- {
		if !isNaN(values[i]) {
			return values[i]
		}
	}
	return fallback
}

func isNaN(f float64) bool { return f != f }

func safeDiv(num, den, fallback float64) float64 {
	if den == 0 {
		return fallback
	}
	return num / den
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func nonZero(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v != 0 {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []float64{0}
	}
	return out
}

// adxTrend classifies the slope of ADX over the last 3 snapshots: >+2
// STRENGTHENING, <-2 WEAKENING, else STABLE.
func adxTrend(adx []float64) core.ADXTrend {
	n := len(adx)
	if n < 3 {
		return core.ADXStable
	}
	delta := adx[n-1] - adx[n-3]
	switch {
	case delta > 2:
		return core.ADXStrengthening
	case delta < -2:
		return core.ADXWeakening
	default:
		return core.ADXStable
	}
}
