// Package regime implements the market-state classifier (C2): regime
// detection, liquidity labelling, multi-timeframe agreement and the
// state-transition probability distribution.
package regime

import (
	"github.com/raykavin/signalengine/internal/core"
)

// Config holds the classifier's thresholds, loaded from the engine config.
type Config struct {
	StrongADXThreshold float64 // ADX >= this => strong trend
	RSIOverbought      float64
	RSIOversold        float64
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		StrongADXThreshold: 25,
		RSIOverbought:      70,
		RSIOversold:        30,
	}
}

// Classifier derives a core.MarketStateResult from an indicator snapshot
// plus secondary-timeframe snapshots for MTF agreement.
type Classifier struct {
	cfg Config
}

// New creates a Classifier with the given config.
func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify derives the market state for one symbol. secondary holds one
// snapshot per secondary timeframe used for MTF agreement; it may be empty.
func (c *Classifier) Classify(snap core.IndicatorSnapshot, secondary map[core.Interval]core.IndicatorSnapshot) core.MarketStateResult {
	trendStrength := snap.ADX
	priceUp := snap.EMAFast > snap.EMASlow
	priceDown := snap.EMAFast < snap.EMASlow

	regime := c.deriveRegime(snap, priceUp, priceDown)

	liquidity := c.liquidityLabel(snap.VolumeRatio)

	directions := make(map[core.Interval]core.Direction, len(secondary))
	for iv, s := range secondary {
		directions[iv] = directionOf(s)
	}
	agreement := mtfAgreement(directionOf(snap), directions)

	dist := c.transitionProbabilities(snap.ADXTrend, regime, agreement)

	return core.MarketStateResult{
		Symbol:                     snap.Symbol,
		Regime:                     regime,
		Liquidity:                  liquidity,
		TrendStrength:              trendStrength,
		ADXTrend:                   snap.ADXTrend,
		MTFAgreement:               agreement,
		MTFDirections:              directions,
		StateTransitionProbability: dist,
	}
}

func (c *Classifier) deriveRegime(snap core.IndicatorSnapshot, priceUp, priceDown bool) core.Regime {
	strongTrend := snap.ADX >= c.cfg.StrongADXThreshold

	switch {
	case strongTrend && priceUp && snap.MACDHist > 0:
		return core.RegimeTrendingUp
	case strongTrend && priceDown && snap.MACDHist < 0:
		return core.RegimeTrendingDown
	case isHighOrExtreme(snap.VolatilityLevel) && (bandBreach(snap) || squeezeJustReleased(snap)):
		return core.RegimeBreakout
	case isHighOrExtreme(snap.VolatilityLevel):
		return core.RegimeHighVolatility
	case snap.VolatilityLevel == core.VolatilityLow:
		return core.RegimeLowVolatility
	case rsiExtreme(snap, c.cfg) && macdDivergesFromPrice(snap):
		return core.RegimeReversal
	default:
		return core.RegimeSideways
	}
}

func isHighOrExtreme(level core.VolatilityLevel) bool {
	return level == core.VolatilityHigh || level == core.VolatilityExtreme
}

// bandBreach reports whether price has pushed outside the Bollinger band,
// a proxy for an active breakout (band breach).
func bandBreach(snap core.IndicatorSnapshot) bool {
	return snap.BollPosition <= 0 || snap.BollPosition >= 1
}

// squeezeJustReleased approximates "squeeze released" as: not squeezed now,
// but Bollinger bandwidth is still below 0.05, implying the squeeze ended
// recently.
func squeezeJustReleased(snap core.IndicatorSnapshot) bool {
	return !snap.Squeeze && snap.BollBandwidth < 0.05
}

func rsiExtreme(snap core.IndicatorSnapshot, cfg Config) bool {
	return snap.RSI >= cfg.RSIOverbought || snap.RSI <= cfg.RSIOversold
}

// macdDivergesFromPrice: RSI says overbought/oversold but MACD histogram
// disagrees with the implied direction.
func macdDivergesFromPrice(snap core.IndicatorSnapshot) bool {
	if snap.RSI >= 70 && snap.MACDHist > 0 {
		return true
	}
	if snap.RSI <= 30 && snap.MACDHist < 0 {
		return true
	}
	return false
}

func (c *Classifier) liquidityLabel(volumeRatio float64) core.LiquidityLabel {
	switch {
	case volumeRatio >= 4:
		return core.LiquidityHigh
	case volumeRatio >= 2:
		return core.LiquidityMedium
	case volumeRatio >= 1:
		return core.LiquidityLow
	default:
		return core.LiquidityIlliquid
	}
}

func directionOf(snap core.IndicatorSnapshot) core.Direction {
	switch {
	case snap.EMAFast > snap.EMASlow:
		return core.DirectionUp
	case snap.EMAFast < snap.EMASlow:
		return core.DirectionDown
	default:
		return core.DirectionSideways
	}
}

// mtfAgreement is the fraction of secondary timeframes whose derived
// direction matches the modal direction among the secondaries themselves.
// The primary timeframe is not tallied and does not enter the denominator
// K (spec §4.2): with no secondaries configured, agreement is trivially 1.
func mtfAgreement(_ core.Direction, secondary map[core.Interval]core.Direction) float64 {
	if len(secondary) == 0 {
		return 1
	}
	counts := map[core.Direction]int{}
	for _, d := range secondary {
		counts[d]++
	}
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	return float64(max) / float64(len(secondary))
}

// transitionProbabilities seeds a uniform distribution over all regimes,
// multiplicatively boosts trending regimes when ADX is STRENGTHENING
// (x1.5) and the current regime when MTF agreement > 0.8 (x2), then
// renormalizes to sum to 1.
func (c *Classifier) transitionProbabilities(trend core.ADXTrend, current core.Regime, agreement float64) map[core.Regime]float64 {
	dist := make(map[core.Regime]float64, len(core.AllRegimes))
	uniform := 1.0 / float64(len(core.AllRegimes))
	for _, r := range core.AllRegimes {
		dist[r] = uniform
	}

	if trend == core.ADXStrengthening {
		dist[core.RegimeTrendingUp] *= 1.5
		dist[core.RegimeTrendingDown] *= 1.5
	}
	if agreement > 0.8 {
		dist[current] *= 2
	}

	var sum float64
	for _, v := range dist {
		sum += v
	}
	if sum == 0 {
		return dist
	}
	for r := range dist {
		dist[r] /= sum
	}
	return dist
}
