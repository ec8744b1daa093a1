// Package risk implements the gate & risk layer (C4): entry filters, the
// EV gate, adaptive position sizing/leverage and layered stop-loss/take-profit
// placement.
package risk

import (
	"math"

	"github.com/raykavin/signalengine/internal/core"
)

// Config holds every C4 threshold and policy knob.
type Config struct {
	MinTrendStrength float64

	MinCombinedStrengthLong  float64
	MinCombinedStrengthShort float64

	AllowHighVolatilityEntries bool

	MinMTFAgreement        float64
	RequireMTFFilter       bool

	Commission float64
	Slippage   float64
	BaseWinRate float64
	EVThresholdBase map[core.Regime]float64

	FGILow  int
	FGIHigh int
	// FGICautionLow/FGICautionHigh are the softer band inside FGILow/FGIHigh
	// that triggers the ×0.8 sizing/leverage caution penalty without
	// rejecting the trade outright (that's regimeGate's job).
	FGICautionLow  int
	FGICautionHigh int
	FundingRateCap float64

	BaseSizeFraction float64
	MaxPositionFraction float64
	BaseLeverage     int
	MinLeverage      int
	MaxLeverage      int

	StopLossPercent   float64 // percent, e.g. 1.5 means 1.5%
	TakeProfitPercent float64 // percent; sets the TP2 policy target
	// BollApproachMargin widens the bollinger filter's reject boundary
	// (0.35 long / 0.65 short) into an "approach zone" that still opens
	// but at reduced size.
	BollApproachMargin float64
	TPWeights          [3]float64
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		MinTrendStrength:           20,
		MinCombinedStrengthLong:    65,
		MinCombinedStrengthShort:   35,
		AllowHighVolatilityEntries: false,
		MinMTFAgreement:            0.5,
		RequireMTFFilter:           true,
		Commission:                 0.0004,
		Slippage:                   0.0005,
		BaseWinRate:                0.5,
		EVThresholdBase: map[core.Regime]float64{
			core.RegimeTrendingUp:     0.1,
			core.RegimeTrendingDown:   0.1,
			core.RegimeSideways:       0.2,
			core.RegimeHighVolatility: 0.3,
			core.RegimeLowVolatility:  0.15,
			core.RegimeBreakout:       0.15,
			core.RegimeReversal:       0.25,
		},
		FGILow:              10,
		FGIHigh:             90,
		FGICautionLow:        25,
		FGICautionHigh:       75,
		FundingRateCap:       0.01,
		BaseSizeFraction:     0.10,
		MaxPositionFraction:  0.30,
		BaseLeverage:         10,
		MinLeverage:          3,
		MaxLeverage:          20,
		StopLossPercent:      1.0,
		TakeProfitPercent:    1.4,
		BollApproachMargin:   0.1,
		TPWeights:            [3]float64{0.5, 0.3, 0.2},
	}
}

// MarketContext carries the additional fields the gates need beyond the
// signal/regime results: FGI, funding rate and price. It also carries the
// 24h range and the per-timeframe direction alignment flags, which no gate
// and not FallbackRecommendation reads.
type MarketContext struct {
	FGI          *int
	FundingRate  *float64
	High24h      float64
	Low24h       float64
	Price        float64
	Agreement5m15m bool
	Agreement1h5m  bool
}

// Gate evaluates entry filters and produces sizing/leverage/SL/TP for new
// openings.
type Gate struct {
	cfg Config
}

// New creates a Gate.
func New(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

// Evaluate turns a signal + market state + context into a final
// recommendation. flat reports whether the position is currently FLAT
// (only then can a new OPEN be recommended).
func (g *Gate) Evaluate(sig core.SignalResult, snap core.IndicatorSnapshot, state core.MarketStateResult, ctx MarketContext, flat bool) core.Recommendation {
	if !flat {
		return core.Recommendation{Action: core.ActionHold, Reason: "position already open"}
	}

	side, ok := directionOf(sig.Class)
	if !ok {
		return core.Recommendation{Action: core.ActionHold, Reason: "signal class is HOLD"}
	}

	if reason, pass := g.trendFilter(side, state); !pass {
		return core.Recommendation{Action: core.ActionHold, Reason: reason}
	}
	if reason, pass := g.strengthFilter(side, sig); !pass {
		return core.Recommendation{Action: core.ActionHold, Reason: reason}
	}
	if reason, pass := g.volatilityFilter(side, sig, state); !pass {
		return core.Recommendation{Action: core.ActionHold, Reason: reason}
	}
	if reason, pass := g.bollingerFilter(side, sig, snap); !pass {
		return core.Recommendation{Action: core.ActionHold, Reason: reason}
	}
	if reason, pass := g.mtfFilter(state, ctx); !pass {
		return core.Recommendation{Action: core.ActionHold, Reason: reason}
	}

	plan := g.buildPlan(side, sig, snap, state, ctx)

	if reason, pass := g.evGate(plan, snap, state); !pass {
		return core.Recommendation{Action: core.ActionHold, Reason: reason}
	}
	if reason, pass := g.regimeGate(ctx, side); !pass {
		return core.Recommendation{Action: core.ActionHold, Reason: reason}
	}

	action := core.ActionOpenLong
	if side == core.SideShort {
		action = core.ActionOpenShort
	}
	return core.Recommendation{Action: action, Reason: "all gates passed", Plan: &plan}
}

func directionOf(class core.SignalClass) (core.Side, bool) {
	switch class {
	case core.ClassStrongBuy, core.ClassBuy:
		return core.SideLong, true
	case core.ClassStrongSell, core.ClassSell:
		return core.SideShort, true
	default:
		return "", false
	}
}

func (g *Gate) trendFilter(side core.Side, state core.MarketStateResult) (string, bool) {
	matches := (side == core.SideLong && state.Regime == core.RegimeTrendingUp) ||
		(side == core.SideShort && state.Regime == core.RegimeTrendingDown) ||
		state.Regime == core.RegimeBreakout || state.Regime == core.RegimeReversal
	if !matches {
		return "trend filter: direction does not match regime", false
	}
	if state.TrendStrength < g.cfg.MinTrendStrength {
		return "trend filter: trend strength below minimum", false
	}
	return "", true
}

func (g *Gate) strengthFilter(side core.Side, sig core.SignalResult) (string, bool) {
	if side == core.SideLong && sig.CombinedScore < g.cfg.MinCombinedStrengthLong {
		return "strength filter: combined score below long threshold", false
	}
	if side == core.SideShort && sig.CombinedScore > g.cfg.MinCombinedStrengthShort {
		return "strength filter: combined score above short threshold", false
	}
	return "", true
}

func (g *Gate) volatilityFilter(side core.Side, sig core.SignalResult, state core.MarketStateResult) (string, bool) {
	if state.Regime != core.RegimeHighVolatility || g.cfg.AllowHighVolatilityEntries {
		return "", true
	}
	required := g.minStrength(side) + 10
	if (side == core.SideLong && sig.CombinedScore < required) ||
		(side == core.SideShort && sig.CombinedScore > 100-required) {
		return "volatility filter: high volatility requires extra strength", false
	}
	return "", true
}

func (g *Gate) minStrength(side core.Side) float64 {
	if side == core.SideLong {
		return g.cfg.MinCombinedStrengthLong
	}
	return 100 - g.cfg.MinCombinedStrengthShort
}

func (g *Gate) bollingerFilter(side core.Side, sig core.SignalResult, snap core.IndicatorSnapshot) (string, bool) {
	extra := 0.0
	if snap.Squeeze {
		extra = 10
	}
	if side == core.SideLong {
		if snap.BollPosition > 0.35 {
			return "bollinger filter: position too high for long", false
		}
		if snap.Squeeze && sig.CombinedScore < g.cfg.MinCombinedStrengthLong+extra {
			return "bollinger filter: squeeze requires extra strength", false
		}
	} else {
		if snap.BollPosition < 0.65 {
			return "bollinger filter: position too low for short", false
		}
		if snap.Squeeze && sig.CombinedScore > g.cfg.MinCombinedStrengthShort-extra {
			return "bollinger filter: squeeze requires extra strength", false
		}
	}
	return "", true
}

func (g *Gate) mtfFilter(state core.MarketStateResult, ctx MarketContext) (string, bool) {
	if !g.cfg.RequireMTFFilter {
		return "", true
	}
	if state.MTFAgreement < g.cfg.MinMTFAgreement {
		return "mtf filter: agreement below minimum", false
	}
	return "", true
}

// evGate implements spec §4.4's EV gate.
func (g *Gate) evGate(plan core.RiskPlan, snap core.IndicatorSnapshot, state core.MarketStateResult) (string, bool) {
	if plan.ExpectedReturn < g.evThreshold(state, snap) {
		return "ev gate: expected return below threshold", false
	}
	return "", true
}

func (g *Gate) evThreshold(state core.MarketStateResult, snap core.IndicatorSnapshot) float64 {
	base, ok := g.cfg.EVThresholdBase[state.Regime]
	if !ok {
		base = 0.2
	}
	return base + 0.5*math.Min(safeDiv(snap.ATR, snap.Price), 0.2)
}

func (g *Gate) regimeGate(ctx MarketContext, side core.Side) (string, bool) {
	if ctx.FGI != nil {
		if *ctx.FGI <= g.cfg.FGILow || *ctx.FGI >= g.cfg.FGIHigh {
			return "regime gate: FGI at extreme", false
		}
	}
	if ctx.FundingRate != nil && math.Abs(*ctx.FundingRate) > g.cfg.FundingRateCap {
		return "regime gate: funding rate exceeds cap", false
	}
	return "", true
}

// buildPlan implements spec §4.4's sizing/leverage/SL/TP derivation. It
// always returns a complete plan (including ExpectedReturn) so the EV gate
// can evaluate it before the recommendation is finalized.
func (g *Gate) buildPlan(side core.Side, sig core.SignalResult, snap core.IndicatorSnapshot, state core.MarketStateResult, ctx MarketContext) core.RiskPlan {
	entry := snap.Price
	slPct := g.cfg.StopLossPercent / 100
	tpPct := g.cfg.TakeProfitPercent / 100

	var stopLoss float64
	if side == core.SideLong {
		stopLoss = entry * (1 - slPct)
	} else {
		stopLoss = entry * (1 + slPct)
	}

	sign := side.Sign()
	// TP2 is the policy target, a direct percent-of-entry distance
	// (independent of the stop-loss percent) consistent with the layered
	// TP1/TP2/TP3 geometry below.
	tp2 := entry * (1 + sign*tpPct)

	d := math.Abs(tp2 - entry)
	tp1 := entry + sign*0.6*d
	tp3 := entry + sign*1.2*d

	size := g.cfg.BaseSizeFraction * sig.Confidence
	switch state.Regime {
	case core.RegimeHighVolatility:
		size *= 0.7
	case core.RegimeLowVolatility:
		size *= 1.2
	}
	if state.TrendStrength >= 40 {
		size *= 1.1
	}
	mtfSizeMul, _ := mtfSizeAdjustment(state.MTFAgreement)
	size *= mtfSizeMul
	if fgiAgainstDirection(ctx.FGI, side, g.cfg.FGICautionLow, g.cfg.FGICautionHigh) {
		size *= 0.8
	}
	size *= g.bollingerApproachMultiplier(side, snap)
	size = clamp(size, 0.01, g.cfg.MaxPositionFraction)

	leverage := float64(g.cfg.BaseLeverage)
	if snap.Squeeze {
		leverage *= 0.9
	}
	if fgiExtremeCaution(ctx.FGI, g.cfg.FGICautionLow, g.cfg.FGICautionHigh) {
		leverage *= 0.8
	}
	lev := int(clamp(leverage, float64(g.cfg.MinLeverage), float64(g.cfg.MaxLeverage)))

	rr := safeDiv(math.Abs(tp2-entry), math.Abs(entry-stopLoss), 0)

	cost := 2 * (g.cfg.Commission + g.cfg.Slippage)
	pWin := clamp(g.cfg.BaseWinRate+(sig.Confidence-0.5)*0.2, 0.3, 0.9)
	expectedReturn := rr*pWin - (1-pWin) - cost

	return core.RiskPlan{
		Side:             side,
		PositionFraction: size,
		Leverage:         lev,
		EntryPrice:       entry,
		StopLoss:         stopLoss,
		TakeProfit1:      tp1,
		TakeProfit2:      tp2,
		TakeProfit3:      tp3,
		TPWeights:        g.cfg.TPWeights,
		RiskRewardRatio:  rr,
		MaxLoss:          math.Abs(entry-stopLoss) / entry,
		ExpectedReturn:   expectedReturn,
	}
}

func mtfSizeAdjustment(agreement float64) (size, strength float64) {
	switch {
	case agreement < 0.35:
		return 0.8, 0.95
	case agreement > 0.8:
		return 1.1, 1.03
	default:
		return 1, 1
	}
}

// fgiAgainstDirection reports whether sentiment is leaning hard the wrong
// way for side: greed while going long, fear while going short.
func fgiAgainstDirection(fgi *int, side core.Side, cautionLow, cautionHigh int) bool {
	if fgi == nil {
		return false
	}
	if side == core.SideLong {
		return *fgi >= cautionHigh
	}
	return *fgi <= cautionLow
}

// fgiExtremeCaution reports whether sentiment sits in the caution band,
// regardless of direction. Used for the leverage cut.
func fgiExtremeCaution(fgi *int, cautionLow, cautionHigh int) bool {
	if fgi == nil {
		return false
	}
	return *fgi <= cautionLow || *fgi >= cautionHigh
}

// bollingerApproachMultiplier returns 0.85 when price sits just short of the
// bollinger filter's reject boundary (0.35 long / 0.65 short), within
// BollApproachMargin of it.
func (g *Gate) bollingerApproachMultiplier(side core.Side, snap core.IndicatorSnapshot) float64 {
	margin := g.cfg.BollApproachMargin
	if margin <= 0 {
		return 1
	}
	if side == core.SideLong {
		if snap.BollPosition > 0.35-margin && snap.BollPosition <= 0.35 {
			return 0.85
		}
		return 1
	}
	if snap.BollPosition < 0.65+margin && snap.BollPosition >= 0.65 {
		return 0.85
	}
	return 1
}

// FallbackRecommendation is the InsufficientData recommendation: a neutral
// HOLD with no RiskPlan. It derives no SL/TP; ctx, including its 24h range,
// is not read.
func FallbackRecommendation(ctx MarketContext) core.Recommendation {
	return core.Recommendation{
		Action: core.ActionHold,
		Reason: "insufficient data: neutral fallback",
	}
}

func safeDiv(num, den, fallback float64) float64 {
	if den == 0 {
		return fallback
	}
	return num / den
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
