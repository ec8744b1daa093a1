// Package signal implements the signal synthesizer (C3): fusion of the
// technical score, the optional external model forecast and the regime
// score into a single combined score and discrete signal class.
package signal

import (
	"fmt"
	"math"

	"github.com/raykavin/signalengine/internal/core"
)

// Config holds the synthesizer's tunable weights and thresholds.
type Config struct {
	WeightTechnical float64
	WeightModel     float64
	WeightRegime    float64

	ModelAlphaMax float64 // cap on the fusion blend weight α

	ModelLongThreshold       float64 // minimum score_long to treat forecast as directional
	ModelConfidenceThreshold float64 // minimum confidence to fuse at all
	ModelOverrideConfidence  float64 // confidence above which model class overrides C

	EnableKDJContribution      bool
	EnableWilliamsContribution bool

	StrongBuyThreshold  float64
	BuyThreshold        float64
	SellThreshold       float64
	StrongSellThreshold float64
}

// DefaultConfig returns the spec's documented weights and thresholds.
func DefaultConfig() Config {
	return Config{
		WeightTechnical:            0.4,
		WeightModel:                0.35,
		WeightRegime:               0.25,
		ModelAlphaMax:              0.8,
		ModelLongThreshold:         0.62,
		ModelConfidenceThreshold:   0.55,
		ModelOverrideConfidence:    0.7,
		EnableKDJContribution:      true,
		EnableWilliamsContribution: true,
		StrongBuyThreshold:         80,
		BuyThreshold:               65,
		SellThreshold:              35,
		StrongSellThreshold:        20,
	}
}

// GateThresholds are the minimum gate inputs the technical-score dampeners
// read. Only the synthesizer uses them; the gate & risk layer has no
// counterpart fields.
type GateThresholds struct {
	MinADX         float64
	MinOBVSlope    float64
	MinVolumeRatio float64
	MinATRPercent  float64
}

// DefaultGateThresholds returns the spec's documented defaults.
func DefaultGateThresholds() GateThresholds {
	return GateThresholds{
		MinADX:         20,
		MinOBVSlope:    0,
		MinVolumeRatio: 0.8,
		MinATRPercent:  0.3,
	}
}

// Synthesizer fuses an indicator snapshot, market state and optional model
// forecast into a SignalResult.
type Synthesizer struct {
	cfg    Config
	gates  GateThresholds
}

// New creates a Synthesizer.
func New(cfg Config, gates GateThresholds) *Synthesizer {
	return &Synthesizer{cfg: cfg, gates: gates}
}

// Synthesize computes the combined signal for one tick. forecast is nil when
// no external model is configured or its last call failed.
func (s *Synthesizer) Synthesize(snap core.IndicatorSnapshot, state core.MarketStateResult, forecast *core.ModelForecast) core.SignalResult {
	technical := s.technicalScore(snap)
	modelScore, fused, modelDirection := s.modelScore(forecast)
	regimeScore := s.regimeScore(state)

	combined := (s.cfg.WeightTechnical*technical + s.cfg.WeightModel*modelScore + s.cfg.WeightRegime*regimeScore) /
		(s.cfg.WeightTechnical + s.cfg.WeightModel + s.cfg.WeightRegime)

	disagreementPenalty := 0.0
	if fused && forecast != nil {
		technicalDirection := technical >= 50
		if technicalDirection != modelDirection && forecast.Confidence > s.cfg.ModelConfidenceThreshold {
			magnitude := math.Abs(forecast.ScoreLong - forecast.ScoreShort)
			over := forecast.Confidence - s.cfg.ModelConfidenceThreshold
			disagreementPenalty = clamp(6+6*over/(1-s.cfg.ModelConfidenceThreshold)*magnitude, 6, 12)
			if technicalDirection {
				combined -= disagreementPenalty
			} else {
				combined += disagreementPenalty
			}
		}
	}
	combined = clamp(combined, 0, 100)

	class := s.discretize(combined)
	override := false
	if forecast != nil && forecast.Confidence > s.cfg.ModelOverrideConfidence {
		override = true
		class = modelClass(forecast)
	}

	technicalConfidence := technicalConfidenceFromAgreement(state.MTFAgreement)
	confidence := technicalConfidence
	if forecast != nil {
		confidence = math.Max(confidence, forecast.Confidence)
	}

	sizeMul, strengthMul := mtfAdjustment(state.MTFAgreement)
	_ = sizeMul // surfaced to the gate & risk layer via Metadata.MTFAgreement; the
	// size multiplier itself is re-derived there from MTFAgreement directly.
	combined = clampAfterStrength(combined, strengthMul)

	return core.SignalResult{
		Symbol:         snap.Symbol,
		Class:          class,
		TechnicalScore: technical,
		ModelScore:     modelScore,
		CombinedScore:  combined,
		Confidence:     clamp(confidence, 0, 1),
		ModelOverride:  override,
		Metadata: core.SignalMetadata{
			RegimeScore:         regimeScore,
			DisagreementPenalty: disagreementPenalty,
			MTFAgreement:        state.MTFAgreement,
			Regime:              state.Regime,
			Reasoning:           s.reasoning(technical, modelScore, regimeScore, combined, state),
		},
	}
}

// technicalScore implements spec §4.3 step 1: additive contributions around
// a base of 50, with trend-confirmation gates damping the deviation.
func (s *Synthesizer) technicalScore(snap core.IndicatorSnapshot) float64 {
	t := 50.0

	switch {
	case snap.RSI <= 30:
		t += 20
	case snap.RSI >= 70:
		t -= 20
	case snap.RSI >= 45 && snap.RSI <= 55:
		t += 5
	}

	const macdMagnitudeThreshold = 0.001
	switch {
	case snap.MACDHist > 0:
		if math.Abs(snap.MACDHist) >= macdMagnitudeThreshold {
			t += 15
		} else {
			t += 10
		}
	case snap.MACDHist < 0:
		if math.Abs(snap.MACDHist) >= macdMagnitudeThreshold {
			t -= 15
		} else {
			t -= 10
		}
	}

	switch {
	case snap.BollPosition < 0.2:
		t += 15
	case snap.BollPosition > 0.8:
		t -= 15
	}

	if snap.EMAFast > snap.EMATrend {
		t += 10
	} else if snap.EMAFast < snap.EMATrend {
		t -= 10
	}

	if s.cfg.EnableKDJContribution {
		switch {
		case snap.KDJ_J <= 0:
			t += 8
		case snap.KDJ_J >= 100:
			t -= 8
		}
	}
	if s.cfg.EnableWilliamsContribution {
		switch {
		case snap.WilliamsR <= -80:
			t += 6
		case snap.WilliamsR >= -20:
			t -= 6
		}
	}

	t = clamp(t, 0, 100)
	deviation := t - 50

	if snap.ADX < s.gates.MinADX {
		deviation *= 0.6
	}
	if snap.OBVSlope < s.gates.MinOBVSlope || snap.VolumeRatio < s.gates.MinVolumeRatio {
		deviation *= 0.7
	}
	if snap.ATRPercentile < s.gates.MinATRPercent || snap.Squeeze {
		deviation *= 0.6
	}

	return clamp(50+deviation, 0, 100)
}

// modelScore implements spec §4.3 step 2. Returns the fused score, whether
// fusion applied, and the forecast's implied direction (true=long).
func (s *Synthesizer) modelScore(forecast *core.ModelForecast) (score float64, fused bool, direction bool) {
	base := 50.0 // neutral when no forecast configured
	if forecast == nil {
		return base, false, true
	}

	direction = forecast.ScoreLong > forecast.ScoreShort
	base = 50 + 50*(forecast.ScoreLong-forecast.ScoreShort)
	base += 20 * (forecast.Confidence - 0.5)
	base = clamp(base, 0, 100)

	diff := forecast.ScoreLong - forecast.ScoreShort
	if forecast.Confidence < s.cfg.ModelConfidenceThreshold || forecast.ScoreLong < s.cfg.ModelLongThreshold || diff <= 0 {
		return base, false, direction
	}

	alpha := clamp(forecast.Confidence, 0.2, 0.8)
	if alpha > s.cfg.ModelAlphaMax {
		alpha = s.cfg.ModelAlphaMax
	}
	directional := 50 + 50*diff
	fusedScore := base*(1-alpha) + directional*alpha
	return clamp(fusedScore, 0, 100), true, direction
}

// regimeScore implements spec §4.3 step 3: a regime-dependent offset on a
// base of 50, adjusted by volatility level.
func (s *Synthesizer) regimeScore(state core.MarketStateResult) float64 {
	base := 50.0
	switch state.Regime {
	case core.RegimeTrendingUp:
		base += state.TrendStrength * 0.3
	case core.RegimeTrendingDown:
		base -= state.TrendStrength * 0.3
	case core.RegimeBreakout:
		base += state.TrendStrength * 0.2
	case core.RegimeReversal:
		base -= state.TrendStrength * 0.15
	case core.RegimeHighVolatility:
		base -= 5
	case core.RegimeLowVolatility:
		base += 2
	case core.RegimeSideways:
		// no offset
	}
	return clamp(base, 0, 100)
}

func (s *Synthesizer) discretize(combined float64) core.SignalClass {
	switch {
	case combined >= s.cfg.StrongBuyThreshold:
		return core.ClassStrongBuy
	case combined >= s.cfg.BuyThreshold:
		return core.ClassBuy
	case combined <= s.cfg.StrongSellThreshold:
		return core.ClassStrongSell
	case combined <= s.cfg.SellThreshold:
		return core.ClassSell
	default:
		return core.ClassHold
	}
}

func modelClass(forecast *core.ModelForecast) core.SignalClass {
	diff := forecast.ScoreLong - forecast.ScoreShort
	switch {
	case diff > 0.3:
		return core.ClassStrongBuy
	case diff > 0.1:
		return core.ClassBuy
	case diff < -0.3:
		return core.ClassStrongSell
	case diff < -0.1:
		return core.ClassSell
	default:
		return core.ClassHold
	}
}

// technicalConfidenceFromAgreement derives the "agreement" leg of the
// confidence formula from MTF agreement alone; the caller maxes it against
// modelConfidence/externalConfidence per spec §4.3.
func technicalConfidenceFromAgreement(agreement float64) float64 {
	return clamp(0.4+0.5*agreement, 0, 1)
}

// mtfAdjustment returns the (size, strength) multipliers from spec §4.3:
// agreement <0.35 => (0.8, 0.95); >0.8 => (1.1, 1.03); else (1, 1).
func mtfAdjustment(agreement float64) (size, strength float64) {
	switch {
	case agreement < 0.35:
		return 0.8, 0.95
	case agreement > 0.8:
		return 1.1, 1.03
	default:
		return 1, 1
	}
}

// clampAfterStrength applies the MTF strength multiplier around the neutral
// midpoint of 50 so it scales deviation, not the absolute score.
func clampAfterStrength(combined, strengthMul float64) float64 {
	return clamp(50+(combined-50)*strengthMul, 0, 100)
}

func (s *Synthesizer) reasoning(technical, model, regimeScore, combined float64, state core.MarketStateResult) string {
	return fmt.Sprintf(
		"T=%.1f M=%.1f R=%.1f -> C=%.1f regime=%s mtf=%.2f",
		technical, model, regimeScore, combined, state.Regime, state.MTFAgreement,
	)
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
