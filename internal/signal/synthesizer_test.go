package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raykavin/signalengine/internal/core"
)

func strongBullSnapshot() core.IndicatorSnapshot {
	return core.IndicatorSnapshot{
		Symbol:        "BTCUSDT",
		RSI:           25,
		MACDHist:      0.01,
		BollPosition:  0.1,
		EMAFast:       110,
		EMATrend:      100,
		KDJ_J:         -1,
		WilliamsR:     -90,
		ADX:           30,
		OBVSlope:      1,
		VolumeRatio:   1.2,
		ATRPercentile: 0.5,
		Squeeze:       false,
	}
}

func neutralState() core.MarketStateResult {
	return core.MarketStateResult{Regime: core.RegimeSideways, MTFAgreement: 0.6}
}

func TestSynthesize_StrongBullSnapshotYieldsBuy(t *testing.T) {
	s := New(DefaultConfig(), DefaultGateThresholds())
	res := s.Synthesize(strongBullSnapshot(), neutralState(), nil)
	assert.Equal(t, core.ClassBuy, res.Class)
	assert.Greater(t, res.CombinedScore, DefaultConfig().BuyThreshold)
}

func TestSynthesize_UptrendRegimeRaisesCombinedScoreOverSideways(t *testing.T) {
	s := New(DefaultConfig(), DefaultGateThresholds())
	uptrend := core.MarketStateResult{Regime: core.RegimeTrendingUp, TrendStrength: 80, MTFAgreement: 0.6}

	resSideways := s.Synthesize(strongBullSnapshot(), neutralState(), nil)
	resUptrend := s.Synthesize(strongBullSnapshot(), uptrend, nil)
	assert.Greater(t, resUptrend.CombinedScore, resSideways.CombinedScore)
}

func TestSynthesize_NeutralSnapshotYieldsHold(t *testing.T) {
	s := New(DefaultConfig(), DefaultGateThresholds())
	snap := core.IndicatorSnapshot{Symbol: "BTCUSDT", RSI: 50, BollPosition: 0.5}
	res := s.Synthesize(snap, neutralState(), nil)
	assert.Equal(t, core.ClassHold, res.Class)
}

func TestSynthesize_WeakTrendDampensDeviation(t *testing.T) {
	s := New(DefaultConfig(), DefaultGateThresholds())
	strong := strongBullSnapshot()
	weak := strong
	weak.ADX = 5 // below MinADX, triggers the 0.6 damping multiplier

	resStrong := s.Synthesize(strong, neutralState(), nil)
	resWeak := s.Synthesize(weak, neutralState(), nil)
	assert.Less(t, resWeak.TechnicalScore, resStrong.TechnicalScore)
}

func TestSynthesize_ModelOverrideAppliesAtHighConfidence(t *testing.T) {
	s := New(DefaultConfig(), DefaultGateThresholds())
	snap := core.IndicatorSnapshot{Symbol: "BTCUSDT", RSI: 50, BollPosition: 0.5}
	forecast := &core.ModelForecast{ScoreLong: 0.9, ScoreShort: 0.1, Confidence: 0.95}

	res := s.Synthesize(snap, neutralState(), forecast)
	assert.True(t, res.ModelOverride)
	assert.Equal(t, core.ClassStrongBuy, res.Class)
}

func TestSynthesize_DisagreementPenaltyWhenModelContradictsTechnical(t *testing.T) {
	s := New(DefaultConfig(), DefaultGateThresholds())
	bearSnap := core.IndicatorSnapshot{
		Symbol: "BTCUSDT", RSI: 80, MACDHist: -0.01, BollPosition: 0.9,
		EMAFast: 90, EMATrend: 100, KDJ_J: 100, WilliamsR: -10,
		ADX: 30, OBVSlope: 1, VolumeRatio: 1.2, ATRPercentile: 0.5,
	}
	bullFusedForecast := &core.ModelForecast{ScoreLong: 0.9, ScoreShort: 0.1, Confidence: 0.65}

	withModel := s.Synthesize(bearSnap, neutralState(), bullFusedForecast)
	withoutModel := s.Synthesize(bearSnap, neutralState(), nil)

	assert.Greater(t, withModel.Metadata.DisagreementPenalty, 0.0)
	assert.Greater(t, withModel.CombinedScore, withoutModel.CombinedScore)
}

func TestSynthesize_ConfidenceReflectsMTFAgreement(t *testing.T) {
	s := New(DefaultConfig(), DefaultGateThresholds())
	snap := core.IndicatorSnapshot{Symbol: "BTCUSDT", RSI: 50, BollPosition: 0.5}

	lowAgreement := core.MarketStateResult{Regime: core.RegimeSideways, MTFAgreement: 0.1}
	highAgreement := core.MarketStateResult{Regime: core.RegimeSideways, MTFAgreement: 0.95}

	low := s.Synthesize(snap, lowAgreement, nil)
	high := s.Synthesize(snap, highAgreement, nil)
	assert.Less(t, low.Confidence, high.Confidence)
}

func TestSynthesize_RegimeScoreShiftsWithTrendStrength(t *testing.T) {
	s := New(DefaultConfig(), DefaultGateThresholds())
	snap := core.IndicatorSnapshot{Symbol: "BTCUSDT", RSI: 50, BollPosition: 0.5}

	up := core.MarketStateResult{Regime: core.RegimeTrendingUp, TrendStrength: 50, MTFAgreement: 0.6}
	down := core.MarketStateResult{Regime: core.RegimeTrendingDown, TrendStrength: 50, MTFAgreement: 0.6}

	resUp := s.Synthesize(snap, up, nil)
	resDown := s.Synthesize(snap, down, nil)
	assert.Greater(t, resUp.Metadata.RegimeScore, resDown.Metadata.RegimeScore)
}
