package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raykavin/signalengine/internal/core"
)

func TestClassify_StrongUptrendYieldsTrendingUp(t *testing.T) {
	c := New(DefaultConfig())
	snap := core.IndicatorSnapshot{
		Symbol: "BTCUSDT", ADX: 30, EMAFast: 105, EMASlow: 100, MACDHist: 0.5,
		VolatilityLevel: core.VolatilityMedium, VolumeRatio: 1.5,
	}
	state := c.Classify(snap, nil)
	assert.Equal(t, core.RegimeTrendingUp, state.Regime)
	assert.Equal(t, 30.0, state.TrendStrength)
}

func TestClassify_StrongDowntrendYieldsTrendingDown(t *testing.T) {
	c := New(DefaultConfig())
	snap := core.IndicatorSnapshot{
		Symbol: "BTCUSDT", ADX: 30, EMAFast: 95, EMASlow: 100, MACDHist: -0.5,
		VolatilityLevel: core.VolatilityMedium, VolumeRatio: 1.5,
	}
	state := c.Classify(snap, nil)
	assert.Equal(t, core.RegimeTrendingDown, state.Regime)
}

func TestClassify_ExtremeVolatilityWithBandBreachYieldsBreakout(t *testing.T) {
	c := New(DefaultConfig())
	snap := core.IndicatorSnapshot{
		Symbol: "BTCUSDT", ADX: 10, EMAFast: 100, EMASlow: 100,
		VolatilityLevel: core.VolatilityExtreme, BollPosition: 1.0, VolumeRatio: 1,
	}
	state := c.Classify(snap, nil)
	assert.Equal(t, core.RegimeBreakout, state.Regime)
}

func TestClassify_HighVolatilityWithoutBreachYieldsHighVolatility(t *testing.T) {
	c := New(DefaultConfig())
	snap := core.IndicatorSnapshot{
		Symbol: "BTCUSDT", ADX: 10, EMAFast: 100, EMASlow: 100,
		VolatilityLevel: core.VolatilityHigh, BollPosition: 0.5, BollBandwidth: 0.2, VolumeRatio: 1,
	}
	state := c.Classify(snap, nil)
	assert.Equal(t, core.RegimeHighVolatility, state.Regime)
}

func TestClassify_LowVolatilityYieldsLowVolatility(t *testing.T) {
	c := New(DefaultConfig())
	snap := core.IndicatorSnapshot{
		Symbol: "BTCUSDT", ADX: 10, EMAFast: 100, EMASlow: 100,
		VolatilityLevel: core.VolatilityLow, VolumeRatio: 1,
	}
	state := c.Classify(snap, nil)
	assert.Equal(t, core.RegimeLowVolatility, state.Regime)
}

func TestClassify_OverboughtRSIDivergingFromMACDYieldsReversal(t *testing.T) {
	c := New(DefaultConfig())
	snap := core.IndicatorSnapshot{
		Symbol: "BTCUSDT", ADX: 10, EMAFast: 100, EMASlow: 100,
		VolatilityLevel: core.VolatilityMedium, RSI: 75, MACDHist: 0.2, VolumeRatio: 1,
	}
	state := c.Classify(snap, nil)
	assert.Equal(t, core.RegimeReversal, state.Regime)
}

func TestClassify_NoSignalYieldsSideways(t *testing.T) {
	c := New(DefaultConfig())
	snap := core.IndicatorSnapshot{
		Symbol: "BTCUSDT", ADX: 10, EMAFast: 100, EMASlow: 100,
		VolatilityLevel: core.VolatilityMedium, RSI: 50, VolumeRatio: 1,
	}
	state := c.Classify(snap, nil)
	assert.Equal(t, core.RegimeSideways, state.Regime)
}

func TestClassify_LiquidityLabelsFollowVolumeRatio(t *testing.T) {
	c := New(DefaultConfig())
	cases := []struct {
		ratio float64
		want  core.LiquidityLabel
	}{
		{5, core.LiquidityHigh},
		{3, core.LiquidityMedium},
		{1.5, core.LiquidityLow},
		{0.2, core.LiquidityIlliquid},
	}
	for _, tc := range cases {
		snap := core.IndicatorSnapshot{Symbol: "BTCUSDT", VolatilityLevel: core.VolatilityMedium, VolumeRatio: tc.ratio}
		state := c.Classify(snap, nil)
		assert.Equal(t, tc.want, state.Liquidity)
	}
}

func TestClassify_MTFAgreement_FullAgreementIsOne(t *testing.T) {
	c := New(DefaultConfig())
	snap := core.IndicatorSnapshot{Symbol: "BTCUSDT", EMAFast: 105, EMASlow: 100, VolatilityLevel: core.VolatilityMedium}
	secondary := map[core.Interval]core.IndicatorSnapshot{
		core.Interval("5m"):  {EMAFast: 106, EMASlow: 100},
		core.Interval("15m"): {EMAFast: 110, EMASlow: 100},
	}
	state := c.Classify(snap, secondary)
	assert.Equal(t, 1.0, state.MTFAgreement)
}

func TestClassify_MTFAgreement_IgnoresPrimaryInDenominator(t *testing.T) {
	c := New(DefaultConfig())
	// Primary is UP; both secondaries are DOWN and agree with each other,
	// so agreement is 1.0 even though neither secondary matches primary.
	snap := core.IndicatorSnapshot{Symbol: "BTCUSDT", EMAFast: 105, EMASlow: 100, VolatilityLevel: core.VolatilityMedium}
	secondary := map[core.Interval]core.IndicatorSnapshot{
		core.Interval("5m"):  {EMAFast: 95, EMASlow: 100},
		core.Interval("15m"): {EMAFast: 90, EMASlow: 100},
	}
	state := c.Classify(snap, secondary)
	assert.Equal(t, 1.0, state.MTFAgreement)
}

func TestClassify_MTFAgreement_SplitSecondariesIsHalf(t *testing.T) {
	c := New(DefaultConfig())
	snap := core.IndicatorSnapshot{Symbol: "BTCUSDT", EMAFast: 105, EMASlow: 100, VolatilityLevel: core.VolatilityMedium}
	secondary := map[core.Interval]core.IndicatorSnapshot{
		core.Interval("5m"):  {EMAFast: 95, EMASlow: 100},
		core.Interval("15m"): {EMAFast: 106, EMASlow: 100},
	}
	state := c.Classify(snap, secondary)
	assert.InDelta(t, 0.5, state.MTFAgreement, 1e-9)
}

func TestClassify_TransitionProbabilities_SumToOne(t *testing.T) {
	c := New(DefaultConfig())
	snap := core.IndicatorSnapshot{
		Symbol: "BTCUSDT", ADX: 30, EMAFast: 105, EMASlow: 100, MACDHist: 0.5,
		VolatilityLevel: core.VolatilityMedium, VolumeRatio: 1.5, ADXTrend: core.ADXStrengthening,
	}
	state := c.Classify(snap, nil)

	var sum float64
	for _, p := range state.StateTransitionProbability {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, state.StateTransitionProbability[core.RegimeTrendingUp], state.StateTransitionProbability[core.RegimeSideways])
}
