package core

// SignalClass is the 5-level categorical signal produced by the synthesizer.
type SignalClass string

const (
	ClassStrongSell SignalClass = "STRONG_SELL"
	ClassSell       SignalClass = "SELL"
	ClassHold       SignalClass = "HOLD"
	ClassBuy        SignalClass = "BUY"
	ClassStrongBuy  SignalClass = "STRONG_BUY"
)

// ModelForecast is the optional external directional-model output (the
// "Kronos" capability, see core.ModelAdapter). Absent when the capability
// is not configured or the call failed/timed out.
type ModelForecast struct {
	ScoreLong  float64 // 0..1
	ScoreShort float64 // 0..1
	Confidence float64 // 0..1
}

// SignalResult is the fused output of the signal synthesizer (C3).
type SignalResult struct {
	Symbol          string
	Class           SignalClass
	TechnicalScore  float64 // 0..100
	ModelScore      float64 // 0..100, fused
	CombinedScore   float64 // 0..100
	Confidence      float64 // 0..1
	ModelOverride   bool    // true when high model confidence overrode the C-based class
	Metadata        SignalMetadata
}

// SignalMetadata records the intermediate values used to reach CombinedScore,
// useful for sample logging (C7) and debugging.
type SignalMetadata struct {
	RegimeScore        float64
	DisagreementPenalty float64
	MTFAgreement        float64
	Regime              Regime
	Reasoning           string
}

// RecommendationAction is the user-visible action the gate & risk layer (C4)
// recommends for the current tick. The latest analysis always exposes a
// well-formed recommendation; transient infrastructure failures never leak
// as crashes (see spec §7).
type RecommendationAction string

const (
	ActionOpenLong        RecommendationAction = "OPEN_LONG"
	ActionOpenShort       RecommendationAction = "OPEN_SHORT"
	ActionClosePosition   RecommendationAction = "CLOSE_POSITION"
	ActionReducePosition  RecommendationAction = "REDUCE_POSITION"
	ActionHold            RecommendationAction = "HOLD"
)

// Recommendation is the final output of the gate & risk layer for a tick.
type Recommendation struct {
	Action RecommendationAction
	Reason string
	Plan   *RiskPlan // nil unless Action is an OPEN_*
}
